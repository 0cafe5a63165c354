package utils

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/username/finledger/backend/src/logger"
)

// SendJSON writes a JSON response with the given status code.
func SendJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

// SendJSONError writes a JSON error body {"error": message}.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	SendJSON(w, map[string]string{"error": message}, statusCode)
}

// RoundFloat rounds to the given number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
