// backend/src/parsers/parser.go

// Package parsers defines the reader contract for raw bank exports and the
// static registry that selects an implementation per file extension.
// Registration happens explicitly at startup; there is no name-based dynamic
// dispatch at call time.
package parsers

import (
	"fmt"
	"strings"

	"github.com/username/finledger/backend/src/models"
	"github.com/username/finledger/backend/src/signatures"
)

// Reader converts the raw files of one (bank, account) into standardized
// ledger rows. Implementations must skip unreadable files (logging the error)
// rather than failing the whole batch.
type Reader interface {
	Parse(filePaths []string, sig signatures.Signature, bank, account string) ([]models.Transaction, error)
}

// Registry maps a file extension to its Reader.
type Registry struct {
	readers map[string]Reader
}

func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register binds a reader to an extension (e.g. ".csv"). Later registrations
// for the same extension replace earlier ones.
func (r *Registry) Register(extension string, reader Reader) {
	r.readers[strings.ToLower(extension)] = reader
}

// ReaderFor returns the reader registered for an extension.
func (r *Registry) ReaderFor(extension string) (Reader, error) {
	reader, ok := r.readers[strings.ToLower(extension)]
	if !ok {
		return nil, fmt.Errorf("no reader registered for extension %q", extension)
	}
	return reader, nil
}
