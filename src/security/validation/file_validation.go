// backend/src/security/validation/file_validation.go
package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/finledger/backend/src/logger"
)

// Client-declared MIME types accepted for a raw export upload. Banks label
// CSV downloads inconsistently, so the common plain-text aliases are all
// allowed; the header is advisory and ValidateFileContent still inspects
// the bytes.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
}

// ValidateClientContentType checks the Content-Type header sent with an
// upload against the accepted raw export types.
func ValidateClientContentType(contentType string) error {
	if !allowedClientContentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		logger.L.Warn("Rejected client-declared content type", "contentType", contentType)
		return fmt.Errorf("content type %q is not accepted for raw file uploads", contentType)
	}
	return nil
}

// ValidateFileContent reads the head of an upload and verifies it looks like
// a text table rather than a binary. The read position is rewound afterwards
// so the staging copy starts at byte zero.
func ValidateFileContent(file io.ReadSeeker) error {
	if file == nil {
		return fmt.Errorf("no file provided")
	}

	head := make([]byte, 1024)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding upload: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("uploaded file is empty")
	}
	head = head[:n]

	if bytes.IndexByte(head, 0) != -1 || !utf8.Valid(head) {
		logger.L.Warn("Rejected upload with binary content")
		return fmt.Errorf("uploaded file is binary, not a text export")
	}

	// DetectContentType answers octet-stream for anything it does not
	// recognize, which for a file that already passed the text check means
	// an export format no signature declares.
	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	switch detected {
	case "text/plain", "text/csv", "application/csv":
		return nil
	}
	logger.L.Warn("Rejected upload by detected content type", "detected", detected)
	return fmt.Errorf("detected content type %q is not accepted", detected)
}
