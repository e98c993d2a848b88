// Package validator checks ingestion requests and reports every failing
// field at once.
package validator

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/ingestion"
)

const (
	maxDocumentIDLength = 128
	maxTitleLength      = 1024
	maxBodyLength       = 1 << 20
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest requires a title or a body, bounds their sizes and
// rejects document IDs containing spaces or control characters.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	if id := req.DocumentID; id != "" {
		if len(id) > maxDocumentIDLength {
			errs["document_id"] = fmt.Sprintf("must be at most %d bytes", maxDocumentIDLength)
		} else if strings.ContainsFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) {
			errs["document_id"] = "must not contain whitespace or control characters"
		}
	}
	title, body := strings.TrimSpace(req.Title), strings.TrimSpace(req.Body)
	if title == "" && body == "" {
		errs["body"] = "title or body is required"
	}
	if len(req.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("must be at most %d bytes", maxTitleLength)
	}
	if len(req.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("must be at most %d bytes", maxBodyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
