package catalog

import (
	"github.com/githubixx/mythrecordings-go/internal/domain"
)

// Recording groups and values that never show up in listings.
const (
	recGroupDeleted = "Deleted"
	recGroupLiveTV  = "LiveTV"
	titleUnknown    = "Unknown"
)

// IsCandidate applies the fixed exclusion rules: deleted and live TV
// recordings, empty files and untitled programs are never listed.
func IsCandidate(rec domain.RawRecording) bool {
	if group, err := rec.Lookup(domain.FieldRecGroup); err == nil {
		if group == recGroupDeleted || group == recGroupLiveTV {
			return false
		}
	}
	if size, err := rec.Lookup(domain.FieldFileSize); err == nil && size == "0" {
		return false
	}
	if title, err := rec.Lookup(domain.FieldTitle); err == nil && title == titleUnknown {
		return false
	}
	return true
}

// checkMandatory returns a *domain.RecordError for the first mandatory field
// missing from rec.
func checkMandatory(rec domain.RawRecording) error {
	for _, field := range domain.MandatoryFields {
		if _, err := rec.Lookup(field); err != nil {
			return &domain.RecordError{Title: recordLabel(rec), Field: field, Err: err}
		}
	}
	return nil
}

// recordLabel names a record in diagnostics.
func recordLabel(rec domain.RawRecording) string {
	if title, err := rec.Lookup(domain.FieldTitle); err == nil && title != "" {
		return title
	}
	if name, err := rec.Lookup(domain.FieldFileName); err == nil {
		return name
	}
	return "?"
}
