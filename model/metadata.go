package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/averix/groundling/helper"
)

// Metadata represents JSONB passage metadata stored in PostgreSQL.
// Ingestion attaches at least "keywords" and "topics" string arrays; the
// retriever's filter fallback chain matches against those keys.
type Metadata map[string]interface{}

// Keys used by the metadata-boosted retrieval filters.
const (
	MetadataKeywords = "keywords"
	MetadataTopics   = "topics"
)

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}

// StringList returns the metadata value under key as a string slice,
// tolerating both []string and the []interface{} produced by JSON decoding.
func (m Metadata) StringList(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
