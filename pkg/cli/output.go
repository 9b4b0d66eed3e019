package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/saturn/pkg/gate"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// Formatter formats command output.
type Formatter interface {
	Format(data interface{}) ([]byte, error)
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter formats output as plain text.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data interface{}) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data interface{}) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}

// WriteAuditTable renders audit records as an aligned table, one line per
// decision, followed by a record count. Used by offline audit review.
func WriteAuditTable(w io.Writer, records []*gate.LogRecord) error {
	for _, rec := range records {
		_, err := fmt.Fprintf(w, "%s  #%d  %-10s  %-8s  %-40q  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.ID,
			rec.Username,
			rec.Status,
			rec.CommandText,
			rec.Reason,
		)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d records\n", len(records))
	return err
}
