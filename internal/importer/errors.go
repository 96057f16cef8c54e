package importer

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError is returned when the uploaded file extension is not
// a recognized tabular format.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s (use CSV or XLSX)", e.Ext)
}

// MissingColumnError is returned when no column resolves to the required
// comment field after alias resolution.
type MissingColumnError struct {
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf(
		"missing required column: comment. Available columns: [%s]. Required: a comment column with feedback text",
		strings.Join(e.Available, ", "),
	)
}
