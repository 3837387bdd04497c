package domain

import "strings"

// TaskDescriptor describes one diagnostic task known to the catalog.
type TaskDescriptor struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	AdminRequired bool   `json:"admin_required"`
}

// TaskID derives the stable task identifier from a display name:
// "Physical Memory" becomes "physical_memory".
func TaskID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// OutputFormat selects what a session produces.
type OutputFormat string

const (
	OutputFormatJSON    OutputFormat = "json"
	OutputFormatArchive OutputFormat = "archive"
	OutputFormatBoth    OutputFormat = "both"
)

// ParseOutputFormat accepts json, archive (or zip) and both.
// An empty string selects OutputFormatBoth.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OutputFormatBoth, nil
	case "json":
		return OutputFormatJSON, nil
	case "archive", "zip":
		return OutputFormatArchive, nil
	case "both":
		return OutputFormatBoth, nil
	default:
		return "", &RequestError{Field: "output_format", Reason: "unsupported value " + s}
	}
}

// WantsArchive reports whether the session output is packed into an archive.
func (f OutputFormat) WantsArchive() bool {
	return f == OutputFormatArchive || f == OutputFormatBoth
}

// SessionRequest is the input of a new diagnostic session.
type SessionRequest struct {
	TaskIDs      []string     `json:"selected_tasks"`
	OutputFormat OutputFormat `json:"output_format,omitempty"`
}
