package orchestrator

import (
	"fmt"
	"strings"

	"github.com/aescanero/wfdiag/pkg/domain"
)

// MaxTaskIDs bounds the size of a single request.
const MaxTaskIDs = 256

// Validator validates session requests
type Validator struct {
	maxTaskIDs int
}

// NewValidator creates a new request validator
func NewValidator() *Validator {
	return &Validator{maxTaskIDs: MaxTaskIDs}
}

// Validate checks req and returns it normalized: ids trimmed and the output
// format resolved to one of json, archive or both. Unknown ids are not an
// error here; the catalog drops them. An empty id list is valid.
func (v *Validator) Validate(req domain.SessionRequest) (domain.SessionRequest, error) {
	format, err := domain.ParseOutputFormat(string(req.OutputFormat))
	if err != nil {
		return req, err
	}

	if len(req.TaskIDs) > v.maxTaskIDs {
		return req, &domain.RequestError{
			Field:  "selected_tasks",
			Reason: fmt.Sprintf("at most %d task ids are allowed, got %d", v.maxTaskIDs, len(req.TaskIDs)),
		}
	}

	ids := make([]string, 0, len(req.TaskIDs))
	for i, id := range req.TaskIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return req, &domain.RequestError{
				Field:  "selected_tasks",
				Reason: fmt.Sprintf("task id at index %d is empty", i),
			}
		}
		ids = append(ids, id)
	}

	return domain.SessionRequest{TaskIDs: ids, OutputFormat: format}, nil
}
