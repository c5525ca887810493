package turns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type reportPayload struct {
	Message string      `json:"message"`
	Error   string      `json:"error"`
	Context interface{} `json:"context,omitempty"`
}

// WriteReport serializes a failed exchange to a JSON file under the temp
// directory and returns its path. The file name carries a provenance tag and
// a timestamp so multiple failures never collide. Reporting is best-effort:
// callers treat a returned error as debug-log material, never as a failure
// of the turn itself.
func WriteReport(message string, err error, reportContext interface{}, tag string) (string, error) {
	payload := reportPayload{
		Message: message,
		Error:   err.Error(),
		Context: reportContext,
	}

	b, marshalErr := json.MarshalIndent(payload, "", "  ")
	if marshalErr != nil {
		// The context can carry values JSON cannot express. Drop it and
		// keep the error itself.
		payload.Context = nil
		b, marshalErr = json.MarshalIndent(payload, "", "  ")
		if marshalErr != nil {
			return "", errors.Wrap(marshalErr, "failed to marshal diagnostic report")
		}
	}

	stamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	path := filepath.Join(os.TempDir(), fmt.Sprintf("jiminy-client-error-%s-%s.json", tag, stamp))

	if writeErr := os.WriteFile(path, b, 0o600); writeErr != nil {
		return "", errors.Wrap(writeErr, "failed to write diagnostic report")
	}
	return path, nil
}
