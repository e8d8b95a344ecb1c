// Package report serializes run snapshots for external consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
)

// Write renders the snapshot as indented JSON. A non-empty JMESPath query is
// applied to the report document first, so callers can extract slices like
// failed jobs or per-cloud summaries.
func Write(w io.Writer, snap model.RunSnapshot, query string) error {
	var doc any = snap
	if query != "" {
		// Round-trip through generic JSON so the query sees the wire
		// field names, not Go struct fields.
		raw, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("decode report: %w", err)
		}
		result, err := jmespath.Search(query, generic)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeValidation, "invalid report query "+query, err)
		}
		if result == nil {
			// Still prints `null` so stdout stays machine-parseable, but a
			// miss is distinguishable from an empty result in the log.
			slog.Warn("report query matched nothing", "query", query)
		}
		doc = result
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ExitCode maps a snapshot onto the process exit code: zero iff every
// non-skipped job passed.
func ExitCode(snap model.RunSnapshot) int {
	if snap.Succeeded() {
		return 0
	}
	return 1
}
