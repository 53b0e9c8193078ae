package registry

import (
	"time"

	"github.com/jdorantes1987/aapn-nc/internal/models"
)

// Normalize filters a raw field map down to the believer column allow-list and
// defaults the bookkeeping timestamps. Unknown keys never survive, so
// malformed or extra form fields cannot reach SQL. A key whose value is nil or
// an empty string is dropped even when allow-listed; blanks must not overwrite
// existing data. Consequence: a field cannot be cleared to blank through this
// path. That mirrors the tool's long-standing behavior and stays until the
// business confirms otherwise.
//
// Pure function; the caller supplies the current time.
func Normalize(raw map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(raw))
	for _, col := range models.BelieverColumns {
		v, ok := raw[col]
		if !ok || isBlank(v) {
			continue
		}
		out[col] = v
	}
	if _, ok := out[models.ColFechaIn]; !ok {
		out[models.ColFechaIn] = now
	}
	if _, ok := out[models.ColFechaMod]; !ok {
		out[models.ColFechaMod] = now
	}
	return out
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
