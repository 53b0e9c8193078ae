package registry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// Row is a tabular snapshot row keyed by column name. Edited rows may carry
// the extra DeleteFlag column.
type Row = map[string]any

// DeleteFlag is the per-row "mark for deletion" column of the editable grid.
const DeleteFlag = "Eliminar"

// RowError reports a row that failed during a reconciliation pass. ID keeps
// the raw identifier value so unparseable ones can still be reported.
type RowError struct {
	ID      string
	Message string
}

// Result is the outcome of one reconciliation pass: the identifiers actually
// removed, the identifiers actually updated, and per-row failures. Failures
// never abort the batch.
type Result struct {
	Deleted []int64
	Updated []int64
	Errors  []RowError
}

// Changed reports whether any repository call succeeded, i.e. whether the
// caller must refresh its cached listing and re-render.
func (r Result) Changed() bool {
	return len(r.Deleted) > 0 || len(r.Updated) > 0
}

// trackedColumns are the columns compared between edited and original rows:
// the allow-list minus the identifier and the bookkeeping fields. Creation
// bookkeeping is never diffed so it can never be overwritten; modification
// bookkeeping is stamped explicitly.
var trackedColumns = func() []string {
	skip := map[string]struct{}{
		models.ColID:       {},
		models.ColFechaIn:  {},
		models.ColUserIn:   {},
		models.ColFechaMod: {},
		models.ColUserMod:  {},
	}
	var out []string
	for _, c := range models.BelieverColumns {
		if _, ok := skip[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}()

// Reconciler diffs an edited grid snapshot against its pre-edit original and
// drives repository deletes and updates. Row identity is always the
// identifier column, never the position: deletions and grid reordering make
// positions meaningless.
type Reconciler struct {
	store storage.BelieverStore
	log   *slog.Logger
	now   func() time.Time
}

// NewReconciler builds a reconciler over the given store.
func NewReconciler(store storage.BelieverStore, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{store: store, log: log, now: time.Now}
}

// Reconcile runs the deletion pass and then the update pass over the edited
// snapshot. actor is the acting user id stamped as modifier on every staged
// change-set. Per-row failures (bad identifier, storage error, zero affected
// rows) are collected in the result and do not stop the remaining rows.
func (r *Reconciler) Reconcile(ctx context.Context, edited, original []Row, actor int64) Result {
	var res Result

	origByID := make(map[int64]Row, len(original))
	for _, row := range original {
		id, err := coerceID(row[models.ColID])
		if err != nil {
			continue
		}
		origByID[id] = row
	}

	deleted := make(map[int64]bool)
	for _, row := range edited {
		if !DeleteFlagSet(row[DeleteFlag]) {
			continue
		}
		id, err := coerceID(row[models.ColID])
		if err != nil {
			res.Errors = append(res.Errors, rowError(row, "identificador inválido"))
			continue
		}
		affected, err := r.store.Delete(ctx, id)
		if err != nil {
			r.log.Error("delete believer failed", "id", id, "error", err)
			res.Errors = append(res.Errors, RowError{ID: strconv.FormatInt(id, 10), Message: "no se pudo eliminar el registro"})
			continue
		}
		if affected == 0 {
			res.Errors = append(res.Errors, RowError{ID: strconv.FormatInt(id, 10), Message: "el registro ya no existe"})
			continue
		}
		deleted[id] = true
		res.Deleted = append(res.Deleted, id)
	}

	for _, row := range edited {
		if DeleteFlagSet(row[DeleteFlag]) {
			continue
		}
		id, err := coerceID(row[models.ColID])
		if err != nil {
			res.Errors = append(res.Errors, rowError(row, "identificador inválido"))
			continue
		}
		if deleted[id] {
			continue
		}
		orig, ok := origByID[id]
		if !ok {
			// Unknown to the original snapshot; bulk insertion is not
			// supported here.
			continue
		}

		changes := diffRow(row, orig)
		if len(changes) == 0 {
			continue
		}
		changes[models.ColUserMod] = actor
		payload := Normalize(changes, r.now())
		// Creation bookkeeping is set once at creation; never let an update
		// touch it.
		delete(payload, models.ColFechaIn)
		delete(payload, models.ColUserIn)

		affected, err := r.store.Update(ctx, id, payload)
		if err != nil {
			r.log.Error("update believer failed", "id", id, "error", err)
			res.Errors = append(res.Errors, RowError{ID: strconv.FormatInt(id, 10), Message: "no se pudo actualizar el registro"})
			continue
		}
		if affected == 0 {
			res.Errors = append(res.Errors, RowError{ID: strconv.FormatInt(id, 10), Message: "ninguna fila actualizada"})
			continue
		}
		res.Updated = append(res.Updated, id)
	}

	return res
}

// diffRow compares the tracked columns of an edited row against the original
// and returns the change-set of columns whose normalized values differ.
// Staged strings are upper-cased; names and codes are stored upper-case
// throughout the system.
func diffRow(edited, orig Row) map[string]any {
	changes := make(map[string]any)
	for _, col := range trackedColumns {
		oldV, oldAbsent := canonical(orig[col])
		newV, newAbsent := canonical(edited[col])
		if oldAbsent && newAbsent {
			continue
		}
		if !oldAbsent && !newAbsent && oldV == newV {
			continue
		}
		staged := edited[col]
		if s, ok := staged.(string); ok {
			staged = strings.ToUpper(s)
		}
		changes[col] = staged
	}
	return changes
}

// canonical collapses a cell value into a comparable form. nil, empty strings
// and NaN all normalize to absent; both sides must agree on what "no value"
// means or every render fires spurious updates. Date-typed values are reduced
// to calendar-date granularity before comparison.
func canonical(v any) (value any, absent bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		if t == "" {
			return nil, true
		}
		if d, ok := parseDate(t); ok {
			return d, false
		}
		return t, false
	case time.Time:
		if t.IsZero() {
			return nil, true
		}
		return t.Format("2006-01-02"), false
	case bool:
		return t, false
	case float64:
		if math.IsNaN(t) {
			return nil, true
		}
		return t, false
	case float32:
		if math.IsNaN(float64(t)) {
			return nil, true
		}
		return float64(t), false
	case int:
		return float64(t), false
	case int16:
		return float64(t), false
	case int32:
		return float64(t), false
	case int64:
		return float64(t), false
	default:
		return fmt.Sprintf("%v", t), false
	}
}

// parseDate recognizes the date layouts the grid produces and reduces them to
// calendar-date granularity.
func parseDate(s string) (string, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02"), true
		}
	}
	return "", false
}

// coerceID converts a grid identifier cell to int64. Grids hand identifiers
// back as JSON numbers or strings; a value that cannot be coerced aborts only
// that row's operation.
func coerceID(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if math.IsNaN(t) || t != math.Trunc(t) {
			return 0, fmt.Errorf("non-integral identifier %v", t)
		}
		return int64(t), nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("identifier %q: %w", t, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("identifier of type %T", v)
	}
}

// DeleteFlagSet interprets the deletion-flag cell; grids deliver it as bool,
// number or string depending on the client.
func DeleteFlagSet(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func rowError(row Row, msg string) RowError {
	return RowError{ID: fmt.Sprintf("%v", row[models.ColID]), Message: msg}
}
