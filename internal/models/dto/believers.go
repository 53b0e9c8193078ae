package dto

// BelieverForm is the raw create/edit payload: an open field map keyed by
// column name. Unknown keys and blank values are discarded by the normalizer
// before the map reaches storage.
type BelieverForm map[string]any

// SyncRequest carries the edited grid snapshot for bulk reconciliation. Each
// row is keyed by column name and may carry the extra "Eliminar" flag.
type SyncRequest struct {
	Rows []map[string]any `json:"rows"`
}

// RowError reports a single row that failed during reconciliation.
type RowError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// SyncResponse summarizes a reconciliation pass.
type SyncResponse struct {
	DeletedIDs []int64    `json:"deleted_ids"`
	UpdatedIDs []int64    `json:"updated_ids"`
	Errors     []RowError `json:"errors,omitempty"`
}

// CreatedResponse returns the server-generated identifier of a new record.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// AffectedResponse reports how many rows a mutation touched.
type AffectedResponse struct {
	ID       int64 `json:"id"`
	Affected int64 `json:"affected"`
}
