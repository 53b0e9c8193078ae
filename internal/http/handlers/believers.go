package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/http/respond"
	"github.com/jdorantes1987/aapn-nc/internal/middleware"
	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/models/dto"
	"github.com/jdorantes1987/aapn-nc/internal/registry"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// BelieversHandler exposes the registry screens as explicit endpoints: the
// listing, the create/edit forms, single-record delete, the lookup selects,
// and the bulk grid sync.
type BelieversHandler struct {
	svc     *registry.Service
	manager *auth.Manager
	log     *slog.Logger
}

// NewBelieversHandler constructs the handler.
func NewBelieversHandler(svc *registry.Service, manager *auth.Manager, log *slog.Logger) *BelieversHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BelieversHandler{svc: svc, manager: manager, log: log}
}

// Register attaches the believers routes. The router is expected to already
// require authentication; per-route permissions are applied here.
func (h *BelieversHandler) Register(r chi.Router) {
	read := middleware.RequirePermission(h.manager, models.ResourceCreyentes, models.ActionRead)
	create := middleware.RequirePermission(h.manager, models.ResourceCreyentes, models.ActionCreate)
	edit := middleware.RequirePermission(h.manager, models.ResourceCreyentes, models.ActionEdit)
	del := middleware.RequirePermission(h.manager, models.ResourceCreyentes, models.ActionDelete)

	r.With(read).Get("/creyentes", h.handleList)
	r.With(create).Post("/creyentes", h.handleCreate)
	r.With(read).Get("/creyentes/{id}", h.handleGet)
	r.With(read).Get("/creyentes/cedula/{cedula}", h.handleGetByCedula)
	r.With(edit).Put("/creyentes/{id}", h.handleUpdate)
	r.With(del).Delete("/creyentes/{id}", h.handleDelete)
	r.With(edit).Post("/creyentes/sync", h.handleSync)
	r.With(read).Get("/redes", h.handleNetworks)
	r.With(read).Get("/profesiones", h.handleProfessions)
}

func (h *BelieversHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Listing(r.Context())
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	if len(rows) == 0 {
		respond.JSON(w, http.StatusOK, "no se encontraron registros", rows)
		return
	}
	respond.JSON(w, http.StatusOK, fmt.Sprintf("%d registros", len(rows)), rows)
}

func (h *BelieversHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var form dto.BelieverForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond.Error(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	id, err := h.svc.SubmitCreate(r.Context(), principal.UserID, form)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	respond.JSON(w, http.StatusCreated, fmt.Sprintf("creado con Id %d", id), dto.CreatedResponse{ID: id})
}

func (h *BelieversHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	respond.JSON(w, http.StatusOK, "registro encontrado", record)
}

func (h *BelieversHandler) handleGetByCedula(w http.ResponseWriter, r *http.Request) {
	cedula := strings.TrimSpace(chi.URLParam(r, "cedula"))
	if cedula == "" {
		respond.Error(w, http.StatusBadRequest, "cédula inválida")
		return
	}
	record, err := h.svc.GetByCedula(r.Context(), cedula)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	respond.JSON(w, http.StatusOK, "registro encontrado", record)
}

func (h *BelieversHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var form dto.BelieverForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond.Error(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	affected, err := h.svc.SubmitEdit(r.Context(), principal.UserID, id, form)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	if affected == 0 {
		respond.Error(w, http.StatusNotFound, "no se pudo actualizar")
		return
	}
	respond.JSON(w, http.StatusOK, "actualizado", dto.AffectedResponse{ID: id, Affected: affected})
}

func (h *BelieversHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	affected, err := h.svc.Remove(r.Context(), principal.UserID, id)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	if affected == 0 {
		respond.Error(w, http.StatusNotFound, "no se pudo eliminar")
		return
	}
	respond.JSON(w, http.StatusOK, "registro eliminado", dto.AffectedResponse{ID: id, Affected: affected})
}

// handleSync runs the bulk grid reconciliation. The route requires the edit
// permission; rows flagged for deletion additionally require the delete
// permission and are reported as per-row failures when the role lacks it.
func (h *BelieversHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var req dto.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}

	rows := req.Rows
	var denied []dto.RowError
	if hasDeletionFlags(rows) {
		role, err := h.manager.LoadRoleByName(r.Context(), principal.Role)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "no se pudo verificar los permisos")
			return
		}
		if !role.HasPermission(models.ResourceCreyentes, models.ActionDelete) {
			rows, denied = stripDeletions(rows)
		}
	}

	res, err := h.svc.GridEdited(r.Context(), principal.UserID, rows)
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}

	out := dto.SyncResponse{
		DeletedIDs: res.Deleted,
		UpdatedIDs: res.Updated,
		Errors:     denied,
	}
	for _, re := range res.Errors {
		out.Errors = append(out.Errors, dto.RowError{ID: re.ID, Message: re.Message})
	}

	msg := "sin cambios"
	if res.Changed() {
		msg = fmt.Sprintf("%d actualizados, %d eliminados", len(res.Updated), len(res.Deleted))
	}
	respond.JSON(w, http.StatusOK, msg, out)
}

func (h *BelieversHandler) handleNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := h.svc.Networks(r.Context())
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	respond.JSON(w, http.StatusOK, "redes", networks)
}

func (h *BelieversHandler) handleProfessions(w http.ResponseWriter, r *http.Request) {
	professions, err := h.svc.Professions(r.Context())
	if err != nil {
		status, msg := storageStatus(err)
		respond.Error(w, status, msg)
		return
	}
	respond.JSON(w, http.StatusOK, "profesiones", professions)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "identificador inválido")
		return 0, false
	}
	return id, true
}

func hasDeletionFlags(rows []map[string]any) bool {
	for _, row := range rows {
		if registry.DeleteFlagSet(row[registry.DeleteFlag]) {
			return true
		}
	}
	return false
}

// stripDeletions clears deletion flags for roles without the delete
// permission, reporting each stripped row. The row itself still participates
// in the update pass.
func stripDeletions(rows []map[string]any) ([]map[string]any, []dto.RowError) {
	out := make([]map[string]any, 0, len(rows))
	var denied []dto.RowError
	for _, row := range rows {
		if registry.DeleteFlagSet(row[registry.DeleteFlag]) {
			copied := make(map[string]any, len(row))
			for k, val := range row {
				copied[k] = val
			}
			copied[registry.DeleteFlag] = false
			denied = append(denied, dto.RowError{
				ID:      fmt.Sprintf("%v", row[models.ColID]),
				Message: "no tienes permiso para eliminar",
			})
			out = append(out, copied)
			continue
		}
		out = append(out, row)
	}
	return out, denied
}

// storageStatus maps repository sentinels to HTTP status plus a user-visible
// message.
func storageStatus(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "registro no encontrado"
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict, "ya existe un registro con esa cédula"
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable, "base de datos no disponible"
	default:
		return http.StatusInternalServerError, "error interno"
	}
}
