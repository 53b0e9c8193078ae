package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jdorantes1987/aapn-nc/internal/metrics"
	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// Service is the session-scoped facade over the registry: it owns the cached
// listing and lookup snapshots and exposes one explicit handler per user
// action. It replaces the page framework's implicit per-render global state.
//
// The execution model is one synchronous action at a time per session; the
// mutex only protects the cache against overlapping HTTP requests on the same
// session.
type Service struct {
	store storage.BelieverStore
	rec   *Reconciler
	log   *slog.Logger
	met   *metrics.Metrics
	now   func() time.Time
	limit int

	mu          sync.Mutex
	believers   []models.Believer
	networks    []models.Network
	professions []models.Profession
	loaded      bool
}

// NewService wires the registry service. met may be nil.
func NewService(store storage.BelieverStore, log *slog.Logger, met *metrics.Metrics, listLimit int) *Service {
	if log == nil {
		log = slog.Default()
	}
	if listLimit <= 0 {
		listLimit = 100
	}
	return &Service{
		store: store,
		rec:   NewReconciler(store, log),
		log:   log,
		met:   met,
		now:   time.Now,
		limit: listLimit,
	}
}

// SubmitCreate normalizes a create form and inserts the record, stamping the
// acting user as creator and modifier. The identifier is server-generated;
// one supplied by the form is discarded.
func (s *Service) SubmitCreate(ctx context.Context, actor int64, form map[string]any) (int64, error) {
	payload := Normalize(form, s.now())
	delete(payload, models.ColID)
	if _, ok := payload[models.ColUserIn]; !ok {
		payload[models.ColUserIn] = actor
	}
	if _, ok := payload[models.ColUserMod]; !ok {
		payload[models.ColUserMod] = actor
	}

	id, err := s.store.Create(ctx, payload)
	if err != nil {
		return 0, err
	}
	s.met.RecordCreated()
	s.log.Info("believer created", "id", id, "actor", actor)
	s.refresh(ctx)
	return id, nil
}

// SubmitEdit normalizes a single-record edit form and updates the supplied
// columns. Creation bookkeeping is stripped so it can never be overwritten;
// the acting user becomes the modifier. Returns the affected count; zero
// means the identifier no longer exists.
func (s *Service) SubmitEdit(ctx context.Context, actor, id int64, form map[string]any) (int64, error) {
	payload := Normalize(form, s.now())
	delete(payload, models.ColID)
	// Creation bookkeeping is set once at creation; the normalizer may have
	// injected or passed through fe_us_in, so strip it here along with the
	// creator id.
	delete(payload, models.ColFechaIn)
	delete(payload, models.ColUserIn)
	payload[models.ColUserMod] = actor

	affected, err := s.store.Update(ctx, id, payload)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.met.RecordUpdated()
		s.log.Info("believer updated", "id", id, "actor", actor)
		s.refresh(ctx)
	}
	return affected, nil
}

// Remove deletes one record by identifier. Zero affected means nothing was
// removed.
func (s *Service) Remove(ctx context.Context, actor, id int64) (int64, error) {
	affected, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.met.RecordDeleted()
		s.log.Info("believer deleted", "id", id, "actor", actor)
		s.refresh(ctx)
	}
	return affected, nil
}

// GridEdited reconciles the edited grid snapshot against the cached original
// and refreshes the cache when anything actually changed.
func (s *Service) GridEdited(ctx context.Context, actor int64, edited []Row) (Result, error) {
	original, err := s.Listing(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load original snapshot: %w", err)
	}
	origRows := make([]Row, len(original))
	for i, b := range original {
		origRows[i] = b.Row()
	}

	start := s.now()
	res := s.rec.Reconcile(ctx, edited, origRows, actor)
	s.met.RecordReconcile(len(res.Updated), len(res.Deleted), len(res.Errors), s.now().Sub(start))
	s.log.Info("grid reconciled",
		"updated", len(res.Updated),
		"deleted", len(res.Deleted),
		"failed", len(res.Errors),
		"actor", actor,
	)

	if res.Changed() {
		s.refresh(ctx)
	}
	return res, nil
}

// GetByID fetches one record, bypassing the cache.
func (s *Service) GetByID(ctx context.Context, id int64) (models.Believer, error) {
	return s.store.GetByID(ctx, id)
}

// GetByCedula fetches one record by national ID, bypassing the cache.
func (s *Service) GetByCedula(ctx context.Context, cedula string) (models.Believer, error) {
	return s.store.GetByCedula(ctx, cedula)
}

// Listing returns the cached believers snapshot, loading it on first use.
func (s *Service) Listing(ctx context.Context) ([]models.Believer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.believers, nil
}

// Networks returns the cached network lookup.
func (s *Service) Networks(ctx context.Context) ([]models.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.networks, nil
}

// Professions returns the cached profession lookup.
func (s *Service) Professions(ctx context.Context) ([]models.Profession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	return s.professions, nil
}

// refresh reloads the snapshots after a successful mutation. A failed reload
// only logs; the next read will retry.
func (s *Service) refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		s.log.Error("refresh listing failed", "error", err)
		s.loaded = false
	}
}

func (s *Service) loadLocked(ctx context.Context) error {
	believers, err := s.store.List(ctx, s.limit)
	if err != nil {
		return err
	}
	networks, err := s.store.ListNetworks(ctx, 100)
	if err != nil {
		return err
	}
	professions, err := s.store.ListProfessions(ctx, 100)
	if err != nil {
		return err
	}
	s.believers = believers
	s.networks = networks
	s.professions = professions
	s.loaded = true
	s.met.SetListingSize(len(believers))
	return nil
}
