package registry

import (
	"context"
	"fmt"

	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

type updateCall struct {
	id     int64
	fields map[string]any
}

// fakeStore records repository calls and returns canned results.
type fakeStore struct {
	listResult  []models.Believer
	networks    []models.Network
	professions []models.Profession

	createCalls []map[string]any
	updateCalls []updateCall
	deleteCalls []int64
	listCalls   int

	nextID         int64
	updateErr      map[int64]error
	deleteErr      map[int64]error
	updateAffected map[int64]int64
	deleteAffected map[int64]int64
}

var _ storage.BelieverStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:         1,
		updateErr:      map[int64]error{},
		deleteErr:      map[int64]error{},
		updateAffected: map[int64]int64{},
		deleteAffected: map[int64]int64{},
	}
}

func (f *fakeStore) Create(ctx context.Context, fields map[string]any) (int64, error) {
	f.createCalls = append(f.createCalls, fields)
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (models.Believer, error) {
	for _, b := range f.listResult {
		if b.ID == id {
			return b, nil
		}
	}
	return models.Believer{}, fmt.Errorf("get believer by id: %w", storage.ErrNotFound)
}

func (f *fakeStore) GetByCedula(ctx context.Context, cedula string) (models.Believer, error) {
	for _, b := range f.listResult {
		if b.Cedula == cedula {
			return b, nil
		}
	}
	return models.Believer{}, fmt.Errorf("get believer by cedula: %w", storage.ErrNotFound)
}

func (f *fakeStore) List(ctx context.Context, limit int) ([]models.Believer, error) {
	f.listCalls++
	return f.listResult, nil
}

func (f *fakeStore) Update(ctx context.Context, id int64, fields map[string]any) (int64, error) {
	f.updateCalls = append(f.updateCalls, updateCall{id: id, fields: fields})
	if err := f.updateErr[id]; err != nil {
		return 0, err
	}
	if n, ok := f.updateAffected[id]; ok {
		return n, nil
	}
	return 1, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) (int64, error) {
	f.deleteCalls = append(f.deleteCalls, id)
	if err := f.deleteErr[id]; err != nil {
		return 0, err
	}
	if n, ok := f.deleteAffected[id]; ok {
		return n, nil
	}
	return 1, nil
}

func (f *fakeStore) ListNetworks(ctx context.Context, limit int) ([]models.Network, error) {
	return f.networks, nil
}

func (f *fakeStore) ListProfessions(ctx context.Context, limit int) ([]models.Profession, error) {
	return f.professions, nil
}
