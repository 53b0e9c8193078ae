package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/config"
	"github.com/jdorantes1987/aapn-nc/internal/http/respond"
	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/registry"
	"github.com/jdorantes1987/aapn-nc/internal/server"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// fakeBelieverStore is an in-memory stand-in for the Postgres store.
type fakeBelieverStore struct {
	rows   map[int64]models.Believer
	nextID int64
}

func newFakeBelieverStore(seed ...models.Believer) *fakeBelieverStore {
	s := &fakeBelieverStore{rows: map[int64]models.Believer{}, nextID: 1}
	for _, b := range seed {
		s.rows[b.ID] = b
		if b.ID >= s.nextID {
			s.nextID = b.ID + 1
		}
	}
	return s
}

func (s *fakeBelieverStore) Create(ctx context.Context, fields map[string]any) (int64, error) {
	cedula, _ := fields[models.ColCedula].(string)
	for _, b := range s.rows {
		if b.Cedula == cedula {
			return 0, fmt.Errorf("create believer: %w", storage.ErrAlreadyExists)
		}
	}
	id := s.nextID
	s.nextID++
	nombre, _ := fields[models.ColNombre].(string)
	apellido, _ := fields[models.ColApellido].(string)
	s.rows[id] = models.Believer{ID: id, Cedula: cedula, Nombre: nombre, Apellido: apellido}
	return id, nil
}

func (s *fakeBelieverStore) GetByID(ctx context.Context, id int64) (models.Believer, error) {
	b, ok := s.rows[id]
	if !ok {
		return models.Believer{}, fmt.Errorf("get believer by id: %w", storage.ErrNotFound)
	}
	return b, nil
}

func (s *fakeBelieverStore) GetByCedula(ctx context.Context, cedula string) (models.Believer, error) {
	for _, b := range s.rows {
		if b.Cedula == cedula {
			return b, nil
		}
	}
	return models.Believer{}, fmt.Errorf("get believer by cedula: %w", storage.ErrNotFound)
}

func (s *fakeBelieverStore) List(ctx context.Context, limit int) ([]models.Believer, error) {
	out := make([]models.Believer, 0, len(s.rows))
	for id := s.nextID; id >= 1; id-- {
		if b, ok := s.rows[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBelieverStore) Update(ctx context.Context, id int64, fields map[string]any) (int64, error) {
	b, ok := s.rows[id]
	if !ok {
		return 0, nil
	}
	if nombre, ok := fields[models.ColNombre].(string); ok {
		b.Nombre = nombre
	}
	if apellido, ok := fields[models.ColApellido].(string); ok {
		b.Apellido = apellido
	}
	s.rows[id] = b
	return 1, nil
}

func (s *fakeBelieverStore) Delete(ctx context.Context, id int64) (int64, error) {
	if _, ok := s.rows[id]; !ok {
		return 0, nil
	}
	delete(s.rows, id)
	return 1, nil
}

func (s *fakeBelieverStore) ListNetworks(ctx context.Context, limit int) ([]models.Network, error) {
	return []models.Network{{CodRed: "R01", NombreRed: "RED CENTRAL"}}, nil
}

func (s *fakeBelieverStore) ListProfessions(ctx context.Context, limit int) ([]models.Profession, error) {
	return []models.Profession{{IDProfesion: 17, Descripcion: "INGENIERO"}}, nil
}

type fakeUserStore struct {
	users map[string]models.User
	roles map[string]models.Role
}

func (s *fakeUserStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	u, ok := s.users[username]
	if !ok {
		return models.User{}, fmt.Errorf("find user: %w", storage.ErrNotFound)
	}
	return u, nil
}

func (s *fakeUserStore) LoadRole(ctx context.Context, roleName string) (models.Role, error) {
	r, ok := s.roles[roleName]
	if !ok {
		return models.Role{}, fmt.Errorf("load role: %w", storage.ErrNotFound)
	}
	return r, nil
}

type testEnv struct {
	ts       *httptest.Server
	store    *fakeBelieverStore
	password string
}

func newTestEnv(t *testing.T, seed ...models.Believer) *testEnv {
	t.Helper()

	password := "secreto123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUserStore{
		users: map[string]models.User{
			"admin":  {ID: 1, Username: "admin", Role: models.RoleAdmin, PasswordHash: string(hash)},
			"editor": {ID: 2, Username: "editor", Role: models.RoleEditor, PasswordHash: string(hash)},
			"lector": {ID: 3, Username: "lector", Role: models.RoleConsulta, PasswordHash: string(hash)},
		},
		roles: map[string]models.Role{
			models.RoleAdmin: {ID: 1, Name: models.RoleAdmin, Permissions: []string{
				"creyentes:leer", "creyentes:crear", "creyentes:editar", "creyentes:eliminar"}},
			models.RoleEditor: {ID: 2, Name: models.RoleEditor, Permissions: []string{
				"creyentes:leer", "creyentes:crear", "creyentes:editar"}},
			models.RoleConsulta: {ID: 3, Name: models.RoleConsulta, Permissions: []string{"creyentes:leer"}},
		},
	}

	store := newFakeBelieverStore(seed...)
	cfg := config.Config{
		Port:        "0",
		JWTSecret:   "clave-de-prueba",
		JWTIssuer:   "aapn-nc",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
		ListLimit:   200,
	}

	svc := registry.NewService(store, nil, nil, cfg.ListLimit)
	manager := auth.NewManager(users, nil, nil)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	srv := server.New(cfg, server.Deps{Registry: svc, Auth: manager, Tokens: tokens})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: store, password: password}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, respond.Envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env respond.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": e.password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	t.Run("stage one validates the username first", func(t *testing.T) {
		resp, envlp := env.do(t, http.MethodGet, "/login/exists?username=admin", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ := json.Marshal(envlp.Data)
		assert.JSONEq(t, `{"username":"admin","exists":true}`, string(data))

		resp, envlp = env.do(t, http.MethodGet, "/login/exists?username=nadie", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ = json.Marshal(envlp.Data)
		assert.JSONEq(t, `{"username":"nadie","exists":false}`, string(data))
	})

	t.Run("wrong password is rejected with a message", func(t *testing.T) {
		resp, envlp := env.do(t, http.MethodPost, "/login", "", map[string]string{
			"username": "admin", "password": "incorrecta",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(t, envlp.Message)
	})

	t.Run("valid login issues a token", func(t *testing.T) {
		token := env.login(t, "admin")
		resp, _ := env.do(t, http.MethodGet, "/creyentes", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no token means no listing", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/creyentes", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestBelieverCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin")

	var createdID int64
	t.Run("create", func(t *testing.T) {
		resp, envlp := env.do(t, http.MethodPost, "/creyentes", token, map[string]any{
			"Cedula": "V12345678", "Nombre": "ANA", "Apellido": "PEREZ",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		data, _ := json.Marshal(envlp.Data)
		var out struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		require.NotZero(t, out.ID)
		createdID = out.ID
	})

	t.Run("duplicate cedula conflicts", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/creyentes", token, map[string]any{
			"Cedula": "V12345678", "Nombre": "OTRA",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("get by id", func(t *testing.T) {
		resp, envlp := env.do(t, http.MethodGet, fmt.Sprintf("/creyentes/%d", createdID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ := json.Marshal(envlp.Data)
		var b models.Believer
		require.NoError(t, json.Unmarshal(data, &b))
		assert.Equal(t, "V12345678", b.Cedula)
	})

	t.Run("get by cedula", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/creyentes/cedula/V12345678", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing record is 404, not an error page", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/creyentes/9999", token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("update", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPut, fmt.Sprintf("/creyentes/%d", createdID), token, map[string]any{
			"Nombre": "ANA MARIA",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("update of a missing id reports failure", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPut, "/creyentes/9999", token, map[string]any{"Nombre": "X"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/creyentes/%d", createdID), token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/creyentes/%d", createdID), token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("lookups", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/redes", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = env.do(t, http.MethodGet, "/profesiones", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestPermissionGates(t *testing.T) {
	env := newTestEnv(t, models.Believer{ID: 1, Cedula: "V1", Nombre: "ANA", Apellido: "PEREZ"})

	t.Run("read-only role can list but not create", func(t *testing.T) {
		token := env.login(t, "lector")
		resp, _ := env.do(t, http.MethodGet, "/creyentes", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = env.do(t, http.MethodPost, "/creyentes", token, map[string]any{"Cedula": "V2", "Nombre": "X"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, _ = env.do(t, http.MethodDelete, "/creyentes/1", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("editor cannot delete", func(t *testing.T) {
		token := env.login(t, "editor")
		resp, _ := env.do(t, http.MethodDelete, "/creyentes/1", token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestGridSync(t *testing.T) {
	seed := []models.Believer{
		{ID: 1, Cedula: "V1", Nombre: "ANA", Apellido: "PEREZ"},
		{ID: 2, Cedula: "V2", Nombre: "LUIS", Apellido: "MATA"},
	}

	t.Run("admin can edit and delete through the grid", func(t *testing.T) {
		env := newTestEnv(t, seed...)
		token := env.login(t, "admin")

		// Prime the original snapshot, as the page does before rendering.
		resp, _ := env.do(t, http.MethodGet, "/creyentes", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, envlp := env.do(t, http.MethodPost, "/creyentes/sync", token, map[string]any{
			"rows": []map[string]any{
				{"Id": 1, "Cedula": "V1", "Nombre": "ana maria", "Apellido": "PEREZ", "Eliminar": false},
				{"Id": 2, "Cedula": "V2", "Nombre": "LUIS", "Apellido": "MATA", "Eliminar": true},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, _ := json.Marshal(envlp.Data)
		var out struct {
			DeletedIDs []int64 `json:"deleted_ids"`
			UpdatedIDs []int64 `json:"updated_ids"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, []int64{2}, out.DeletedIDs)
		assert.Equal(t, []int64{1}, out.UpdatedIDs)

		updated, err := env.store.GetByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "ANA MARIA", updated.Nombre)

		_, err = env.store.GetByID(context.Background(), 2)
		assert.Error(t, err)
	})

	t.Run("editor deletion flags are denied per row", func(t *testing.T) {
		env := newTestEnv(t, seed...)
		token := env.login(t, "editor")

		resp, _ := env.do(t, http.MethodGet, "/creyentes", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, envlp := env.do(t, http.MethodPost, "/creyentes/sync", token, map[string]any{
			"rows": []map[string]any{
				{"Id": 2, "Cedula": "V2", "Nombre": "LUIS", "Apellido": "MATA", "Eliminar": true},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, _ := json.Marshal(envlp.Data)
		var out struct {
			DeletedIDs []int64 `json:"deleted_ids"`
			Errors     []struct {
				ID      string `json:"id"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Empty(t, out.DeletedIDs)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "2", out.Errors[0].ID)

		_, err := env.store.GetByID(context.Background(), 2)
		assert.NoError(t, err, "record must survive a denied deletion")
	})

	t.Run("identical snapshot is a no-op", func(t *testing.T) {
		env := newTestEnv(t, seed...)
		token := env.login(t, "admin")

		resp, _ := env.do(t, http.MethodGet, "/creyentes", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, envlp := env.do(t, http.MethodPost, "/creyentes/sync", token, map[string]any{
			"rows": []map[string]any{
				{"Id": 1, "Cedula": "V1", "Nombre": "ANA", "Apellido": "PEREZ", "Eliminar": false},
				{"Id": 2, "Cedula": "V2", "Nombre": "LUIS", "Apellido": "MATA", "Eliminar": false},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data, _ := json.Marshal(envlp.Data)
		var out struct {
			DeletedIDs []int64 `json:"deleted_ids"`
			UpdatedIDs []int64 `json:"updated_ids"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Empty(t, out.DeletedIDs)
		assert.Empty(t, out.UpdatedIDs)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, envlp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", envlp.Message)
}
