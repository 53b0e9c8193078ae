package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// DB owns the connection pool and hands out the table-scoped stores.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Close releases database resources.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Believers returns the tbl_creyentes store.
func (db *DB) Believers() *BelieverStore {
	return &BelieverStore{pool: db.pool}
}

// Users returns the operator-account store.
func (db *DB) Users() *UserStore {
	return &UserStore{pool: db.pool}
}

func (db *DB) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tbl_redes (
			"CodRed" TEXT PRIMARY KEY,
			"NombreRed" TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_profesiones (
			"IdProfesion" BIGSERIAL PRIMARY KEY,
			"DescripcionProfesion" TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tbl_creyentes (
			"Id" BIGSERIAL PRIMARY KEY,
			"Cedula" TEXT UNIQUE NOT NULL,
			"Nombre" TEXT NOT NULL,
			"Apellido" TEXT NOT NULL,
			"IdProfesion" BIGINT,
			"Ocupacion" TEXT,
			"Correo" TEXT,
			"TelefonoLocal" TEXT,
			"TelefonoCelular" TEXT,
			"Sexo" TEXT,
			"FechaIngreso" DATE,
			"Nacionalidad" TEXT,
			"EstadoCivil" TEXT,
			"Encuentro" BOOLEAN,
			"Consolidacion" BOOLEAN,
			"Academia" BOOLEAN,
			"Lanzamiento" BOOLEAN,
			"FechaNac" DATE,
			"CodRed" TEXT,
			"FechaBautizo" DATE,
			"Estatus" SMALLINT,
			"Estado" TEXT,
			"Ciudad" TEXT,
			"Direccion" TEXT,
			fe_us_in TIMESTAMPTZ,
			co_us_in BIGINT,
			fe_us_mo TIMESTAMPTZ,
			co_us_mo BIGINT
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL DEFAULT 'consulta',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS role (id BIGINT PRIMARY KEY, role_name TEXT UNIQUE NOT NULL, role_description TEXT);`,
		`INSERT INTO role (id, role_name, role_description) VALUES
			(1, 'administrador', 'Acceso completo al registro'),
			(2, 'editor', 'Crea y edita creyentes'),
			(3, 'consulta', 'Solo lectura')
			ON CONFLICT (id) DO UPDATE SET role_name = EXCLUDED.role_name;`,
		`CREATE TABLE IF NOT EXISTS permission (id BIGINT PRIMARY KEY, permission_name TEXT UNIQUE NOT NULL, permission_description TEXT);`,
		`INSERT INTO permission (id, permission_name, permission_description) VALUES
			(1, 'creyentes:leer', 'Consultar el listado'),
			(2, 'creyentes:crear', 'Registrar nuevos creyentes'),
			(3, 'creyentes:editar', 'Editar registros existentes'),
			(4, 'creyentes:eliminar', 'Eliminar registros')
			ON CONFLICT (id) DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS role_permissions (role_id BIGINT NOT NULL, permission_id BIGINT NOT NULL, PRIMARY KEY (role_id, permission_id), FOREIGN KEY (role_id) REFERENCES role(id), FOREIGN KEY (permission_id) REFERENCES permission(id));`,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES
			(1, 1), (1, 2), (1, 3), (1, 4),
			(2, 1), (2, 2), (2, 3),
			(3, 1)
			ON CONFLICT DO NOTHING;`,
	}
	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// classify tags driver errors with the storage sentinels so callers can match
// with errors.Is instead of depending on pgx.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pgErr.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
}
