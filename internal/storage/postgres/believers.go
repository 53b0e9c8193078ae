package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jdorantes1987/aapn-nc/internal/models"
	"github.com/jdorantes1987/aapn-nc/internal/storage"
)

// Ensure BelieverStore satisfies the interface at compile time.
var _ storage.BelieverStore = (*BelieverStore)(nil)

const believerSelect = `SELECT "Id", "Cedula", "Nombre", "Apellido", "IdProfesion", "Ocupacion",
	"Correo", "TelefonoLocal", "TelefonoCelular", "Sexo", "FechaIngreso", "Nacionalidad",
	"EstadoCivil", "Encuentro", "Consolidacion", "Academia", "Lanzamiento", "FechaNac",
	"CodRed", "FechaBautizo", "Estatus", "Estado", "Ciudad", "Direccion",
	fe_us_in, co_us_in, fe_us_mo, co_us_mo
	FROM tbl_creyentes`

// BelieverStore provides Postgres-backed persistence for tbl_creyentes.
//
// Mutations build their statement over exactly the supplied keys. Only names
// from the fixed allow-list are ever interpolated; values are always bound.
// Each mutation runs in its own transaction so a failed statement leaves
// nothing half-applied and the connection always returns to the pool.
type BelieverStore struct {
	pool *pgxpool.Pool
}

// Create inserts a new believer and returns the generated identifier.
func (s *BelieverStore) Create(ctx context.Context, fields map[string]any) (int64, error) {
	cols, vals, err := orderedFields(fields)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("create believer: no fields supplied")
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		`INSERT INTO tbl_creyentes (%s) VALUES (%s) RETURNING "Id"`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, vals...).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("create believer: %w", classify(err))
	}
	return id, nil
}

// GetByID fetches a single believer by identifier.
func (s *BelieverStore) GetByID(ctx context.Context, id int64) (models.Believer, error) {
	row := s.pool.QueryRow(ctx, believerSelect+` WHERE "Id" = $1`, id)
	b, err := scanBeliever(row)
	if err != nil {
		return models.Believer{}, fmt.Errorf("get believer by id: %w", classify(err))
	}
	return b, nil
}

// GetByCedula fetches a single believer by national ID.
func (s *BelieverStore) GetByCedula(ctx context.Context, cedula string) (models.Believer, error) {
	row := s.pool.QueryRow(ctx, believerSelect+` WHERE "Cedula" = $1`, cedula)
	b, err := scanBeliever(row)
	if err != nil {
		return models.Believer{}, fmt.Errorf("get believer by cedula: %w", classify(err))
	}
	return b, nil
}

// List returns up to limit believers, newest identifier first.
func (s *BelieverStore) List(ctx context.Context, limit int) ([]models.Believer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, believerSelect+` ORDER BY "Id" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list believers: %w", classify(err))
	}
	defer rows.Close()

	out := make([]models.Believer, 0, limit)
	for rows.Next() {
		b, err := scanBeliever(rows)
		if err != nil {
			return nil, fmt.Errorf("list believers: %w", classify(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list believers: %w", classify(err))
	}
	return out, nil
}

// Update sets only the supplied columns for the given identifier and returns
// the affected count. Zero affected rows means the id does not exist; that is
// a value, not an error. An empty field map is a no-op.
func (s *BelieverStore) Update(ctx context.Context, id int64, fields map[string]any) (int64, error) {
	cols, vals, err := orderedFields(fields)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	vals = append(vals, id)
	query := fmt.Sprintf(
		`UPDATE tbl_creyentes SET %s WHERE "Id" = $%d`,
		strings.Join(sets, ", "), len(vals),
	)

	var affected int64
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, vals...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update believer %d: %w", id, classify(err))
	}
	return affected, nil
}

// Delete removes a believer by identifier. Zero affected rows means nothing
// was removed.
func (s *BelieverStore) Delete(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tbl_creyentes WHERE "Id" = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete believer %d: %w", id, classify(err))
	}
	return affected, nil
}

// ListNetworks returns the network lookup rows ordered by code.
func (s *BelieverStore) ListNetworks(ctx context.Context, limit int) ([]models.Network, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT "CodRed", "NombreRed" FROM tbl_redes ORDER BY "CodRed" ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", classify(err))
	}
	defer rows.Close()

	var out []models.Network
	for rows.Next() {
		var n models.Network
		if err := rows.Scan(&n.CodRed, &n.NombreRed); err != nil {
			return nil, fmt.Errorf("list networks: %w", classify(err))
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list networks: %w", classify(err))
	}
	return out, nil
}

// ListProfessions returns the profession lookup rows ordered by id.
func (s *BelieverStore) ListProfessions(ctx context.Context, limit int) ([]models.Profession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT "IdProfesion", "DescripcionProfesion" FROM tbl_profesiones ORDER BY "IdProfesion" ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list professions: %w", classify(err))
	}
	defer rows.Close()

	var out []models.Profession
	for rows.Next() {
		var p models.Profession
		if err := rows.Scan(&p.IDProfesion, &p.Descripcion); err != nil {
			return nil, fmt.Errorf("list professions: %w", classify(err))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list professions: %w", classify(err))
	}
	return out, nil
}

// inTx runs fn inside a dedicated transaction: begin, execute, commit, with
// rollback as the guaranteed cleanup path on any failure.
func (s *BelieverStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// orderedFields filters the map through the allow-list and returns quoted
// column names with their values in table order, so generated SQL is stable.
func orderedFields(fields map[string]any) ([]string, []any, error) {
	for k := range fields {
		if !models.IsBelieverColumn(k) {
			return nil, nil, fmt.Errorf("unknown column %q", k)
		}
	}
	var cols []string
	var vals []any
	for _, col := range models.BelieverColumns {
		v, ok := fields[col]
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(col))
		vals = append(vals, v)
	}
	return cols, vals, nil
}

// quoteIdent wraps a known-safe column name in double quotes. The bookkeeping
// columns are lower-case in the schema and need no quoting.
func quoteIdent(col string) string {
	if strings.HasPrefix(col, "fe_us_") || strings.HasPrefix(col, "co_us_") {
		return col
	}
	return `"` + col + `"`
}

func scanBeliever(row pgx.Row) (models.Believer, error) {
	var b models.Believer
	err := row.Scan(
		&b.ID, &b.Cedula, &b.Nombre, &b.Apellido, &b.IDProfesion, &b.Ocupacion,
		&b.Correo, &b.TelefonoLocal, &b.TelefonoCelular, &b.Sexo, &b.FechaIngreso, &b.Nacionalidad,
		&b.EstadoCivil, &b.Encuentro, &b.Consolidacion, &b.Academia, &b.Lanzamiento, &b.FechaNac,
		&b.CodRed, &b.FechaBautizo, &b.Estatus, &b.Estado, &b.Ciudad, &b.Direccion,
		&b.FechaIn, &b.UserIn, &b.FechaMod, &b.UserMod,
	)
	if err != nil {
		return models.Believer{}, err
	}
	return b, nil
}
