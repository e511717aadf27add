package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/quoteworks/internal/materials"
	"github.com/Simplici0/quoteworks/internal/units"
)

var (
	// ErrNotFound is returned when a requested row does not exist or was
	// deactivated.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert collides with an existing id.
	ErrConflict = errors.New("already exists")
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

// MaterialRepo persists materials and their components.
type MaterialRepo struct {
	db *sql.DB
}

func NewMaterialRepo(db *sql.DB) *MaterialRepo {
	return &MaterialRepo{db: db}
}

const materialColumns = `
	id, name, description, category_id, unit, unit_cost, unit_weight,
	diameter_value, diameter_unit,
	length_value, length_unit,
	width_value, width_unit,
	weight_value, weight_unit
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (materials.Material, error) {
	var m materials.Material
	var unit string
	var dims [4]struct {
		value sql.NullFloat64
		unit  sql.NullString
	}
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.CategoryID, &unit, &m.UnitCost, &m.UnitWeight,
		&dims[0].value, &dims[0].unit,
		&dims[1].value, &dims[1].unit,
		&dims[2].value, &dims[2].unit,
		&dims[3].value, &dims[3].unit,
	)
	if err != nil {
		return materials.Material{}, err
	}
	m.Unit = units.Unit(unit)

	measure := func(i int) *materials.Measure {
		if !dims[i].value.Valid {
			return nil
		}
		return &materials.Measure{Value: dims[i].value.Float64, Unit: units.Unit(dims[i].unit.String)}
	}
	m.Dimensions = materials.Dimensions{
		Diameter: measure(0),
		Length:   measure(1),
		Width:    measure(2),
		Weight:   measure(3),
	}
	return m, nil
}

func measureArgs(m *materials.Measure) (any, any) {
	if m == nil {
		return nil, nil
	}
	return m.Value, string(m.Unit)
}

func dimensionArgs(d materials.Dimensions) []any {
	args := make([]any, 0, 8)
	for _, m := range []*materials.Measure{d.Diameter, d.Length, d.Width, d.Weight} {
		v, u := measureArgs(m)
		args = append(args, v, u)
	}
	return args
}

// Create stores m and its components. An empty id is replaced with a new UUID.
func (r *MaterialRepo) Create(ctx context.Context, m materials.Material) (materials.Material, error) {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return materials.Material{}, fmt.Errorf("begin create material: %w", err)
	}

	args := []any{m.ID, m.Name, m.Description, m.CategoryID, string(m.Unit), m.UnitCost, m.UnitWeight}
	args = append(args, dimensionArgs(m.Dimensions)...)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO materials (`+materialColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return materials.Material{}, fmt.Errorf("insert material %q: %w", m.ID, ErrConflict)
		}
		return materials.Material{}, fmt.Errorf("insert material: %w", err)
	}

	if err := insertComponents(ctx, tx, m.ID, m.Components); err != nil {
		_ = tx.Rollback()
		return materials.Material{}, err
	}

	if err := tx.Commit(); err != nil {
		return materials.Material{}, fmt.Errorf("commit create material: %w", err)
	}
	return m, nil
}

// Update replaces every attribute and the component list of m. Inactive
// materials are reported as ErrNotFound.
func (r *MaterialRepo) Update(ctx context.Context, m materials.Material) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update material: %w", err)
	}

	args := []any{m.Name, m.Description, m.CategoryID, string(m.Unit), m.UnitCost, m.UnitWeight}
	args = append(args, dimensionArgs(m.Dimensions)...)
	args = append(args, m.ID)
	result, err := tx.ExecContext(ctx, `
		UPDATE materials
		SET
			name = ?,
			description = ?,
			category_id = ?,
			unit = ?,
			unit_cost = ?,
			unit_weight = ?,
			diameter_value = ?, diameter_unit = ?,
			length_value = ?, length_unit = ?,
			width_value = ?, width_unit = ?,
			weight_value = ?, weight_unit = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = TRUE
	`, args...)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update material: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update material: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM material_components WHERE material_id = ?`, m.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear material components: %w", err)
	}
	if err := insertComponents(ctx, tx, m.ID, m.Components); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update material: %w", err)
	}
	return nil
}

func insertComponents(ctx context.Context, tx *sql.Tx, materialID string, components []materials.Component) error {
	for i, c := range components {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO material_components (material_id, position, component_id, quantity)
			VALUES (?, ?, ?, ?)
		`, materialID, i, c.MaterialID, c.Quantity); err != nil {
			return fmt.Errorf("insert material component: %w", err)
		}
	}
	return nil
}

// Deactivate hides a material from listings, lookups and quote calculation.
// The row is kept so saved quotes and component references stay intact.
func (r *MaterialRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE materials
		SET active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND active = TRUE
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate material: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate material: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns one active material with its components.
func (r *MaterialRepo) Get(ctx context.Context, id string) (materials.Material, error) {
	m, err := scanMaterial(r.db.QueryRowContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE id = ? AND active = TRUE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return materials.Material{}, ErrNotFound
	}
	if err != nil {
		return materials.Material{}, fmt.Errorf("query material: %w", err)
	}

	components, err := r.components(ctx, []string{id})
	if err != nil {
		return materials.Material{}, err
	}
	m.Components = components[id]
	return m, nil
}

// List returns all active materials ordered by name.
func (r *MaterialRepo) List(ctx context.Context) ([]materials.Material, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE active = TRUE
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	out := make([]materials.Material, 0)
	ids := make([]string, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	components, err := r.components(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Components = components[out[i].ID]
	}
	return out, nil
}

// LoadCatalog loads the given materials and, transitively, every material
// they are composed of. Ids that do not exist or were deactivated are left
// out of the catalog so the engine can report them.
func (r *MaterialRepo) LoadCatalog(ctx context.Context, ids []string) (materials.Catalog, error) {
	catalog := materials.Catalog{}
	seen := make(map[string]bool, len(ids))
	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			pending = append(pending, id)
		}
	}

	for len(pending) > 0 {
		batch := pending
		pending = nil

		found, err := r.byIDs(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			catalog.Add(m)
			for _, c := range m.Components {
				if !seen[c.MaterialID] {
					seen[c.MaterialID] = true
					pending = append(pending, c.MaterialID)
				}
			}
		}
	}
	return catalog, nil
}

func (r *MaterialRepo) byIDs(ctx context.Context, ids []string) ([]materials.Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE active = TRUE AND id IN (`+placeholders(len(ids))+`)
	`, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query materials by id: %w", err)
	}
	defer rows.Close()

	var out []materials.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}

	components, err := r.components(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Components = components[out[i].ID]
	}
	return out, nil
}

func (r *MaterialRepo) components(ctx context.Context, ids []string) (map[string][]materials.Component, error) {
	out := make(map[string][]materials.Component, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT material_id, component_id, quantity
		FROM material_components
		WHERE material_id IN (`+placeholders(len(ids))+`)
		ORDER BY material_id, position
	`, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query material components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var parent string
		var c materials.Component
		if err := rows.Scan(&parent, &c.MaterialID, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan material component: %w", err)
		}
		out[parent] = append(out[parent], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material components: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
