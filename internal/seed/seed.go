package seed

import (
	"database/sql"
	"fmt"
)

const defaultCurrency = "COP"

// Config contains the values required by startup seed.
type Config struct {
	Currency string
	// SampleMaterials inserts a small demo catalog (tornillo, lámina, soporte).
	SampleMaterials bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type sampleComponent struct {
	id       string
	quantity float64
}

type sampleMaterial struct {
	id         string
	name       string
	unit       string
	unitCost   float64
	unitWeight float64
	components []sampleComponent
}

var sampleMaterials = []sampleMaterial{
	{id: "tornillo-m6", name: "Tornillo M6", unit: "piece", unitCost: 0.5, unitWeight: 0.01},
	{id: "lamina-3mm", name: "Lámina 3mm", unit: "piece", unitCost: 2, unitWeight: 0.2},
	{id: "soporte-l", name: "Soporte en L", unit: "piece", components: []sampleComponent{
		{id: "tornillo-m6", quantity: 2},
		{id: "lamina-3mm", quantity: 1},
	}},
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureSettings(tx, cfg.Currency, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.SampleMaterials {
		for _, m := range sampleMaterials {
			if err := ensureMaterial(tx, m, &stats); err != nil {
				_ = tx.Rollback()
				return Stats{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureSettings(tx *sql.Tx, currency string, stats *Stats) error {
	if currency == "" {
		currency = defaultCurrency
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM settings WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check settings existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO settings (id, freight_cost, labor_cost, profit_margin, currency)
		VALUES (1, ?, ?, ?, ?)
	`, 0, 0, 0, currency); err != nil {
		return fmt.Errorf("insert settings singleton: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureMaterial(tx *sql.Tx, m sampleMaterial, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM materials WHERE id = ? LIMIT 1)`, m.id).Scan(&exists); err != nil {
		return fmt.Errorf("check material %s existence: %w", m.id, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO materials (id, name, unit, unit_cost, unit_weight, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.id, m.name, m.unit, m.unitCost, m.unitWeight, true); err != nil {
		return fmt.Errorf("insert material %s: %w", m.id, err)
	}
	for i, c := range m.components {
		if _, err := tx.Exec(`
			INSERT INTO material_components (material_id, position, component_id, quantity)
			VALUES (?, ?, ?, ?)
		`, m.id, i, c.id, c.quantity); err != nil {
			return fmt.Errorf("insert component of %s: %w", m.id, err)
		}
	}
	stats.Inserts++
	return nil
}
