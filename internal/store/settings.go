package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/quoteworks/internal/pricing"
)

const defaultCurrency = "COP"

// Settings is the persisted settings singleton: the pricing parameters plus
// the display currency.
type Settings struct {
	pricing.Settings
	Currency string `json:"currency"`
}

// SettingsRepo reads and writes the settings singleton row.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the settings in effect. Before the singleton row is seeded it
// returns zero costs and the default currency.
func (r *SettingsRepo) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.db.QueryRowContext(ctx, `
		SELECT freight_cost, labor_cost, profit_margin, currency
		FROM settings
		WHERE id = 1
	`).Scan(&s.FreightCost, &s.LaborCost, &s.ProfitMargin, &s.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{Currency: defaultCurrency}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}
	return s, nil
}

// Update validates and stores s, creating the singleton row if needed.
func (r *SettingsRepo) Update(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Currency == "" {
		s.Currency = defaultCurrency
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, freight_cost, labor_cost, profit_margin, currency, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			freight_cost = excluded.freight_cost,
			labor_cost = excluded.labor_cost,
			profit_margin = excluded.profit_margin,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`, s.FreightCost, s.LaborCost, s.ProfitMargin, s.Currency)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
