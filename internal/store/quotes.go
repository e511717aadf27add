package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/quoteworks/internal/pricing"
	"github.com/Simplici0/quoteworks/internal/quote"
)

// QuoteListItem is one row of the quote history.
type QuoteListItem struct {
	ID         int64   `json:"id"`
	CreatedAt  string  `json:"created_at"`
	Title      string  `json:"title"`
	Currency   string  `json:"currency"`
	FinalPrice float64 `json:"final_price"`
}

// StoredQuote is a saved quote snapshot. It is read back exactly as computed
// at save time.
type StoredQuote struct {
	ID        int64       `json:"id"`
	CreatedAt string      `json:"created_at"`
	Title     string      `json:"title"`
	Notes     string      `json:"notes"`
	Currency  string      `json:"currency"`
	Quote     quote.Quote `json:"quote"`
}

// QuoteRepo stores computed quotes.
type QuoteRepo struct {
	db *sql.DB
}

func NewQuoteRepo(db *sql.DB) *QuoteRepo {
	return &QuoteRepo{db: db}
}

// Save stores q with its line items and returns the new quote id.
func (r *QuoteRepo) Save(ctx context.Context, title, notes, currency string, q quote.Quote) (int64, error) {
	if currency == "" {
		currency = defaultCurrency
	}

	settingsJSON, err := json.Marshal(q.Settings)
	if err != nil {
		return 0, fmt.Errorf("encode quote settings: %w", err)
	}
	linesJSON, err := json.Marshal(q.Lines)
	if err != nil {
		return 0, fmt.Errorf("encode quote lines: %w", err)
	}
	totalsJSON, err := json.Marshal(q.Totals)
	if err != nil {
		return 0, fmt.Errorf("encode quote totals: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save quote: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO quotes (title, notes, currency, settings_json, lines_json, totals_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, title, notes, currency, string(settingsJSON), string(linesJSON), string(totalsJSON))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("read quote id: %w", err)
	}

	for i, item := range q.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quote_items (quote_id, position, material_id, quantity)
			VALUES (?, ?, ?, ?)
		`, id, i, item.MaterialID, item.Quantity); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert quote item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save quote: %w", err)
	}
	return id, nil
}

// List returns saved quotes newest first, optionally filtered by a substring
// of the title or notes.
func (r *QuoteRepo) List(ctx context.Context, query string) ([]QuoteListItem, error) {
	search := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id,
			created_at,
			COALESCE(title, ''),
			currency,
			totals_json
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteListItem, 0)
	for rows.Next() {
		var item QuoteListItem
		var totalsJSON string
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.Title, &item.Currency, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.FinalPrice = extractFinalPrice(totalsJSON)
		quotes = append(quotes, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func extractFinalPrice(totalsJSON string) float64 {
	var totals pricing.Totals
	if err := json.Unmarshal([]byte(totalsJSON), &totals); err != nil {
		return 0
	}
	return totals.FinalPrice
}

// Get returns one saved quote snapshot.
func (r *QuoteRepo) Get(ctx context.Context, id int64) (StoredQuote, error) {
	var sq StoredQuote
	var settingsJSON, linesJSON, totalsJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, COALESCE(title, ''), COALESCE(notes, ''), currency, settings_json, lines_json, totals_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(&sq.ID, &sq.CreatedAt, &sq.Title, &sq.Notes, &sq.Currency, &settingsJSON, &linesJSON, &totalsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredQuote{}, ErrNotFound
	}
	if err != nil {
		return StoredQuote{}, fmt.Errorf("query quote: %w", err)
	}

	if err := json.Unmarshal([]byte(settingsJSON), &sq.Quote.Settings); err != nil {
		return StoredQuote{}, fmt.Errorf("decode quote settings: %w", err)
	}
	if err := json.Unmarshal([]byte(linesJSON), &sq.Quote.Lines); err != nil {
		return StoredQuote{}, fmt.Errorf("decode quote lines: %w", err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &sq.Quote.Totals); err != nil {
		return StoredQuote{}, fmt.Errorf("decode quote totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT material_id, quantity
		FROM quote_items
		WHERE quote_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return StoredQuote{}, fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item quote.LineItem
		if err := rows.Scan(&item.MaterialID, &item.Quantity); err != nil {
			return StoredQuote{}, fmt.Errorf("scan quote item: %w", err)
		}
		sq.Quote.Items = append(sq.Quote.Items, item)
	}
	if err := rows.Err(); err != nil {
		return StoredQuote{}, fmt.Errorf("iterate quote items: %w", err)
	}

	return sq, nil
}
