// Package repo contains all database access logic for the karte service.
// Kartes are stored one row per record with each section in its own JSONB
// column. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-karte/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KarteRepo defines the persistence operations for kartes.
type KarteRepo interface {
	// Create inserts a new karte and returns the persisted record with the
	// DB-generated id and last_updated populated.
	Create(ctx context.Context, k domain.Karte) (domain.Karte, error)

	// GetByID retrieves a single karte.
	// Returns domain.ErrNotFound if no karte with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error)

	// ListRecent returns up to q.Limit list rows ordered by last_updated
	// descending. A non-blank q.Search keeps only the rows of that window
	// whose list columns contain it, ignoring case.
	ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error)

	// Update overwrites every section of an existing karte, including the
	// presence map, and stamps last_updated. Returns domain.ErrNotFound if
	// no karte with that ID exists.
	Update(ctx context.Context, k domain.Karte) (domain.Karte, error)

	// UpdateEditors replaces only the presence map. last_updated is left
	// untouched so presence traffic never looks like a content change.
	UpdateEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error)

	// Delete removes a karte by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgKarteRepo is the Postgres implementation of KarteRepo.
type pgKarteRepo struct {
	db db
}

// NewKarteRepo constructs a KarteRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewKarteRepo(db db) KarteRepo {
	return &pgKarteRepo{db: db}
}

const karteColumns = `id, basic, payments, expenses, comments, memo, summary, karte_info, current_editors, last_updated`

// Create inserts a new karte row and returns the full persisted record.
func (r *pgKarteRepo) Create(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	const q = `
		INSERT INTO kartes (basic, payments, expenses, comments, memo, summary, karte_info, current_editors, last_updated)
		VALUES (@basic, @payments, @expenses, @comments, @memo, @summary, @karte_info, @current_editors, clock_timestamp())
		RETURNING ` + karteColumns

	row := r.db.QueryRow(ctx, q, karteArgs(k))
	result, err := scanKarte(row)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("repo.KarteRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a karte by primary key.
func (r *pgKarteRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error) {
	const q = `SELECT ` + karteColumns + ` FROM kartes WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanKarte(row)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("repo.KarteRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListRecent returns the newest list rows first. Only the denormalised
// karte_info block is read so the list never fetches full records. The
// search is applied per column after the window is cut, so a match cannot
// span two columns and never reaches past the newest rows.
func (r *pgKarteRepo) ListRecent(ctx context.Context, lq domain.ListQuery) ([]domain.KarteListItem, error) {
	const q = `
		SELECT id, karte_info, current_editors, last_updated
		FROM (
			SELECT id, karte_info, current_editors, last_updated
			FROM kartes
			ORDER BY last_updated DESC, id
			LIMIT @limit
		) recent
		WHERE @search = ''
		   OR strpos(lower(karte_info->>'karte_no'), @search) > 0
		   OR strpos(lower(karte_info->>'staff_name'), @search) > 0
		   OR strpos(lower(karte_info->>'client_org'), @search) > 0
		   OR strpos(lower(karte_info->>'departure_date'), @search) > 0
		   OR strpos(karte_info->>'person_count', @search) > 0
		   OR strpos(lower(karte_info->>'destination'), @search) > 0
		ORDER BY last_updated DESC, id`

	args := pgx.NamedArgs{
		"limit":  lq.Limit,
		"search": strings.ToLower(strings.TrimSpace(lq.Search)),
	}
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.KarteRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	items := []domain.KarteListItem{}
	for rows.Next() {
		var (
			item domain.KarteListItem
			id   pgtype.UUID
		)
		if err := rows.Scan(&id, &item.Info, &item.Editors, &item.LastUpdated); err != nil {
			return nil, fmt.Errorf("repo.KarteRepo.ListRecent: scan: %w", err)
		}
		item.ID = uuid.UUID(id.Bytes)
		if item.Editors == nil {
			item.Editors = map[string]domain.Editor{}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.KarteRepo.ListRecent: rows: %w", err)
	}

	return items, nil
}

// Update overwrites every section of a karte and returns the stored record.
func (r *pgKarteRepo) Update(ctx context.Context, k domain.Karte) (domain.Karte, error) {
	const q = `
		UPDATE kartes
		SET basic           = @basic,
		    payments        = @payments,
		    expenses        = @expenses,
		    comments        = @comments,
		    memo            = @memo,
		    summary         = @summary,
		    karte_info      = @karte_info,
		    current_editors = @current_editors,
		    last_updated    = clock_timestamp()
		WHERE id = @id
		RETURNING ` + karteColumns

	args := karteArgs(k)
	args["id"] = k.ID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanKarte(row)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("repo.KarteRepo.Update: %w", err)
	}
	return result, nil
}

// UpdateEditors replaces the presence map of a karte.
func (r *pgKarteRepo) UpdateEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error) {
	const q = `
		UPDATE kartes
		SET current_editors = @current_editors
		WHERE id = @id
		RETURNING ` + karteColumns

	if editors == nil {
		editors = map[string]domain.Editor{}
	}

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "current_editors": editors})
	result, err := scanKarte(row)
	if err != nil {
		return domain.Karte{}, fmt.Errorf("repo.KarteRepo.UpdateEditors: %w", err)
	}
	return result, nil
}

// Delete removes a karte by primary key.
func (r *pgKarteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM kartes WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.KarteRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.KarteRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// karteArgs maps the JSONB sections of k to named args. pgx encodes a nil
// slice or map as SQL NULL, so empty collections are substituted.
func karteArgs(k domain.Karte) pgx.NamedArgs {
	payments, expenses, comments, editors := k.Payments, k.Expenses, k.Comments, k.Editors
	if payments == nil {
		payments = []domain.Payment{}
	}
	if expenses == nil {
		expenses = []domain.Expense{}
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	if editors == nil {
		editors = map[string]domain.Editor{}
	}
	return pgx.NamedArgs{
		"basic":           k.Basic,
		"payments":        payments,
		"expenses":        expenses,
		"comments":        comments,
		"memo":            k.Memo,
		"summary":         k.Summary,
		"karte_info":      k.Info,
		"current_editors": editors,
	}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanKarte maps a single database row into a domain.Karte. JSONB columns
// decode straight into the domain types.
func scanKarte(s scanner) (domain.Karte, error) {
	var (
		k       domain.Karte
		id      pgtype.UUID
		updated time.Time
	)

	err := s.Scan(&id, &k.Basic, &k.Payments, &k.Expenses, &k.Comments, &k.Memo,
		&k.Summary, &k.Info, &k.Editors, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Karte{}, domain.ErrNotFound
		}
		return domain.Karte{}, err
	}

	k.ID = uuid.UUID(id.Bytes)
	k.LastUpdated = updated.UTC()
	if k.Editors == nil {
		k.Editors = map[string]domain.Editor{}
	}
	return k, nil
}
