package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"calendario/internal/core"
	"calendario/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository implements the store ports over a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The schema declares REFERENCES constraints; SQLite only enforces
	// them with the pragma on.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListActivities(ctx context.Context, filter *store.MonthFilter) ([]core.Activity, error) {
	query := `SELECT id, title, description, date, type_id FROM activities`
	var args []any
	if filter != nil {
		query += ` WHERE CAST(strftime('%m', date) AS INTEGER) = ? AND CAST(strftime('%Y', date) AS INTEGER) = ?`
		args = append(args, filter.Month, filter.Year)
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []core.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, id string) (core.Activity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, date, type_id FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Activity{}, core.ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepository) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	if err := r.checkTypeExists(ctx, a.TypeID); err != nil {
		return core.Activity{}, err
	}

	a.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, title, description, date, type_id) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Title, nullString(a.Description), a.Date.String(), a.TypeID)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity saved to SQLite",
		"id", a.ID,
		"title", a.Title,
		"date", a.Date.String(),
		"type_id", a.TypeID)

	return a, nil
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, id string, a core.Activity) (core.Activity, error) {
	a.ID = id
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	if err := r.checkTypeExists(ctx, a.TypeID); err != nil {
		return core.Activity{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE activities SET title = ?, description = ?, date = ?, type_id = ? WHERE id = ?`,
		a.Title, nullString(a.Description), a.Date.String(), a.TypeID, id)
	if err != nil {
		return core.Activity{}, fmt.Errorf("update activity: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.Activity{}, core.ErrNotFound
	}
	return a, nil
}

func (r *SQLiteRepository) DeleteActivity(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// checkTypeExists verifies an activity's category reference at write time.
func (r *SQLiteRepository) checkTypeExists(ctx context.Context, typeID string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM activity_types WHERE id = ?`, typeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrUnknownType
	}
	if err != nil {
		return fmt.Errorf("check activity type %s: %w", typeID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListTypes(ctx context.Context) ([]core.ActivityType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color FROM activity_types ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list activity types: %w", err)
	}
	defer rows.Close()

	var out []core.ActivityType
	for rows.Next() {
		var t core.ActivityType
		var color string
		if err := rows.Scan(&t.ID, &t.Label, &color); err != nil {
			return nil, fmt.Errorf("scan activity type: %w", err)
		}
		t.Color = core.ColorToken(color)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity types: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateType(ctx context.Context, t core.ActivityType) (core.ActivityType, error) {
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}

	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_types (id, name, color) VALUES (?, ?, ?)`,
		t.ID, t.Label, string(t.Color))
	if err != nil {
		return core.ActivityType{}, fmt.Errorf("create activity type: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateType(ctx context.Context, id string, t core.ActivityType) (core.ActivityType, error) {
	t.ID = id
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE activity_types SET name = ?, color = ? WHERE id = ?`,
		t.Label, string(t.Color), id)
	if err != nil {
		return core.ActivityType{}, fmt.Errorf("update activity type: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ActivityType{}, core.ErrNotFound
	}
	return t, nil
}

// DeleteType removes a type after reassigning its activities to the
// remaining type with the smallest id. Deleting the last type is rejected.
// The steps run as independent statements, mirroring the non-transactional
// REST semantics of the rest of the surface.
func (r *SQLiteRepository) DeleteType(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM activity_types WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find activity type: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_types`).Scan(&count); err != nil {
		return fmt.Errorf("count activity types: %w", err)
	}
	if count <= 1 {
		return core.ErrLastType
	}

	var target string
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM activity_types WHERE id != ? ORDER BY id ASC LIMIT 1`, id).Scan(&target)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find reassignment target: %w", err)
	}

	if target != "" {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE activities SET type_id = ? WHERE type_id = ?`, target, id); err != nil {
			return fmt.Errorf("reassign activities: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity type: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Activity type deleted",
		"id", id,
		"reassigned_to", target)

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (core.Activity, error) {
	var (
		a       core.Activity
		desc    sql.NullString
		dateStr string
	)
	if err := row.Scan(&a.ID, &a.Title, &desc, &dateStr, &a.TypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Activity{}, err
		}
		return core.Activity{}, fmt.Errorf("scan activity: %w", err)
	}
	if desc.Valid {
		a.Description = desc.String
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Activity{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	a.Date = date
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
