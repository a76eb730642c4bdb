package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
)

// SQLiteRepository is the durable ledger store. next_due_date is the only
// engine-owned field that must survive restarts; its writes go through
// SaveDefinitionCursor, which is conditional on the previously observed
// value.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

const definitionColumns = `id, owner_id, name, description, amount_cents, direction,
	category_id, frequency, start_date, end_date, next_due_date, status,
	auto_create, notify_before_days`

func (r *SQLiteRepository) LoadDefinition(ctx context.Context, id uuid.UUID) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = ?`, id.String())
	return scanDefinition(row)
}

func (r *SQLiteRepository) ListDefinitionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE owner_id = ? ORDER BY name`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListActiveOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM recurring_definitions WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("list active owners: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse owner id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateDefinition(ctx context.Context, def core.RecurringDefinition) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions (`+definitionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID.String(), def.OwnerID.String(), def.Name, def.Description,
		def.Amount.Cents, string(def.Direction), nullUUID(def.CategoryID),
		string(def.Frequency), def.StartDate.String(), nullDate(def.EndDate),
		nullDate(def.NextDueDate), string(def.Status), def.AutoCreate, def.NotifyBeforeDays)
	if err != nil {
		return fmt.Errorf("insert definition: %w", err)
	}

	slog.InfoContext(ctx, "Recurring definition saved",
		"id", def.ID,
		"name", def.Name,
		"frequency", def.Frequency,
		"next_due", nullDate(def.NextDueDate))
	return nil
}

func (r *SQLiteRepository) UpdateDefinition(ctx context.Context, def core.RecurringDefinition) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET
			name = ?, description = ?, amount_cents = ?, direction = ?,
			category_id = ?, frequency = ?, start_date = ?, end_date = ?,
			next_due_date = ?, status = ?, auto_create = ?, notify_before_days = ?,
			updated_at = datetime('now')
		 WHERE id = ?`,
		def.Name, def.Description, def.Amount.Cents, string(def.Direction),
		nullUUID(def.CategoryID), string(def.Frequency), def.StartDate.String(),
		nullDate(def.EndDate), nullDate(def.NextDueDate), string(def.Status),
		def.AutoCreate, def.NotifyBeforeDays, def.ID.String())
	if err != nil {
		return fmt.Errorf("update definition: %w", err)
	}
	return requireAffected(res, core.ErrNotFound)
}

func (r *SQLiteRepository) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_definitions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	return requireAffected(res, core.ErrNotFound)
}

// SaveDefinitionCursor performs the conditional cursor write: the UPDATE
// matches only when the stored next_due_date still equals prevDue, so a
// lost race surfaces as zero affected rows instead of a duplicate
// projection.
func (r *SQLiteRepository) SaveDefinitionCursor(ctx context.Context, def core.RecurringDefinition, prevDue *core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_definitions SET
			next_due_date = ?, status = ?, updated_at = datetime('now')
		 WHERE id = ? AND ifnull(next_due_date, '') = ifnull(?, '')`,
		nullDate(def.NextDueDate), string(def.Status), def.ID.String(), nullDate(prevDue))
	if err != nil {
		return fmt.Errorf("save definition cursor: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.LoadDefinition(ctx, def.ID); errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return core.ErrConcurrencyConflict
	}
	return nil
}

const transactionColumns = `id, owner_id, amount_cents, direction, category_id,
	tx_date, description, recurring_id`

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID.String(), tx.OwnerID.String(), tx.Amount.Cents, string(tx.Direction),
		nullUUID(tx.CategoryID), tx.Date.String(), tx.Description, nullUUID(tx.RecurringID))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"date", tx.Date,
		"direction", tx.Direction,
		"amount_cents", tx.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) LoadTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id.String())
	return scanTransaction(row)
}

func (r *SQLiteRepository) ListTransactionsByOwner(ctx context.Context, ownerID uuid.UUID, dr *DateRange) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{ownerID.String()}
	if dr != nil {
		if !dr.From.IsZero() {
			query += ` AND tx_date >= ?`
			args = append(args, dr.From.String())
		}
		if !dr.To.IsZero() {
			query += ` AND tx_date <= ?`
			args = append(args, dr.To.String())
		}
	}
	query += ` ORDER BY tx_date, created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE mirror_status = 'pending' ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending mirror: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET mirror_status = 'mirrored' WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return requireAffected(res, core.ErrNotFound)
}

func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET mirror_status = 'error' WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	return requireAffected(res, core.ErrNotFound)
}

func (r *SQLiteRepository) ListBudgetsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, amount_cents, category_id, period, start_date, end_date, is_active
		 FROM budgets WHERE owner_id = ? ORDER BY name`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			budget           core.Budget
			idRaw, ownerRaw  string
			catRaw           sql.NullString
			startRaw, endRaw sql.NullString
			period           string
		)
		if err := rows.Scan(&idRaw, &ownerRaw, &budget.Name, &budget.Amount.Cents,
			&catRaw, &period, &startRaw, &endRaw, &budget.IsActive); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if budget.ID, err = uuid.Parse(idRaw); err != nil {
			return nil, fmt.Errorf("parse budget id: %w", err)
		}
		if budget.OwnerID, err = uuid.Parse(ownerRaw); err != nil {
			return nil, fmt.Errorf("parse budget owner: %w", err)
		}
		if budget.CategoryID, err = parseNullUUID(catRaw); err != nil {
			return nil, fmt.Errorf("parse budget category: %w", err)
		}
		budget.Period = core.BudgetPeriod(period)
		if startRaw.Valid {
			d, err := parseDate(startRaw.String)
			if err != nil {
				return nil, err
			}
			budget.StartDate = d
		}
		if endRaw.Valid {
			d, err := parseDate(endRaw.String)
			if err != nil {
				return nil, err
			}
			budget.EndDate = d
		}
		out = append(out, budget)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) LoadGoal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, target_cents, current_cents, target_date, status
		 FROM goals WHERE id = ?`, id.String())
	return scanGoal(row)
}

func (r *SQLiteRepository) ListGoalsByOwner(ctx context.Context, ownerID uuid.UUID) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, target_cents, current_cents, target_date, status
		 FROM goals WHERE owner_id = ? ORDER BY name`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, goal core.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, owner_id, name, target_cents, current_cents, target_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			target_cents = excluded.target_cents,
			current_cents = excluded.current_cents,
			target_date = excluded.target_date,
			status = excluded.status`,
		goal.ID.String(), goal.OwnerID.String(), goal.Name, goal.TargetAmount.Cents,
		goal.CurrentAmount.Cents, nullDate(goal.TargetDate), string(goal.Status))
	if err != nil {
		return fmt.Errorf("save goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AppendContribution(ctx context.Context, c core.Contribution) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contributions (id, goal_id, amount_cents, contributed_on, note)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.GoalID.String(), c.Amount.Cents, c.Date.String(), c.Note)
	if err != nil {
		return fmt.Errorf("append contribution: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	var (
		c      core.Category
		idRaw  string
		ctType string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, category_type FROM categories WHERE id = ?`, id.String()).
		Scan(&idRaw, &c.Name, &ctType)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("load category: %w", err)
	}
	if c.ID, err = uuid.Parse(idRaw); err != nil {
		return core.Category{}, fmt.Errorf("parse category id: %w", err)
	}
	c.Type = core.CategoryType(ctType)
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (core.RecurringDefinition, error) {
	var (
		def                     core.RecurringDefinition
		idRaw, ownerRaw         string
		catRaw                  sql.NullString
		direction, freq, status string
		startRaw                string
		endRaw, dueRaw          sql.NullString
	)
	err := row.Scan(&idRaw, &ownerRaw, &def.Name, &def.Description, &def.Amount.Cents,
		&direction, &catRaw, &freq, &startRaw, &endRaw, &dueRaw, &status,
		&def.AutoCreate, &def.NotifyBeforeDays)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("scan definition: %w", err)
	}

	if def.ID, err = uuid.Parse(idRaw); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse definition id: %w", err)
	}
	if def.OwnerID, err = uuid.Parse(ownerRaw); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse owner id: %w", err)
	}
	if def.CategoryID, err = parseNullUUID(catRaw); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("parse category id: %w", err)
	}
	def.Direction = core.Direction(direction)
	def.Frequency = core.Frequency(freq)
	def.Status = core.DefinitionStatus(status)
	if def.StartDate, err = parseDate(startRaw); err != nil {
		return core.RecurringDefinition{}, err
	}
	if def.EndDate, err = parseNullDate(endRaw); err != nil {
		return core.RecurringDefinition{}, err
	}
	if def.NextDueDate, err = parseNullDate(dueRaw); err != nil {
		return core.RecurringDefinition{}, err
	}
	return def, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                core.Transaction
		idRaw, ownerRaw   string
		direction, txDate string
		catRaw, recRaw    sql.NullString
	)
	err := row.Scan(&idRaw, &ownerRaw, &tx.Amount.Cents, &direction, &catRaw,
		&txDate, &tx.Description, &recRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	if tx.ID, err = uuid.Parse(idRaw); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	if tx.OwnerID, err = uuid.Parse(ownerRaw); err != nil {
		return core.Transaction{}, fmt.Errorf("parse owner id: %w", err)
	}
	if tx.CategoryID, err = parseNullUUID(catRaw); err != nil {
		return core.Transaction{}, fmt.Errorf("parse category id: %w", err)
	}
	if tx.RecurringID, err = parseNullUUID(recRaw); err != nil {
		return core.Transaction{}, fmt.Errorf("parse recurring id: %w", err)
	}
	tx.Direction = core.Direction(direction)
	if tx.Date, err = parseDate(txDate); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g               core.Goal
		idRaw, ownerRaw string
		targetRaw       sql.NullString
		status          string
	)
	err := row.Scan(&idRaw, &ownerRaw, &g.Name, &g.TargetAmount.Cents,
		&g.CurrentAmount.Cents, &targetRaw, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}

	if g.ID, err = uuid.Parse(idRaw); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal id: %w", err)
	}
	if g.OwnerID, err = uuid.Parse(ownerRaw); err != nil {
		return core.Goal{}, fmt.Errorf("parse goal owner: %w", err)
	}
	if g.TargetDate, err = parseNullDate(targetRaw); err != nil {
		return core.Goal{}, err
	}
	g.Status = core.GoalStatus(status)
	return g, nil
}

func parseDate(s string) (core.Date, error) {
	var d core.Date
	if err := d.UnmarshalJSON([]byte(`"` + s + `"`)); err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

func parseNullDate(ns sql.NullString) (*core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseNullUUID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func nullDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func requireAffected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
