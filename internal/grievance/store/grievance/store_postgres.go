package grievance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civicchain/internal/grievance/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
	"civicchain/pkg/platform/tx"
)

// Postgres stores grievances in two tables. A grievance row and its
// timeline rows are always written in the same transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const grievanceColumns = `
	grievance_id, owner_account_id, owner_ref,
	reporter_name, reporter_email, reporter_phone, reporter_address,
	description, department, region, category, priority, status,
	transaction_hash, block_number, created_at, updated_at`

func (s *Postgres) CreateIfAbsent(ctx context.Context, g *models.Grievance) error {
	return tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Execer(ctx, s.db)
		res, err := exec.ExecContext(ctx, `
			INSERT INTO grievances (`+grievanceColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (grievance_id) DO NOTHING`,
			string(g.ID), nullOwner(g.OwnerAccountID), g.OwnerRef,
			g.Reporter.Name, g.Reporter.Email, g.Reporter.Phone, g.Reporter.Address,
			g.Description, g.Department, g.Region, g.Category, string(g.Priority), string(g.Status),
			g.TransactionHash, nullBlock(g.BlockNumber), g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert grievance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("grievance %s: %w", g.ID, sentinel.ErrAlreadyUsed)
		}
		return insertTimeline(ctx, exec, g.ID, g.Timeline)
	})
}

func (s *Postgres) FindByID(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	exec := tx.Execer(ctx, s.db)
	g, err := scanGrievance(exec.QueryRowContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE grievance_id = $1`, string(grievanceID)))
	if err != nil {
		return nil, err
	}
	if err := s.loadTimelines(ctx, exec, []*models.Grievance{g}); err != nil {
		return nil, err
	}
	return g, nil
}

// Transition locks the grievance row, lets fn mutate it, and writes the
// new status together with any timeline entries fn appended.
func (s *Postgres) Transition(ctx context.Context, grievanceID id.GrievanceID, fn func(*models.Grievance) error) (*models.Grievance, error) {
	var out *models.Grievance
	err := tx.RunInTx(ctx, s.db, func(ctx context.Context) error {
		exec := tx.Execer(ctx, s.db)
		g, err := scanGrievance(exec.QueryRowContext(ctx,
			`SELECT `+grievanceColumns+` FROM grievances WHERE grievance_id = $1 FOR UPDATE`, string(grievanceID)))
		if err != nil {
			return err
		}
		if err := s.loadTimelines(ctx, exec, []*models.Grievance{g}); err != nil {
			return err
		}

		before := len(g.Timeline)
		if err := fn(g); err != nil {
			return fmt.Errorf("transition grievance %s: %w", grievanceID, err)
		}

		if _, err := exec.ExecContext(ctx,
			`UPDATE grievances SET status = $2, updated_at = $3 WHERE grievance_id = $1`,
			string(g.ID), string(g.Status), g.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update grievance status: %w", err)
		}
		if err := insertTimeline(ctx, exec, g.ID, g.Timeline[before:]); err != nil {
			return err
		}
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Postgres) ExistingIDs(ctx context.Context, ids []id.GrievanceID) (map[id.GrievanceID]bool, error) {
	raw := make([]string, len(ids))
	for i, gid := range ids {
		raw[i] = string(gid)
	}
	rows, err := tx.Execer(ctx, s.db).QueryContext(ctx,
		`SELECT grievance_id FROM grievances WHERE grievance_id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("lookup grievance ids: %w", err)
	}
	defer rows.Close()

	out := make(map[id.GrievanceID]bool, len(ids))
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, fmt.Errorf("scan grievance id: %w", err)
		}
		out[id.GrievanceID(gid)] = true
	}
	return out, rows.Err()
}

func (s *Postgres) List(ctx context.Context, filter models.ListFilter) ([]*models.Grievance, int, error) {
	where, args := filterClause(filter)
	exec := tx.Execer(ctx, s.db)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM grievances`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grievances: %w", err)
	}

	query := `SELECT ` + grievanceColumns + ` FROM grievances` + where +
		` ORDER BY created_at DESC, grievance_id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := exec.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list grievances: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Grievance, 0, filter.Limit)
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate grievances: %w", err)
	}
	if err := s.loadTimelines(ctx, exec, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Postgres) Counts(ctx context.Context) (*models.Counts, error) {
	c := models.NewCounts()
	exec := tx.Execer(ctx, s.db)
	groups := []struct {
		column string
		into   map[string]int
	}{
		{"status", c.ByStatus},
		{"region", c.ByRegion},
		{"department", c.ByDepartment},
	}
	for _, grp := range groups {
		rows, err := exec.QueryContext(ctx, `SELECT `+grp.column+`, COUNT(*) FROM grievances GROUP BY `+grp.column)
		if err != nil {
			return nil, fmt.Errorf("count by %s: %w", grp.column, err)
		}
		for rows.Next() {
			var (
				key string
				n   int
			)
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan count by %s: %w", grp.column, err)
			}
			grp.into[key] = n
			if grp.column == "status" {
				c.Total += n
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate count by %s: %w", grp.column, err)
		}
	}
	return c, nil
}

func filterClause(f models.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.Region != "" {
		add("lower(region) = lower(?)", f.Region)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.Department != "" {
		add("lower(department) = lower(?)", f.Department)
	}
	if !f.Owner.IsNil() {
		add("owner_account_id = ?", uuid.UUID(f.Owner))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Postgres) loadTimelines(ctx context.Context, exec tx.Executor, items []*models.Grievance) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*models.Grievance, len(items))
	ids := make([]string, 0, len(items))
	for _, g := range items {
		byID[string(g.ID)] = g
		ids = append(ids, string(g.ID))
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT grievance_id, status, note, occurred_at
		FROM grievance_timeline
		WHERE grievance_id = ANY($1)
		ORDER BY grievance_id, id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load timelines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			gid    string
			status string
			entry  models.TimelineEntry
		)
		if err := rows.Scan(&gid, &status, &entry.Note, &entry.Timestamp); err != nil {
			return fmt.Errorf("scan timeline entry: %w", err)
		}
		entry.Status = models.Status(status)
		if g, ok := byID[gid]; ok {
			g.Timeline = append(g.Timeline, entry)
		}
	}
	return rows.Err()
}

func insertTimeline(ctx context.Context, exec tx.Executor, grievanceID id.GrievanceID, entries []models.TimelineEntry) error {
	for _, e := range entries {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO grievance_timeline (grievance_id, status, note, occurred_at) VALUES ($1, $2, $3, $4)`,
			string(grievanceID), string(e.Status), e.Note, e.Timestamp,
		); err != nil {
			return fmt.Errorf("insert timeline entry: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrievance(row rowScanner) (*models.Grievance, error) {
	var (
		g        models.Grievance
		gid      string
		owner    uuid.NullUUID
		priority string
		status   string
		block    sql.NullInt64
	)
	err := row.Scan(
		&gid, &owner, &g.OwnerRef,
		&g.Reporter.Name, &g.Reporter.Email, &g.Reporter.Phone, &g.Reporter.Address,
		&g.Description, &g.Department, &g.Region, &g.Category, &priority, &status,
		&g.TransactionHash, &block, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("grievance not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan grievance: %w", err)
	}
	g.ID = id.GrievanceID(gid)
	if owner.Valid {
		g.OwnerAccountID = id.AccountID(owner.UUID)
	}
	g.Priority = models.Priority(priority)
	g.Status = models.Status(status)
	if block.Valid {
		n := block.Int64
		g.BlockNumber = &n
	}
	return &g, nil
}

func nullOwner(owner id.AccountID) uuid.NullUUID {
	if owner.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(owner), Valid: true}
}

func nullBlock(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
