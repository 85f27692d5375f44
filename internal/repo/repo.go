package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calllab/internal/db"
	"calllab/internal/domain"
)

// Repo issues maintenance queries against the pipeline schema. Queries
// are written with ? placeholders and rebound for the active driver.
type Repo struct {
	DB *db.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
}

func (r Repo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.DB.QueryContext(ctx, r.DB.Rebind(query), args...)
}

func (r Repo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.DB.QueryRowContext(ctx, r.DB.Rebind(query), args...)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// ServerVersion reports the backing database server version string.
func (r Repo) ServerVersion(ctx context.Context) (string, error) {
	q := `SELECT version()`
	if r.DB.Driver == db.DriverSQLite {
		q = `SELECT 'SQLite ' || sqlite_version()`
	}
	var v string
	err := r.DB.QueryRowContext(ctx, q).Scan(&v)
	return v, err
}

// TableCount returns the row count of one table. The table name comes
// from a fixed internal list, never from user input.
func (r Repo) TableCount(ctx context.Context, table string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// InventoryTables is the fixed set reported by db status.
var InventoryTables = []string{"nodes", "models", "scenarios", "jobs", "conversations", "conversation_grades"}

// StatusSummary gathers the quick system overview counters.
func (r Repo) StatusSummary(ctx context.Context) (domain.StatusSummary, error) {
	var s domain.StatusSummary
	steps := []struct {
		query string
		dest  *int
		args  []any
	}{
		{`SELECT COUNT(*) FROM nodes WHERE status = ?`, &s.OnlineNodes, []any{"online"}},
		{`SELECT COUNT(*) FROM jobs WHERE status = ?`, &s.PendingJobs, []any{"pending"}},
		{`SELECT COUNT(*) FROM jobs WHERE status = ?`, &s.RunningJobs, []any{"running"}},
		{`SELECT COUNT(*) FROM conversations`, &s.TotalConversations, nil},
		{`SELECT COUNT(*) FROM conversations WHERE created_at > ?`, &s.LastHour,
			[]any{time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)}},
	}
	for _, step := range steps {
		if err := r.queryRow(ctx, step.query, step.args...).Scan(step.dest); err != nil {
			return s, err
		}
	}
	return s, nil
}

// JobStatusCounts breaks the job queue down by status.
func (r Repo) JobStatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// RecentJobs lists the newest jobs.
func (r Repo) RecentJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.query(ctx, `SELECT id, COALESCE(scenario_id,''), job_type, status, created_at
FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []domain.Job
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(&j.ID, &j.ScenarioID, &j.JobType, &j.Status, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanConversation(rows *sql.Rows) (domain.Conversation, error) {
	var c domain.Conversation
	var scenarioID, modelName sql.NullString
	var duration sql.NullInt64
	var score sql.NullFloat64
	err := rows.Scan(&c.ID, &scenarioID, &c.Content, &modelName, &duration, &score, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	if scenarioID.Valid {
		c.ScenarioID = &scenarioID.String
	}
	if modelName.Valid {
		c.ModelName = modelName.String
	}
	if duration.Valid {
		c.GenerationDurationMS = &duration.Int64
	}
	if score.Valid {
		c.QualityScore = &score.Float64
	}
	return c, nil
}

const conversationColumns = `id, scenario_id, content, model_name, generation_duration_ms, quality_score, created_at`

// RecentConversations lists the newest conversations, optionally
// restricted to ids starting with prefix.
func (r Repo) RecentConversations(ctx context.Context, limit int, prefix string) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations ORDER BY created_at DESC LIMIT ?`
	args := []any{limit}
	if prefix != "" {
		query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id LIKE ? ORDER BY created_at DESC LIMIT ?`
		args = []any{prefix + "%", limit}
	}
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// GetConversation fetches one conversation by exact id.
func (r Repo) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	rows, err := r.query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Conversation{}, err
		}
		return domain.Conversation{}, ErrNotFound
	}
	return scanConversation(rows)
}

// InsertConversation records a generated conversation.
func (r Repo) InsertConversation(ctx context.Context, c domain.Conversation) error {
	createdAt := c.CreatedAt
	if createdAt == "" {
		createdAt = now()
	}
	var scenarioID any
	if c.ScenarioID != nil {
		scenarioID = *c.ScenarioID
	}
	var duration any
	if c.GenerationDurationMS != nil {
		duration = *c.GenerationDurationMS
	}
	_, err := r.exec(ctx, `INSERT INTO conversations(id, scenario_id, content, model_name, generation_duration_ms, created_at)
VALUES (?,?,?,?,?,?)`, c.ID, scenarioID, c.Content, nullable(c.ModelName), duration, createdAt)
	return err
}

// UngradedConversations returns conversations without a grade row,
// newest first.
func (r Repo) UngradedConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	rows, err := r.query(ctx, `SELECT `+conversationColumns+` FROM conversations c
WHERE NOT EXISTS (SELECT 1 FROM conversation_grades g WHERE g.conversation_id = c.id)
ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
