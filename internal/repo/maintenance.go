package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"calllab/internal/db"
	"calllab/internal/domain"
	"calllab/internal/migrate"
)

// ResetRun clears grades, conversations and jobs in dependency order
// inside one transaction, then forces master nodes offline so a fresh
// orchestrator can take over.
func (r Repo) ResetRun(ctx context.Context) (domain.ResetResult, error) {
	var result domain.ResetResult
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	// Order matters: grades reference conversations, conversations
	// reference jobs' scenarios.
	res, err := tx.ExecContext(ctx, `DELETE FROM conversation_grades`)
	if err != nil {
		return result, fmt.Errorf("delete grades: %w", err)
	}
	result.DeletedGrades, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM conversations`)
	if err != nil {
		return result, fmt.Errorf("delete conversations: %w", err)
	}
	result.DeletedConversations, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return result, fmt.Errorf("delete jobs: %w", err)
	}
	result.DeletedJobs, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, r.DB.Rebind(`UPDATE nodes SET status = ? WHERE node_type = ?`), "offline", "master")
	if err != nil {
		return result, fmt.Errorf("reset masters: %w", err)
	}
	result.MastersReset, _ = res.RowsAffected()

	return result, tx.Commit()
}

// CleanTables wipes the transaction tables for a fresh run: run counter
// back to zero, conversations/grades/jobs gone, non-master nodes gone,
// dedupe tables truncated.
func (r Repo) CleanTables(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `UPDATE run_counter SET current_run = 0`); err != nil {
		return fmt.Errorf("reset run counter: %w", err)
	}
	steps := []string{
		`DELETE FROM conversation_grades`,
		`DELETE FROM conversations`,
		`DELETE FROM jobs`,
	}
	for _, q := range steps {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	if _, err := r.exec(ctx, `DELETE FROM nodes WHERE node_type != ?`, "master"); err != nil {
		return err
	}
	return r.truncate(ctx, "dedupe_hashes", "dedupe_runs")
}

// truncate empties tables, using TRUNCATE ... CASCADE on Postgres and
// plain deletes on SQLite.
func (r Repo) truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		q := `DELETE FROM ` + table
		if r.DB.Driver == db.DriverPostgres {
			q = `TRUNCATE TABLE ` + table + ` CASCADE`
		}
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// RecreateRAGTables drops and rebuilds the RAG tables from the embedded
// schema.
func (r Repo) RecreateRAGTables(ctx context.Context) error {
	for _, q := range []string{
		`DROP TABLE IF EXISTS document_chunks`,
		`DROP TABLE IF EXISTS rag_sources`,
	} {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	schema, err := migrate.SchemaFile("003_rag.sql")
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, schema)
	return err
}

// EnsureDedupeSchema applies the dedupe table group. Safe to run on a
// database that already has it.
func (r Repo) EnsureDedupeSchema(ctx context.Context) error {
	schema, err := migrate.SchemaFile("002_dedupe.sql")
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, schema)
	return err
}

var sampleScenarios = []domain.Scenario{
	{Name: "Healthcare Appointment Scheduling", Domain: "healthcare",
		Template: "Generate a medical appointment scheduling conversation between a patient and receptionist."},
	{Name: "Healthcare Appointment Cancellation", Domain: "healthcare",
		Template: "Generate a conversation where a patient cancels their medical appointment."},
	{Name: "Healthcare Insurance Verification", Domain: "healthcare",
		Template: "Generate a conversation about verifying patient insurance information."},
	{Name: "Pizza Order Placement", Domain: "retail",
		Template: "Generate a conversation where a customer orders pizza over the phone."},
	{Name: "Cable Service Cancellation", Domain: "telecom",
		Template: "Generate a conversation where a customer cancels their cable service."},
}

// Seed inserts the sample scenarios and a master node into a freshly
// migrated database.
func (r Repo) Seed(ctx context.Context) (int, error) {
	for _, s := range sampleScenarios {
		if _, err := r.exec(ctx, `INSERT INTO scenarios(id, name, domain, template, created_at) VALUES (?,?,?,?,?)`,
			uuid.NewString(), s.Name, s.Domain, s.Template, now()); err != nil {
			return 0, fmt.Errorf("seed scenario %q: %w", s.Name, err)
		}
	}
	if err := r.InsertNode(ctx, domain.Node{
		ID:           uuid.NewString(),
		Hostname:     "master-node",
		NodeType:     "master",
		Status:       "online",
		Capabilities: `["orchestration","web_ui"]`,
	}); err != nil {
		return 0, fmt.Errorf("seed master node: %w", err)
	}
	return len(sampleScenarios), nil
}

// ListScenarios returns up to limit scenarios.
func (r Repo) ListScenarios(ctx context.Context, limit int) ([]domain.Scenario, error) {
	rows, err := r.query(ctx, `SELECT id, name, domain, template, created_at FROM scenarios LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Scenario
	for rows.Next() {
		var s domain.Scenario
		if err := rows.Scan(&s.ID, &s.Name, &s.Domain, &s.Template, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
