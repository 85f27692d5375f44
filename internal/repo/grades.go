package repo

import (
	"context"
	"database/sql"

	"calllab/internal/domain"
)

// GradeWithPreview pairs a grade with the first bytes of the graded
// conversation, for the inspector listing.
type GradeWithPreview struct {
	domain.Grade
	ContentPreview string `json:"content_preview"`
}

// CountGrades returns the number of stored grade rows.
func (r Repo) CountGrades(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversation_grades`).Scan(&n)
	return n, err
}

// ListGrades returns the newest grades joined to a 200-character
// preview of the conversation content.
func (r Repo) ListGrades(ctx context.Context, limit int) ([]GradeWithPreview, error) {
	rows, err := r.query(ctx, `SELECT g.id, g.conversation_id, g.realness_score, g.coherence_score,
g.naturalness_score, g.overall_score, g.domain_valid, COALESCE(g.brief_feedback,''),
g.grading_error, g.graded_at, SUBSTR(c.content, 1, 200)
FROM conversation_grades g
JOIN conversations c ON c.id = g.conversation_id
ORDER BY g.graded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []GradeWithPreview
	for rows.Next() {
		var g GradeWithPreview
		var realness, coherence, naturalness, overall sql.NullInt64
		var valid sql.NullBool
		var gradingErr sql.NullString
		if err := rows.Scan(&g.ID, &g.ConversationID, &realness, &coherence, &naturalness,
			&overall, &valid, &g.BriefFeedback, &gradingErr, &g.GradedAt, &g.ContentPreview); err != nil {
			return nil, err
		}
		g.RealnessScore = intPtr(realness)
		g.CoherenceScore = intPtr(coherence)
		g.NaturalnessScore = intPtr(naturalness)
		g.OverallScore = intPtr(overall)
		if valid.Valid {
			g.DomainValid = &valid.Bool
		}
		if gradingErr.Valid {
			g.GradingError = &gradingErr.String
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// InsertGrade stores a rubric result for a conversation.
func (r Repo) InsertGrade(ctx context.Context, g domain.Grade) error {
	gradedAt := g.GradedAt
	if gradedAt == "" {
		gradedAt = now()
	}
	_, err := r.exec(ctx, `INSERT INTO conversation_grades
(id, conversation_id, realness_score, coherence_score, naturalness_score, overall_score,
 domain_valid, brief_feedback, grading_error, graded_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.ConversationID,
		intArg(g.RealnessScore), intArg(g.CoherenceScore), intArg(g.NaturalnessScore), intArg(g.OverallScore),
		boolArg(g.DomainValid), nullable(g.BriefFeedback), strArg(g.GradingError), gradedAt)
	return err
}

// ClearGrades deletes every grade row and reports how many went.
func (r Repo) ClearGrades(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM conversation_grades`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DropGradesTable removes the grades table entirely.
func (r Repo) DropGradesTable(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DROP TABLE IF EXISTS conversation_grades`)
	return err
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolArg(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func strArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
