package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/phq9-intake/internal/domain/entity"
	"github.com/oksasatya/phq9-intake/internal/domain/phq9"
	"github.com/oksasatya/phq9-intake/internal/domain/repository"
)

const recordColumns = `
	a.id, a.user_id::text, a.responses, a.total_score, a.doctors_notes, a.patients_notes, a.submitted_at,
	d.id, d.severity, d.q9_flag, d.mdd_assessment, d.created_at`

const recordJoin = `
	FROM phq9_assessment a
	JOIN dsm_5_assessment d ON d.assessment_id = a.id`

type AssessmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// CreateWithResult writes the raw submission and its DSM-5 result in a single
// transaction, so neither row exists without the other.
func (r *AssessmentRepository) CreateWithResult(ctx context.Context, a *entity.Assessment, res *entity.DSM5Result) error {
	responses, err := json.Marshal(a.Responses.Map())
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO phq9_assessment (user_id, responses, total_score, doctors_notes, patients_notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at
	`, a.UserID, responses, a.TotalScore, a.DoctorsNotes, a.PatientsNotes).Scan(&a.ID, &a.SubmittedAt)
	if err != nil {
		return mapError(err)
	}

	res.AssessmentID = a.ID
	res.UserID = a.UserID
	err = tx.QueryRow(ctx, `
		INSERT INTO dsm_5_assessment (user_id, assessment_id, severity, q9_flag, mdd_assessment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, res.UserID, res.AssessmentID, string(res.Severity), res.Item9Positive, res.MDDCriteriaMet).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id int64) (*entity.AssessmentRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+recordJoin+` WHERE a.id = $1`, id)
	return scanRecord(row)
}

func (r *AssessmentRepository) LatestByUser(ctx context.Context, userID string) (*entity.AssessmentRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+recordJoin+`
		WHERE a.user_id = $1
		ORDER BY a.submitted_at DESC, a.id DESC
		LIMIT 1`, userID)
	return scanRecord(row)
}

func (r *AssessmentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.AssessmentRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+recordJoin+`
		WHERE a.user_id = $1
		ORDER BY a.submitted_at DESC, a.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]entity.AssessmentRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func scanRecord(row rowScanner) (*entity.AssessmentRecord, error) {
	var (
		rec      entity.AssessmentRecord
		raw      []byte
		severity string
	)
	a := &rec.Assessment
	d := &rec.Result
	if err := row.Scan(&a.ID, &a.UserID, &raw, &a.TotalScore, &a.DoctorsNotes, &a.PatientsNotes, &a.SubmittedAt,
		&d.ID, &severity, &d.Item9Positive, &d.MDDCriteriaMet, &d.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	var m map[string]int
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode responses of assessment %d: %w", a.ID, err)
	}
	responses, err := phq9.ParseResponses(m)
	if err != nil {
		return nil, fmt.Errorf("stored responses of assessment %d: %w", a.ID, err)
	}
	a.Responses = responses
	d.AssessmentID = a.ID
	d.UserID = a.UserID
	d.Severity = phq9.Severity(severity)
	return &rec, nil
}

var _ repository.AssessmentRepository = (*AssessmentRepository)(nil)
