package repository

import (
	"context"

	"github.com/oksasatya/phq9-intake/internal/domain/entity"
)

// AssessmentRepository persists PHQ-9 submissions and their DSM-5 results.
type AssessmentRepository interface {
	// CreateWithResult stores both rows atomically and fills in their ids,
	// result.AssessmentID and timestamps.
	CreateWithResult(ctx context.Context, a *entity.Assessment, r *entity.DSM5Result) error
	GetByID(ctx context.Context, id int64) (*entity.AssessmentRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.AssessmentRecord, error)
	LatestByUser(ctx context.Context, userID string) (*entity.AssessmentRecord, error)
}
