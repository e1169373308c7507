package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lockedin-service/internal/models"
)

// ViolationRepository abstracts the append-only violation log. Violations
// are never updated or deleted; the leaderboard derives last_violation
// from MAX(created_at).
type ViolationRepository interface {
	RecordAndBreakStreak(ctx context.Context, groupID string, userID string, domain string, at time.Time) (models.Violation, error)
}

// ViolationRepo is a sqlx implementation of ViolationRepository.
type ViolationRepo struct {
	db *sqlx.DB
}

// NewViolationRepo constructs a ViolationRepo.
func NewViolationRepo(db *sqlx.DB) *ViolationRepo {
	return &ViolationRepo{db: db}
}

// RecordAndBreakStreak appends a violation and breaks the member's streak
// in one transaction, so a crash cannot leave a violation recorded with
// the streak still active. There is no deduplication: every detected
// visit gets its own row. Breaking an already broken streak just moves
// broken_at forward; started_at is left alone.
func (r *ViolationRepo) RecordAndBreakStreak(ctx context.Context, groupID string, userID string, domain string, at time.Time) (models.Violation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Violation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var violation models.Violation
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO violations (id, group_id, user_id, domain, created_at) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, group_id, user_id, domain, created_at`,
		uuid.NewString(), groupID, userID, domain, at,
	).StructScan(&violation); err != nil {
		return models.Violation{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE streaks SET broken_at=$1 WHERE group_id=$2 AND user_id=$3`, at, groupID, userID); err != nil {
		return models.Violation{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Violation{}, err
	}
	return violation, nil
}
