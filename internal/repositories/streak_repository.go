package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"lockedin-service/internal/models"
)

// StreakRepository abstracts streak state persistence. Breaking a streak
// happens inside the violation transaction, see
// ViolationRepository.RecordAndBreakStreak.
type StreakRepository interface {
	Reset(ctx context.Context, groupID string, userID string) error
	Leaderboard(ctx context.Context, groupID string) ([]models.LeaderboardMember, error)
}

// StreakRepo is a sqlx implementation of StreakRepository.
type StreakRepo struct {
	db *sqlx.DB
}

// NewStreakRepo constructs a StreakRepo.
func NewStreakRepo(db *sqlx.DB) *StreakRepo {
	return &StreakRepo{db: db}
}

// Reset starts a fresh interval: started_at moves to now and broken_at is
// cleared. Resetting an active streak also rewinds started_at.
func (r *StreakRepo) Reset(ctx context.Context, groupID string, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE streaks SET started_at=NOW(), broken_at=NULL WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// Leaderboard returns the group's members with their streaks and last
// violation, active streaks first, longest-running first within each half.
func (r *StreakRepo) Leaderboard(ctx context.Context, groupID string) ([]models.LeaderboardMember, error) {
	var members []models.LeaderboardMember
	err := r.db.SelectContext(ctx, &members,
		`SELECT u.id, u.username, s.started_at, s.broken_at,
            (SELECT MAX(v.created_at) FROM violations v WHERE v.user_id = u.id AND v.group_id = $1) AS last_violation
         FROM group_members gm
         INNER JOIN users u ON gm.user_id = u.id
         INNER JOIN streaks s ON s.user_id = u.id AND s.group_id = gm.group_id
         WHERE gm.group_id = $1
         ORDER BY (s.broken_at IS NULL) DESC, s.started_at ASC`, groupID)
	return members, err
}
