package repositories

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"lockedin-service/internal/models"
	"lockedin-service/internal/sites"
)

var ErrGroupNotFound = errors.New("group not found")

// inviteCodeAttempts bounds regeneration when a generated code collides.
const inviteCodeAttempts = 5

// GroupRepository abstracts group, membership, and tracked-site persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, name string, creatorID string, siteList []string) (models.Group, error)
	JoinByCode(ctx context.Context, code string, userID string) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupWithJoinedAt, error)
	MatchingGroups(ctx context.Context, userID string, domain string) ([]models.Group, error)
	TrackedSites(ctx context.Context, groupID string) ([]string, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group, its tracked sites, and the creator's
// membership and streak in one transaction. An invite-code collision rolls
// the transaction back and retries with a fresh code instead of failing
// the caller.
func (r *GroupRepo) CreateGroup(ctx context.Context, name string, creatorID string, siteList []string) (models.Group, error) {
	var lastErr error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group, err := r.createGroupOnce(ctx, name, creatorID, siteList, newInviteCode())
		if isUniqueViolation(err) {
			lastErr = err
			continue
		}
		return group, err
	}
	return models.Group{}, lastErr
}

func (r *GroupRepo) createGroupOnce(ctx context.Context, name string, creatorID string, siteList []string, code string) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO groups (id, name, invite_code, created_by) VALUES ($1, $2, $3, $4)
         RETURNING id, name, invite_code, created_by, created_at`,
		uuid.NewString(), name, code, creatorID,
	).StructScan(&group); err != nil {
		return models.Group{}, err
	}

	// dedupe after normalization so "Reddit.com" and "www.reddit.com"
	// collapse into one row
	seen := map[string]struct{}{}
	for _, s := range siteList {
		domain := sites.Normalize(s)
		if domain == "" {
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO tracked_sites (group_id, domain) VALUES ($1, $2)`, group.ID, domain); err != nil {
			return models.Group{}, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID); err != nil {
		return models.Group{}, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO streaks (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID); err != nil {
		return models.Group{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// JoinByCode adds the user to the group matching the invite code, creating
// the membership and its streak together. Joining a group the user already
// belongs to succeeds without touching the existing streak.
func (r *GroupRepo) JoinByCode(ctx context.Context, code string, userID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group,
		`SELECT id, name, invite_code, created_by, created_at FROM groups WHERE invite_code=$1`,
		strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, userID); err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			// already a member
			return group, nil
		}
		return models.Group{}, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO streaks (group_id, user_id) VALUES ($1, $2)`, group.ID, userID); err != nil {
		tx.Rollback()
		return models.Group{}, err
	}
	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroupsForUser returns the groups the user belongs to.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupWithJoinedAt, error) {
	var groups []models.GroupWithJoinedAt
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.invite_code, g.created_by, g.created_at, gm.joined_at
         FROM groups g
         INNER JOIN group_members gm ON gm.group_id = g.id
         WHERE gm.user_id=$1
         ORDER BY gm.joined_at ASC`, userID)
	return groups, err
}

// MatchingGroups returns every group the user belongs to that tracks the
// given normalized domain. This is the detection join; a single query keeps
// it on one consistent snapshot.
func (r *GroupRepo) MatchingGroups(ctx context.Context, userID string, domain string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.invite_code, g.created_by, g.created_at
         FROM groups g
         INNER JOIN group_members gm ON gm.group_id = g.id
         INNER JOIN tracked_sites ts ON ts.group_id = g.id
         WHERE gm.user_id=$1 AND ts.domain=$2`, userID, domain)
	return groups, err
}

// TrackedSites returns the domains tracked by a group.
func (r *GroupRepo) TrackedSites(ctx context.Context, groupID string) ([]string, error) {
	var domains []string
	err := r.db.SelectContext(ctx, &domains,
		`SELECT domain FROM tracked_sites WHERE group_id=$1 ORDER BY domain ASC`, groupID)
	return domains, err
}

func newInviteCode() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return strings.ToUpper(uuid.NewString()[:6])
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
