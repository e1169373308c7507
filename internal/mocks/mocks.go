package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"lockedin-service/internal/models"
	"lockedin-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, name string, creatorID string, siteList []string) (models.Group, error) {
	args := m.Called(ctx, name, creatorID, siteList)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) JoinByCode(ctx context.Context, code string, userID string) (models.Group, error) {
	args := m.Called(ctx, code, userID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupWithJoinedAt, error) {
	args := m.Called(ctx, userID)
	var groups []models.GroupWithJoinedAt
	if val := args.Get(0); val != nil {
		groups = val.([]models.GroupWithJoinedAt)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) MatchingGroups(ctx context.Context, userID string, domain string) ([]models.Group, error) {
	args := m.Called(ctx, userID, domain)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) TrackedSites(ctx context.Context, groupID string) ([]string, error) {
	args := m.Called(ctx, groupID)
	var domains []string
	if val := args.Get(0); val != nil {
		domains = val.([]string)
	}
	return domains, args.Error(1)
}

type StreakRepositoryMock struct {
	mock.Mock
}

func (m *StreakRepositoryMock) Reset(ctx context.Context, groupID string, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *StreakRepositoryMock) Leaderboard(ctx context.Context, groupID string) ([]models.LeaderboardMember, error) {
	args := m.Called(ctx, groupID)
	var members []models.LeaderboardMember
	if val := args.Get(0); val != nil {
		members = val.([]models.LeaderboardMember)
	}
	return members, args.Error(1)
}

type ViolationRepositoryMock struct {
	mock.Mock
}

func (m *ViolationRepositoryMock) RecordAndBreakStreak(ctx context.Context, groupID string, userID string, domain string, at time.Time) (models.Violation, error) {
	args := m.Called(ctx, groupID, userID, domain, at)
	var violation models.Violation
	if val := args.Get(0); val != nil {
		violation = val.(models.Violation)
	}
	return violation, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) BroadcastViolation(groupID string, event models.ViolationEvent) {
	m.Called(groupID, event)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.GroupRepository = (*GroupRepositoryMock)(nil)
var _ repositories.StreakRepository = (*StreakRepositoryMock)(nil)
var _ repositories.ViolationRepository = (*ViolationRepositoryMock)(nil)
