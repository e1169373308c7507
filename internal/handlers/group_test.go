package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lockedin-service/internal/mocks"
	"lockedin-service/internal/models"
	"lockedin-service/internal/repositories"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/groups", handler.CreateGroup)
	r.POST("/groups/join", handler.JoinGroup)
	r.GET("/groups/:user_id", handler.ListGroups)
	r.GET("/leaderboard/:group_id", handler.Leaderboard)
	r.POST("/reset-streak", handler.ResetStreak)
	return r
}

func TestCreateGroupSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("CreateGroup", mock.Anything, "Focus", "u1", []string{"reddit.com"}).
		Return(models.Group{ID: "g1", Name: "Focus", InviteCode: "A1B2C3", CreatedBy: "u1"}, nil).Once()

	body := bytes.NewBufferString(`{"name":"Focus","userId":"u1","sites":["reddit.com"]}`)
	req := httptest.NewRequest(http.MethodPost, "/groups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "g1", resp["id"])
	assert.Equal(t, "A1B2C3", resp["invite_code"])
	groupRepo.AssertExpectations(t)
}

func TestCreateGroupInvalidBody(t *testing.T) {
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"Focus"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinGroupSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("JoinByCode", mock.Anything, "A1B2C3", "u2").
		Return(models.Group{ID: "g1", Name: "Focus", InviteCode: "A1B2C3"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/join", bytes.NewBufferString(`{"code":"A1B2C3","userId":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestJoinGroupTwiceSucceedsBothTimes(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	// the repository swallows the duplicate membership, so the handler sees
	// the same successful result on both calls
	groupRepo.On("JoinByCode", mock.Anything, "A1B2C3", "u2").
		Return(models.Group{ID: "g1", Name: "Focus", InviteCode: "A1B2C3"}, nil).Twice()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/groups/join", bytes.NewBufferString(`{"code":"A1B2C3","userId":"u2"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	groupRepo.AssertExpectations(t)
}

func TestJoinGroupInvalidCode(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("JoinByCode", mock.Anything, "NOPE99", "u2").
		Return(models.Group{}, repositories.ErrGroupNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/join", bytes.NewBufferString(`{"code":"NOPE99","userId":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestListGroups(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.StreakRepositoryMock), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("ListGroupsForUser", mock.Anything, "u1").
		Return([]models.GroupWithJoinedAt{{Group: models.Group{ID: "g1", Name: "Focus"}}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestLeaderboardOrdering(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	streakRepo := new(mocks.StreakRepositoryMock)
	handler := NewGroupHandler(groupRepo, streakRepo, nil)
	router := setupGroupRouter(handler)

	day := 24 * time.Hour
	now := time.Now().UTC()
	broken := now.Add(-2 * day)
	// active streaks first, earliest start first, broken last
	streakRepo.On("Leaderboard", mock.Anything, "g1").Return([]models.LeaderboardMember{
		{ID: "a", Username: "alice", StartedAt: now.Add(-9 * day)},
		{ID: "b", Username: "bob", StartedAt: now.Add(-7 * day)},
		{ID: "c", Username: "carol", StartedAt: now.Add(-5 * day), BrokenAt: &broken},
	}, nil).Once()
	groupRepo.On("TrackedSites", mock.Anything, "g1").Return([]string{"reddit.com"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/leaderboard/g1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Members []models.LeaderboardMember `json:"members"`
		Sites   []string                   `json:"sites"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Members, 3)
	assert.Equal(t, "alice", resp.Members[0].Username)
	assert.Equal(t, "bob", resp.Members[1].Username)
	assert.Equal(t, "carol", resp.Members[2].Username)
	assert.Equal(t, []string{"reddit.com"}, resp.Sites)
	groupRepo.AssertExpectations(t)
	streakRepo.AssertExpectations(t)
}

func TestResetStreak(t *testing.T) {
	streakRepo := new(mocks.StreakRepositoryMock)
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), streakRepo, nil)
	router := setupGroupRouter(handler)

	streakRepo.On("Reset", mock.Anything, "g1", "u1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/reset-streak", bytes.NewBufferString(`{"userId":"u1","groupId":"g1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	streakRepo.AssertExpectations(t)
}
