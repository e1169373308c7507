package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lockedin-service/internal/mocks"
	"lockedin-service/internal/models"
)

func setupViolationRouter(handler *ViolationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/violation", handler.ReportVisit)
	return r
}

func reportVisit(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/violation", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestReportVisitNoMatchingGroups(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	violationRepo := new(mocks.ViolationRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewViolationHandler(userRepo, groupRepo, violationRepo, notifier, nil)
	router := setupViolationRouter(handler)

	groupRepo.On("MatchingGroups", mock.Anything, "u1", "untracked.com").Return([]models.Group(nil), nil).Once()

	rec, resp := reportVisit(t, router, `{"userId":"u1","domain":"untracked.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["busted"])
	assert.Equal(t, float64(0), resp["groups"])

	groupRepo.AssertExpectations(t)
	userRepo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	violationRepo.AssertNotCalled(t, "RecordAndBreakStreak", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "BroadcastViolation", mock.Anything, mock.Anything)
}

func TestReportVisitTwoMatchingGroups(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	violationRepo := new(mocks.ViolationRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewViolationHandler(userRepo, groupRepo, violationRepo, notifier, nil)
	router := setupViolationRouter(handler)

	groupRepo.On("MatchingGroups", mock.Anything, "u1", "reddit.com").Return([]models.Group{
		{ID: "g1", Name: "Focus"},
		{ID: "g2", Name: "Grind"},
	}, nil).Once()
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Username: "bob"}, nil).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g1", "u1", "reddit.com", mock.Anything).
		Return(models.Violation{ID: "v1", GroupID: "g1"}, nil).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g2", "u1", "reddit.com", mock.Anything).
		Return(models.Violation{ID: "v2", GroupID: "g2"}, nil).Once()
	notifier.On("BroadcastViolation", "g1", mock.MatchedBy(func(e models.ViolationEvent) bool {
		return e.GroupID == "g1" && e.GroupName == "Focus" && e.Username == "bob" && e.Domain == "reddit.com"
	})).Once()
	notifier.On("BroadcastViolation", "g2", mock.MatchedBy(func(e models.ViolationEvent) bool {
		return e.GroupID == "g2" && e.GroupName == "Grind" && e.Username == "bob" && e.Domain == "reddit.com"
	})).Once()

	rec, resp := reportVisit(t, router, `{"userId":"u1","domain":"reddit.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["busted"])
	assert.Equal(t, float64(2), resp["groups"])

	groupRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
	violationRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestReportVisitNormalizesDomain(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	violationRepo := new(mocks.ViolationRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewViolationHandler(userRepo, groupRepo, violationRepo, notifier, nil)
	router := setupViolationRouter(handler)

	groupRepo.On("MatchingGroups", mock.Anything, "u1", "example.com").Return([]models.Group{
		{ID: "g1", Name: "Focus"},
	}, nil).Once()
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Username: "bob"}, nil).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g1", "u1", "example.com", mock.Anything).
		Return(models.Violation{ID: "v1"}, nil).Once()
	notifier.On("BroadcastViolation", "g1", mock.MatchedBy(func(e models.ViolationEvent) bool {
		return e.Domain == "example.com"
	})).Once()

	rec, resp := reportVisit(t, router, `{"userId":"u1","domain":"WWW.Example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["busted"])
	groupRepo.AssertExpectations(t)
	violationRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestReportVisitGroupFailureIsIsolated(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	violationRepo := new(mocks.ViolationRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewViolationHandler(userRepo, groupRepo, violationRepo, notifier, nil)
	router := setupViolationRouter(handler)

	groupRepo.On("MatchingGroups", mock.Anything, "u1", "reddit.com").Return([]models.Group{
		{ID: "g1", Name: "Focus"},
		{ID: "g2", Name: "Grind"},
	}, nil).Once()
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Username: "bob"}, nil).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g1", "u1", "reddit.com", mock.Anything).
		Return(models.Violation{}, assert.AnError).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g2", "u1", "reddit.com", mock.Anything).
		Return(models.Violation{ID: "v2", GroupID: "g2"}, nil).Once()
	notifier.On("BroadcastViolation", "g2", mock.Anything).Once()

	rec, resp := reportVisit(t, router, `{"userId":"u1","domain":"reddit.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["busted"])
	assert.Equal(t, float64(1), resp["groups"])

	violationRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
	notifier.AssertNotCalled(t, "BroadcastViolation", "g1", mock.Anything)
}

func TestReportVisitAllGroupsFailStillBusted(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	groupRepo := new(mocks.GroupRepositoryMock)
	violationRepo := new(mocks.ViolationRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewViolationHandler(userRepo, groupRepo, violationRepo, notifier, nil)
	router := setupViolationRouter(handler)

	groupRepo.On("MatchingGroups", mock.Anything, "u1", "reddit.com").Return([]models.Group{
		{ID: "g1", Name: "Focus"},
	}, nil).Once()
	userRepo.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Username: "bob"}, nil).Once()
	violationRepo.On("RecordAndBreakStreak", mock.Anything, "g1", "u1", "reddit.com", mock.Anything).
		Return(models.Violation{}, assert.AnError).Once()

	rec, resp := reportVisit(t, router, `{"userId":"u1","domain":"reddit.com"}`)

	// the visit still hit a tracked domain, even though nothing persisted
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["busted"])
	assert.Equal(t, float64(0), resp["groups"])

	violationRepo.AssertExpectations(t)
	notifier.AssertNotCalled(t, "BroadcastViolation", mock.Anything, mock.Anything)
}

func TestReportVisitInvalidBody(t *testing.T) {
	handler := NewViolationHandler(new(mocks.UserRepositoryMock), new(mocks.GroupRepositoryMock), new(mocks.ViolationRepositoryMock), new(mocks.NotifierMock), nil)
	router := setupViolationRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/violation", bytes.NewBufferString(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
