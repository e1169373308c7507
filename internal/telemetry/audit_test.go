package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lockedin-service/internal/mocks"
)

func TestEmitBuildsEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(publisher, "audit.lockedin", "lockedin-service", "test")

	userID := "u1"
	publisher.On("Publish", mock.Anything, "audit.lockedin", mock.MatchedBy(func(e AuditEnvelope) bool {
		return e.SchemaVersion == 1 &&
			e.EventType == "audit_log" &&
			e.Service == "lockedin-service" &&
			e.Environment == "test" &&
			e.RequestID == "req-1" &&
			e.UserID != nil && *e.UserID == "u1" &&
			e.Payload.Level == "INFO" &&
			e.Payload.Text == "Violation recorded"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "Violation recorded", "req-1", &userID)

	publisher.AssertExpectations(t)
}

func TestEmitNilEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "noop", "req-1", nil)
	})
}

func TestEmitNilPublisherIsSafe(t *testing.T) {
	emitter := NewAuditEmitter(nil, "audit.lockedin", "lockedin-service", "test")
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "noop", "req-1", nil)
	})
}
