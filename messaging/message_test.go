package messaging_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bizmesh-labs/agentbus/messaging"
)

func TestMessage_Builders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *messaging.Message
		wantKind messaging.Kind
		wantFrom string
		wantTo   string
	}{
		{
			name: "NewTaskRequest",
			builder: func() *messaging.Message {
				return messaging.NewTaskRequest("sales", "analytics", map[string]any{"type": "report"}).Build()
			},
			wantKind: messaging.KindTaskRequest,
			wantFrom: "sales",
			wantTo:   "analytics",
		},
		{
			name: "NewTaskResponse",
			builder: func() *messaging.Message {
				return messaging.NewTaskResponse("analytics", "sales", "msg-123", map[string]any{"status": "completed"}).Build()
			},
			wantKind: messaging.KindTaskResponse,
			wantFrom: "analytics",
			wantTo:   "sales",
		},
		{
			name: "NewStatusUpdate",
			builder: func() *messaging.Message {
				return messaging.NewStatusUpdate("sales", "marketing", map[string]any{"completed_steps": []string{"collect"}}).Build()
			},
			wantKind: messaging.KindStatusUpdate,
			wantFrom: "sales",
			wantTo:   "marketing",
		},
		{
			name: "NewCompletionNotice",
			builder: func() *messaging.Message {
				return messaging.NewCompletionNotice("coordinator", "sales", map[string]any{"results": map[string]any{}}).Build()
			},
			wantKind: messaging.KindCompletionNotice,
			wantFrom: "coordinator",
			wantTo:   "sales",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.builder()

			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", msg.Kind, tt.wantKind)
			}
			if msg.From != tt.wantFrom {
				t.Errorf("From = %v, want %v", msg.From, tt.wantFrom)
			}
			if msg.To != tt.wantTo {
				t.Errorf("To = %v, want %v", msg.To, tt.wantTo)
			}
			if msg.ID == "" {
				t.Error("ID should not be empty")
			}
			if msg.CreatedAt.IsZero() {
				t.Error("CreatedAt should not be zero")
			}
			if msg.Priority != messaging.PriorityMedium {
				t.Errorf("Priority = %v, want %v", msg.Priority, messaging.PriorityMedium)
			}
		})
	}
}

func TestMessage_TaskResponse_Correlation(t *testing.T) {
	requestID := "original-request-id"
	msg := messaging.NewTaskResponse("analytics", "sales", requestID, map[string]any{"ok": true}).Build()

	if msg.CorrelationID != requestID {
		t.Errorf("CorrelationID = %v, want %v", msg.CorrelationID, requestID)
	}
	if msg.Kind != messaging.KindTaskResponse {
		t.Errorf("Kind = %v, want %v", msg.Kind, messaging.KindTaskResponse)
	}
}

func TestMessage_FluentAPI(t *testing.T) {
	expiry := time.Now().Add(time.Minute)

	msg := messaging.NewTaskRequest("sales", "analytics", map[string]any{"type": "report"}).
		Priority(messaging.PriorityCritical).
		CorrelationID("collab-1").
		ExpiresAt(expiry).
		RequiresResponse(true).
		Build()

	if msg.Priority != messaging.PriorityCritical {
		t.Errorf("Priority = %v, want %v", msg.Priority, messaging.PriorityCritical)
	}
	if msg.CorrelationID != "collab-1" {
		t.Errorf("CorrelationID = %v, want %v", msg.CorrelationID, "collab-1")
	}
	if !msg.ExpiresAt.Equal(expiry) {
		t.Errorf("ExpiresAt = %v, want %v", msg.ExpiresAt, expiry)
	}
	if !msg.RequiresResponse {
		t.Error("RequiresResponse should be true")
	}
}

func TestMessage_Expired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "no expiry never expires", expiresAt: time.Time{}, want: false},
		{name: "future expiry not expired", expiresAt: now.Add(time.Hour), want: false},
		{name: "past expiry expired", expiresAt: now.Add(-time.Second), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := messaging.New("a", "b", messaging.KindTaskRequest).ExpiresAt(tt.expiresAt).Build()
			if got := msg.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_Clone_IndependentPayload(t *testing.T) {
	msg := messaging.NewTaskRequest("a", "b", map[string]any{"key": "original"}).Build()

	clone := msg.Clone()
	clone.Payload["key"] = "changed"

	if msg.Payload["key"] != "original" {
		t.Errorf("Payload[key] = %v, want %v after clone mutation", msg.Payload["key"], "original")
	}
}

func TestKind_IsValid(t *testing.T) {
	for _, kind := range messaging.Kinds() {
		if !kind.IsValid() {
			t.Errorf("IsValid() = false for declared kind %v", kind)
		}
	}

	if messaging.Kind("smoke_signal").IsValid() {
		t.Error("IsValid() = true for undeclared kind")
	}
}

func TestMessage_IDsAreUniqueAndSortable(t *testing.T) {
	first := messaging.New("a", "b", messaging.KindTaskRequest).Build()
	second := messaging.New("a", "b", messaging.KindTaskRequest).Build()

	if first.ID == second.ID {
		t.Error("consecutive messages should have distinct IDs")
	}
	// UUIDv7 ids are time-ordered.
	if strings.Compare(first.ID, second.ID) > 0 {
		t.Errorf("IDs should sort by creation order: %s > %s", first.ID, second.ID)
	}
}

func TestPriority_String(t *testing.T) {
	tests := []struct {
		priority messaging.Priority
		want     string
	}{
		{messaging.PriorityLow, "low"},
		{messaging.PriorityMedium, "medium"},
		{messaging.PriorityHigh, "high"},
		{messaging.PriorityCritical, "critical"},
	}

	for _, tt := range tests {
		if got := tt.priority.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}
