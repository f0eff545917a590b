package bus_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bizmesh-labs/agentbus/bus"
	"github.com/bizmesh-labs/agentbus/config"
	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/messaging"
)

func testBusConfig() config.BusConfig {
	cfg := config.DefaultBusConfig()
	cfg.Name = "test-bus"
	cfg.PollTimeout = config.Duration(10 * time.Millisecond)
	return cfg
}

// waitFor polls until condition holds or the deadline passes.
func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBus_Send_AssignsID(t *testing.T) {
	dir := directory.New()
	b := bus.New(dir, testBusConfig())

	msg := &messaging.Message{From: "a", To: "b", Kind: messaging.KindStatusUpdate}
	if !b.Send(msg) {
		t.Fatal("Send() = false, want true")
	}

	if msg.ID == "" {
		t.Error("Send() should assign a message ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Send() should assign a creation timestamp")
	}
}

func TestBus_Send_RejectsInvalid(t *testing.T) {
	dir := directory.New()
	b := bus.New(dir, testBusConfig())

	if b.Send(nil) {
		t.Error("Send(nil) = true, want false")
	}

	bad := messaging.New("a", "b", messaging.Kind("smoke_signal")).Build()
	if b.Send(bad) {
		t.Error("Send() = true for unknown kind, want false")
	}
}

func TestBus_StartTwice_NoOp(t *testing.T) {
	dir := directory.New()
	b := bus.New(dir, testBusConfig())

	b.Start()
	b.Start()
	defer b.Stop()

	if !b.Running() {
		t.Error("Running() = false after Start")
	}
}

func TestBus_StopTwice_NoOp(t *testing.T) {
	dir := directory.New()
	b := bus.New(dir, testBusConfig())

	b.Start()
	b.Stop()
	b.Stop()

	if b.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestBus_FIFODelivery(t *testing.T) {
	dir := directory.New()

	var mu sync.Mutex
	var order []string
	worker := directory.NewMemoryAgent("worker", nil, func(ctx context.Context, task map[string]any) (directory.Result, error) {
		mu.Lock()
		order = append(order, task["seq"].(string))
		mu.Unlock()
		return directory.Result{Success: true}, nil
	})
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())

	const total = 20
	for i := 0; i < total; i++ {
		msg := messaging.NewTaskRequest("caller", "worker", map[string]any{"seq": fmt.Sprintf("%03d", i)}).Build()
		if !b.Send(msg) {
			t.Fatalf("Send(%d) = false", i)
		}
	}

	b.Start()
	defer b.Stop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == total
	})

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < total; i++ {
		want := fmt.Sprintf("%03d", i)
		if order[i] != want {
			t.Fatalf("delivery order[%d] = %s, want %s", i, order[i], want)
		}
	}
}

func TestBus_UnknownRecipient_Dropped(t *testing.T) {
	dir := directory.New()
	known := directory.NewMemoryAgent("known", nil, nil)
	if err := dir.Register(known); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	if !b.Send(messaging.NewStatusUpdate("known", "ghost", map[string]any{"x": 1}).Build()) {
		t.Fatal("Send() = false; unknown recipients fail only at dispatch")
	}
	// Follow with a deliverable message so we can tell dispatch moved on.
	if !b.Send(messaging.NewStatusUpdate("ghost", "known", map[string]any{"y": 2}).Build()) {
		t.Fatal("Send() = false")
	}

	waitFor(t, func() bool {
		_, exists := known.Memory("status:ghost")
		return exists
	})

	if snapshot := known.MemorySnapshot(); len(snapshot) != 1 {
		t.Errorf("memory has %d entries, want 1 (drop must leave no trace)", len(snapshot))
	}
}

func TestBus_TaskRequest_AutoResponse(t *testing.T) {
	dir := directory.New()

	worker := directory.NewMemoryAgent("worker", nil, func(ctx context.Context, task map[string]any) (directory.Result, error) {
		return directory.Result{Success: true, Data: map[string]any{"answer": 42}}, nil
	})
	caller := directory.NewMemoryAgent("caller", nil, nil)
	for _, ag := range []*directory.MemoryAgent{worker, caller} {
		if err := dir.Register(ag); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	request := messaging.NewTaskRequest("caller", "worker", map[string]any{"type": "compute"}).
		RequiresResponse(true).
		Build()
	if !b.Send(request) {
		t.Fatal("Send() = false")
	}

	responseKey := fmt.Sprintf("response:%s", request.ID)
	waitFor(t, func() bool {
		_, exists := caller.Memory(responseKey)
		return exists
	})

	value, _ := caller.Memory(responseKey)
	payload, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("response payload type = %T, want map[string]any", value)
	}
	if payload["status"] != "completed" {
		t.Errorf("response status = %v, want completed", payload["status"])
	}
	result, ok := payload["result"].(map[string]any)
	if !ok || result["answer"] != 42 {
		t.Errorf("response result = %v, want answer 42", payload["result"])
	}
}

func TestBus_TaskRequest_FailedResponse(t *testing.T) {
	dir := directory.New()

	worker := directory.NewMemoryAgent("worker", nil, func(ctx context.Context, task map[string]any) (directory.Result, error) {
		return directory.Result{}, errors.New("boom")
	})
	caller := directory.NewMemoryAgent("caller", nil, nil)
	for _, ag := range []*directory.MemoryAgent{worker, caller} {
		if err := dir.Register(ag); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	request := messaging.NewTaskRequest("caller", "worker", map[string]any{"type": "compute"}).
		RequiresResponse(true).
		Build()
	b.Send(request)

	responseKey := fmt.Sprintf("response:%s", request.ID)
	waitFor(t, func() bool {
		_, exists := caller.Memory(responseKey)
		return exists
	})

	value, _ := caller.Memory(responseKey)
	payload := value.(map[string]any)
	if payload["status"] != "failed" {
		t.Errorf("response status = %v, want failed", payload["status"])
	}
	if payload["error"] != "boom" {
		t.Errorf("response error = %v, want boom", payload["error"])
	}
}

func TestBus_HandlerError_LoopSurvives(t *testing.T) {
	dir := directory.New()

	calls := 0
	var mu sync.Mutex
	worker := directory.NewMemoryAgent("worker", nil, func(ctx context.Context, task map[string]any) (directory.Result, error) {
		mu.Lock()
		calls++
		current := calls
		mu.Unlock()
		if current == 1 {
			panic("first message is poison")
		}
		return directory.Result{Success: true}, nil
	})
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	b.Send(messaging.NewTaskRequest("caller", "worker", map[string]any{"n": 1}).Build())
	b.Send(messaging.NewTaskRequest("caller", "worker", map[string]any{"n": 2}).Build())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	})
}

func TestBus_ExpiredMessage_Dropped(t *testing.T) {
	dir := directory.New()
	worker := directory.NewMemoryAgent("worker", nil, nil)
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	expired := messaging.NewStatusUpdate("caller", "worker", map[string]any{"stale": true}).
		ExpiresAt(time.Now().Add(-time.Minute)).
		Build()
	b.Send(expired)

	live := messaging.NewStatusUpdate("caller", "worker", map[string]any{"fresh": true}).Build()
	b.Send(live)

	waitFor(t, func() bool {
		_, exists := worker.Memory("status:caller")
		return exists
	})

	value, _ := worker.Memory("status:caller")
	payload := value.(map[string]any)
	if _, stale := payload["stale"]; stale {
		t.Error("expired message should have been dropped before delivery")
	}
}

func TestBus_ResourceShare_StoredNamespaced(t *testing.T) {
	dir := directory.New()
	worker := directory.NewMemoryAgent("analytics", nil, nil)
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	share := messaging.New("sales", "analytics", messaging.KindResourceShare).
		Payload(map[string]any{
			"resource_type": "leads",
			"data":          []string{"acme", "globex"},
			"access_level":  "write",
		}).
		Build()
	b.Send(share)

	waitFor(t, func() bool {
		_, exists := worker.Memory("shared:sales:leads")
		return exists
	})

	value, _ := worker.Memory("shared:sales:leads")
	stored := value.(map[string]any)
	if stored["access_level"] != "write" {
		t.Errorf("access_level = %v, want write", stored["access_level"])
	}
	if stored["from"] != "sales" {
		t.Errorf("from = %v, want sales", stored["from"])
	}
	if _, ok := stored["shared_at"].(time.Time); !ok {
		t.Error("shared_at timestamp missing")
	}
}

func TestBus_CollaborationRequest_AcceptsAndReplies(t *testing.T) {
	dir := directory.New()
	invitee := directory.NewMemoryAgent("marketing", nil, nil)
	initiator := directory.NewMemoryAgent("sales", nil, nil)
	for _, ag := range []*directory.MemoryAgent{invitee, initiator} {
		if err := dir.Register(ag); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	invite := messaging.New("sales", "marketing", messaging.KindCollaborationRequest).
		Payload(map[string]any{"collaboration_id": "collab-1", "name": "campaign"}).
		CorrelationID("collab-1").
		Build()
	b.Send(invite)

	waitFor(t, func() bool {
		_, exists := invitee.Memory("collaboration:collab-1:invitation")
		return exists
	})

	// The acceptance travels back to the initiator as a correlated response.
	acceptKey := fmt.Sprintf("response:%s", invite.ID)
	waitFor(t, func() bool {
		_, exists := initiator.Memory(acceptKey)
		return exists
	})

	value, _ := initiator.Memory(acceptKey)
	reply := value.(map[string]any)
	if reply["accepted"] != true {
		t.Errorf("accepted = %v, want true", reply["accepted"])
	}
}

func TestBus_Metrics_Monotonic(t *testing.T) {
	dir := directory.New()
	worker := directory.NewMemoryAgent("worker", nil, nil)
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	defer b.Stop()

	const total = 10
	for i := 0; i < total; i++ {
		b.Send(messaging.NewTaskRequest("caller", "worker", map[string]any{"n": i}).Build())

		snapshot := b.Metrics()
		if snapshot.MessagesProcessed > snapshot.MessagesSent {
			t.Fatalf("MessagesProcessed (%d) > MessagesSent (%d)", snapshot.MessagesProcessed, snapshot.MessagesSent)
		}
	}

	waitFor(t, func() bool {
		return b.Metrics().MessagesProcessed == total
	})

	snapshot := b.Metrics()
	if snapshot.MessagesSent != total {
		t.Errorf("MessagesSent = %d, want %d", snapshot.MessagesSent, total)
	}
	if snapshot.QueueSize != 0 {
		t.Errorf("QueueSize = %d, want 0 after drain", snapshot.QueueSize)
	}
	if snapshot.AverageResponseTime < 0 {
		t.Errorf("AverageResponseTime = %v, want >= 0", snapshot.AverageResponseTime)
	}
}

func TestBus_RestartAfterStop(t *testing.T) {
	dir := directory.New()
	worker := directory.NewMemoryAgent("worker", nil, nil)
	if err := dir.Register(worker); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	b := bus.New(dir, testBusConfig())
	b.Start()
	b.Stop()

	b.Start()
	defer b.Stop()

	b.Send(messaging.NewStatusUpdate("caller", "worker", map[string]any{"alive": true}).Build())

	waitFor(t, func() bool {
		_, exists := worker.Memory("status:caller")
		return exists
	})
}
