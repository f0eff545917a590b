package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bizmesh-labs/agentbus/collab"
	"github.com/bizmesh-labs/agentbus/config"
	"github.com/bizmesh-labs/agentbus/delegate"
	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/orchestrator"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to agentbus config YAML file (optional)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	level := slog.LevelInfo
	if *verbose || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	o, err := orchestrator.New(&cfg, orchestrator.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	registerDemoAgents(o)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	o.Start()
	defer o.Stop()

	if err := runDemo(ctx, o); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}

	metrics := o.Metrics()
	fmt.Printf("\nMetrics:\n")
	fmt.Printf("  messages sent:            %d\n", metrics.MessagesSent)
	fmt.Printf("  messages processed:       %d\n", metrics.MessagesProcessed)
	fmt.Printf("  collaborations started:   %d\n", metrics.CollaborationsStarted)
	fmt.Printf("  collaborations completed: %d\n", metrics.CollaborationsCompleted)
	fmt.Printf("  average response time:    %v\n", metrics.AverageResponseTime)
}

// runDemo delegates one task, then drives a three-step collaboration to
// completion.
func runDemo(ctx context.Context, o *orchestrator.Orchestrator) error {
	msgID, err := o.DelegateTask("api", "analytics", delegate.TaskSpec{
		Task: map[string]any{"type": "report", "period": "monthly"},
	})
	if err != nil {
		return fmt.Errorf("delegate: %w", err)
	}
	fmt.Printf("Delegated task, message id %s\n", msgID)

	collabID, err := o.RequestCollaboration(ctx, collab.Spec{
		Name:                 "product-launch",
		Description:          "Coordinate the spring product launch",
		Initiator:            "api",
		RequiredCapabilities: []string{"data_analysis", "copywriting"},
		TaskFlow:             []string{"research", "draft", "review"},
		ParticipantCount:     2,
		SharedContext:        map[string]any{"product": "spring-line"},
	})
	if err != nil {
		return fmt.Errorf("request collaboration: %w", err)
	}
	fmt.Printf("Started collaboration %s\n", collabID)

	steps := []struct {
		reporter string
		step     string
	}{
		{"analytics", "research"},
		{"content", "draft"},
		{"content", "review"},
	}
	for _, report := range steps {
		if err := o.UpdateCollaborationStatus(ctx, collabID, report.reporter, collab.Update{
			CompletedStep: report.step,
			Results:       map[string]any{report.step: "done"},
		}); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		snapshot := o.CollaborationStatus(collabID)
		fmt.Printf("  %s reported %q — %.1f%% (%s)\n",
			report.reporter, report.step, snapshot.ProgressPercentage, snapshot.Status)
	}

	// Let the dispatch loop drain the completion notices.
	deadline := time.Now().Add(3 * time.Second)
	for o.Metrics().QueueSize > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}

	return nil
}

func registerDemoAgents(o *orchestrator.Orchestrator) {
	agents := []*directory.MemoryAgent{
		directory.NewMemoryAgent("api", nil, nil),
		directory.NewMemoryAgent("analytics", []string{"data_analysis", "reporting"},
			func(ctx context.Context, task map[string]any) (directory.Result, error) {
				return directory.Result{Success: true, Data: map[string]any{"analysis": "complete"}}, nil
			}),
		directory.NewMemoryAgent("content", []string{"copywriting"},
			func(ctx context.Context, task map[string]any) (directory.Result, error) {
				return directory.Result{Success: true, Data: map[string]any{"draft": "v1"}}, nil
			}),
	}

	for _, ag := range agents {
		if err := o.RegisterAgent(ag); err != nil {
			log.Fatalf("Failed to register agent %s: %v", ag.ID(), err)
		}
	}
}
