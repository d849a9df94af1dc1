// Command centralgauge is the thin composition root wiring the harness's
// packages together for local exercising. It is not a CLI: argument
// parsing, HTTP serving, and config-file bootstrap are out of scope;
// everything here is read from the environment and a fixed set of
// conventional directories.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/centralgauge/centralgauge/internal/agentconfig"
	"github.com/centralgauge/centralgauge/internal/analysis"
	"github.com/centralgauge/centralgauge/internal/cost"
	"github.com/centralgauge/centralgauge/internal/shortcomings"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	logger := slog.Default().With("component", "centralgauge")

	containerName := getEnv("CENTRALGAUGE_CONTAINER_NAME", "Cronus27")
	containerUser := getEnv("CENTRALGAUGE_CONTAINER_USERNAME", "admin")
	_ = getEnv("CENTRALGAUGE_CONTAINER_PASSWORD", "admin") // never logged

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; sandbox-mode agent execution will fail at dispatch time")
	}

	agentsDir := getEnv("CENTRALGAUGE_AGENTS_DIR", "./agents")
	shortcomingsDir := getEnv("CENTRALGAUGE_SHORTCOMINGS_DIR", "./shortcomings")

	loader := agentconfig.NewLoader()
	loadedAgents := 0
	if entries, err := os.ReadDir(agentsDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := agentsDir + "/" + e.Name()
			if err := loader.LoadFile(path); err != nil {
				logger.Warn("skipping unloadable agent config", "path", path, "error", err)
				continue
			}
			loadedAgents++
		}
	} else {
		logger.Warn("agent config directory unavailable", "dir", agentsDir, "error", err)
	}
	registry := agentconfig.NewRegistry(loader)
	_ = registry // resolved per agent id by the caller dispatching a benchmark run

	tracker := shortcomings.NewTracker(shortcomingsDir)
	_ = tracker // not passed on here; analysis.NewOrchestrator builds its own tracker from a shortcomings dir

	bus := analysis.NewBus()
	bus.Subscribe(func(ev analysis.Event) {
		attrs := []any{"type", ev.Type}
		if ev.TaskID != "" {
			attrs = append(attrs, "task", ev.TaskID, "model", ev.Model)
		}
		if ev.Err != nil {
			attrs = append(attrs, "error", ev.Err)
		}
		logger.Info("analysis event", attrs...)
	})

	executionID := uuid.New().String()
	runCost := cost.New(time.Now())
	_ = runCost // threaded into agentexec.ExecutionContext by the caller that owns a concrete Driver

	logger.Info("centralgauge composition root ready",
		"executionId", executionID,
		"containerName", containerName,
		"containerUser", containerUser,
		"loadedAgents", loadedAgents,
	)

	// Concrete agent drivers, container providers, and LLM adapters are
	// out of scope for this module; a production build supplies them and
	// calls agentexec.Execute / (*analysis.Orchestrator).Run with this
	// composition root's registry and bus.
}
