package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/di"
	"signup-agent/internal/domain/entity"
	"signup-agent/internal/infrastructure/env"
	"signup-agent/internal/infrastructure/platforms"
)

func main() {
	envService := env.NewEnvService()

	agentID := envService.MustGet("AGENT_ID")
	email := envService.MustGet("AGENT_EMAIL")
	mailboxID := envService.MustGet("AGENT_MAILBOX_ID")

	container, err := di.NewContainer(di.Config{
		OpenRouterAPIKey:    envService.MustGet("OPENROUTER_API_KEY"),
		OpenRouterModel:     envService.MustGet("OPENROUTER_MODEL_NAME"),
		TestmailAPIKey:      envService.MustGet("TESTMAIL_API_KEY"),
		DatabaseDSN:         envService.MustGet("DATABASE_DSN"),
		PlatformCatalogPath: envService.Get("PLATFORM_CATALOG"),
		BrowserRemoteURL:    envService.Get("BROWSER_REMOTE_URL"),
		BrowserLiveView:     envService.Get("BROWSER_LIVE_VIEW_URL"),
		BrowserHeadless:     envService.GetBool("BROWSER_HEADLESS", true),
		HTTPAddr:            envService.GetWithDefault("HTTP_ADDR", ":8080"),
		LogLevel:            envService.GetWithDefault("LOG_LEVEL", "info"),
		MaxPollAttempts:     envService.GetInt("MAIL_POLL_MAX_ATTEMPTS", 0),
		SettleDelay:         envService.GetDuration("SIGNUP_SETTLE_DELAY", 0),
	})
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seedTasks(ctx, container, agentID, envService.Get("PLATFORM_CATALOG")); err != nil {
		container.Logger.Error("Task seeding failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := container.Server.Start(); err != nil {
			container.Logger.Error("HTTP server stopped", "error", err)
		}
	}()

	container.Logger.Info("Starting account setup", "agentId", agentID)
	if err := container.TaskRunner.RunForAgent(ctx, agentID, email, mailboxID); err != nil {
		container.Logger.Error("Agent setup failed", "agentId", agentID, "error", err)
	}

	// Tasks parked in needs_human stay resumable over the API, so the
	// process keeps serving until an operator shuts it down.
	container.Logger.Info("Setup pass finished, serving API", "agentId", agentID)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := container.Server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Warn("HTTP shutdown incomplete", "error", err)
	}
}

// seedTasks ensures one pending row per configured platform. Existing rows
// are left untouched so a restart never resets progress.
func seedTasks(ctx context.Context, container *di.Container, agentID, catalogPath string) error {
	specs, err := platforms.Load(catalogPath)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		_, err := container.Tasks.Get(ctx, agentID, spec.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, output.ErrTaskNotFound) {
			return err
		}

		task := &entity.SetupTask{
			ID:        uuid.NewString(),
			AgentID:   agentID,
			Platform:  spec.Name,
			Status:    entity.TaskStatusPending,
			UpdatedAt: time.Now().UTC(),
		}
		if err := container.Tasks.Create(ctx, task); err != nil {
			return err
		}
		container.Logger.Debug("Seeded task", "agentId", agentID, "platform", spec.Name)
	}
	return nil
}
