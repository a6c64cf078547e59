package di

import (
	"fmt"
	"time"

	"signup-agent/internal/application/port/input"
	"signup-agent/internal/application/port/output"
	"signup-agent/internal/infrastructure/browser/rod"
	"signup-agent/internal/infrastructure/bus/memory"
	"signup-agent/internal/infrastructure/llm/openrouter"
	"signup-agent/internal/infrastructure/logger"
	"signup-agent/internal/infrastructure/mailbox/testmail"
	"signup-agent/internal/infrastructure/platforms"
	"signup-agent/internal/infrastructure/store/db"
	"signup-agent/internal/transport/httpapi"
	"signup-agent/internal/usecase/mailpoll"
	"signup-agent/internal/usecase/orchestrator"
	"signup-agent/internal/usecase/recovery"
)

type Container struct {
	Logger     output.LoggerPort
	Bus        output.EventBus
	Tasks      output.TaskStore
	Browser    output.BrowserPort
	TaskRunner input.TaskRunner
	Server     *httpapi.Server
}

type Config struct {
	OpenRouterAPIKey string
	OpenRouterModel  string
	TestmailAPIKey   string
	DatabaseDSN      string

	PlatformCatalogPath string

	BrowserRemoteURL string
	BrowserLiveView  string
	BrowserHeadless  bool

	HTTPAddr string
	LogLevel string

	MaxPollAttempts int
	SettleDelay     time.Duration
}

func NewContainer(cfg Config) (*Container, error) {
	logCfg := logger.DefaultConfig()
	if cfg.LogLevel != "" {
		logCfg.Level = cfg.LogLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	gormDB, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	specs, err := platforms.Load(cfg.PlatformCatalogPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load platform catalog: %w", err)
	}

	bus := memory.New()
	tasks := db.NewTaskRepository(gormDB, log)
	creds := db.NewCredentialRepository(gormDB)

	llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	llm := openrouter.NewOpenRouterAdapter(llmCfg)

	browserCfg := rod.DefaultConfig()
	browserCfg.RemoteURL = cfg.BrowserRemoteURL
	browserCfg.LiveViewURL = cfg.BrowserLiveView
	browserCfg.Headless = cfg.BrowserHeadless
	browser := rod.NewBrowserAdapter(browserCfg, llm, log)

	mailbox := testmail.NewClient(testmail.DefaultConfig(cfg.TestmailAPIKey))
	poller := mailpoll.New(mailbox, log)
	advisor := recovery.New(browser, llm, log)

	runner := orchestrator.New(
		orchestrator.Config{
			Platforms:       specs,
			MaxPollAttempts: cfg.MaxPollAttempts,
			SettleDelay:     cfg.SettleDelay,
		},
		browser, poller, advisor, tasks, creds, bus, log,
	)

	server := httpapi.NewServer(httpapi.Config{Addr: cfg.HTTPAddr}, runner, tasks, bus, log)

	return &Container{
		Logger:     log,
		Bus:        bus,
		Tasks:      tasks,
		Browser:    browser,
		TaskRunner: runner,
		Server:     server,
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
