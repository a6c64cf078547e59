package rod

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

// BrowserAdapter provisions isolated browser instances, one per signup
// task, and drives them through platform flows. Sessions stay registered
// until closed so the human-resume path can reconnect by id.
type BrowserAdapter struct {
	cfg    BrowserConfig
	llm    output.LLMPort
	logger output.LoggerPort

	mu       sync.Mutex
	sessions map[string]*session
}

type BrowserConfig struct {
	// RemoteURL is the websocket control URL of a remote browser
	// provider. Empty means launch locally.
	RemoteURL string
	// LiveViewURL is a template for the operator-facing view of a
	// session; "{sessionId}" is substituted.
	LiveViewURL string
	Headless    bool
	SlowMotion  time.Duration
	Timeout     time.Duration
	NoSandbox   bool
}

const (
	defaultSlowMotion = 200 * time.Millisecond
	defaultTimeout    = 10 * time.Second
	navIdleWait       = 5 * time.Second
)

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
		NoSandbox:  false,
	}
}

func NewBrowserAdapter(cfg BrowserConfig, llm output.LLMPort, logger output.LoggerPort) *BrowserAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &BrowserAdapter{
		cfg:      cfg,
		llm:      llm,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

type session struct {
	id          string
	liveViewURL string
	browser     *rod.Browser
	page        *rod.Page
	launcher    *launcher.Launcher
}

func (s *session) ID() string          { return s.id }
func (s *session) LiveViewURL() string { return s.liveViewURL }

func (b *BrowserAdapter) CreateSession(ctx context.Context) (output.BrowserSession, error) {
	id := uuid.NewString()

	var l *launcher.Launcher
	controlURL := b.cfg.RemoteURL
	if controlURL == "" {
		l = launcher.New().
			Headless(b.cfg.Headless).
			NoSandbox(b.cfg.NoSandbox)

		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(b.cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	s := &session{
		id:          id,
		liveViewURL: strings.ReplaceAll(b.cfg.LiveViewURL, "{sessionId}", id),
		browser:     browser,
		page:        page,
		launcher:    l,
	}

	b.mu.Lock()
	b.sessions[id] = s
	b.mu.Unlock()

	b.logger.Info("Browser session created", "sessionId", id, "remote", b.cfg.RemoteURL != "")
	return s, nil
}

func (b *BrowserAdapter) ConnectSession(ctx context.Context, sessionID string) (output.BrowserSession, error) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("browser session %s is no longer open", sessionID)
	}
	return s, nil
}

func (b *BrowserAdapter) Navigate(ctx context.Context, bs output.BrowserSession, url string) error {
	s, err := b.resolve(bs)
	if err != nil {
		return err
	}
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := s.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}
	s.page.WaitIdle(navIdleWait)
	return nil
}

func (b *BrowserAdapter) InjectOTP(ctx context.Context, bs output.BrowserSession, code string) error {
	s, err := b.resolve(bs)
	if err != nil {
		return err
	}

	el, err := b.findOTPField(ctx, s.page)
	if err != nil {
		return fmt.Errorf("otp field not found: %w", err)
	}

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(code); err != nil {
		return fmt.Errorf("otp input failed: %w", err)
	}
	if err := el.Input("\r"); err != nil {
		return fmt.Errorf("otp submit failed: %w", err)
	}
	s.page.WaitIdle(2 * time.Second)
	return nil
}

// otpSelectors are tried in order; the first visible match wins.
var otpSelectors = []string{
	"input[autocomplete='one-time-code']",
	"input[name*='otp' i]",
	"input[name*='code' i]",
	"input[id*='code' i]",
	"input[placeholder*='code' i]",
}

func (b *BrowserAdapter) findOTPField(ctx context.Context, page *rod.Page) (*rod.Element, error) {
	for _, selector := range otpSelectors {
		el, err := page.Context(ctx).Timeout(2 * time.Second).Element(selector)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err == nil && visible {
			return el, nil
		}
	}
	return nil, fmt.Errorf("no otp input matched %d known selectors", len(otpSelectors))
}

func (b *BrowserAdapter) Screenshot(ctx context.Context, bs output.BrowserSession) (*entity.Screenshot, error) {
	s, err := b.resolve(bs)
	if err != nil {
		return nil, err
	}

	imgBytes, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > 1024 {
		img = imaging.Resize(img, 1024, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) CloseSession(bs output.BrowserSession) {
	if bs == nil {
		return
	}

	b.mu.Lock()
	s, ok := b.sessions[bs.ID()]
	delete(b.sessions, bs.ID())
	b.mu.Unlock()
	if !ok {
		return
	}

	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	b.logger.Debug("Browser session closed", "sessionId", s.id)
}

func (b *BrowserAdapter) resolve(bs output.BrowserSession) (*session, error) {
	if bs == nil {
		return nil, fmt.Errorf("nil browser session")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[bs.ID()]
	if !ok {
		return nil, fmt.Errorf("browser session %s is closed", bs.ID())
	}
	return s, nil
}
