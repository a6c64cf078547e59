package output

import (
	"context"

	"signup-agent/internal/domain/entity"
)

// BrowserSession is one isolated remote browser instance. The concrete
// handle stays inside the adapter; callers only see its identity.
type BrowserSession interface {
	ID() string
	LiveViewURL() string
}

type BrowserPort interface {
	// CreateSession provisions a fresh isolated browser. A provisioning
	// failure is fatal for the calling task only.
	CreateSession(ctx context.Context) (BrowserSession, error)

	// ConnectSession returns an already-open session by id, used by the
	// human-resume path. Fails if the session is gone.
	ConnectSession(ctx context.Context, sessionID string) (BrowserSession, error)

	// PerformSignup drives the platform's signup flow and reports how far
	// it got. CAPTCHA detection runs both before and after submit.
	PerformSignup(ctx context.Context, s BrowserSession, spec entity.PlatformSpec, email, password string) (entity.SignupOutcome, error)

	// CheckCaptcha probes the session's current page for a visible
	// CAPTCHA widget without navigating. Used by the resume path.
	CheckCaptcha(ctx context.Context, s BrowserSession) (bool, error)

	InjectOTP(ctx context.Context, s BrowserSession, code string) error
	Navigate(ctx context.Context, s BrowserSession, url string) error
	Screenshot(ctx context.Context, s BrowserSession) (*entity.Screenshot, error)

	// CloseSession releases remote resources. Safe on broken sessions;
	// close-time errors are swallowed.
	CloseSession(s BrowserSession)
}
