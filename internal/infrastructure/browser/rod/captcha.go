package rod

import (
	"context"
	"time"

	"github.com/go-rod/rod"

	"signup-agent/internal/application/port/output"
)

// captchaSelectors covers the widgets of the common challenge vendors.
// Detection is structural: presence of a visible widget, not solving.
var captchaSelectors = []string{
	"iframe[src*='recaptcha']",
	"iframe[src*='hcaptcha']",
	"iframe[src*='turnstile']",
	".g-recaptcha",
	".h-captcha",
	".cf-turnstile",
	"[data-sitekey]",
	"#captcha",
}

// CheckCaptcha probes the session's current page for a visible widget.
func (b *BrowserAdapter) CheckCaptcha(ctx context.Context, bs output.BrowserSession) (bool, error) {
	s, err := b.resolve(bs)
	if err != nil {
		return false, err
	}
	return detectCaptcha(s.page.Context(ctx)), nil
}

func detectCaptcha(page *rod.Page) bool {
	for _, selector := range captchaSelectors {
		el, err := page.Timeout(500 * time.Millisecond).Element(selector)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err == nil && visible {
			return true
		}
	}
	return false
}
