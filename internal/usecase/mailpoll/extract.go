package mailpoll

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"signup-agent/internal/domain/entity"
)

var (
	otpPattern  = regexp.MustCompile(`\b(\d{4,8})\b`)
	urlPattern  = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	subjectHint = regexp.MustCompile(`(?i)verif|confirm|activat|welcome|code|account`)
)

var linkKeywords = []string{
	"verify", "confirm", "activate", "token", "code", "sign-in", "login", "auth",
}

// Extract applies the verification rules to a message body. A link wins
// over a bare OTP; when both are present the OTP rides along as
// supplementary injection data.
func Extract(body *entity.MailBody) *entity.VerificationResult {
	text := body.Text
	links := findLinks(text)

	if body.HTML != "" {
		links = append(links, findHTMLLinks(body.HTML)...)
		if text == "" {
			text = body.HTML
		}
	}

	otp := findOTP(text)

	for _, link := range links {
		if isVerificationLink(link) {
			return &entity.VerificationResult{
				Type:  entity.VerificationLink,
				Value: link,
				OTP:   otp,
			}
		}
	}

	if otp != "" {
		return &entity.VerificationResult{Type: entity.VerificationOTP, Value: otp}
	}
	return nil
}

// MatchesPlatform filters a mailbox listing entry: either the sender
// mentions the platform or the subject reads like a verification mail.
func MatchesPlatform(msg entity.MailMessage, platform string) bool {
	if strings.Contains(strings.ToLower(msg.From), strings.ToLower(platform)) {
		return true
	}
	return subjectHint.MatchString(msg.Subject)
}

func findOTP(text string) string {
	m := otpPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func findLinks(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// findHTMLLinks walks the parsed document and collects href targets.
// A parse failure falls back to the plain-text URL scan.
func findHTMLLinks(rawHTML string) []string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return findLinks(rawHTML)
	}

	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.HasPrefix(attr.Val, "http") {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func isVerificationLink(link string) bool {
	lower := strings.ToLower(link)
	for _, kw := range linkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
