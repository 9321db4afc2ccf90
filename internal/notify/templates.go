package notify

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

var verificationTmpl = template.Must(template.New("verification").Parse(
	`Hi,

Thanks for signing up. Confirm your email address by opening the link below:

{{.ConfirmURL}}

The link is valid for {{.TTL}}. If you did not create this account you can
ignore this message.
`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(
	`Hi,

Your email address is confirmed and your account is ready to use. Happy
task wrangling!
`))

// BuildVerificationMessage renders the confirmation mail for a freshly issued
// verification token. baseURL gets the token appended as a query parameter.
func BuildVerificationMessage(email, token, baseURL string, ttl time.Duration) (Message, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Message{}, fmt.Errorf("invalid verification base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	var body strings.Builder
	err = verificationTmpl.Execute(&body, struct {
		ConfirmURL string
		TTL        string
	}{ConfirmURL: u.String(), TTL: formatTTL(ttl)})
	if err != nil {
		return Message{}, fmt.Errorf("render verification mail: %w", err)
	}
	return NewMessage(KindVerificationEmail, email, "Confirm your email address", body.String()), nil
}

func BuildWelcomeMessage(email string) (Message, error) {
	var body strings.Builder
	if err := welcomeTmpl.Execute(&body, nil); err != nil {
		return Message{}, fmt.Errorf("render welcome mail: %w", err)
	}
	return NewMessage(KindWelcomeEmail, email, "Welcome aboard", body.String()), nil
}

func formatTTL(ttl time.Duration) string {
	if ttl >= 24*time.Hour && ttl%(24*time.Hour) == 0 {
		days := int(ttl / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		hours := int(ttl / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return ttl.String()
}
