package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrEmailNotConfigured is returned when no provider API key is set. Callers
// treat it like any other send failure: logged, never fatal.
var ErrEmailNotConfigured = errors.New("email: service not configured")

type EmailConfig struct {
	// Resend API key. Empty disables sending; every send returns
	// ErrEmailNotConfigured instead.
	APIKey string

	// Sender identity, e.g. `AutoHunterPro <noreply@notifications.autohunterpro.com>`.
	From string

	// Public app URL used in links inside the emails.
	AppURL string

	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// EmailService sends transactional email through the Resend HTTP API.
type EmailService struct {
	apiKey  string
	from    string
	appURL  string
	baseURL *url.URL

	httpClient *http.Client
	logger     *slog.Logger
}

// EmailError is a non-2xx reply from the email provider.
type EmailError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *EmailError) Error() string {
	return fmt.Sprintf("resend: %s %s", e.Status, trimBody(e.Body, 300))
}

func NewEmailService(cfg EmailConfig) (*EmailService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.From == "" {
		cfg.From = "AutoHunterPro <noreply@notifications.autohunterpro.com>"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &EmailService{
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		appURL:     strings.TrimRight(cfg.AppURL, "/"),
		baseURL:    u,
		httpClient: client,
		logger:     logger,
	}, nil
}

type WelcomeEmailData struct {
	Email            string
	Name             string
	Plan             string
	OrganizationName string
	IsTrialing       bool
	TrialEndsAt      *time.Time
}

type PlanChangeEmailData struct {
	Email            string
	Name             string
	OldPlan          string
	NewPlan          string
	OrganizationName string
	IsUpgrade        bool
	EffectiveDate    *time.Time
}

type InvitationEmailData struct {
	Email            string
	OrganizationName string
	Role             string
	InviteToken      string
	InviterName      string
}

// SendWelcomeEmail greets a new subscriber. Returns the provider message id.
func (s *EmailService) SendWelcomeEmail(ctx context.Context, data WelcomeEmailData) (string, error) {
	subject := fmt.Sprintf("Welcome to AutoHunterPro %s!", titlePlan(data.Plan))
	if data.OrganizationName != "" {
		subject = fmt.Sprintf("Welcome to AutoHunterPro Enterprise! %s is ready", data.OrganizationName)
	}

	greeting := "Hi"
	if data.Name != "" {
		greeting = "Hi " + data.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\nYour AutoHunterPro %s subscription is active.\n", greeting, titlePlan(data.Plan))
	if data.OrganizationName != "" {
		fmt.Fprintf(&b, "Your organization %q is set up with 3 included seats.\n", data.OrganizationName)
	}
	if data.IsTrialing && data.TrialEndsAt != nil {
		fmt.Fprintf(&b, "Your free trial runs until %s.\n", data.TrialEndsAt.Format("January 2, 2006"))
	}
	fmt.Fprintf(&b, "\nStart hunting: %s/dashboard\n", s.appURL)

	return s.send(ctx, data.Email, subject, b.String())
}

// SendPlanChangeEmail confirms a plan change. Only dispatched when the plan
// actually changed.
func (s *EmailService) SendPlanChangeEmail(ctx context.Context, data PlanChangeEmailData) (string, error) {
	verb := "changed"
	if data.IsUpgrade {
		verb = "upgraded"
	}
	subject := fmt.Sprintf("Your AutoHunterPro plan was %s to %s", verb, titlePlan(data.NewPlan))

	greeting := "Hi"
	if data.Name != "" {
		greeting = "Hi " + data.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\nYour subscription moved from %s to %s.\n",
		greeting, titlePlan(data.OldPlan), titlePlan(data.NewPlan))
	if data.EffectiveDate != nil {
		fmt.Fprintf(&b, "The change is effective as of %s.\n", data.EffectiveDate.Format("January 2, 2006"))
	}
	fmt.Fprintf(&b, "\nManage your plan: %s/dashboard\n", s.appURL)

	return s.send(ctx, data.Email, subject, b.String())
}

// SendInvitationEmail delivers an organization invite link.
func (s *EmailService) SendInvitationEmail(ctx context.Context, data InvitationEmailData) (string, error) {
	subject := fmt.Sprintf("You're invited to join %s on AutoHunterPro", data.OrganizationName)
	inviteURL := fmt.Sprintf("%s/invite/%s", s.appURL, data.InviteToken)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi,\n\n")
	if data.InviterName != "" {
		fmt.Fprintf(&b, "%s invited you to join %s on AutoHunterPro as a %s.\n",
			data.InviterName, data.OrganizationName, data.Role)
	} else {
		fmt.Fprintf(&b, "You've been invited to join %s on AutoHunterPro as a %s.\n",
			data.OrganizationName, data.Role)
	}
	fmt.Fprintf(&b, "\nAccept the invitation: %s\n\nThe link expires in 7 days.\n", inviteURL)

	return s.send(ctx, data.Email, subject, b.String())
}

func (s *EmailService) send(ctx context.Context, to, subject, text string) (string, error) {
	if s.apiKey == "" {
		s.logger.Warn("email not configured, dropping message", "to", to, "subject", subject)
		return "", ErrEmailNotConfigured
	}

	payload := map[string]any{
		"from":    s.from,
		"to":      []string{to},
		"subject": subject,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/emails")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &EmailError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}

	s.logger.Info("email sent", "to", to, "subject", subject, "messageId", out.ID)
	return out.ID, nil
}

func titlePlan(plan string) string {
	if plan == "" {
		return ""
	}
	return strings.ToUpper(plan[:1]) + plan[1:]
}

func trimBody(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
