package pay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// StripeConfig carries the credentials and endpoints for the billing provider.
type StripeConfig struct {
	SecretKey string

	// API base, defaults to the production endpoint.
	BaseURL string

	Client *http.Client
	Logger *slog.Logger
}

// Stripe is a minimal billing-provider client covering the subscription
// lifecycle: customers, checkout/portal sessions, subscriptions and
// subscription items. All requests are form-encoded per the provider's API.
type Stripe struct {
	secretKey string
	baseURL   *url.URL

	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is a non-2xx reply from the billing provider.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s %s", e.Status, trim(e.Body, 300))
}

func NewStripe(cfg StripeConfig) (*Stripe, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe: secret key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Stripe{
		secretKey:  cfg.SecretKey,
		baseURL:    u,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Customer is the provider's customer object, reduced to what we read.
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

// Price identifies a recurring price on a subscription item.
type Price struct {
	ID string `json:"id"`
}

// SubscriptionItem is a single line item on a subscription.
type SubscriptionItem struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
	Price    Price  `json:"price"`
}

// Subscription is the provider's subscription object, reduced to the fields
// the webhook ingestor and the reconcilers read. Period and trial timestamps
// are unix seconds and may be absent.
type Subscription struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Customer           string            `json:"customer"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart *int64            `json:"current_period_start"`
	CurrentPeriodEnd   *int64            `json:"current_period_end"`
	TrialEnd           *int64            `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// ItemForPrice returns the line item carrying priceID, or nil.
func (s *Subscription) ItemForPrice(priceID string) *SubscriptionItem {
	for i := range s.Items.Data {
		if s.Items.Data[i].Price.ID == priceID {
			return &s.Items.Data[i]
		}
	}
	return nil
}

// CheckoutSession is returned by the checkout-session endpoint.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PortalSession is returned by the billing-portal endpoint.
type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// CreateCustomer creates a provider customer for a user's email, stamping the
// identity uid into metadata so webhooks can map back.
func (s *Stripe) CreateCustomer(ctx context.Context, email, uid string) (Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[firebaseUID]", uid)

	var out Customer
	if err := s.post(ctx, "/v1/customers", form, &out); err != nil {
		return Customer{}, err
	}
	return out, nil
}

// FindCustomerByEmail returns the newest customer for email, or
// ErrNotFound-style nil result via ok=false.
func (s *Stripe) FindCustomerByEmail(ctx context.Context, email string) (Customer, bool, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("limit", "1")

	var out listResponse[Customer]
	if err := s.get(ctx, "/v1/customers", q, &out); err != nil {
		return Customer{}, false, err
	}
	if len(out.Data) == 0 {
		return Customer{}, false, nil
	}
	return out.Data[0], true, nil
}

// CheckoutSessionParams describes a subscription checkout.
type CheckoutSessionParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	TrialDays  int
	Metadata   map[string]string

	// Enterprise checkouts collect a billing address and an organization
	// name custom field.
	CollectBillingAddress bool
	OrganizationNameField bool
}

// CreateCheckoutSession builds a provider-hosted subscription checkout.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", p.CustomerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("allow_promotion_codes", "true")
	if p.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(p.TrialDays))
	}
	for k, v := range p.Metadata {
		form.Set("subscription_data[metadata]["+k+"]", v)
	}
	if p.CollectBillingAddress {
		form.Set("billing_address_collection", "required")
	}
	if p.OrganizationNameField {
		form.Set("custom_fields[0][key]", "organization_name")
		form.Set("custom_fields[0][label][type]", "custom")
		form.Set("custom_fields[0][label][custom]", "Organization Name")
		form.Set("custom_fields[0][type]", "text")
		form.Set("custom_fields[0][text][minimum_length]", "1")
		form.Set("custom_fields[0][text][maximum_length]", "100")
	}

	var out CheckoutSession
	if err := s.post(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return CheckoutSession{}, err
	}
	return out, nil
}

// CreatePortalSession opens a self-service billing portal for a customer.
func (s *Stripe) CreatePortalSession(ctx context.Context, customerID, returnURL string) (PortalSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var out PortalSession
	if err := s.post(ctx, "/v1/billing_portal/sessions", form, &out); err != nil {
		return PortalSession{}, err
	}
	return out, nil
}

// GetSubscription retrieves a subscription by id.
func (s *Stripe) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	var out Subscription
	if err := s.get(ctx, "/v1/subscriptions/"+id, nil, &out); err != nil {
		return Subscription{}, err
	}
	return out, nil
}

// ListSubscriptions returns up to limit subscriptions for a customer, any
// status, newest first.
func (s *Stripe) ListSubscriptions(ctx context.Context, customerID string, limit int) ([]Subscription, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("status", "all")
	q.Set("limit", strconv.Itoa(limit))

	var out listResponse[Subscription]
	if err := s.get(ctx, "/v1/subscriptions", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ChangePlan swaps the subscription's line item to a new price with immediate
// invoicing and stamps the plan-change metadata the webhook ingestor relies on.
func (s *Stripe) ChangePlan(ctx context.Context, subID, itemID, newPriceID string, metadata map[string]string) (Subscription, error) {
	form := url.Values{}
	form.Set("items[0][id]", itemID)
	form.Set("items[0][price]", newPriceID)
	form.Set("proration_behavior", "always_invoice")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out Subscription
	if err := s.post(ctx, "/v1/subscriptions/"+subID, form, &out); err != nil {
		return Subscription{}, err
	}
	return out, nil
}

// CreateSubscriptionItem adds a quantity-bearing line item (additional seats).
func (s *Stripe) CreateSubscriptionItem(ctx context.Context, subID, priceID string, quantity int) (SubscriptionItem, error) {
	form := url.Values{}
	form.Set("subscription", subID)
	form.Set("price", priceID)
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("proration_behavior", "create_prorations")

	var out SubscriptionItem
	if err := s.post(ctx, "/v1/subscription_items", form, &out); err != nil {
		return SubscriptionItem{}, err
	}
	return out, nil
}

// UpdateSubscriptionItem changes the quantity of an existing line item.
func (s *Stripe) UpdateSubscriptionItem(ctx context.Context, itemID string, quantity int) (SubscriptionItem, error) {
	form := url.Values{}
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("proration_behavior", "create_prorations")

	var out SubscriptionItem
	if err := s.post(ctx, "/v1/subscription_items/"+itemID, form, &out); err != nil {
		return SubscriptionItem{}, err
	}
	return out, nil
}

// DeleteSubscriptionItem removes a line item entirely.
func (s *Stripe) DeleteSubscriptionItem(ctx context.Context, itemID string) error {
	form := url.Values{}
	form.Set("proration_behavior", "create_prorations")

	req, err := s.newRequest(ctx, http.MethodDelete, "/v1/subscription_items/"+itemID, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, nil)
}

func (s *Stripe) post(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := s.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, out)
}

func (s *Stripe) get(ctx context.Context, endpoint string, q url.Values, out interface{}) error {
	req, err := s.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}
	return s.do(req, out)
}

func (s *Stripe) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	u := *s.baseURL
	u.Path = path.Join(u.Path, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	return req, nil
}

func (s *Stripe) do(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	s.logger.Debug("stripe raw", "method", req.Method, "path", req.URL.Path,
		"status", resp.Status, "body", trim(string(b), 2000))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
