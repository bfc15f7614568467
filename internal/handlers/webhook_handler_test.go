package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
	"autoHunterBack/internal/services"
)

const testWebhookSecret = "whsec_handler_test"

type memUserStore struct {
	users   map[string]models.UserProfile
	updates int
}

func (s *memUserStore) GetUser(ctx context.Context, uid string) (models.UserProfile, error) {
	u, ok := s.users[uid]
	if !ok {
		return models.UserProfile{}, models.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) UpdateSubscription(ctx context.Context, uid string, upd models.SubscriptionUpdate) error {
	s.updates++
	return nil
}

func (s *memUserStore) SetOrganization(ctx context.Context, uid, orgID, role string) error {
	return nil
}

type memOrgCreator struct{}

func (memOrgCreator) CreateWithOwner(ctx context.Context, org models.Organization) (string, error) {
	return "org_1", nil
}

type memEventStore struct{ seen map[string]bool }

func (s *memEventStore) Seen(ctx context.Context, id string) (bool, error) { return s.seen[id], nil }
func (s *memEventStore) MarkProcessed(ctx context.Context, id string) error {
	s.seen[id] = true
	return nil
}

type memNotifier struct{ n int }

func (s *memNotifier) Enqueue(msg services.Notification) bool {
	s.n++
	return true
}

type nullBilling struct{}

func (nullBilling) CreateCustomer(ctx context.Context, email, uid string) (pay.Customer, error) {
	return pay.Customer{}, nil
}
func (nullBilling) FindCustomerByEmail(ctx context.Context, email string) (pay.Customer, bool, error) {
	return pay.Customer{}, false, nil
}
func (nullBilling) CreateCheckoutSession(ctx context.Context, p pay.CheckoutSessionParams) (pay.CheckoutSession, error) {
	return pay.CheckoutSession{}, nil
}
func (nullBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (pay.PortalSession, error) {
	return pay.PortalSession{}, nil
}
func (nullBilling) GetSubscription(ctx context.Context, id string) (pay.Subscription, error) {
	return pay.Subscription{ID: id, Status: models.StatusActive}, nil
}
func (nullBilling) ListSubscriptions(ctx context.Context, customerID string, limit int) ([]pay.Subscription, error) {
	return nil, nil
}
func (nullBilling) ChangePlan(ctx context.Context, subID, itemID, priceID string, metadata map[string]string) (pay.Subscription, error) {
	return pay.Subscription{}, nil
}
func (nullBilling) CreateSubscriptionItem(ctx context.Context, subID, priceID string, quantity int) (pay.SubscriptionItem, error) {
	return pay.SubscriptionItem{}, nil
}
func (nullBilling) UpdateSubscriptionItem(ctx context.Context, itemID string, quantity int) (pay.SubscriptionItem, error) {
	return pay.SubscriptionItem{}, nil
}
func (nullBilling) DeleteSubscriptionItem(ctx context.Context, itemID string) error { return nil }

func newWebhookHandler(users *memUserStore, events *memEventStore) *WebhookHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &WebhookHandler{
		Service: &services.WebhookService{
			Users:    users,
			Orgs:     memOrgCreator{},
			Events:   events,
			Billing:  nullBilling{},
			Notifier: &memNotifier{},
			Logger:   logger,
		},
		WebhookSecret: testWebhookSecret,
		Logger:        logger,
	}
}

func signedRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", pay.SignPayload(body, time.Now().Unix(), testWebhookSecret))
	return req
}

func eventBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   id,
		"type": pay.EventSubscriptionCreated,
		"data": map[string]any{"object": map[string]any{
			"id":       "sub_1",
			"status":   "trialing",
			"customer": "cus_1",
			"metadata": map[string]string{"firebaseUID": "user-1", "plan": "lite"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestHandleStripeWebhookAccepted(t *testing.T) {
	users := &memUserStore{users: map[string]models.UserProfile{
		"user-1": {UID: "user-1", Email: "a@b.com"},
	}}
	events := &memEventStore{seen: map[string]bool{}}
	handler := newWebhookHandler(users, events)

	rec := httptest.NewRecorder()
	handler.HandleStripeWebhook(rec, signedRequest(t, eventBody(t, "evt_ok")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp["received"] {
		t.Errorf("body = %s", rec.Body.String())
	}
	if users.updates != 1 {
		t.Errorf("want one subscription write, got %d", users.updates)
	}
	if !events.seen["evt_ok"] {
		t.Errorf("event not marked processed")
	}
}

func TestHandleStripeWebhookBadSignature(t *testing.T) {
	users := &memUserStore{users: map[string]models.UserProfile{}}
	handler := newWebhookHandler(users, &memEventStore{seen: map[string]bool{}})

	body := eventBody(t, "evt_bad")
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", pay.SignPayload(body, time.Now().Unix(), "whsec_wrong"))

	rec := httptest.NewRecorder()
	handler.HandleStripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if users.updates != 0 {
		t.Errorf("rejected webhook must not write")
	}
}

func TestHandleStripeWebhookMissingSignature(t *testing.T) {
	handler := newWebhookHandler(&memUserStore{}, &memEventStore{seen: map[string]bool{}})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(eventBody(t, "evt_ns")))
	rec := httptest.NewRecorder()
	handler.HandleStripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStripeWebhookDuplicateStillAcked(t *testing.T) {
	users := &memUserStore{users: map[string]models.UserProfile{
		"user-1": {UID: "user-1", Email: "a@b.com"},
	}}
	events := &memEventStore{seen: map[string]bool{"evt_dup": true}}
	handler := newWebhookHandler(users, events)

	rec := httptest.NewRecorder()
	handler.HandleStripeWebhook(rec, signedRequest(t, eventBody(t, "evt_dup")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if users.updates != 0 {
		t.Errorf("duplicate must not write")
	}
}

func TestHandleStripeWebhookMissingMetadata(t *testing.T) {
	handler := newWebhookHandler(&memUserStore{}, &memEventStore{seen: map[string]bool{}})

	body, _ := json.Marshal(map[string]any{
		"id":   "evt_nometa",
		"type": pay.EventSubscriptionCreated,
		"data": map[string]any{"object": map[string]any{
			"id":     "sub_1",
			"status": "active",
		}},
	})
	rec := httptest.NewRecorder()
	handler.HandleStripeWebhook(rec, signedRequest(t, body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
