package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
)

func makeEvent(t *testing.T, id, eventType string, object any) pay.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatal(err)
	}
	event := pay.Event{ID: id, Type: eventType}
	event.Data.Object = raw
	return event
}

func subscriptionObject(uid, plan, status string, extra map[string]any) map[string]any {
	metadata := map[string]any{}
	if uid != "" {
		metadata["firebaseUID"] = uid
	}
	if plan != "" {
		metadata["plan"] = plan
	}
	obj := map[string]any{
		"id":                   "sub_1",
		"status":               status,
		"customer":             "cus_1",
		"cancel_at_period_end": false,
		"current_period_end":   time.Now().Add(30 * 24 * time.Hour).Unix(),
		"metadata":             metadata,
	}
	for k, v := range extra {
		if k == "metadata" {
			for mk, mv := range v.(map[string]any) {
				metadata[mk] = mv
			}
			continue
		}
		obj[k] = v
	}
	return obj
}

func newWebhookService(users *stubUserStore, orgs *stubOrgCreator, events *stubEventStore, billing *stubBilling, notifier *stubNotifier) *WebhookService {
	return &WebhookService{
		Users:    users,
		Orgs:     orgs,
		Events:   events,
		Billing:  billing,
		Notifier: notifier,
		Logger:   discardLogger(),
	}
}

func TestProcessEventSubscriptionCreated(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com", DisplayName: "Ann"})
	orgs := &stubOrgCreator{}
	events := newStubEventStore()
	notifier := &stubNotifier{}
	svc := newWebhookService(users, orgs, events, &stubBilling{}, notifier)

	event := makeEvent(t, "evt_1", pay.EventSubscriptionCreated,
		subscriptionObject("user-1", models.PlanLite, models.StatusTrialing, nil))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if len(users.updates) != 1 {
		t.Fatalf("want 1 subscription update, got %d", len(users.updates))
	}
	upd := users.updates[0]
	if upd.Status != models.StatusTrialing || upd.Plan != models.PlanLite {
		t.Errorf("unexpected update: %+v", upd)
	}
	if upd.StripeCustomerID != "cus_1" || upd.StripeSubscriptionID != "sub_1" {
		t.Errorf("provider ids not written: %+v", upd)
	}
	if len(orgs.created) != 0 {
		t.Errorf("lite signup must not create an organization")
	}
	if len(notifier.msgs) != 1 || notifier.msgs[0].Welcome == nil {
		t.Fatalf("want one welcome notification, got %+v", notifier.msgs)
	}
	if notifier.msgs[0].Welcome.Email != "a@b.com" {
		t.Errorf("welcome email addressed to %q", notifier.msgs[0].Welcome.Email)
	}
	if !events.seen["evt_1"] {
		t.Errorf("event not marked processed")
	}
}

func TestProcessEventDuplicateSkipped(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com"})
	events := newStubEventStore()
	events.seen["evt_1"] = true
	svc := newWebhookService(users, &stubOrgCreator{}, events, &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_1", pay.EventSubscriptionCreated,
		subscriptionObject("user-1", models.PlanLite, models.StatusActive, nil))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if len(users.updates) != 0 {
		t.Errorf("duplicate event must not write, got %d updates", len(users.updates))
	}
}

func TestProcessEventEnterpriseCreatesOrganization(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "owner-1", Email: "o@b.com"})
	orgs := &stubOrgCreator{}
	svc := newWebhookService(users, orgs, newStubEventStore(), &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_ent", pay.EventSubscriptionCreated,
		subscriptionObject("owner-1", models.PlanEnterprise, models.StatusTrialing, map[string]any{
			"metadata": map[string]any{"organizationName": "Acme Motors"},
		}))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if len(orgs.created) != 1 {
		t.Fatalf("want 1 organization, got %d", len(orgs.created))
	}
	org := orgs.created[0]
	if org.Name != "Acme Motors" || org.OwnerID != "owner-1" {
		t.Errorf("unexpected organization: %+v", org)
	}
	if org.Settings.MaxUsers != models.EnterpriseBaseSeats {
		t.Errorf("maxUsers = %d, want %d", org.Settings.MaxUsers, models.EnterpriseBaseSeats)
	}
	upd := users.updates[0]
	if upd.OrganizationID != "org_sub_1" || upd.OrganizationRole != models.RoleOwner {
		t.Errorf("owner not stamped on user: %+v", upd)
	}
}

func TestProcessEventEnterpriseRedeliveryReusesOrganization(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "owner-1", Email: "o@b.com"})
	orgs := &stubOrgCreator{}
	events := newStubEventStore()
	svc := newWebhookService(users, orgs, events, &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_ent_retry", pay.EventSubscriptionCreated,
		subscriptionObject("owner-1", models.PlanEnterprise, models.StatusTrialing, map[string]any{
			"id": "sub_ent",
		}))

	// First delivery commits the organization but fails on the user write,
	// so the event stays unmarked and the provider redelivers it.
	users.updateErr = errors.New("firestore unavailable")
	if err := svc.ProcessEvent(context.Background(), event); err == nil {
		t.Fatal("want error from failed user write")
	}
	if events.seen["evt_ent_retry"] {
		t.Fatal("failed event must not be marked processed")
	}

	users.updateErr = nil
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	if len(orgs.created) != 1 {
		t.Fatalf("organizations created for subscription sub_ent = %d, want 1", len(orgs.created))
	}
	if upd := users.updates[0]; upd.OrganizationID != "org_sub_ent" {
		t.Errorf("owner stamped with %q, want org_sub_ent", upd.OrganizationID)
	}
	if !events.seen["evt_ent_retry"] {
		t.Error("redelivered event not marked processed")
	}
}

func TestProcessEventMissingUserMetadata(t *testing.T) {
	users := newStubUserStore()
	events := newStubEventStore()
	svc := newWebhookService(users, &stubOrgCreator{}, events, &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_bad", pay.EventSubscriptionCreated,
		subscriptionObject("", models.PlanLite, models.StatusActive, nil))

	err := svc.ProcessEvent(context.Background(), event)
	if !errors.Is(err, models.ErrMissingUserMetadata) {
		t.Fatalf("want ErrMissingUserMetadata, got %v", err)
	}
	if events.seen["evt_bad"] {
		t.Errorf("failed event must not be marked processed")
	}
}

func TestProcessEventPlanChangeNotification(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com"})
	notifier := &stubNotifier{}
	svc := newWebhookService(users, &stubOrgCreator{}, newStubEventStore(), &stubBilling{}, notifier)

	event := makeEvent(t, "evt_up", pay.EventSubscriptionUpdated,
		subscriptionObject("user-1", models.PlanDealer, models.StatusActive, map[string]any{
			"metadata": map[string]any{"previousPlan": models.PlanLite},
		}))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if len(notifier.msgs) != 1 || notifier.msgs[0].PlanChange == nil {
		t.Fatalf("want one plan change notification, got %+v", notifier.msgs)
	}
	pc := notifier.msgs[0].PlanChange
	if pc.OldPlan != models.PlanLite || pc.NewPlan != models.PlanDealer || !pc.IsUpgrade {
		t.Errorf("unexpected plan change data: %+v", pc)
	}
}

func TestProcessEventUpdateSamePlanNoNotification(t *testing.T) {
	users := newStubUserStore(models.UserProfile{
		UID:          "user-1",
		Email:        "a@b.com",
		Subscription: &models.Subscription{Plan: models.PlanDealer},
	})
	notifier := &stubNotifier{}
	svc := newWebhookService(users, &stubOrgCreator{}, newStubEventStore(), &stubBilling{}, notifier)

	event := makeEvent(t, "evt_same", pay.EventSubscriptionUpdated,
		subscriptionObject("user-1", models.PlanDealer, models.StatusActive, nil))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if len(notifier.msgs) != 0 {
		t.Errorf("unchanged plan must not notify, got %+v", notifier.msgs)
	}
}

func TestProcessEventSubscriptionDeleted(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com"})
	svc := newWebhookService(users, &stubOrgCreator{}, newStubEventStore(), &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_del", pay.EventSubscriptionDeleted,
		subscriptionObject("user-1", models.PlanDealer, models.StatusCanceled, nil))

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if len(users.updates) != 1 || users.updates[0].Status != models.StatusCanceled {
		t.Fatalf("want canceled status written, got %+v", users.updates)
	}
}

func TestProcessEventPaymentFailed(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com"})
	billing := &stubBilling{
		getSubscriptionFn: func(ctx context.Context, id string) (pay.Subscription, error) {
			return pay.Subscription{
				ID:       id,
				Status:   models.StatusPastDue,
				Metadata: map[string]string{"firebaseUID": "user-1"},
			}, nil
		},
	}
	svc := newWebhookService(users, &stubOrgCreator{}, newStubEventStore(), billing, &stubNotifier{})

	event := makeEvent(t, "evt_pf", pay.EventPaymentFailed, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
	})

	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if len(users.updates) != 1 || users.updates[0].Status != models.StatusPastDue {
		t.Fatalf("want past_due written, got %+v", users.updates)
	}
}

func TestProcessEventUnhandledTypeAcknowledged(t *testing.T) {
	users := newStubUserStore()
	svc := newWebhookService(users, &stubOrgCreator{}, newStubEventStore(), &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_other", "customer.created", map[string]any{"id": "cus_1"})
	if err := svc.ProcessEvent(context.Background(), event); err != nil {
		t.Fatalf("unhandled type must ack, got %v", err)
	}
}

func TestProcessEventWriteFailureLeavesEventUnmarked(t *testing.T) {
	users := newStubUserStore(models.UserProfile{UID: "user-1", Email: "a@b.com"})
	users.updateErr = errors.New("firestore unavailable")
	events := newStubEventStore()
	svc := newWebhookService(users, &stubOrgCreator{}, events, &stubBilling{}, &stubNotifier{})

	event := makeEvent(t, "evt_w", pay.EventSubscriptionCreated,
		subscriptionObject("user-1", models.PlanLite, models.StatusActive, nil))

	if err := svc.ProcessEvent(context.Background(), event); err == nil {
		t.Fatal("want error when the write fails")
	}
	if events.seen["evt_w"] {
		t.Errorf("failed event must stay unmarked so redelivery retries it")
	}
}

func TestProcessEventMalformedObject(t *testing.T) {
	svc := newWebhookService(newStubUserStore(), &stubOrgCreator{}, newStubEventStore(), &stubBilling{}, &stubNotifier{})

	event := pay.Event{ID: "evt_m", Type: pay.EventSubscriptionCreated}
	event.Data.Object = json.RawMessage(`{"unexpected": true}`)

	err := svc.ProcessEvent(context.Background(), event)
	if !errors.Is(err, ErrBadEventPayload) {
		t.Fatalf("want ErrBadEventPayload, got %v", err)
	}
}
