package pay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewStripe(StripeConfig{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
		Client:    srv.Client(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestCreateCheckoutSessionForm(t *testing.T) {
	var gotForm url.Values
	var gotAuth string
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Write([]byte(`{"id": "cs_1", "url": "https://checkout.stripe.com/cs_1"}`))
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		CustomerID:            "cus_1",
		PriceID:               "price_ent",
		SuccessURL:            "https://app/success",
		CancelURL:             "https://app/cancel",
		TrialDays:             14,
		Metadata:              map[string]string{"firebaseUID": "user-1", "plan": "enterprise"},
		CollectBillingAddress: true,
		OrganizationNameField: true,
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_1" {
		t.Errorf("session id = %q", session.ID)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Errorf("authorization = %q", gotAuth)
	}
	checks := []struct{ key, want string }{
		{"customer", "cus_1"},
		{"mode", "subscription"},
		{"line_items[0][price]", "price_ent"},
		{"subscription_data[trial_period_days]", "14"},
		{"subscription_data[metadata][firebaseUID]", "user-1"},
		{"billing_address_collection", "required"},
		{"custom_fields[0][key]", "organization_name"},
	}
	for _, c := range checks {
		if got := gotForm.Get(c.key); got != c.want {
			t.Errorf("form[%q] = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestFindCustomerByEmail(t *testing.T) {
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/customers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("email") != "a@b.com" {
			t.Errorf("email query = %q", r.URL.Query().Get("email"))
		}
		w.Write([]byte(`{"data": [{"id": "cus_7", "email": "a@b.com"}]}`))
	})

	customer, ok, err := client.FindCustomerByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail: %v", err)
	}
	if !ok || customer.ID != "cus_7" {
		t.Errorf("got ok=%v customer=%+v", ok, customer)
	}
}

func TestFindCustomerByEmailNoMatch(t *testing.T) {
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})

	_, ok, err := client.FindCustomerByEmail(context.Background(), "nobody@b.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail: %v", err)
	}
	if ok {
		t.Error("want ok=false for an empty list")
	}
}

func TestChangePlanForm(t *testing.T) {
	var gotForm url.Values
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/sub_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Write([]byte(`{"id": "sub_1", "status": "active", "customer": "cus_1"}`))
	})

	_, err := client.ChangePlan(context.Background(), "sub_1", "si_1", "price_dealer", map[string]string{"previousPlan": "lite"})
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	if gotForm.Get("items[0][id]") != "si_1" || gotForm.Get("items[0][price]") != "price_dealer" {
		t.Errorf("item swap form: %v", gotForm)
	}
	if gotForm.Get("proration_behavior") != "always_invoice" {
		t.Errorf("proration_behavior = %q", gotForm.Get("proration_behavior"))
	}
	if gotForm.Get("metadata[previousPlan]") != "lite" {
		t.Errorf("metadata form: %v", gotForm)
	}
}

func TestSeatItemCallsUseCreateProrations(t *testing.T) {
	forms := map[string]url.Values{}
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		forms[r.Method+" "+r.URL.Path] = form
		w.Write([]byte(`{"id": "si_1", "quantity": 2}`))
	})

	if _, err := client.CreateSubscriptionItem(context.Background(), "sub_1", "price_seat", 2); err != nil {
		t.Fatalf("CreateSubscriptionItem: %v", err)
	}
	if _, err := client.UpdateSubscriptionItem(context.Background(), "si_1", 3); err != nil {
		t.Fatalf("UpdateSubscriptionItem: %v", err)
	}
	if err := client.DeleteSubscriptionItem(context.Background(), "si_1"); err != nil {
		t.Fatalf("DeleteSubscriptionItem: %v", err)
	}

	for key, form := range forms {
		if form.Get("proration_behavior") != "create_prorations" {
			t.Errorf("%s: proration_behavior = %q", key, form.Get("proration_behavior"))
		}
	}
	if forms["POST /v1/subscription_items"].Get("quantity") != "2" {
		t.Errorf("create quantity: %v", forms["POST /v1/subscription_items"])
	}
}

func TestAPIErrorSurfacesStatusAndBody(t *testing.T) {
	client := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": {"message": "Your card was declined."}}`))
	})

	_, err := client.GetSubscription(context.Background(), "sub_1")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("want *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status code = %d", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("body should carry the provider error")
	}
}
