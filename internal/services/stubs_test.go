package services

import (
	"context"
	"io"
	"log"
	"log/slog"
	"time"

	"autoHunterBack/internal/models"
	"autoHunterBack/internal/pay"
	"autoHunterBack/internal/scraper"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardStdLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stubBilling implements Billing with overridable functions. Unset methods
// return zero values so tests only wire what they exercise.
type stubBilling struct {
	createCustomerFn         func(ctx context.Context, email, uid string) (pay.Customer, error)
	findCustomerFn           func(ctx context.Context, email string) (pay.Customer, bool, error)
	createCheckoutFn         func(ctx context.Context, p pay.CheckoutSessionParams) (pay.CheckoutSession, error)
	createPortalFn           func(ctx context.Context, customerID, returnURL string) (pay.PortalSession, error)
	getSubscriptionFn        func(ctx context.Context, id string) (pay.Subscription, error)
	listSubscriptionsFn      func(ctx context.Context, customerID string, limit int) ([]pay.Subscription, error)
	changePlanFn             func(ctx context.Context, subID, itemID, priceID string, metadata map[string]string) (pay.Subscription, error)
	createSubscriptionItemFn func(ctx context.Context, subID, priceID string, quantity int) (pay.SubscriptionItem, error)
	updateSubscriptionItemFn func(ctx context.Context, itemID string, quantity int) (pay.SubscriptionItem, error)
	deleteSubscriptionItemFn func(ctx context.Context, itemID string) error

	calls []string
}

func (b *stubBilling) CreateCustomer(ctx context.Context, email, uid string) (pay.Customer, error) {
	b.calls = append(b.calls, "CreateCustomer")
	if b.createCustomerFn != nil {
		return b.createCustomerFn(ctx, email, uid)
	}
	return pay.Customer{ID: "cus_stub", Email: email}, nil
}

func (b *stubBilling) FindCustomerByEmail(ctx context.Context, email string) (pay.Customer, bool, error) {
	b.calls = append(b.calls, "FindCustomerByEmail")
	if b.findCustomerFn != nil {
		return b.findCustomerFn(ctx, email)
	}
	return pay.Customer{}, false, nil
}

func (b *stubBilling) CreateCheckoutSession(ctx context.Context, p pay.CheckoutSessionParams) (pay.CheckoutSession, error) {
	b.calls = append(b.calls, "CreateCheckoutSession")
	if b.createCheckoutFn != nil {
		return b.createCheckoutFn(ctx, p)
	}
	return pay.CheckoutSession{ID: "cs_stub", URL: "https://checkout.stripe.com/cs_stub"}, nil
}

func (b *stubBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (pay.PortalSession, error) {
	b.calls = append(b.calls, "CreatePortalSession")
	if b.createPortalFn != nil {
		return b.createPortalFn(ctx, customerID, returnURL)
	}
	return pay.PortalSession{ID: "bps_stub", URL: "https://billing.stripe.com/bps_stub"}, nil
}

func (b *stubBilling) GetSubscription(ctx context.Context, id string) (pay.Subscription, error) {
	b.calls = append(b.calls, "GetSubscription")
	if b.getSubscriptionFn != nil {
		return b.getSubscriptionFn(ctx, id)
	}
	return pay.Subscription{ID: id, Status: models.StatusActive}, nil
}

func (b *stubBilling) ListSubscriptions(ctx context.Context, customerID string, limit int) ([]pay.Subscription, error) {
	b.calls = append(b.calls, "ListSubscriptions")
	if b.listSubscriptionsFn != nil {
		return b.listSubscriptionsFn(ctx, customerID, limit)
	}
	return nil, nil
}

func (b *stubBilling) ChangePlan(ctx context.Context, subID, itemID, priceID string, metadata map[string]string) (pay.Subscription, error) {
	b.calls = append(b.calls, "ChangePlan")
	if b.changePlanFn != nil {
		return b.changePlanFn(ctx, subID, itemID, priceID, metadata)
	}
	return pay.Subscription{ID: subID, Status: models.StatusActive}, nil
}

func (b *stubBilling) CreateSubscriptionItem(ctx context.Context, subID, priceID string, quantity int) (pay.SubscriptionItem, error) {
	b.calls = append(b.calls, "CreateSubscriptionItem")
	if b.createSubscriptionItemFn != nil {
		return b.createSubscriptionItemFn(ctx, subID, priceID, quantity)
	}
	return pay.SubscriptionItem{ID: "si_stub", Quantity: int64(quantity)}, nil
}

func (b *stubBilling) UpdateSubscriptionItem(ctx context.Context, itemID string, quantity int) (pay.SubscriptionItem, error) {
	b.calls = append(b.calls, "UpdateSubscriptionItem")
	if b.updateSubscriptionItemFn != nil {
		return b.updateSubscriptionItemFn(ctx, itemID, quantity)
	}
	return pay.SubscriptionItem{ID: itemID, Quantity: int64(quantity)}, nil
}

func (b *stubBilling) DeleteSubscriptionItem(ctx context.Context, itemID string) error {
	b.calls = append(b.calls, "DeleteSubscriptionItem")
	if b.deleteSubscriptionItemFn != nil {
		return b.deleteSubscriptionItemFn(ctx, itemID)
	}
	return nil
}

func (b *stubBilling) called(name string) int {
	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

// stubUserStore holds user profiles in memory and records subscription
// updates.
type stubUserStore struct {
	users   map[string]models.UserProfile
	updates []models.SubscriptionUpdate
	orgSets []string

	updateErr error
}

func newStubUserStore(users ...models.UserProfile) *stubUserStore {
	s := &stubUserStore{users: make(map[string]models.UserProfile)}
	for _, u := range users {
		s.users[u.UID] = u
	}
	return s
}

func (s *stubUserStore) GetUser(ctx context.Context, uid string) (models.UserProfile, error) {
	u, ok := s.users[uid]
	if !ok {
		return models.UserProfile{}, models.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserStore) UpdateSubscription(ctx context.Context, uid string, upd models.SubscriptionUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.users[uid]; !ok {
		return models.ErrUserNotFound
	}
	s.updates = append(s.updates, upd)
	return nil
}

func (s *stubUserStore) SetOrganization(ctx context.Context, uid, orgID, role string) error {
	u, ok := s.users[uid]
	if !ok {
		return models.ErrUserNotFound
	}
	u.OrganizationID = orgID
	u.OrganizationRole = role
	s.users[uid] = u
	s.orgSets = append(s.orgSets, uid)
	return nil
}

// stubEventStore is an in-memory processed-event set.
type stubEventStore struct {
	seen    map[string]bool
	seenErr error
}

func newStubEventStore() *stubEventStore {
	return &stubEventStore{seen: make(map[string]bool)}
}

func (s *stubEventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	if s.seenErr != nil {
		return false, s.seenErr
	}
	return s.seen[eventID], nil
}

func (s *stubEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	s.seen[eventID] = true
	return nil
}

// stubNotifier records enqueued notifications synchronously.
type stubNotifier struct {
	msgs []Notification
}

func (s *stubNotifier) Enqueue(msg Notification) bool {
	s.msgs = append(s.msgs, msg)
	return true
}

// stubOrgCreator records created organizations, keyed by subscription the
// same way the Firestore repository is, so a repeated call for the same
// subscription returns the existing id instead of creating another one.
type stubOrgCreator struct {
	created []models.Organization
	bySub   map[string]string
	err     error
}

func (s *stubOrgCreator) CreateWithOwner(ctx context.Context, org models.Organization) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.bySub == nil {
		s.bySub = make(map[string]string)
	}
	if id, ok := s.bySub[org.StripeSubscriptionID]; ok {
		return id, nil
	}
	id := "org_" + org.StripeSubscriptionID
	s.bySub[org.StripeSubscriptionID] = id
	s.created = append(s.created, org)
	return id, nil
}

// stubOrgStore is an in-memory organization with a mutable member set.
type stubOrgStore struct {
	org        models.Organization
	members    map[string]models.OrganizationMember
	logoURL    string
	seatWrites int
}

func newStubOrgStore(org models.Organization) *stubOrgStore {
	return &stubOrgStore{org: org, members: make(map[string]models.OrganizationMember)}
}

func (s *stubOrgStore) addMember(uid, role string) {
	s.members[uid] = models.OrganizationMember{
		ID:             "mem_" + uid,
		OrganizationID: s.org.ID,
		UserID:         uid,
		Role:           role,
	}
}

func (s *stubOrgStore) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	if id != s.org.ID {
		return models.Organization{}, models.ErrOrganizationNotFound
	}
	return s.org, nil
}

func (s *stubOrgStore) GetMember(ctx context.Context, orgID, uid string) (models.OrganizationMember, error) {
	m, ok := s.members[uid]
	if !ok || orgID != s.org.ID {
		return models.OrganizationMember{}, models.ErrMemberNotFound
	}
	return m, nil
}

func (s *stubOrgStore) CreateMember(ctx context.Context, member models.OrganizationMember) (string, error) {
	member.ID = "mem_" + member.UserID
	s.members[member.UserID] = member
	return member.ID, nil
}

func (s *stubOrgStore) UpdateSeatCounts(ctx context.Context, orgID string) (int, int, error) {
	s.seatWrites++
	current := len(s.members)
	additional := current - models.EnterpriseBaseSeats
	if additional < 0 {
		additional = 0
	}
	s.org.Settings.CurrentUsers = current
	s.org.Settings.AdditionalUsers = additional
	return current, additional, nil
}

func (s *stubOrgStore) SetBrandingLogo(ctx context.Context, orgID, logoURL string) error {
	s.logoURL = logoURL
	return nil
}

// stubInvitationStore holds invitations in memory keyed by token.
type stubInvitationStore struct {
	byToken map[string]models.Invitation
	status  map[string]string
}

func newStubInvitationStore(invs ...models.Invitation) *stubInvitationStore {
	s := &stubInvitationStore{byToken: make(map[string]models.Invitation), status: make(map[string]string)}
	for _, inv := range invs {
		s.byToken[inv.Token] = inv
	}
	return s
}

func (s *stubInvitationStore) Create(ctx context.Context, inv models.Invitation) (string, error) {
	inv.ID = "inv_" + inv.Token
	s.byToken[inv.Token] = inv
	return inv.ID, nil
}

func (s *stubInvitationStore) GetPendingByToken(ctx context.Context, token string) (models.Invitation, error) {
	inv, ok := s.byToken[token]
	if !ok || s.status[inv.ID] != "" {
		return models.Invitation{}, models.ErrInvitationNotFound
	}
	if inv.ID == "" {
		inv.ID = "inv_" + token
	}
	return inv, nil
}

func (s *stubInvitationStore) SetStatus(ctx context.Context, id, status string) error {
	s.status[id] = status
	return nil
}

// stubJobStore scripts claim outcomes per city and records reports.
type stubJobStore struct {
	claimable  map[string]bool // city -> claimed result
	newJobs    map[string]bool
	claims     []string
	reports    []models.StatusReport
	logEntries []models.ScraperLogEntry
	jobs       []models.ScraperJob
}

func (s *stubJobStore) TryClaim(ctx context.Context, workerID string, target scraper.Target, cooldown time.Duration, now time.Time) (bool, bool, error) {
	s.claims = append(s.claims, target.City)
	return s.claimable[target.City], s.newJobs[target.City], nil
}

func (s *stubJobStore) GetJob(ctx context.Context, jobID string) (models.ScraperJob, error) {
	for _, j := range s.jobs {
		if j.ID == jobID {
			return j, nil
		}
	}
	return models.ScraperJob{}, models.ErrJobNotFound
}

func (s *stubJobStore) ApplyReport(ctx context.Context, report models.StatusReport, now time.Time) error {
	s.reports = append(s.reports, report)
	return nil
}

func (s *stubJobStore) AddLog(ctx context.Context, entry models.ScraperLogEntry) error {
	s.logEntries = append(s.logEntries, entry)
	return nil
}

func (s *stubJobStore) ListJobs(ctx context.Context) ([]models.ScraperJob, error) {
	return s.jobs, nil
}

func (s *stubJobStore) RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.ScraperLogEntry, error) {
	return s.logEntries, nil
}
