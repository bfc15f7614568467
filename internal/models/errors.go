package models

import (
	"errors"
)

var (
	ErrNoRecord             = errors.New("models: no matching record found")
	ErrUserNotFound         = errors.New("models: user not found")
	ErrOrganizationNotFound = errors.New("models: organization not found")
	ErrMemberNotFound       = errors.New("models: organization member not found")
	ErrInvitationNotFound   = errors.New("models: invitation not found")
	ErrInvitationExpired    = errors.New("models: invitation expired")
	ErrJobNotFound          = errors.New("models: scraper job not found")
	ErrCustomerNotFound     = errors.New("models: no billing customer found")
	ErrSubscriptionNotFound = errors.New("models: no active subscription found")
	ErrNotOwner             = errors.New("models: caller does not own this resource")
	ErrNotOrgAdmin          = errors.New("models: caller is not an organization admin or owner")
	ErrNotOrgMember         = errors.New("models: caller is not a member of this organization")
	ErrSamePlan             = errors.New("models: cannot change to the same plan")
	ErrInvalidPlan          = errors.New("models: invalid plan")
	ErrNotEnterprise        = errors.New("models: organization does not have an enterprise subscription")
	ErrMissingUserMetadata  = errors.New("models: subscription metadata has no user id")
	ErrInvalidAction        = errors.New("models: invalid action")
	ErrAlreadyMember        = errors.New("models: user is already a member of this organization")
	ErrInvalidWorker        = errors.New("models: unknown worker id")
)
