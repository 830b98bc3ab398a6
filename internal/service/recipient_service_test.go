package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/domain"
)

func newTestRecipientService(departments *fakeDepartmentRepo, users *fakeUserRepo) *RecipientService {
	if departments == nil {
		departments = &fakeDepartmentRepo{departments: map[string]*domain.Department{}}
	}
	if users == nil {
		users = &fakeUserRepo{users: map[string]string{}}
	}
	return NewRecipientService(departments, users, zap.NewNop())
}

func TestCollectUnionsAllSources(t *testing.T) {
	departments := &fakeDepartmentRepo{departments: map[string]*domain.Department{
		"it": {ID: "it", Name: "IT", NotificationPool: domain.RecipientPool{"a@x.com", "bad"}},
	}}
	users := &fakeUserRepo{users: map[string]string{"userid123": "d@x.com"}}
	svc := newTestRecipientService(departments, users)

	got := svc.Collect(context.Background(), "it", "B@x.com", nil, domain.AssigneeList{
		{Email: "c@x.com"},
		{UserID: "userid123"},
	})

	assert.ElementsMatch(t, []string{"a@x.com", "B@x.com", "c@x.com", "d@x.com"}, got)
}

func TestCollectDeduplicates(t *testing.T) {
	departments := &fakeDepartmentRepo{departments: map[string]*domain.Department{
		"it": {ID: "it", NotificationPool: domain.RecipientPool{"a@x.com"}},
	}}
	svc := newTestRecipientService(departments, nil)

	got := svc.Collect(context.Background(), "it", "a@x.com", []string{"a@x.com"}, domain.AssigneeList{{Email: "a@x.com"}})

	assert.Equal(t, []string{"a@x.com"}, got)
}

func TestCollectAddressesComparedAsGiven(t *testing.T) {
	svc := newTestRecipientService(nil, nil)

	got := svc.Collect(context.Background(), "", "A@x.com", []string{"a@x.com"}, nil)

	// case-insensitive identity is not assumed
	assert.Equal(t, []string{"A@x.com", "a@x.com"}, got)
}

func TestCollectDegradesOnLookupFailures(t *testing.T) {
	svc := newTestRecipientService(nil, nil)

	got := svc.Collect(context.Background(), "missing-dept", "owner@x.com", nil, domain.AssigneeList{
		{UserID: "unknown-user"},
	})

	// pool and assignee lookups failed; the result is partial, not an error
	assert.Equal(t, []string{"owner@x.com"}, got)
}

func TestCollectEmptyWhenNothingValid(t *testing.T) {
	svc := newTestRecipientService(nil, nil)

	got := svc.Collect(context.Background(), "", "not-an-address", []string{"also-bad"}, nil)

	assert.Empty(t, got)
}
