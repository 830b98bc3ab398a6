package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/domain"
	"github.com/ticketops/ticket-notifier/internal/repository"
)

// RecipientService computes the deduplicated, validated set of notification
// targets for a ticket. It never fails; sub-lookup errors degrade the result
// to a partial or empty set.
type RecipientService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
	logger      *zap.Logger
}

// NewRecipientService constructs the aggregator.
func NewRecipientService(departments repository.DepartmentRepository, users repository.UserRepository, logger *zap.Logger) *RecipientService {
	return &RecipientService{departments: departments, users: users, logger: logger}
}

// Collect unions the department notification pool, the ticket owner, any
// explicit extras and the resolved assignee addresses, keeping only
// syntactically valid addresses and dropping duplicates.
func (s *RecipientService) Collect(ctx context.Context, departmentID, ownerEmail string, extras []string, assignees domain.AssigneeList) []string {
	var candidates []string

	if departmentID != "" {
		dept, err := s.departments.GetByID(ctx, departmentID)
		if err != nil {
			s.logger.Warn("notification pool lookup failed",
				zap.String("department_id", departmentID),
				zap.Error(err))
		} else {
			candidates = append(candidates, dept.NotificationPool...)
		}
	}

	candidates = append(candidates, ownerEmail)
	candidates = append(candidates, extras...)
	candidates = append(candidates, s.resolveAssignees(ctx, assignees)...)

	return dedupeValid(candidates)
}

func (s *RecipientService) resolveAssignees(ctx context.Context, assignees domain.AssigneeList) []string {
	var out []string
	for _, ref := range assignees {
		if ref.Email != "" {
			out = append(out, ref.Email)
			continue
		}
		if ref.UserID == "" {
			continue
		}
		user, err := s.users.GetByID(ctx, ref.UserID)
		if err != nil {
			s.logger.Warn("assignee lookup failed",
				zap.String("user_id", ref.UserID),
				zap.Error(err))
			continue
		}
		out = append(out, user.Email)
	}
	return out
}

// dedupeValid filters to addresses containing '@' and removes duplicates,
// preserving first-seen order. Addresses are compared as given.
func dedupeValid(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var out []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if !strings.Contains(addr, "@") {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
