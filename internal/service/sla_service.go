package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/internal/domain"
	"github.com/ticketops/ticket-notifier/internal/events"
	"github.com/ticketops/ticket-notifier/internal/mail"
	"github.com/ticketops/ticket-notifier/internal/observability"
	"github.com/ticketops/ticket-notifier/internal/repository"
)

// SLAService runs the deadline sweep: it evaluates every ticket against its
// hour budget and dispatches a single pre-breach warning for those inside
// the warning horizon.
type SLAService struct {
	tickets     repository.TicketRepository
	slaConfig   repository.SLAConfigRepository
	departments repository.DepartmentRepository
	recipients  *RecipientService
	resolver    mail.SenderResolver
	sender      mail.Sender
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics

	senderAddress string
	horizonHours  float64
	logger        *zap.Logger
	now           func() time.Time
}

// SLADependencies bundles collaborators for the sweep service.
type SLADependencies struct {
	TicketRepo     repository.TicketRepository
	SLAConfigRepo  repository.SLAConfigRepository
	DepartmentRepo repository.DepartmentRepository
	Recipients     *RecipientService
	Resolver       mail.SenderResolver
	Sender         mail.Sender
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
}

// SweepStats summarizes one sweep run.
type SweepStats struct {
	Evaluated int
	Skipped   int
	Warned    int
	Failed    int
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies, mailCfg config.MailConfig, sweepCfg config.SweepConfig, logger *zap.Logger) *SLAService {
	horizon := sweepCfg.WarningHorizonHours
	if horizon <= 0 {
		horizon = 12
	}
	return &SLAService{
		tickets:       deps.TicketRepo,
		slaConfig:     deps.SLAConfigRepo,
		departments:   deps.DepartmentRepo,
		recipients:    deps.Recipients,
		resolver:      deps.Resolver,
		sender:        deps.Sender,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		senderAddress: mailCfg.SenderAddress,
		horizonHours:  horizon,
		logger:        logger,
		now:           time.Now,
	}
}

// RunSweep loads the ticket snapshot and shared configuration, then
// evaluates every ticket. Errors on one ticket never abort the rest.
func (s *SLAService) RunSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("load ticket snapshot: %w", err)
	}
	slaCfg, err := s.slaConfig.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("load sla configuration: %w", err)
	}

	// resolved lazily so a sweep with nothing due stays offline, and held
	// only for this run
	var senderID string

	for i := range tickets {
		ticket := &tickets[i]
		warned, err := s.evaluateTicket(ctx, ticket, slaCfg, &senderID)
		stats.Evaluated++
		switch {
		case err != nil:
			stats.Failed++
			s.logger.Error("ticket evaluation failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		case warned:
			stats.Warned++
		default:
			stats.Skipped++
		}
	}

	s.logger.Info("sla sweep completed",
		zap.Int("evaluated", stats.Evaluated),
		zap.Int("warned", stats.Warned),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func (s *SLAService) evaluateTicket(ctx context.Context, ticket *domain.Ticket, slaCfg *domain.SLAConfig, senderID *string) (bool, error) {
	if ticket.Status.Terminal() || ticket.WarningSentAt != nil {
		return false, nil
	}

	elapsed, ok := ticket.ElapsedHours(s.now())
	if !ok {
		s.logger.Debug("ticket has no derivable creation instant",
			zap.String("ticket_id", ticket.ID))
		return false, nil
	}

	budget := slaCfg.BudgetHours(ticket)
	remaining := budget - elapsed
	if remaining <= 0 || remaining > s.horizonHours {
		return false, nil
	}

	to := s.recipients.Collect(ctx, ticket.DepartmentID, ticket.OwnerEmail, nil, ticket.Assignees)
	if len(to) == 0 {
		// no marker is written; the ticket stays eligible for the next run
		s.logger.Warn("no recipients for sla warning, skipping",
			zap.String("ticket_id", ticket.ID))
		return false, nil
	}

	if *senderID == "" {
		id, err := s.resolver.Resolve(ctx, s.senderAddress)
		if err != nil {
			return false, err
		}
		*senderID = id
	}

	dept := s.departmentFor(ctx, ticket.DepartmentID)
	subject, body := s.composeWarning(ticket, dept, remaining)

	if err := s.sender.SendMail(ctx, *senderID, subject, body, to, nil); err != nil {
		s.metrics.RecordDispatch("email", "failed")
		return false, err
	}
	s.metrics.RecordDispatch("email", "sent")

	sentAt := s.now()
	marked, err := s.tickets.MarkWarningSent(ctx, ticket.ID, sentAt)
	if err != nil {
		s.logger.Error("warning marker write failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	} else if !marked {
		s.logger.Warn("warning marker already set by a concurrent writer",
			zap.String("ticket_id", ticket.ID))
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventWarningSent,
		TicketID:  ticket.ID,
		Timestamp: sentAt,
		Payload: events.NotificationSentPayload{
			Recipients: to,
			Title:      subject,
			Message:    fmt.Sprintf("Ticket %s is %.1f hours from its SLA deadline", ticket.ID, remaining),
			Data: map[string]string{
				"ticket_id":  ticket.ID,
				"department": ticket.DepartmentID,
			},
		},
	})

	return true, nil
}

func (s *SLAService) departmentFor(ctx context.Context, id string) *domain.Department {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("department lookup failed, using raw identifier",
			zap.String("department_id", id),
			zap.Error(err))
		return &domain.Department{ID: id}
	}
	return dept
}

func (s *SLAService) composeWarning(ticket *domain.Ticket, dept *domain.Department, remaining float64) (string, string) {
	subject := fmt.Sprintf("SLA warning: ticket %s (%s)", ticket.ID, dept.DisplayName())

	accent := dept.BrandingColor
	if accent == "" {
		accent = "#1a73e8"
	}
	logo := ""
	if dept.BrandingLogoURL != "" {
		logo = fmt.Sprintf(`<img src=%q alt="" height="32">`, dept.BrandingLogoURL)
	}
	body := fmt.Sprintf(
		`<div style="font-family:sans-serif">%s<h2 style="color:%s">SLA deadline approaching</h2>`+
			`<p>Ticket <strong>%s</strong> (%s / %s) has <strong>%.1f hours</strong> remaining before its SLA deadline.</p>`+
			`<p>Priority: %s</p></div>`,
		logo, accent, ticket.ID, dept.DisplayName(), ticket.Type, remaining, ticket.Priority)

	return subject, body
}
