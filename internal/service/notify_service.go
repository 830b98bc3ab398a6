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
	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

// NotifyService serves the on-demand dispatch path for a single explicit
// ticket event, reusing the same send authority and recipient aggregation
// as the scheduled sweep.
type NotifyService struct {
	recipients *RecipientService
	resolver   mail.SenderResolver
	sender     mail.Sender
	dispatcher events.Dispatcher

	senderAddress string
	logger        *zap.Logger
}

// NewNotifyService constructs the service.
func NewNotifyService(recipients *RecipientService, resolver mail.SenderResolver, sender mail.Sender, dispatcher events.Dispatcher, mailCfg config.MailConfig, logger *zap.Logger) *NotifyService {
	return &NotifyService{
		recipients:    recipients,
		resolver:      resolver,
		sender:        sender,
		dispatcher:    dispatcher,
		senderAddress: mailCfg.SenderAddress,
		logger:        logger,
	}
}

// TicketEventInput is an explicit ticket-event dispatch request. The caller
// supplies pre-rendered HTML; templating lives outside this pipeline.
type TicketEventInput struct {
	TicketID     string
	DepartmentID string
	Type         string
	Subcategory  string
	Status       string
	Priority     domain.TicketPriority
	OwnerEmail   string
	Assignees    domain.AssigneeList

	Subject       string
	ActionMessage string
	HTMLBody      string

	// To, when non-empty, replaces the computed aggregation. CC and
	// ExtraRecipients are always additive.
	To              []string
	CC              []string
	ExtraRecipients []string
}

// SendTicketNotification dispatches the event and returns the final
// recipient list.
func (s *NotifyService) SendTicketNotification(ctx context.Context, input TicketEventInput) ([]string, error) {
	if s.senderAddress == "" {
		return nil, errorutil.NewMissingConfiguration("MAIL_SENDER_ADDRESS")
	}

	to := dedupeValid(input.To)
	if len(to) == 0 {
		to = s.recipients.Collect(ctx, input.DepartmentID, input.OwnerEmail, input.ExtraRecipients, input.Assignees)
	}
	cc := dedupeValid(input.CC)
	if len(to) == 0 && len(cc) == 0 {
		return nil, errorutil.NewNoRecipients(input.TicketID)
	}

	senderID, err := s.resolver.Resolve(ctx, s.senderAddress)
	if err != nil {
		return nil, err
	}

	subject := input.Subject
	if subject == "" {
		subject = fmt.Sprintf("Ticket %s: %s", input.TicketID, input.ActionMessage)
	}

	if err := s.sender.SendMail(ctx, senderID, subject, input.HTMLBody, to, cc); err != nil {
		return nil, err
	}

	s.logger.Info("ticket notification dispatched",
		zap.String("ticket_id", input.TicketID),
		zap.Int("to", len(to)),
		zap.Int("cc", len(cc)))

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventNotificationSent,
		TicketID:  input.TicketID,
		Timestamp: time.Now(),
		Payload: events.NotificationSentPayload{
			Recipients: append(append([]string{}, to...), cc...),
			Title:      subject,
			Message:    input.ActionMessage,
			Data: map[string]string{
				"ticket_id":  input.TicketID,
				"department": input.DepartmentID,
				"status":     input.Status,
			},
		},
	})

	return to, nil
}
