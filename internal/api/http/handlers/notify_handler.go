package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/ticket-notifier/internal/api/dto"
	"github.com/ticketops/ticket-notifier/internal/domain"
	"github.com/ticketops/ticket-notifier/internal/service"
	"github.com/ticketops/ticket-notifier/pkg/util/errorutil"
)

// NotifyHandler exposes the on-demand dispatch path and a manual sweep
// trigger.
type NotifyHandler struct {
	notify *service.NotifyService
	sla    *service.SLAService
}

// NewNotifyHandler returns a new handler instance.
func NewNotifyHandler(notify *service.NotifyService, sla *service.SLAService) *NotifyHandler {
	return &NotifyHandler{notify: notify, sla: sla}
}

// SendTicketEvent dispatches a notification for one explicit ticket event.
func (h *NotifyHandler) SendTicketEvent(c *fiber.Ctx) error {
	var req dto.TicketEventRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid request body", nil)
	}
	if err := validateTicketEvent(req); err != nil {
		return err
	}

	var assignees domain.AssigneeList
	if len(req.Assignees) > 0 {
		if err := json.Unmarshal(req.Assignees, &assignees); err != nil {
			return errorutil.NewValidationError("invalid assignees payload", nil)
		}
	}

	recipients, err := h.notify.SendTicketNotification(c.UserContext(), service.TicketEventInput{
		TicketID:        req.TicketID,
		DepartmentID:    req.DepartmentID,
		Type:            req.Type,
		Subcategory:     req.Subcategory,
		Status:          req.Status,
		Priority:        domain.NormalizePriority(req.Priority),
		OwnerEmail:      req.OwnerEmail,
		Assignees:       assignees,
		Subject:         req.Subject,
		ActionMessage:   req.ActionMessage,
		HTMLBody:        req.HTMLBody,
		To:              req.To,
		CC:              req.CC,
		ExtraRecipients: req.ExtraRecipients,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.TicketEventResponse{
		TicketID:   req.TicketID,
		Recipients: recipients,
		CC:         req.CC,
	})
}

// TriggerSweep runs one SLA sweep synchronously.
func (h *NotifyHandler) TriggerSweep(c *fiber.Ctx) error {
	stats, err := h.sla.RunSweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.SweepResponse{
		Evaluated: stats.Evaluated,
		Warned:    stats.Warned,
		Skipped:   stats.Skipped,
		Failed:    stats.Failed,
	})
}

func validateTicketEvent(req dto.TicketEventRequest) error {
	missing := map[string]any{}
	for field, value := range map[string]string{
		"ticket_id":     req.TicketID,
		"department_id": req.DepartmentID,
		"type":          req.Type,
		"status":        req.Status,
		"html_body":     req.HTMLBody,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return errorutil.NewValidationError("missing required fields", missing)
	}
	return nil
}
