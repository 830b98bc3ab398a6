package dto

import "encoding/json"

// TicketEventRequest is the on-demand dispatch payload. Assignees accepts
// the same heterogeneous shapes the ticket store uses.
type TicketEventRequest struct {
	TicketID     string          `json:"ticket_id"`
	DepartmentID string          `json:"department_id"`
	Type         string          `json:"type"`
	Subcategory  string          `json:"subcategory"`
	Status       string          `json:"status"`
	Priority     string          `json:"priority"`
	OwnerEmail   string          `json:"owner_email"`
	Assignees    json.RawMessage `json:"assignees"`

	Subject       string `json:"subject"`
	ActionMessage string `json:"action_message"`
	HTMLBody      string `json:"html_body"`

	To              []string `json:"to"`
	CC              []string `json:"cc"`
	ExtraRecipients []string `json:"extra_recipients"`
}

// TicketEventResponse reports the final recipient list.
type TicketEventResponse struct {
	TicketID   string   `json:"ticket_id"`
	Recipients []string `json:"recipients"`
	CC         []string `json:"cc,omitempty"`
}

// SweepResponse summarizes a manually triggered sweep.
type SweepResponse struct {
	Evaluated int `json:"evaluated"`
	Warned    int `json:"warned"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
