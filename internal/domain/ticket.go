package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusFinished   TicketStatus = "Finished"
	TicketStatusCancelled  TicketStatus = "Cancelled"
)

// Terminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) Terminal() bool {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "closed", "resolved", "finished", "cancelled":
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityLow    TicketPriority = "Low"
)

// NormalizePriority maps an absent priority to Medium. Unrecognized values
// are kept as-is so budget resolution can apply its own fallback.
func NormalizePriority(p string) TicketPriority {
	if strings.TrimSpace(p) == "" {
		return TicketPriorityMedium
	}
	return TicketPriority(strings.TrimSpace(p))
}

// msEpochFloor is the smallest identifier value read as a millisecond epoch.
const msEpochFloor = int64(1_000_000_000_000)

// Ticket is the flat record this pipeline reads from the ticket store.
// The warning marker is the only field it ever writes back.
type Ticket struct {
	ID            string
	DepartmentID  string
	Type          string
	Subcategory   string
	Priority      TicketPriority
	Status        TicketStatus
	OwnerEmail    string
	Assignees     AssigneeList
	CreatedAt     *time.Time
	TicketDate    *time.Time
	ClosedAt      *time.Time
	WarningSentAt *time.Time
}

// CreationInstant derives when the ticket was opened: the explicit creation
// timestamp, else the ticket date, else a numeric millisecond-epoch
// identifier. Returns false when none apply.
func (t *Ticket) CreationInstant() (time.Time, bool) {
	if t.CreatedAt != nil {
		return *t.CreatedAt, true
	}
	if t.TicketDate != nil {
		return *t.TicketDate, true
	}
	if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > msEpochFloor {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Time{}, false
}

// EndInstant is the closing timestamp for finished tickets, or now for
// tickets still being measured.
func (t *Ticket) EndInstant(now time.Time) time.Time {
	if t.Status.Terminal() && t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return now
}

// ElapsedHours measures creation to end in hours.
func (t *Ticket) ElapsedHours(now time.Time) (float64, bool) {
	created, ok := t.CreationInstant()
	if !ok {
		return 0, false
	}
	return t.EndInstant(now).Sub(created).Hours(), true
}

// AssigneeRef is the normalized form of one assignee: either a literal
// address or an opaque user id needing a directory lookup.
type AssigneeRef struct {
	Email  string
	UserID string
}

// AssigneeList normalizes the heterogeneous shapes the ticket store uses for
// assignees: absent, a single string, a list of strings, a structured record
// with an email field, or a list of such records.
type AssigneeList []AssigneeRef

func (l *AssigneeList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = normalizeAssignees(raw)
	return nil
}

func (l AssigneeList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(l))
	for _, ref := range l {
		if ref.Email != "" {
			out = append(out, map[string]string{"email": ref.Email})
			continue
		}
		out = append(out, ref.UserID)
	}
	return json.Marshal(out)
}

func normalizeAssignees(raw any) AssigneeList {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		var refs AssigneeList
		for _, item := range v {
			refs = append(refs, normalizeAssignees(item)...)
		}
		return refs
	case string:
		return assigneeFromString(v)
	case float64:
		return AssigneeList{{UserID: strconv.FormatFloat(v, 'f', -1, 64)}}
	case map[string]any:
		if email, ok := v["email"].(string); ok && strings.Contains(email, "@") {
			return AssigneeList{{Email: strings.TrimSpace(email)}}
		}
		return nil
	default:
		return nil
	}
}

func assigneeFromString(s string) AssigneeList {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, "@") {
		return AssigneeList{{Email: s}}
	}
	return AssigneeList{{UserID: s}}
}
