package domain

import "strings"

// FallbackBudgetHours applies when a ticket's priority is unrecognized.
const FallbackBudgetHours = 72

// CategoryKey addresses a subcategory-specific SLA override.
type CategoryKey struct {
	Department  string
	Type        string
	Subcategory string
}

// PriorityKey addresses a department-wide per-priority SLA override.
type PriorityKey struct {
	Department string
	Priority   TicketPriority
}

// SLAConfig is the three-level hour-budget cascade, read fresh each run.
type SLAConfig struct {
	CategoryHours map[CategoryKey]float64
	PriorityHours map[PriorityKey]float64
}

// BudgetHours resolves the allowed hours for a ticket: subcategory override,
// else department+priority override, else the global default for the
// priority.
func (c *SLAConfig) BudgetHours(t *Ticket) float64 {
	if c != nil {
		if hours, ok := c.CategoryHours[CategoryKey{t.DepartmentID, t.Type, t.Subcategory}]; ok && hours > 0 {
			return hours
		}
		if hours, ok := c.PriorityHours[PriorityKey{t.DepartmentID, t.Priority}]; ok && hours > 0 {
			return hours
		}
	}
	return DefaultBudgetHours(t.Priority)
}

// DefaultBudgetHours is the global per-priority default.
func DefaultBudgetHours(p TicketPriority) float64 {
	switch strings.ToLower(string(p)) {
	case "high":
		return 24
	case "medium":
		return 72
	case "low":
		return 168
	default:
		return FallbackBudgetHours
	}
}
