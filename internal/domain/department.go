package domain

import "encoding/json"

// Department represents an organizational unit tickets belong to.
type Department struct {
	ID               string
	Name             string
	NotificationPool RecipientPool
	BrandingColor    string
	BrandingLogoURL  string
	IsActive         bool
}

// DisplayName falls back to the raw identifier when no name is stored.
func (d *Department) DisplayName() string {
	if d == nil || d.Name == "" {
		if d == nil {
			return ""
		}
		return d.ID
	}
	return d.Name
}

// RecipientPool is a department's configured notification addresses. The
// store keeps it either as an ordered list or as a keyed mapping; both
// decode to a plain list.
type RecipientPool []string

func (p *RecipientPool) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = list
		return nil
	}
	var keyed map[string]string
	if err := json.Unmarshal(data, &keyed); err == nil {
		out := make([]string, 0, len(keyed))
		for _, addr := range keyed {
			out = append(out, addr)
		}
		*p = out
		return nil
	}
	*p = nil
	return nil
}
