package chunk

import (
	"sort"
	"time"

	"github.com/vita-labs/recallai/internal/domain"
)

// Group is a run of consecutive content units sharing conversational
// locality: same thread and author, within a time window, capped in size.
type Group struct {
	Units []domain.ContentUnit
}

// UnitIDs returns the member unit IDs in arrival order.
func (g Group) UnitIDs() []string {
	ids := make([]string, 0, len(g.Units))
	for _, u := range g.Units {
		ids = append(ids, u.UnitID)
	}
	return ids
}

// Roles returns the union of member roles, sorted for determinism.
func (g Group) Roles() []string {
	seen := make(map[string]struct{})
	for _, u := range g.Units {
		for _, r := range u.Roles {
			seen[r] = struct{}{}
		}
	}
	roles := make([]string, 0, len(seen))
	for r := range seen {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// Grouper groups ordered content units by (thread, author) locality.
type Grouper struct {
	window   time.Duration
	maxGroup int
}

// NewGrouper creates a Grouper. A boundary is forced when thread or author
// changes, the gap since the group started exceeds window, or the group
// reaches maxGroup units, whichever comes first.
func NewGrouper(window time.Duration, maxGroup int) (*Grouper, error) {
	if window <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "group window must be positive")
	}
	if maxGroup <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "max group size must be positive")
	}
	return &Grouper{window: window, maxGroup: maxGroup}, nil
}

// Group walks units in the given order and emits one Group per run of
// conversational locality. Input order is preserved inside each group.
func (g *Grouper) Group(units []domain.ContentUnit) []Group {
	if len(units) == 0 {
		return nil
	}

	groups := make([]Group, 0, 4)
	var current []domain.ContentUnit
	var windowStart time.Time

	for _, u := range units {
		if len(current) > 0 {
			prev := current[len(current)-1]
			boundary := prev.ThreadID != u.ThreadID ||
				prev.AuthorID != u.AuthorID ||
				u.CreatedAt.Sub(windowStart) > g.window ||
				len(current) >= g.maxGroup
			if boundary {
				groups = append(groups, Group{Units: current})
				current = nil
			}
		}
		if len(current) == 0 {
			windowStart = u.CreatedAt
		}
		current = append(current, u)
	}
	if len(current) > 0 {
		groups = append(groups, Group{Units: current})
	}
	return groups
}
