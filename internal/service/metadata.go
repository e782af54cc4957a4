package service

import (
	"sort"
	"strings"

	"github.com/vita-labs/recallai/internal/domain"
)

// NormalizeUnit rewrites a unit's metadata into canonical form: IDs are
// trimmed, role lists are deduplicated and sorted, and nil slices become
// empty so downstream storage never sees absent-vs-empty ambiguity.
func NormalizeUnit(u *domain.ContentUnit) {
	u.UnitID = strings.TrimSpace(u.UnitID)
	u.ChannelID = strings.TrimSpace(u.ChannelID)
	u.ThreadID = strings.TrimSpace(u.ThreadID)
	u.AuthorID = strings.TrimSpace(u.AuthorID)
	u.Roles = NormalizeRoles(u.Roles)
	if u.AttachmentRefs == nil {
		u.AttachmentRefs = []domain.AttachmentRef{}
	}
}

// NormalizeRoles trims, deduplicates and sorts a role list. Empty
// entries are dropped; a nil input comes back as an empty slice.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
