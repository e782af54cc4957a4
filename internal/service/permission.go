package service

import "github.com/vita-labs/recallai/internal/domain"

// Visible reports whether a requester may see a stored chunk. A chunk
// with no role restriction is visible to every role; a chunk with no
// channel restriction is visible from every channel. Absent restrictions
// fail open so ingested public content stays reachable.
func Visible(c *domain.Chunk, requesterRoles []string, channelID string) bool {
	if len(c.Roles) > 0 && !intersects(c.Roles, requesterRoles) {
		return false
	}
	if len(c.AllowedChannels) > 0 && !contains(c.AllowedChannels, channelID) {
		return false
	}
	return true
}

// FilterVisible keeps only candidates the requester may see, preserving
// the incoming order.
func FilterVisible(candidates []*domain.ChunkCandidate, requesterRoles []string, channelID string) []*domain.ChunkCandidate {
	out := make([]*domain.ChunkCandidate, 0, len(candidates))
	for _, c := range candidates {
		if Visible(&c.Chunk, requesterRoles, channelID) {
			out = append(out, c)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
