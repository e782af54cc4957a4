package chunk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vita-labs/recallai/internal/domain"
)

func unit(id, thread, author string, at time.Time, roles ...string) domain.ContentUnit {
	return domain.ContentUnit{
		UnitID:    id,
		ChannelID: "chan-1",
		ThreadID:  thread,
		AuthorID:  author,
		RawText:   "msg " + id,
		Roles:     roles,
		CreatedAt: at,
	}
}

func TestGroupSameThreadAndAuthor(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	units := []domain.ContentUnit{
		unit("m1", "t1", "alice", base),
		unit("m2", "t1", "alice", base.Add(time.Minute)),
		unit("m3", "t1", "alice", base.Add(2*time.Minute)),
	}

	groups := g.Group(units)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"m1", "m2", "m3"}, groups[0].UnitIDs())
}

func TestGroupBoundaryOnThreadChange(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	units := []domain.ContentUnit{
		unit("m1", "t1", "alice", base),
		unit("m2", "t2", "alice", base.Add(time.Minute)),
	}

	groups := g.Group(units)
	require.Len(t, groups, 2)
}

func TestGroupBoundaryOnAuthorChange(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	units := []domain.ContentUnit{
		unit("m1", "t1", "alice", base),
		unit("m2", "t1", "bob", base.Add(time.Second)),
	}

	groups := g.Group(units)
	require.Len(t, groups, 2)
}

func TestGroupBoundaryOnTimeGap(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	units := []domain.ContentUnit{
		unit("m1", "t1", "alice", base),
		unit("m2", "t1", "alice", base.Add(11*time.Minute)),
	}

	groups := g.Group(units)
	require.Len(t, groups, 2)
}

func TestGroupBoundaryOnSizeCap(t *testing.T) {
	g, err := NewGrouper(time.Hour, 3)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var units []domain.ContentUnit
	for i := 0; i < 7; i++ {
		units = append(units, unit(fmt.Sprintf("m%d", i), "t1", "alice", base.Add(time.Duration(i)*time.Second)))
	}

	groups := g.Group(units)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Units, 3)
	assert.Len(t, groups[1].Units, 3)
	assert.Len(t, groups[2].Units, 1)
}

func TestGroupRolesUnion(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	units := []domain.ContentUnit{
		unit("m1", "t1", "alice", base, "admin"),
		unit("m2", "t1", "alice", base.Add(time.Second), "user", "admin"),
	}

	groups := g.Group(units)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"admin", "user"}, groups[0].Roles())
}

func TestGroupEmptyInput(t *testing.T) {
	g, err := NewGrouper(10*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, g.Group(nil))
}

func TestNewGrouperValidation(t *testing.T) {
	_, err := NewGrouper(0, 10)
	assert.Error(t, err)
	_, err = NewGrouper(time.Minute, 0)
	assert.Error(t, err)
}
