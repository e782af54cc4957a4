package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vita-labs/recallai/internal/domain"
)

func TestNormalizeUnit(t *testing.T) {
	u := domain.ContentUnit{
		UnitID:    "  msg-1 ",
		ChannelID: "chan-1\n",
		AuthorID:  " author-1",
		Roles:     []string{"mod", "", "admin", "mod", "  "},
	}
	NormalizeUnit(&u)

	assert.Equal(t, "msg-1", u.UnitID)
	assert.Equal(t, "chan-1", u.ChannelID)
	assert.Equal(t, "author-1", u.AuthorID)
	assert.Equal(t, []string{"admin", "mod"}, u.Roles)
	assert.NotNil(t, u.AttachmentRefs)
}

func TestNormalizeRolesNilInput(t *testing.T) {
	roles := NormalizeRoles(nil)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
}
