package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: " Super Admin ", want: RoleSuperAdmin},
		{in: "super_admin", want: RoleSuperAdmin},
		{in: "contributor", want: RoleContributor},
		{in: "viewer", want: RoleViewer},
		{in: "owner", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCapabilities(t *testing.T) {
	admin := &User{Roles: []Role{RoleAdmin}, EventIDs: []int64{4, 2}}
	contributor := &User{Roles: []Role{RoleContributor}}
	viewer := &User{Roles: []Role{RoleViewer}}
	var anonymous *User

	assert.True(t, admin.CanManageSubject())
	assert.True(t, admin.CanAddQuestion())
	assert.False(t, admin.IsSuperAdmin())
	assert.True(t, admin.InEvent(2))
	assert.False(t, admin.InEvent(3))

	assert.True(t, contributor.CanAddQuestion())
	assert.False(t, contributor.CanManageQuestion())

	assert.False(t, viewer.CanAddQuestion())
	assert.False(t, anonymous.HasRole(RoleViewer))
	assert.False(t, anonymous.InEvent(1))

	first, ok := admin.FirstEventID()
	assert.True(t, ok)
	assert.Equal(t, int64(2), first)
	_, ok = viewer.FirstEventID()
	assert.False(t, ok)
}

func TestGeneratePassword(t *testing.T) {
	p, err := GeneratePassword(16)
	require.NoError(t, err)
	assert.Len(t, p, 16)
	assert.True(t, strings.ContainsAny(p, lowerChars))
	assert.True(t, strings.ContainsAny(p, upperChars))
	assert.True(t, strings.ContainsAny(p, digitChars))
	assert.True(t, strings.ContainsAny(p, symbolChars))
	assert.False(t, strings.ContainsAny(p, "0O1lI"))

	short, err := GeneratePassword(2)
	require.NoError(t, err)
	assert.Len(t, short, 12)
}
