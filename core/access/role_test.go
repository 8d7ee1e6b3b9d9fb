package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{in: "director", want: RoleDirector},
		{in: "Directora", want: RoleDirector},
		{in: "teacher", want: RoleTeacher},
		{in: " maestra ", want: RoleTeacher},
		{in: "MAESTRO", want: RoleTeacher},
		{in: "guardian", want: RoleGuardian},
		{in: "parent", want: RoleGuardian},
		{in: "padre", want: RoleGuardian},
		{in: "madre", want: RoleGuardian},
		{in: "tutor", want: RoleGuardian},
		{in: "", want: RoleUnknown},
		{in: "admin", want: RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.in))
			assert.Equal(t, tt.want != RoleUnknown, IsValidRole(tt.in))
		})
	}
}

func TestRole_IsStaff(t *testing.T) {
	assert.True(t, RoleDirector.IsStaff())
	assert.True(t, RoleTeacher.IsStaff())
	assert.False(t, RoleGuardian.IsStaff())
	assert.False(t, RoleUnknown.IsStaff())
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("b", "", "a", "b")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Slice())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has(""))
	assert.Equal(t, []string{"b"}, s.Intersect(NewIDSet("b", "c")).Slice())
	assert.True(t, NewIDSet().IsEmpty())
}
