package policy

import (
	"testing"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

func TestCanAccess(t *testing.T) {
	public := model.Room{ID: 1, Name: "Aster", Category: model.RoomPublic, Capacity: 8}
	special := model.Room{ID: 2, Name: "Boardroom", Category: model.RoomSpecial, Capacity: 20}

	cases := []struct {
		name   string
		room   model.Room
		role   string
		action Action
		want   bool
	}{
		{"employee books public", public, model.RoleEmployee, ActionBook, true},
		{"employee modifies own in public", public, model.RoleEmployee, ActionModifyOwn, true},
		{"employee cancels own in public", public, model.RoleEmployee, ActionCancelOwn, true},
		{"employee modifies others", public, model.RoleEmployee, ActionModifyOthers, false},
		{"employee cancels others", public, model.RoleEmployee, ActionCancelOthers, false},
		{"employee books special", special, model.RoleEmployee, ActionBook, false},
		{"employee modifies own in special", special, model.RoleEmployee, ActionModifyOwn, false},
		{"employee cancels own in special", special, model.RoleEmployee, ActionCancelOwn, false},
		{"admin books special", special, model.RoleAdmin, ActionBook, true},
		{"admin cancels others in special", special, model.RoleAdmin, ActionCancelOthers, true},
		{"super admin modifies others", special, model.RoleSuperAdmin, ActionModifyOthers, true},
		{"unknown role", public, "INTERN", ActionBook, false},
		{"unknown action", public, model.RoleEmployee, Action("paint"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.room, tc.role, tc.action); got != tc.want {
				t.Errorf("CanAccess(%s, %s, %s) = %v, want %v",
					tc.room.Category, tc.role, tc.action, got, tc.want)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(model.RoleEmployee) {
		t.Error("EMPLOYEE must not be admin")
	}
	if !IsAdmin(model.RoleAdmin) || !IsAdmin(model.RoleSuperAdmin) {
		t.Error("ADMIN and SUPER_ADMIN must be admin")
	}
}
