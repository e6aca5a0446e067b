// Package policy decides whether a user role may perform a booking
// action in a room. It is a pure decision table over room category,
// role and action; ownership of individual bookings is checked by the
// caller because it needs the booking row, not the room.
package policy

import "github.com/satriadp/meeting-room-reservation/internal/model"

// Action enumerates the booking actions the policy gates.
type Action string

const (
	ActionBook         Action = "book"
	ActionModifyOwn    Action = "modify-own"
	ActionModifyOthers Action = "modify-others"
	ActionCancelOwn    Action = "cancel-own"
	ActionCancelOthers Action = "cancel-others"
)

// IsAdmin reports whether the role carries admin privileges. Roles are
// monotonically privileged: EMPLOYEE < ADMIN < SUPER_ADMIN.
func IsAdmin(role string) bool {
	return role == model.RoleAdmin || role == model.RoleSuperAdmin
}

// CanAccess reports whether a user with the given role may perform the
// action in the room.
//
// Rule table:
//   PUBLIC rooms:  employees may book and modify/cancel their own
//                  bookings; admins may do everything.
//   SPECIAL rooms: employees have no booking rights at all; admins may
//                  do everything.
//   Any room:      modify-others/cancel-others is admin-only.
//
// The room's active flag is deliberately not consulted here; inactive
// rooms are rejected by the lifecycle engine before policy runs.
func CanAccess(room model.Room, role string, action Action) bool {
	if IsAdmin(role) {
		return true
	}
	// Employee from here on.
	switch action {
	case ActionModifyOthers, ActionCancelOthers:
		return false
	case ActionBook, ActionModifyOwn, ActionCancelOwn:
		return room.Category != model.RoomSpecial
	default:
		return false
	}
}
