package model

import "time"

// Room categories. PUBLIC rooms can be booked by anyone; SPECIAL rooms
// are reserved for admins (e.g. board rooms, executive suites).
const (
	RoomPublic  = "PUBLIC"
	RoomSpecial = "SPECIAL"
)

// Room represents a bookable meeting room as stored in the `rooms`
// table. Inactive rooms are never offered for booking but keep their
// historical bookings, so rooms are soft-deactivated rather than
// deleted.
//
// Fields:
//  ID         - primary key identifier of the room.
//  Name       - display name, unique in practice (used by the sheet sync
//               to match rows to rooms by name).
//  Category   - PUBLIC or SPECIAL; drives the access policy.
//  Capacity   - maximum number of participants; always positive.
//  Facilities - free-form facility tags (projector, whiteboard, ...),
//               stored as a JSON array in a TEXT column.
//  IsActive   - whether the room is offered for booking.
//  CreatedAt  - timestamp of creation.
//  UpdatedAt  - timestamp of last update.
type Room struct {
	ID         uint64    // rooms.id
	Name       string    // rooms.name
	Category   string    // rooms.category
	Capacity   uint32    // rooms.capacity
	Facilities []string  // rooms.facilities (JSON array)
	IsActive   bool      // rooms.is_active
	CreatedAt  time.Time // rooms.created_at
	UpdatedAt  time.Time // rooms.updated_at
}
