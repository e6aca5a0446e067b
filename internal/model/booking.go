package model

import "time"

// Booking statuses. CANCELLED bookings are kept for history but are
// excluded from all conflict checks.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Check-in statuses. The state only moves PENDING -> CHECKED_IN or
// PENDING -> MISSED; it never regresses.
const (
	CheckInPending = "PENDING"
	CheckInDone    = "CHECKED_IN"
	CheckInMissed  = "MISSED"
)

// Booking represents a reservation of a room for a half-open time
// window [StartTime, EndTime). Both instants are stored in UTC; any
// local-time handling happens in the timezone package. A booking that
// came from or was pushed to the external spreadsheet carries a
// SheetRowID used for deduplication.
//
// Fields:
//  ID               - primary key identifier.
//  RoomID           - the room this booking occupies.
//  UserID           - the owning user; deleting the user cascades here.
//  Title            - short meeting title.
//  Description      - optional free-text description (nullable).
//  StartTime        - UTC start instant; always before EndTime.
//  EndTime          - UTC end instant (exclusive).
//  ParticipantCount - positive, never above the room capacity at the
//                     time the window was set.
//  Status           - CONFIRMED or CANCELLED.
//  CheckInStatus    - PENDING, CHECKED_IN or MISSED.
//  SheetRowID       - external spreadsheet row identifier (nullable).
//  LastModifiedBy   - user who last modified the booking (nullable).
//  CreatedAt        - timestamp of creation.
//  UpdatedAt        - timestamp of last update.
type Booking struct {
	ID               uint64    // bookings.id
	RoomID           uint64    // bookings.room_id
	UserID           uint64    // bookings.user_id
	Title            string    // bookings.title
	Description      *string   // bookings.description (nullable)
	StartTime        time.Time // bookings.start_time (UTC)
	EndTime          time.Time // bookings.end_time (UTC)
	ParticipantCount uint32    // bookings.participant_count
	Status           string    // bookings.status
	CheckInStatus    string    // bookings.check_in_status
	SheetRowID       *string   // bookings.sheet_row_id (nullable)
	LastModifiedBy   *uint64   // bookings.last_modified_by (nullable)
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}

// InProgressAt reports whether the booking window covers the given
// instant, i.e. now is within [StartTime, EndTime).
func (b Booking) InProgressAt(now time.Time) bool {
	return !now.Before(b.StartTime) && now.Before(b.EndTime)
}
