package booking

import (
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

// FindConflict scans the given bookings for one that overlaps the
// proposed half-open window [start, end) on the same room. Cancelled
// bookings never conflict, and excludeID skips one booking so a window
// can be checked against everything but itself when extending or
// modifying (pass 0 to exclude nothing).
//
// Overlap is strict: two windows conflict iff s < end && start < e, so
// touching endpoints (one booking ending exactly when another starts)
// are not conflicts. A linear scan is fine at this data volume; the
// first hit is returned so callers can name the blocking booking in
// error messages.
func FindConflict(roomID uint64, start, end time.Time, bookings []model.Booking, excludeID uint64) *model.Booking {
	for i := range bookings {
		b := &bookings[i]
		if b.RoomID != roomID || b.Status == model.BookingCancelled {
			continue
		}
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime) {
			return b
		}
	}
	return nil
}

// HasConflict reports whether FindConflict finds any overlap.
func HasConflict(roomID uint64, start, end time.Time, bookings []model.Booking, excludeID uint64) bool {
	return FindConflict(roomID, start, end, bookings, excludeID) != nil
}
