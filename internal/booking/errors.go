// Package booking implements the reservation lifecycle: creating,
// cancelling, extending, ending early, checking in and modifying
// bookings, with conflict detection and role-gated room access. Every
// expected validation failure is one of the sentinel errors below;
// handlers translate each into a distinct HTTP response so users can
// tell "pick another time" apart from "ask an admin". Only genuinely
// unexpected failures (storage down, broken invariants) surface as
// other error values.
package booking

import (
	"errors"
	"fmt"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

var (
	// ErrUnauthorized is returned when no authenticated identity was
	// supplied with the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller is authenticated but
	// lacks the role or ownership required for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrRoomNotFound is returned when the referenced room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomInactive is returned when the referenced room exists but is
	// deactivated and therefore not offered for booking.
	ErrRoomInactive = errors.New("room is inactive")

	// ErrInvalidWindow is returned when start >= end, or when a new
	// booking starts in the past.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrCapacityExceeded is returned when the participant count is
	// larger than the room capacity.
	ErrCapacityExceeded = errors.New("participant count exceeds room capacity")

	// ErrNotFound is returned when the referenced booking does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidState is returned when an operation does not apply to
	// the booking's current state: cancelling logic on a cancelled
	// booking, extending to a shorter end, ending early outside the
	// in-progress window, or checking in outside the check-in window.
	ErrInvalidState = errors.New("operation not valid in current booking state")
)

// ConflictError reports that a proposed window overlaps an existing
// active booking. It unwraps to ErrSlotUnavailable and carries the
// blocking booking so handlers can say what is in the way.
type ConflictError struct {
	With model.Booking
}

// ErrSlotUnavailable is the sentinel all conflict errors unwrap to.
var ErrSlotUnavailable = errors.New("time slot is already booked")

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot is already booked by %q from %s to %s",
		e.With.Title,
		e.With.StartTime.Format("15:04"),
		e.With.EndTime.Format("15:04"))
}

func (e *ConflictError) Unwrap() error { return ErrSlotUnavailable }
