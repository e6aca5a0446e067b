package booking

import (
	"context"
	"log"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/policy"
)

// CheckInWindow is the tolerance around a booking's start time during
// which the owner may check in, inclusive on both ends.
const CheckInWindow = 15 * time.Minute

// View keys invalidated after state-changing operations. Purely
// advisory; the cache owner decides what they map to.
const (
	ViewBooking   = "booking"
	ViewSchedule  = "schedule"
	ViewDashboard = "dashboard"
	ViewAnalytics = "analytics"
)

// Event types published to the notification channel.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// Principal identifies the authenticated caller of an operation. A
// zero UserID means no identity and every operation fails with
// ErrUnauthorized. The role is passed explicitly so the engine is
// testable without any session machinery.
type Principal struct {
	UserID uint64
	Role   string
}

// Event is the payload handed to the Notifier when a booking is
// confirmed or cancelled. It carries denormalized names so consumers
// can format messages without touching the database.
type Event struct {
	Type      string
	Booking   model.Booking
	RoomName  string
	UserName  string
	UserEmail string
}

// Tx is the transactional scope in which a conflict check and the
// following write happen atomically for one room.
type Tx interface {
	// FindBooking re-reads a booking under the room lock. Mutating
	// operations base their decisions and writes on this state, never on
	// what they read before the lock, so a commit that slipped in while
	// waiting for the lock is seen instead of overwritten.
	FindBooking(ctx context.Context, id uint64) (model.Booking, bool, error)
	// ActiveForRoom returns all non-cancelled bookings of the room.
	ActiveForRoom(ctx context.Context, roomID uint64) ([]model.Booking, error)
	// Insert persists a new booking and fills in its generated ID.
	Insert(ctx context.Context, b *model.Booking) error
	// Update replaces the stored booking with the given state.
	Update(ctx context.Context, b model.Booking) error
}

// Repository is the persistence collaborator of the engine.
//
// WithRoomLock must serialize concurrent calls for the same room: two
// overlapping Create/Extend/Modify requests must not both pass the
// conflict check. The MySQL implementation takes a row lock on the
// room inside a transaction; the in-memory test double holds a
// per-room mutex. Without this the conflict check is a race and
// double-bookings become possible.
type Repository interface {
	FindRoom(ctx context.Context, id uint64) (model.Room, bool, error)
	FindBooking(ctx context.Context, id uint64) (model.Booking, bool, error)
	WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx Tx) error) error
	// MarkMissedCheckIns flips PENDING check-ins of confirmed bookings
	// that started before the cutoff to MISSED, returning how many rows
	// changed.
	MarkMissedCheckIns(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserDirectory resolves user records for notification payloads.
type UserDirectory interface {
	FindUser(ctx context.Context, id uint64) (model.User, bool, error)
}

// Notifier delivers booking events. Delivery is best-effort: the
// engine logs failures and never lets them fail the operation that
// triggered them.
type Notifier interface {
	PublishBookingEvent(ctx context.Context, ev Event) error
}

// ViewCache marks presentation views stale after state changes.
// Advisory only; implementations must not block the request for long.
type ViewCache interface {
	Invalidate(ctx context.Context, views ...string)
}

// Engine orchestrates the booking lifecycle. All operations validate
// inputs, consult the access policy and the conflict detector, apply
// the state transition inside the repository's per-room lock, and then
// trigger fire-and-forget side effects. Mutations re-read the booking
// under the lock before deciding anything, so state committed by a
// concurrent operation is built upon rather than overwritten.
type Engine struct {
	repo     Repository
	users    UserDirectory
	notifier Notifier
	views    ViewCache
	now      func() time.Time
}

// NewEngine wires the engine's collaborators. notifier and views may
// be nil (side effects are skipped); now may be nil (wall clock).
func NewEngine(repo Repository, users UserDirectory, notifier Notifier, views ViewCache, now func() time.Time) *Engine {
	if repo == nil {
		panic("nil repository passed to NewEngine")
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{repo: repo, users: users, notifier: notifier, views: views, now: now}
}

// CreateInput carries the fields of a new booking request.
// ParticipantCount zero means "just the organizer" and defaults to 1.
type CreateInput struct {
	RoomID           uint64
	Title            string
	Description      *string
	StartTime        time.Time
	EndTime          time.Time
	ParticipantCount uint32
}

// Create books a room for the given window. The window must lie in the
// future, fit the room capacity and not overlap any active booking of
// the room. On success the booking is CONFIRMED with check-in PENDING.
func (e *Engine) Create(ctx context.Context, p Principal, in CreateInput) (model.Booking, error) {
	if p.UserID == 0 {
		return model.Booking{}, ErrUnauthorized
	}
	room, ok, err := e.repo.FindRoom(ctx, in.RoomID)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		return model.Booking{}, ErrRoomNotFound
	}
	if !room.IsActive {
		return model.Booking{}, ErrRoomInactive
	}
	if !policy.CanAccess(room, p.Role, policy.ActionBook) {
		return model.Booking{}, ErrForbidden
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	now := e.now().UTC()
	if !start.Before(end) || start.Before(now) {
		return model.Booking{}, ErrInvalidWindow
	}
	participants := in.ParticipantCount
	if participants == 0 {
		participants = 1
	}
	if participants > room.Capacity {
		return model.Booking{}, ErrCapacityExceeded
	}

	b := model.Booking{
		RoomID:           room.ID,
		UserID:           p.UserID,
		Title:            in.Title,
		Description:      in.Description,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: participants,
		Status:           model.BookingConfirmed,
		CheckInStatus:    model.CheckInPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = e.repo.WithRoomLock(ctx, room.ID, func(ctx context.Context, tx Tx) error {
		active, err := tx.ActiveForRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		if hit := FindConflict(room.ID, start, end, active, 0); hit != nil {
			return &ConflictError{With: *hit}
		}
		return tx.Insert(ctx, &b)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.emit(ctx, EventBookingConfirmed, b, room)
	e.invalidate(ctx, ViewBooking, ViewSchedule, ViewDashboard, ViewAnalytics)
	return b, nil
}

// Cancel sets the booking's status to CANCELLED, removing it from
// conflict consideration while keeping it for history. Cancelling an
// already-cancelled booking is a no-op: the booking is returned with
// changed=false so callers can report the state instead of failing.
func (e *Engine) Cancel(ctx context.Context, p Principal, bookingID uint64) (model.Booking, bool, error) {
	b, room, err := e.loadAuthorized(ctx, p, bookingID, policy.ActionCancelOwn, policy.ActionCancelOthers)
	if err != nil {
		return model.Booking{}, false, err
	}
	if b.Status == model.BookingCancelled {
		return b, false, nil
	}

	var (
		out     model.Booking
		changed bool
	)
	err = e.repo.WithRoomLock(ctx, b.RoomID, func(ctx context.Context, tx Tx) error {
		cur, err := lockedBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.BookingCancelled {
			out = cur
			return nil
		}
		cur.Status = model.BookingCancelled
		cur.LastModifiedBy = &p.UserID
		cur.UpdatedAt = e.now().UTC()
		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		out, changed = cur, true
		return nil
	})
	if err != nil {
		return model.Booking{}, false, err
	}
	if !changed {
		return out, false, nil
	}

	e.emit(ctx, EventBookingCancelled, out, room)
	e.invalidate(ctx, ViewBooking, ViewSchedule, ViewDashboard, ViewAnalytics)
	return out, true, nil
}

// Extend lengthens a booking's end time. Shortening is rejected as
// ErrInvalidState (EndEarly covers that); the newly claimed span is
// conflict-checked against every other active booking of the room.
func (e *Engine) Extend(ctx context.Context, p Principal, bookingID uint64, newEnd time.Time) (model.Booking, error) {
	b, _, err := e.loadAuthorized(ctx, p, bookingID, policy.ActionModifyOwn, policy.ActionModifyOthers)
	if err != nil {
		return model.Booking{}, err
	}
	newEnd = newEnd.UTC()

	var out model.Booking
	err = e.repo.WithRoomLock(ctx, b.RoomID, func(ctx context.Context, tx Tx) error {
		cur, err := lockedBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.BookingCancelled {
			return ErrInvalidState
		}
		if cur.RoomID != b.RoomID {
			// Moved to another room while we waited for the lock, which
			// this lock no longer covers. The caller retries with fresh
			// state.
			return ErrInvalidState
		}
		if !newEnd.After(cur.EndTime) {
			return ErrInvalidState
		}
		active, err := tx.ActiveForRoom(ctx, cur.RoomID)
		if err != nil {
			return err
		}
		if hit := FindConflict(cur.RoomID, cur.StartTime, newEnd, active, cur.ID); hit != nil {
			return &ConflictError{With: *hit}
		}
		cur.EndTime = newEnd
		cur.LastModifiedBy = &p.UserID
		cur.UpdatedAt = e.now().UTC()
		out = cur
		return tx.Update(ctx, cur)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.invalidate(ctx, ViewBooking, ViewSchedule, ViewDashboard, ViewAnalytics)
	return out, nil
}

// EndEarly truncates an in-progress booking to end now, freeing the
// rest of its window. Shrinking cannot create an overlap, so no
// conflict check is needed.
func (e *Engine) EndEarly(ctx context.Context, p Principal, bookingID uint64) (model.Booking, error) {
	b, _, err := e.loadAuthorized(ctx, p, bookingID, policy.ActionModifyOwn, policy.ActionModifyOthers)
	if err != nil {
		return model.Booking{}, err
	}

	var out model.Booking
	err = e.repo.WithRoomLock(ctx, b.RoomID, func(ctx context.Context, tx Tx) error {
		cur, err := lockedBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.BookingCancelled {
			return ErrInvalidState
		}
		now := e.now().UTC()
		if !cur.InProgressAt(now) {
			return ErrInvalidState
		}
		cur.EndTime = now
		cur.LastModifiedBy = &p.UserID
		cur.UpdatedAt = now
		out = cur
		return tx.Update(ctx, cur)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.invalidate(ctx, ViewBooking, ViewSchedule, ViewDashboard, ViewAnalytics)
	return out, nil
}

// CheckIn confirms the owner's attendance. Only the booking's owner
// may check in, with no admin override: checking in attests physical
// presence, which an admin cannot do on someone's behalf. The call
// must land within CheckInWindow of the start time, both bounds
// inclusive, and only moves PENDING to CHECKED_IN.
func (e *Engine) CheckIn(ctx context.Context, p Principal, bookingID uint64) (model.Booking, error) {
	if p.UserID == 0 {
		return model.Booking{}, ErrUnauthorized
	}
	b, ok, err := e.repo.FindBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	if b.UserID != p.UserID {
		return model.Booking{}, ErrForbidden
	}

	// Status, window and the write all happen against state re-read
	// under the lock. Writing the pre-lock snapshot back would restore
	// an end time a concurrent EndEarly already truncated, on top of
	// whatever booking claimed the freed span.
	var out model.Booking
	err = e.repo.WithRoomLock(ctx, b.RoomID, func(ctx context.Context, tx Tx) error {
		cur, err := lockedBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.BookingCancelled || cur.CheckInStatus != model.CheckInPending {
			return ErrInvalidState
		}
		now := e.now().UTC()
		if now.Before(cur.StartTime.Add(-CheckInWindow)) || now.After(cur.StartTime.Add(CheckInWindow)) {
			return ErrInvalidState
		}
		cur.CheckInStatus = model.CheckInDone
		cur.UpdatedAt = now
		out = cur
		return tx.Update(ctx, cur)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.invalidate(ctx, ViewBooking, ViewDashboard)
	return out, nil
}

// ModifyInput is a partial update: nil fields keep their current
// values. Room, window and participant changes are re-validated
// against policy, capacity and conflicts as if the booking were being
// placed anew (excluding itself).
type ModifyInput struct {
	Title            *string
	Description      *string
	RoomID           *uint64
	StartTime        *time.Time
	EndTime          *time.Time
	ParticipantCount *uint32
}

// Modify rewrites the provided fields atomically and records the
// caller as lastModifiedBy. If the room changes, the access policy is
// re-checked against the target room before anything is written, so a
// forbidden move leaves the original slot untouched.
func (e *Engine) Modify(ctx context.Context, p Principal, bookingID uint64, in ModifyInput) (model.Booking, error) {
	b, _, err := e.loadAuthorized(ctx, p, bookingID, policy.ActionModifyOwn, policy.ActionModifyOthers)
	if err != nil {
		return model.Booking{}, err
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, ErrInvalidState
	}

	target := b.RoomID
	if in.RoomID != nil {
		target = *in.RoomID
	}
	room, ok, err := e.repo.FindRoom(ctx, target)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		return model.Booking{}, ErrRoomNotFound
	}
	if target != b.RoomID {
		if !room.IsActive {
			return model.Booking{}, ErrRoomInactive
		}
		if !policy.CanAccess(room, p.Role, policy.ActionBook) {
			return model.Booking{}, ErrForbidden
		}
	}

	var out model.Booking
	err = e.repo.WithRoomLock(ctx, target, func(ctx context.Context, tx Tx) error {
		cur, err := lockedBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.BookingCancelled {
			return ErrInvalidState
		}
		if in.RoomID == nil && cur.RoomID != target {
			// Moved to another room while we waited for the lock, which
			// this lock no longer covers. The caller retries with fresh
			// state.
			return ErrInvalidState
		}

		start, end := cur.StartTime, cur.EndTime
		if in.StartTime != nil {
			start = in.StartTime.UTC()
		}
		if in.EndTime != nil {
			end = in.EndTime.UTC()
		}
		if !start.Before(end) {
			return ErrInvalidWindow
		}
		participants := cur.ParticipantCount
		if in.ParticipantCount != nil {
			participants = *in.ParticipantCount
		}
		if participants == 0 {
			participants = 1
		}
		if participants > room.Capacity {
			return ErrCapacityExceeded
		}

		active, err := tx.ActiveForRoom(ctx, target)
		if err != nil {
			return err
		}
		if hit := FindConflict(target, start, end, active, cur.ID); hit != nil {
			return &ConflictError{With: *hit}
		}
		if in.Title != nil {
			cur.Title = *in.Title
		}
		if in.Description != nil {
			cur.Description = in.Description
		}
		cur.RoomID = target
		cur.StartTime = start
		cur.EndTime = end
		cur.ParticipantCount = participants
		cur.LastModifiedBy = &p.UserID
		cur.UpdatedAt = e.now().UTC()
		out = cur
		return tx.Update(ctx, cur)
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.invalidate(ctx, ViewBooking, ViewSchedule, ViewDashboard, ViewAnalytics)
	return out, nil
}

// SweepMissedCheckIns marks check-ins as MISSED once the check-in
// window after the start time has passed without the owner checking
// in. Meant to run periodically from a background ticker.
func (e *Engine) SweepMissedCheckIns(ctx context.Context) (int64, error) {
	cutoff := e.now().UTC().Add(-CheckInWindow)
	return e.repo.MarkMissedCheckIns(ctx, cutoff)
}

// lockedBooking re-reads a booking inside the room lock. The pre-lock
// read only establishes authorization and which room to lock; every
// decision about the booking's current state happens on this copy.
func lockedBooking(ctx context.Context, tx Tx, id uint64) (model.Booking, error) {
	b, ok, err := tx.FindBooking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

// loadAuthorized fetches the booking and its room, then checks the
// caller may act on it: owners need the "own" action for the room
// category, everyone else needs the "others" action (admin-only).
func (e *Engine) loadAuthorized(ctx context.Context, p Principal, bookingID uint64, own, others policy.Action) (model.Booking, model.Room, error) {
	if p.UserID == 0 {
		return model.Booking{}, model.Room{}, ErrUnauthorized
	}
	b, ok, err := e.repo.FindBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, model.Room{}, err
	}
	if !ok {
		return model.Booking{}, model.Room{}, ErrNotFound
	}
	room, ok, err := e.repo.FindRoom(ctx, b.RoomID)
	if err != nil {
		return model.Booking{}, model.Room{}, err
	}
	if !ok {
		return model.Booking{}, model.Room{}, ErrRoomNotFound
	}
	action := others
	if b.UserID == p.UserID {
		action = own
	}
	if !policy.CanAccess(room, p.Role, action) {
		return model.Booking{}, model.Room{}, ErrForbidden
	}
	return b, room, nil
}

// emit publishes a booking event. Failures are logged and swallowed:
// the booking is the source of truth, the notification is best-effort.
func (e *Engine) emit(ctx context.Context, evType string, b model.Booking, room model.Room) {
	if e.notifier == nil {
		return
	}
	ev := Event{Type: evType, Booking: b, RoomName: room.Name}
	if e.users != nil {
		if u, ok, err := e.users.FindUser(ctx, b.UserID); err == nil && ok {
			ev.UserName = u.Name
			ev.UserEmail = u.Email
		}
	}
	if err := e.notifier.PublishBookingEvent(ctx, ev); err != nil {
		log.Printf("booking: publish %s for booking %d failed: %v", evType, b.ID, err)
	}
}

func (e *Engine) invalidate(ctx context.Context, views ...string) {
	if e.views != nil {
		e.views.Invalidate(ctx, views...)
	}
}
