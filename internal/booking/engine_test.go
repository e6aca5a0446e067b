package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

// memRepo is an in-memory Repository. WithRoomLock holds a per-room
// mutex, mirroring the row lock the MySQL implementation takes, so the
// concurrency tests exercise the same serialization guarantee.
type memRepo struct {
	mu       sync.Mutex
	locks    map[uint64]*sync.Mutex
	rooms    map[uint64]model.Room
	bookings map[uint64]model.Booking
	nextID   uint64
}

func newMemRepo(rooms ...model.Room) *memRepo {
	r := &memRepo{
		locks:    make(map[uint64]*sync.Mutex),
		rooms:    make(map[uint64]model.Room),
		bookings: make(map[uint64]model.Booking),
	}
	for _, room := range rooms {
		r.rooms[room.ID] = room
		r.locks[room.ID] = &sync.Mutex{}
	}
	return r
}

func (r *memRepo) FindRoom(_ context.Context, id uint64) (model.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok, nil
}

func (r *memRepo) FindBooking(_ context.Context, id uint64) (model.Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	return b, ok, nil
}

func (r *memRepo) WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx Tx) error) error {
	r.mu.Lock()
	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx, &memTx{repo: r})
}

func (r *memRepo) MarkMissedCheckIns(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, b := range r.bookings {
		if b.Status == model.BookingConfirmed && b.CheckInStatus == model.CheckInPending && b.StartTime.Before(cutoff) {
			b.CheckInStatus = model.CheckInMissed
			r.bookings[id] = b
			n++
		}
	}
	return n, nil
}

type memTx struct{ repo *memRepo }

func (t *memTx) FindBooking(_ context.Context, id uint64) (model.Booking, bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	b, ok := t.repo.bookings[id]
	return b, ok, nil
}

func (t *memTx) ActiveForRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	var out []model.Booking
	for _, b := range t.repo.bookings {
		if b.RoomID == roomID && b.Status != model.BookingCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) Insert(_ context.Context, b *model.Booking) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.nextID++
	b.ID = t.repo.nextID
	t.repo.bookings[b.ID] = *b
	return nil
}

func (t *memTx) Update(_ context.Context, b model.Booking) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.bookings[b.ID] = b
	return nil
}

type memUsers struct{ users map[uint64]model.User }

func (m *memUsers) FindUser(_ context.Context, id uint64) (model.User, bool, error) {
	u, ok := m.users[id]
	return u, ok, nil
}

type recNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recNotifier) PublishBookingEvent(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

type recViews struct {
	mu    sync.Mutex
	views []string
}

func (v *recViews) Invalidate(_ context.Context, views ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.views = append(v.views, views...)
}

var (
	baseNow = time.Date(2025, time.April, 7, 8, 0, 0, 0, time.UTC)

	publicRoom  = model.Room{ID: 1, Name: "Aster", Category: model.RoomPublic, Capacity: 8, IsActive: true}
	specialRoom = model.Room{ID: 2, Name: "Boardroom", Category: model.RoomSpecial, Capacity: 20, IsActive: true}
	closedRoom  = model.Room{ID: 3, Name: "Storage", Category: model.RoomPublic, Capacity: 4, IsActive: false}

	employee = Principal{UserID: 10, Role: model.RoleEmployee}
	other    = Principal{UserID: 11, Role: model.RoleEmployee}
	admin    = Principal{UserID: 20, Role: model.RoleAdmin}
)

func newTestEngine(t *testing.T) (*Engine, *memRepo, *recNotifier, *recViews) {
	t.Helper()
	repo := newMemRepo(publicRoom, specialRoom, closedRoom)
	users := &memUsers{users: map[uint64]model.User{
		10: {ID: 10, Name: "Dewi", Email: "dewi@example.com"},
	}}
	notifier := &recNotifier{}
	views := &recViews{}
	eng := NewEngine(repo, users, notifier, views, func() time.Time { return baseNow })
	return eng, repo, notifier, views
}

func window(startOffset, endOffset time.Duration) (time.Time, time.Time) {
	return baseNow.Add(startOffset), baseNow.Add(endOffset)
}

func mustCreate(t *testing.T, eng *Engine, p Principal, roomID uint64, startOffset, endOffset time.Duration) model.Booking {
	t.Helper()
	start, end := window(startOffset, endOffset)
	b, err := eng.Create(context.Background(), p, CreateInput{
		RoomID:    roomID,
		Title:     "standup",
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func TestCreateBooking(t *testing.T) {
	eng, _, notifier, views := newTestEngine(t)
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	if b.ID == 0 {
		t.Error("booking ID not assigned")
	}
	if b.Status != model.BookingConfirmed {
		t.Errorf("status = %s, want CONFIRMED", b.Status)
	}
	if b.CheckInStatus != model.CheckInPending {
		t.Errorf("check-in = %s, want PENDING", b.CheckInStatus)
	}
	if b.ParticipantCount != 1 {
		t.Errorf("participants = %d, want default 1", b.ParticipantCount)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("got %d events, want 1", len(notifier.events))
	}
	ev := notifier.events[0]
	if ev.Type != EventBookingConfirmed || ev.RoomName != "Aster" || ev.UserEmail != "dewi@example.com" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(views.views) == 0 {
		t.Error("no views invalidated")
	}
}

func TestCreateRejectsBadWindows(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"start in past", baseNow.Add(-time.Minute), baseNow.Add(time.Hour)},
		{"end before start", baseNow.Add(2 * time.Hour), baseNow.Add(time.Hour)},
		{"zero width", baseNow.Add(time.Hour), baseNow.Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Create(ctx, employee, CreateInput{RoomID: 1, Title: "x", StartTime: tc.start, EndTime: tc.end})
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("err = %v, want ErrInvalidWindow", err)
			}
		})
	}
}

func TestCreateCapacity(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	start, end := window(time.Hour, 2*time.Hour)

	// Exactly at capacity is fine.
	_, err := eng.Create(ctx, employee, CreateInput{RoomID: 1, Title: "x", StartTime: start, EndTime: end, ParticipantCount: 8})
	if err != nil {
		t.Fatalf("at capacity: %v", err)
	}
	// One over is not.
	_, err = eng.Create(ctx, employee, CreateInput{RoomID: 1, Title: "x", StartTime: end, EndTime: end.Add(time.Hour), ParticipantCount: 9})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestCreatePolicyAndRoomState(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	start, end := window(time.Hour, 2*time.Hour)

	if _, err := eng.Create(ctx, employee, CreateInput{RoomID: 2, Title: "x", StartTime: start, EndTime: end}); !errors.Is(err, ErrForbidden) {
		t.Errorf("employee in special room: err = %v, want ErrForbidden", err)
	}
	if _, err := eng.Create(ctx, admin, CreateInput{RoomID: 2, Title: "x", StartTime: start, EndTime: end}); err != nil {
		t.Errorf("admin in special room: %v", err)
	}
	if _, err := eng.Create(ctx, employee, CreateInput{RoomID: 3, Title: "x", StartTime: start, EndTime: end}); !errors.Is(err, ErrRoomInactive) {
		t.Errorf("inactive room: err = %v, want ErrRoomInactive", err)
	}
	if _, err := eng.Create(ctx, employee, CreateInput{RoomID: 99, Title: "x", StartTime: start, EndTime: end}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("unknown room: err = %v, want ErrRoomNotFound", err)
	}
	if _, err := eng.Create(ctx, Principal{}, CreateInput{RoomID: 1, Title: "x", StartTime: start, EndTime: end}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous: err = %v, want ErrUnauthorized", err)
	}
}

func TestCreateConflicts(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	existing := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	start, end := window(90*time.Minute, 3*time.Hour)
	_, err := eng.Create(ctx, other, CreateInput{RoomID: 1, Title: "x", StartTime: start, EndTime: end})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.With.ID != existing.ID {
		t.Errorf("conflicting booking = %d, want %d", conflict.With.ID, existing.ID)
	}
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Error("ConflictError must unwrap to ErrSlotUnavailable")
	}

	// Back-to-back with the existing booking is allowed.
	if _, err := eng.Create(ctx, other, CreateInput{RoomID: 1, Title: "x", StartTime: existing.EndTime, EndTime: existing.EndTime.Add(time.Hour)}); err != nil {
		t.Errorf("touching booking rejected: %v", err)
	}
	// Same window in another room is allowed.
	if _, err := eng.Create(ctx, admin, CreateInput{RoomID: 2, Title: "x", StartTime: existing.StartTime, EndTime: existing.EndTime}); err != nil {
		t.Errorf("same window other room rejected: %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	eng, repo, _, _ := newTestEngine(t)
	start, end := window(time.Hour, 2*time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Create(context.Background(), Principal{UserID: uint64(100 + i), Role: model.RoleEmployee}, CreateInput{
				RoomID: 1, Title: "race", StartTime: start, EndTime: end,
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotUnavailable):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d creates won the slot, want exactly 1", won)
	}
	if got := len(repo.bookings); got != 1 {
		t.Fatalf("%d bookings stored, want 1", got)
	}
}

func TestCancel(t *testing.T) {
	eng, _, notifier, _ := newTestEngine(t)
	ctx := context.Background()
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	cancelled, changed, err := eng.Cancel(ctx, employee, b.ID)
	if err != nil || !changed {
		t.Fatalf("cancel: changed=%v err=%v", changed, err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// Second cancel reports the state without failing.
	again, changed, err := eng.Cancel(ctx, employee, b.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if changed {
		t.Error("second cancel must report changed=false")
	}
	if again.Status != model.BookingCancelled {
		t.Errorf("status = %s, want CANCELLED", again.Status)
	}

	// The slot is free again.
	if _, err := eng.Create(ctx, other, CreateInput{RoomID: 1, Title: "x", StartTime: b.StartTime, EndTime: b.EndTime}); err != nil {
		t.Errorf("rebooking cancelled slot: %v", err)
	}

	var cancelEvents int
	for _, ev := range notifier.events {
		if ev.Type == EventBookingCancelled {
			cancelEvents++
		}
	}
	if cancelEvents != 1 {
		t.Errorf("%d cancellation events, want 1", cancelEvents)
	}
}

func TestCancelOwnership(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	if _, _, err := eng.Cancel(ctx, other, b.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other employee cancelling: err = %v, want ErrForbidden", err)
	}
	if _, changed, err := eng.Cancel(ctx, admin, b.ID); err != nil || !changed {
		t.Errorf("admin cancelling: changed=%v err=%v", changed, err)
	}
}

func TestExtend(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)
	blocker := mustCreate(t, eng, other, 1, 3*time.Hour, 4*time.Hour)

	// Extending into free space works.
	ext, err := eng.Extend(ctx, employee, b.ID, b.EndTime.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !ext.EndTime.Equal(b.EndTime.Add(30 * time.Minute)) {
		t.Errorf("end = %v, want %v", ext.EndTime, b.EndTime.Add(30*time.Minute))
	}

	// Shortening is not an extension.
	if _, err := eng.Extend(ctx, employee, b.ID, b.EndTime); !errors.Is(err, ErrInvalidState) {
		t.Errorf("shorten via extend: err = %v, want ErrInvalidState", err)
	}

	// Extending into the blocker conflicts.
	_, err = eng.Extend(ctx, employee, b.ID, blocker.StartTime.Add(time.Minute))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("extend into blocker: err = %v, want ErrSlotUnavailable", err)
	}
	// Extending exactly up to the blocker is fine.
	if _, err := eng.Extend(ctx, employee, b.ID, blocker.StartTime); err != nil {
		t.Errorf("extend up to blocker: %v", err)
	}
}

func TestEndEarly(t *testing.T) {
	eng, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	future := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	// Not started yet.
	if _, err := eng.EndEarly(ctx, employee, future.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("end early before start: err = %v, want ErrInvalidState", err)
	}

	// Seed an in-progress booking directly.
	running := model.Booking{
		ID: 50, RoomID: 1, UserID: employee.UserID, Title: "running",
		StartTime: baseNow.Add(-time.Hour), EndTime: baseNow.Add(time.Hour),
		Status: model.BookingConfirmed, CheckInStatus: model.CheckInDone,
	}
	repo.bookings[running.ID] = running

	ended, err := eng.EndEarly(ctx, employee, running.ID)
	if err != nil {
		t.Fatalf("end early: %v", err)
	}
	if !ended.EndTime.Equal(baseNow) {
		t.Errorf("end = %v, want now %v", ended.EndTime, baseNow)
	}
	// The freed tail is bookable again.
	if _, err := eng.Create(ctx, other, CreateInput{RoomID: 1, Title: "x", StartTime: baseNow.Add(10 * time.Minute), EndTime: baseNow.Add(50 * time.Minute)}); err != nil {
		t.Errorf("booking freed tail: %v", err)
	}
}

func TestCheckInWindow(t *testing.T) {
	cases := []struct {
		name   string
		offset time.Duration // now relative to start
		wantOK bool
	}{
		{"15m before start", -CheckInWindow, true},
		{"at start", 0, true},
		{"15m after start", CheckInWindow, true},
		{"16m before start", -CheckInWindow - time.Minute, false},
		{"16m after start", CheckInWindow + time.Minute, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemRepo(publicRoom)
			start := baseNow.Add(2 * time.Hour)
			repo.bookings[1] = model.Booking{
				ID: 1, RoomID: 1, UserID: employee.UserID, Title: "x",
				StartTime: start, EndTime: start.Add(time.Hour),
				Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
			}
			eng := NewEngine(repo, nil, nil, nil, func() time.Time { return start.Add(tc.offset) })

			b, err := eng.CheckIn(context.Background(), employee, 1)
			if tc.wantOK {
				if err != nil {
					t.Fatalf("check-in: %v", err)
				}
				if b.CheckInStatus != model.CheckInDone {
					t.Errorf("check-in status = %s, want CHECKED_IN", b.CheckInStatus)
				}
			} else if !errors.Is(err, ErrInvalidState) {
				t.Errorf("err = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestCheckInOwnerOnly(t *testing.T) {
	eng, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	start := baseNow.Add(CheckInWindow / 2)
	repo.bookings[1] = model.Booking{
		ID: 1, RoomID: 1, UserID: employee.UserID, Title: "x",
		StartTime: start, EndTime: start.Add(time.Hour),
		Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
	}

	// Even an admin cannot attest someone else's presence.
	if _, err := eng.CheckIn(ctx, admin, 1); !errors.Is(err, ErrForbidden) {
		t.Errorf("admin check-in: err = %v, want ErrForbidden", err)
	}
	if _, err := eng.CheckIn(ctx, employee, 1); err != nil {
		t.Fatalf("owner check-in: %v", err)
	}
	// Only PENDING can transition.
	if _, err := eng.CheckIn(ctx, employee, 1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second check-in: err = %v, want ErrInvalidState", err)
	}
}

func TestModify(t *testing.T) {
	eng, repo, _, _ := newTestEngine(t)
	ctx := context.Background()
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)

	title := "retro"
	got, err := eng.Modify(ctx, employee, b.ID, ModifyInput{Title: &title})
	if err != nil {
		t.Fatalf("modify title: %v", err)
	}
	if got.Title != "retro" {
		t.Errorf("title = %q, want retro", got.Title)
	}
	if got.LastModifiedBy == nil || *got.LastModifiedBy != employee.UserID {
		t.Error("lastModifiedBy not recorded")
	}

	// Moving to a special room as an employee fails before any write.
	target := uint64(2)
	if _, err := eng.Modify(ctx, employee, b.ID, ModifyInput{RoomID: &target}); !errors.Is(err, ErrForbidden) {
		t.Errorf("move to special room: err = %v, want ErrForbidden", err)
	}
	if repo.bookings[b.ID].RoomID != 1 {
		t.Error("forbidden move must leave the booking untouched")
	}

	// Keeping its own window does not conflict with itself.
	newStart := b.StartTime.Add(15 * time.Minute)
	if _, err := eng.Modify(ctx, employee, b.ID, ModifyInput{StartTime: &newStart}); err != nil {
		t.Errorf("shift within own window: %v", err)
	}

	// Window crossing another booking conflicts.
	blocker := mustCreate(t, eng, other, 1, 3*time.Hour, 4*time.Hour)
	badEnd := blocker.StartTime.Add(time.Minute)
	if _, err := eng.Modify(ctx, employee, b.ID, ModifyInput{EndTime: &badEnd}); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("modify into blocker: err = %v, want ErrSlotUnavailable", err)
	}

	// Participants above the target room capacity fail.
	toomany := uint32(9)
	if _, err := eng.Modify(ctx, employee, b.ID, ModifyInput{ParticipantCount: &toomany}); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("over capacity: err = %v, want ErrCapacityExceeded", err)
	}
}

func TestModifyCancelledBooking(t *testing.T) {
	eng, _, _, _ := newTestEngine(t)
	ctx := context.Background()
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)
	if _, _, err := eng.Cancel(ctx, employee, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	title := "zombie"
	if _, err := eng.Modify(ctx, employee, b.ID, ModifyInput{Title: &title}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("modify cancelled: err = %v, want ErrInvalidState", err)
	}
	if _, err := eng.Extend(ctx, employee, b.ID, b.EndTime.Add(time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("extend cancelled: err = %v, want ErrInvalidState", err)
	}
}

func TestSweepMissedCheckIns(t *testing.T) {
	eng, repo, _, _ := newTestEngine(t)
	repo.bookings[1] = model.Booking{
		ID: 1, RoomID: 1, UserID: 10, StartTime: baseNow.Add(-20 * time.Minute), EndTime: baseNow.Add(time.Hour),
		Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
	}
	repo.bookings[2] = model.Booking{
		ID: 2, RoomID: 1, UserID: 10, StartTime: baseNow.Add(-10 * time.Minute), EndTime: baseNow.Add(time.Hour),
		Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
	}
	repo.bookings[3] = model.Booking{
		ID: 3, RoomID: 1, UserID: 10, StartTime: baseNow.Add(-20 * time.Minute), EndTime: baseNow.Add(time.Hour),
		Status: model.BookingCancelled, CheckInStatus: model.CheckInPending,
	}

	n, err := eng.SweepMissedCheckIns(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if got := repo.bookings[1].CheckInStatus; got != model.CheckInMissed {
		t.Errorf("old pending booking = %s, want MISSED", got)
	}
	if got := repo.bookings[2].CheckInStatus; got != model.CheckInPending {
		t.Errorf("recent booking = %s, want still PENDING", got)
	}
	if got := repo.bookings[3].CheckInStatus; got != model.CheckInPending {
		t.Errorf("cancelled booking = %s, want untouched", got)
	}
}

// staleReadRepo serves one FindBooking from a captured snapshot and
// runs a mutation before returning, so the caller proceeds to the room
// lock holding state another committed operation has already replaced.
type staleReadRepo struct {
	*memRepo
	staleID  uint64
	snapshot model.Booking
	mutate   func()
	served   bool
}

func (r *staleReadRepo) FindBooking(ctx context.Context, id uint64) (model.Booking, bool, error) {
	if !r.served && id == r.staleID {
		r.served = true
		if r.mutate != nil {
			r.mutate()
		}
		return r.snapshot, true, nil
	}
	return r.memRepo.FindBooking(ctx, id)
}

func TestCheckInKeepsConcurrentlyEndedWindow(t *testing.T) {
	repo := newMemRepo(publicRoom)
	start := baseNow.Add(-5 * time.Minute)
	seed := model.Booking{
		ID: 1, RoomID: 1, UserID: employee.UserID, Title: "sync",
		StartTime: start, EndTime: start.Add(time.Hour),
		Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
	}
	repo.bookings[1] = seed
	repo.nextID = 1

	stale := &staleReadRepo{memRepo: repo, staleID: 1, snapshot: seed}
	eng := NewEngine(stale, nil, nil, nil, func() time.Time { return baseNow })

	// Between the check-in's first read and its locked write, the owner
	// ends the meeting early and another user books the freed span.
	freedStart, freedEnd := baseNow.Add(10*time.Minute), baseNow.Add(40*time.Minute)
	stale.mutate = func() {
		if _, err := eng.EndEarly(context.Background(), employee, 1); err != nil {
			t.Fatalf("end early: %v", err)
		}
		if _, err := eng.Create(context.Background(), other, CreateInput{
			RoomID: 1, Title: "grabbed", StartTime: freedStart, EndTime: freedEnd,
		}); err != nil {
			t.Fatalf("booking freed span: %v", err)
		}
	}

	got, err := eng.CheckIn(context.Background(), employee, 1)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if got.CheckInStatus != model.CheckInDone {
		t.Errorf("check-in status = %s, want CHECKED_IN", got.CheckInStatus)
	}
	if !got.EndTime.Equal(baseNow) {
		t.Errorf("end = %v, want early end %v preserved", got.EndTime, baseNow)
	}
	// The checked-in booking must not overlap the one that claimed the
	// freed span.
	x := repo.bookings[1]
	if x.StartTime.Before(freedEnd) && freedStart.Before(x.EndTime) {
		t.Errorf("bookings overlap: [%v,%v) vs [%v,%v)", x.StartTime, x.EndTime, freedStart, freedEnd)
	}
}

func TestCancelKeepsConcurrentModify(t *testing.T) {
	repo := newMemRepo(publicRoom)
	stale := &staleReadRepo{memRepo: repo}
	eng := NewEngine(stale, nil, nil, nil, func() time.Time { return baseNow })
	b := mustCreate(t, eng, employee, 1, time.Hour, 2*time.Hour)
	stale.staleID, stale.snapshot = b.ID, b

	// A modify commits between the cancel's read and its locked write.
	title := "moved"
	newStart := b.StartTime.Add(30 * time.Minute)
	newEnd := b.EndTime.Add(30 * time.Minute)
	stale.mutate = func() {
		if _, err := eng.Modify(context.Background(), employee, b.ID, ModifyInput{
			Title: &title, StartTime: &newStart, EndTime: &newEnd,
		}); err != nil {
			t.Fatalf("modify: %v", err)
		}
	}

	got, changed, err := eng.Cancel(context.Background(), employee, b.ID)
	if err != nil || !changed {
		t.Fatalf("cancel: changed=%v err=%v", changed, err)
	}
	if got.Status != model.BookingCancelled {
		t.Errorf("status = %s, want CANCELLED", got.Status)
	}
	if got.Title != "moved" || !got.StartTime.Equal(newStart) || !got.EndTime.Equal(newEnd) {
		t.Errorf("cancel overwrote the concurrent modify: %+v", got)
	}
}

func TestExtendAfterConcurrentRoomMove(t *testing.T) {
	repo := newMemRepo(publicRoom, specialRoom)
	stale := &staleReadRepo{memRepo: repo}
	eng := NewEngine(stale, nil, nil, nil, func() time.Time { return baseNow })
	b := mustCreate(t, eng, admin, 1, time.Hour, 2*time.Hour)
	stale.staleID, stale.snapshot = b.ID, b

	// The booking moves rooms between the extend's read and its lock.
	room2 := uint64(2)
	stale.mutate = func() {
		if _, err := eng.Modify(context.Background(), admin, b.ID, ModifyInput{RoomID: &room2}); err != nil {
			t.Fatalf("move: %v", err)
		}
	}

	_, err := eng.Extend(context.Background(), admin, b.ID, b.EndTime.Add(time.Hour))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if got := repo.bookings[b.ID]; got.RoomID != 2 || !got.EndTime.Equal(b.EndTime) {
		t.Errorf("stale extend disturbed the moved booking: %+v", got)
	}
}
