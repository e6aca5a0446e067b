package sheets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
)

type fakeSource struct {
	rows     [][]string
	appended [][]string
}

func (f *fakeSource) FetchRows(context.Context) ([][]string, error) { return f.rows, nil }
func (f *fakeSource) AppendRows(_ context.Context, rows [][]string) error {
	f.appended = append(f.appended, rows...)
	return nil
}

type fakeCatalog struct{ rooms []model.Room }

func (f *fakeCatalog) ListAll(context.Context) ([]model.Room, error) { return f.rooms, nil }

type fakeUsers struct{ byEmail map[string]model.User }

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (model.User, bool, error) {
	u, ok := f.byEmail[email]
	return u, ok, nil
}

type fakeStore struct {
	existing map[string]bool
	inserted []model.Booking
	unsynced []repository.SyncRow
	stamped  map[uint64]string
}

func (f *fakeStore) SheetRowExists(_ context.Context, rowID string) (bool, error) {
	return f.existing[rowID], nil
}
func (f *fakeStore) InsertSynced(_ context.Context, b *model.Booking) error {
	b.ID = uint64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *b)
	return nil
}
func (f *fakeStore) ListUnsynced(context.Context) ([]repository.SyncRow, error) {
	return f.unsynced, nil
}
func (f *fakeStore) StampSheetRowID(_ context.Context, bookingID uint64, rowID string) error {
	if f.stamped == nil {
		f.stamped = make(map[uint64]string)
	}
	f.stamped[bookingID] = rowID
	return nil
}

func newTestReconciler(source *fakeSource, store *fakeStore) *Reconciler {
	catalog := &fakeCatalog{rooms: []model.Room{
		{ID: 1, Name: "Aster", Category: model.RoomPublic, Capacity: 4, IsActive: true},
		{ID: 2, Name: "Boardroom A", Category: model.RoomSpecial, Capacity: 12, IsActive: true},
	}}
	users := &fakeUsers{byEmail: map[string]model.User{
		"dewi@example.com": {ID: 10, Name: "Dewi", Email: "dewi@example.com"},
	}}
	if store.existing == nil {
		store.existing = make(map[string]bool)
	}
	return NewReconciler(catalog, users, store, source)
}

func TestPullImportsExternalRow(t *testing.T) {
	source := &fakeSource{rows: [][]string{
		{"9", "aster", "", "dewi@example.com", "Dewi", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z", "99", "confirmed"},
	}}
	store := &fakeStore{}
	r := newTestReconciler(source, store)

	sum, err := r.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if sum.Synced != 1 || sum.Skipped != 0 || sum.Errors != 0 {
		t.Fatalf("summary = %+v, want 1 synced", sum)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d bookings, want 1", len(store.inserted))
	}
	b := store.inserted[0]
	if b.RoomID != 1 {
		t.Errorf("room = %d, want fuzzy match on Aster", b.RoomID)
	}
	if b.UserID != 10 {
		t.Errorf("user = %d, want 10", b.UserID)
	}
	if b.SheetRowID == nil || *b.SheetRowID != "sheet_9" {
		t.Errorf("sheet row id = %v, want sheet_9", b.SheetRowID)
	}
	if b.Title != "Meeting - Aster" {
		t.Errorf("title = %q, want default", b.Title)
	}
	if b.ParticipantCount != 4 {
		t.Errorf("participants = %d, want clamped to capacity 4", b.ParticipantCount)
	}
	if b.Status != model.BookingConfirmed || b.CheckInStatus != model.CheckInPending {
		t.Errorf("status = %s/%s, want CONFIRMED/PENDING", b.Status, b.CheckInStatus)
	}
	want := time.Date(2025, time.April, 7, 2, 0, 0, 0, time.UTC)
	if !b.StartTime.Equal(want) {
		t.Errorf("start = %v, want %v", b.StartTime, want)
	}
}

func TestPullSkipRules(t *testing.T) {
	source := &fakeSource{rows: [][]string{
		// Already imported.
		{"1", "Aster", "", "dewi@example.com", "", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z"},
		// Room cannot be matched.
		{"2", "Atlantis", "", "dewi@example.com", "", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z"},
		// User does not exist locally.
		{"3", "Aster", "", "ghost@example.com", "", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z"},
		// Row this application pushed earlier.
		{"app_x", "Aster", "", "dewi@example.com", "", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z"},
	}}
	store := &fakeStore{existing: map[string]bool{"sheet_1": true, "app_x": true}}
	r := newTestReconciler(source, store)

	sum, err := r.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if sum.Skipped != 4 || sum.Synced != 0 || sum.Errors != 0 {
		t.Fatalf("summary = %+v, want 4 skipped", sum)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("inserted %d bookings, want 0", len(store.inserted))
	}
}

func TestPullMalformedRowsCountAsErrors(t *testing.T) {
	source := &fakeSource{rows: [][]string{
		{"1", "Aster", "", "dewi@example.com", "", "yesterday-ish", "2025-04-07T03:00:00Z"},
		{"2", "Aster", "", "dewi@example.com", "", "2025-04-07T03:00:00Z", "2025-04-07T02:00:00Z"}, // end before start
		{"3", "Aster", "", "dewi@example.com", ""}, // missing times
		// A good row after the bad ones still imports.
		{"4", "Aster", "Sync", "dewi@example.com", "", "2025-04-08 09:00:00", "2025-04-08 10:00:00", "2"},
	}}
	store := &fakeStore{}
	r := newTestReconciler(source, store)

	sum, err := r.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if sum.Errors != 3 || sum.Synced != 1 {
		t.Fatalf("summary = %+v, want 3 errors and 1 synced", sum)
	}
	if got := store.inserted[0].ParticipantCount; got != 2 {
		t.Errorf("participants = %d, want 2", got)
	}
}

func TestPullFallbackDedupKey(t *testing.T) {
	row := []string{"", "Aster", "", "dewi@example.com", "", "2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z"}
	source := &fakeSource{rows: [][]string{row}}
	store := &fakeStore{}
	r := newTestReconciler(source, store)

	if _, err := r.Pull(context.Background()); err != nil {
		t.Fatalf("pull: %v", err)
	}
	got := *store.inserted[0].SheetRowID
	want := "sheet_Aster_2025_04_07T02_00_00Z"
	if got != want {
		t.Errorf("fallback key = %q, want %q", got, want)
	}

	// A second pass sees the stored key and skips the row.
	store.existing[got] = true
	sum, err := r.Pull(context.Background())
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if sum.Skipped != 1 || sum.Synced != 0 {
		t.Fatalf("second pass summary = %+v, want 1 skipped", sum)
	}
}

func TestPushStampsRowIDs(t *testing.T) {
	start := time.Date(2025, time.April, 7, 2, 0, 0, 0, time.UTC)
	store := &fakeStore{unsynced: []repository.SyncRow{
		{BookingID: 5, RoomName: "Aster", Title: "standup", UserEmail: "dewi@example.com", UserName: "Dewi",
			StartTime: start, EndTime: start.Add(time.Hour), ParticipantCount: 3, Status: "CONFIRMED"},
		{BookingID: 6, RoomName: "Boardroom A", Title: "review", UserEmail: "dewi@example.com", UserName: "Dewi",
			StartTime: start.Add(2 * time.Hour), EndTime: start.Add(3 * time.Hour), ParticipantCount: 8, Status: "CONFIRMED"},
	}}
	source := &fakeSource{}
	r := newTestReconciler(source, store)
	seq := 0
	r.newRowID = func() string { seq++; return fmt.Sprintf("app_%d", seq) }

	pushed, err := r.Push(context.Background())
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if pushed != 2 {
		t.Fatalf("pushed = %d, want 2", pushed)
	}
	if len(source.appended) != 2 {
		t.Fatalf("appended %d rows, want 2", len(source.appended))
	}
	first := source.appended[0]
	want := []string{"app_1", "Aster", "standup", "dewi@example.com", "Dewi",
		"2025-04-07T02:00:00Z", "2025-04-07T03:00:00Z", "3", "CONFIRMED"}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("row cell %d = %q, want %q", i, first[i], want[i])
		}
	}
	if store.stamped[5] != "app_1" || store.stamped[6] != "app_2" {
		t.Errorf("stamped = %v, want app_1/app_2", store.stamped)
	}
}

func TestPushNothingPending(t *testing.T) {
	source := &fakeSource{}
	store := &fakeStore{}
	r := newTestReconciler(source, store)

	pushed, err := r.Push(context.Background())
	if err != nil || pushed != 0 {
		t.Fatalf("push = %d, %v; want 0, nil", pushed, err)
	}
	if len(source.appended) != 0 {
		t.Error("nothing should be appended")
	}
}
