package booking

import (
	"testing"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

func at(h, m int) time.Time {
	return time.Date(2025, time.April, 7, h, m, 0, 0, time.UTC)
}

func TestFindConflict(t *testing.T) {
	existing := []model.Booking{
		{ID: 1, RoomID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: model.BookingConfirmed},
		{ID: 2, RoomID: 1, StartTime: at(11, 0), EndTime: at(12, 0), Status: model.BookingCancelled},
		{ID: 3, RoomID: 2, StartTime: at(9, 0), EndTime: at(17, 0), Status: model.BookingConfirmed},
	}

	cases := []struct {
		name       string
		roomID     uint64
		start, end time.Time
		exclude    uint64
		wantID     uint64 // 0 means no conflict
	}{
		{"full overlap", 1, at(9, 0), at(10, 0), 0, 1},
		{"partial overlap at head", 1, at(8, 30), at(9, 30), 0, 1},
		{"partial overlap at tail", 1, at(9, 30), at(10, 30), 0, 1},
		{"contained", 1, at(9, 15), at(9, 45), 0, 1},
		{"containing", 1, at(8, 0), at(11, 0), 0, 1},
		{"touching end is free", 1, at(10, 0), at(11, 0), 0, 0},
		{"touching start is free", 1, at(8, 0), at(9, 0), 0, 0},
		{"cancelled ignored", 1, at(11, 0), at(12, 0), 0, 0},
		{"other room ignored", 3, at(9, 0), at(10, 0), 0, 0},
		{"exclude self", 1, at(9, 0), at(10, 30), 1, 0},
		{"exclude other still conflicts", 1, at(9, 0), at(10, 0), 2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hit := FindConflict(tc.roomID, tc.start, tc.end, existing, tc.exclude)
			switch {
			case tc.wantID == 0 && hit != nil:
				t.Errorf("unexpected conflict with booking %d", hit.ID)
			case tc.wantID != 0 && hit == nil:
				t.Errorf("expected conflict with booking %d, got none", tc.wantID)
			case tc.wantID != 0 && hit.ID != tc.wantID:
				t.Errorf("conflict with booking %d, want %d", hit.ID, tc.wantID)
			}
		})
	}
}

func TestHasConflictMatchesFindConflict(t *testing.T) {
	existing := []model.Booking{
		{ID: 1, RoomID: 1, StartTime: at(9, 0), EndTime: at(10, 0), Status: model.BookingConfirmed},
	}
	if !HasConflict(1, at(9, 30), at(10, 30), existing, 0) {
		t.Error("expected conflict")
	}
	if HasConflict(1, at(10, 0), at(10, 30), existing, 0) {
		t.Error("touching windows must not conflict")
	}
}
