package timezone

import (
	"testing"
	"time"
)

func TestLocationDefaultsToJakarta(t *testing.T) {
	if got := Location().String(); got != DefaultZone {
		t.Fatalf("Location() = %s, want %s", got, DefaultZone)
	}
}

func TestToInstantRoundTrip(t *testing.T) {
	// 07:00 WIB is 00:00 UTC; Jakarta is UTC+7 year-round.
	inst := ToInstant(2025, time.March, 10, 7, 0)
	want := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if !inst.Equal(want) {
		t.Fatalf("ToInstant = %v, want %v", inst, want)
	}
	local := ToLocal(inst)
	if local.Hour() != 7 || local.Minute() != 0 {
		t.Fatalf("ToLocal = %02d:%02d, want 07:00", local.Hour(), local.Minute())
	}
}

func TestStartEndOfDay(t *testing.T) {
	// 01:30 UTC on March 10 is 08:30 WIB the same local day.
	at := time.Date(2025, time.March, 10, 1, 30, 0, 0, time.UTC)
	start := StartOfDay(at)
	end := EndOfDay(at)

	wantStart := time.Date(2025, time.March, 9, 17, 0, 0, 0, time.UTC) // local midnight
	if !start.Equal(wantStart) {
		t.Fatalf("StartOfDay = %v, want %v", start, wantStart)
	}
	if got := end.Sub(start); got != 24*time.Hour {
		t.Fatalf("day length = %v, want 24h", got)
	}
	if !at.After(start) || !at.Before(end) {
		t.Fatalf("instant %v not inside [%v, %v)", at, start, end)
	}
}

func TestDefaultDaySlots(t *testing.T) {
	day := ToInstant(2025, time.June, 2, 12, 0)
	slots := DefaultDaySlots(day)

	if len(slots) != 28 {
		t.Fatalf("got %d slots, want 28", len(slots))
	}
	if slots[0].Label != "07:00" {
		t.Errorf("first label = %s, want 07:00", slots[0].Label)
	}
	if last := slots[len(slots)-1].Label; last != "20:30" {
		t.Errorf("last label = %s, want 20:30", last)
	}
	// 07:00 WIB on June 2 is 00:00 UTC.
	wantFirst := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	if !slots[0].Start.Equal(wantFirst) {
		t.Errorf("first start = %v, want %v", slots[0].Start, wantFirst)
	}

	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.Equal(slots[i-1].End) {
			t.Fatalf("slot %d not back-to-back: %v vs %v", i, slots[i-1].End, slots[i].Start)
		}
		if got := slots[i].End.Sub(slots[i].Start); got != 30*time.Minute {
			t.Fatalf("slot %d width = %v, want 30m", i, got)
		}
	}
}

func TestDaySlotsDegenerateInput(t *testing.T) {
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	if got := DaySlots(day, 9, 9, 30); got != nil {
		t.Errorf("equal start/end hours: got %d slots, want none", len(got))
	}
	if got := DaySlots(day, 9, 17, 0); got != nil {
		t.Errorf("zero step: got %d slots, want none", len(got))
	}
}
