package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/model"
)

var bookingCols = []string{
	"id", "room_id", "user_id", "title", "description", "start_time", "end_time",
	"participant_count", "status", "check_in_status", "sheet_row_id", "last_modified_by", "created_at", "updated_at",
}

func bookingRow(id uint64, start, end time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(
		id, 1, 10, "standup", nil, start, end, 2, "CONFIRMED", "PENDING", nil, nil, start, start)
}

func TestWithRoomLockCommitsAfterInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	start := time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM rooms WHERE id=? FOR UPDATE`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE room_id=\? AND status <> 'CANCELLED'`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	err = repo.WithRoomLock(context.Background(), 1, func(ctx context.Context, tx booking.Tx) error {
		active, err := tx.ActiveForRoom(ctx, 1)
		if err != nil {
			return err
		}
		if len(active) != 0 {
			t.Fatalf("got %d active bookings, want 0", len(active))
		}
		b := model.Booking{
			RoomID: 1, UserID: 10, Title: "standup",
			StartTime: start, EndTime: end, ParticipantCount: 2,
			Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
		}
		if err := tx.Insert(ctx, &b); err != nil {
			return err
		}
		if b.ID != 7 {
			t.Fatalf("inserted ID = %d, want 7", b.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRoomLock: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithRoomLockRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM rooms WHERE id=? FOR UPDATE`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectRollback()

	conflict := &booking.ConflictError{With: model.Booking{ID: 3}}
	err = repo.WithRoomLock(context.Background(), 1, func(ctx context.Context, tx booking.Tx) error {
		return conflict
	})
	// The error must cross the transaction boundary unchanged so
	// callers can still match it.
	var got *booking.ConflictError
	if !errors.As(err, &got) || got.With.ID != 3 {
		t.Fatalf("err = %v, want the original ConflictError", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithRoomLockRereadsBookingForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	start := time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM rooms WHERE id=? FOR UPDATE`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id=\? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(bookingRow(7, start, end))
	mock.ExpectCommit()

	err = repo.WithRoomLock(context.Background(), 1, func(ctx context.Context, tx booking.Tx) error {
		b, found, err := tx.FindBooking(ctx, 7)
		if err != nil {
			return err
		}
		if !found {
			t.Fatal("booking not found inside transaction")
		}
		if b.ID != 7 || !b.EndTime.Equal(end) {
			t.Fatalf("unexpected booking %+v", b)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRoomLock: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindBookingNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id=\?`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, found, err := repo.FindBooking(context.Background(), 42)
	if err != nil {
		t.Fatalf("FindBooking: %v", err)
	}
	if found {
		t.Error("found = true for missing booking")
	}
}

func TestFindBookingScansOptionalColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	start := time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(bookingCols).AddRow(
		5, 1, 10, "standup", "weekly", start, start.Add(time.Hour),
		2, "CONFIRMED", "PENDING", "app_abc", 20, start, start)
	mock.ExpectQuery(`SELECT .+ FROM bookings WHERE id=\?`).
		WithArgs(uint64(5)).
		WillReturnRows(rows)

	b, found, err := repo.FindBooking(context.Background(), 5)
	if err != nil || !found {
		t.Fatalf("FindBooking: found=%v err=%v", found, err)
	}
	if b.Description == nil || *b.Description != "weekly" {
		t.Error("description not scanned")
	}
	if b.SheetRowID == nil || *b.SheetRowID != "app_abc" {
		t.Error("sheet_row_id not scanned")
	}
	if b.LastModifiedBy == nil || *b.LastModifiedBy != 20 {
		t.Error("last_modified_by not scanned")
	}
}

func TestMarkMissedCheckIns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	cutoff := time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE bookings SET check_in_status='MISSED'`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkMissedCheckIns(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("MarkMissedCheckIns: %v", err)
	}
	if n != 3 {
		t.Errorf("marked %d, want 3", n)
	}
}

func TestInsertSyncedDuplicateRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBookingRepo(db)

	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'sheet_9' for key 'bookings.sheet_row_id'"})

	rowID := "sheet_9"
	b := model.Booking{
		RoomID: 1, UserID: 10, Title: "imported",
		StartTime: time.Now().UTC(), EndTime: time.Now().UTC().Add(time.Hour),
		ParticipantCount: 1, Status: model.BookingConfirmed, CheckInStatus: model.CheckInPending,
		SheetRowID: &rowID,
	}
	if err := repo.InsertSynced(context.Background(), &b); !errors.Is(err, ErrDuplicateRow) {
		t.Fatalf("err = %v, want ErrDuplicateRow", err)
	}
}
