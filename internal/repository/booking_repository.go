package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/model"
)

// BookingRepo provides persistence for bookings. It implements the
// lifecycle engine's Repository interface, the read queries behind the
// booking/schedule/dashboard surfaces, and the helpers the sheet
// reconciler needs. All timestamps are stored and returned in UTC.
type BookingRepo struct{ DB *sql.DB }

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = `id, room_id, user_id, title, description, start_time, end_time,
	participant_count, status, check_in_status, sheet_row_id, last_modified_by, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b           model.Booking
		description sql.NullString
		sheetRowID  sql.NullString
		modifiedBy  sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.Title, &description, &b.StartTime, &b.EndTime,
		&b.ParticipantCount, &b.Status, &b.CheckInStatus, &sheetRowID, &modifiedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if description.Valid {
		b.Description = &description.String
	}
	if sheetRowID.Valid {
		b.SheetRowID = &sheetRowID.String
	}
	if modifiedBy.Valid {
		id := uint64(modifiedBy.Int64)
		b.LastModifiedBy = &id
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return b, nil
}

// FindRoom fetches a room for the lifecycle engine.
func (r *BookingRepo) FindRoom(ctx context.Context, id uint64) (model.Room, bool, error) {
	room, err := scanRoom(r.DB.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return model.Room{}, false, nil
	}
	if err != nil {
		return model.Room{}, false, err
	}
	return room, true, nil
}

// FindBooking fetches a booking by id; the boolean reports existence.
func (r *BookingRepo) FindBooking(ctx context.Context, id uint64) (model.Booking, bool, error) {
	b, err := scanBooking(r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

// WithRoomLock runs fn inside a transaction that holds a row lock on
// the room. The lock serializes the conflict-check-then-write sequence
// per room: two concurrent requests for overlapping windows on the
// same room queue up here and the second one sees the first one's
// booking. fn's error rolls the transaction back and is returned
// unchanged so sentinel and conflict errors survive the boundary.
func (r *BookingRepo) WithRoomLock(ctx context.Context, roomID uint64, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id=? FOR UPDATE`, roomID).Scan(&locked); err != nil {
		return err
	}
	if err := fn(ctx, &bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MarkMissedCheckIns flips PENDING check-ins of confirmed bookings
// that started before the cutoff to MISSED.
func (r *BookingRepo) MarkMissedCheckIns(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE bookings SET check_in_status='MISSED'
	           WHERE check_in_status='PENDING' AND status='CONFIRMED' AND start_time < ?`
	res, err := r.DB.ExecContext(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// bookingTx adapts a *sql.Tx to the engine's transactional interface.
type bookingTx struct{ tx *sql.Tx }

// FindBooking re-reads the booking inside the transaction, locking its
// row so the state the engine decides on cannot change before commit.
func (t *bookingTx) FindBooking(ctx context.Context, id uint64) (model.Booking, bool, error) {
	b, err := scanBooking(t.tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id=? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (t *bookingTx) ActiveForRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE room_id=? AND status <> 'CANCELLED'`
	rows, err := t.tx.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *bookingTx) Insert(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	  (room_id, user_id, title, description, start_time, end_time, participant_count, status, check_in_status, sheet_row_id, last_modified_by)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q,
		b.RoomID, b.UserID, b.Title, b.Description, b.StartTime.UTC(), b.EndTime.UTC(),
		b.ParticipantCount, b.Status, b.CheckInStatus, b.SheetRowID, b.LastModifiedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (t *bookingTx) Update(ctx context.Context, b model.Booking) error {
	const q = `UPDATE bookings SET room_id=?, title=?, description=?, start_time=?, end_time=?,
	  participant_count=?, status=?, check_in_status=?, last_modified_by=? WHERE id=?`
	_, err := t.tx.ExecContext(ctx, q,
		b.RoomID, b.Title, b.Description, b.StartTime.UTC(), b.EndTime.UTC(),
		b.ParticipantCount, b.Status, b.CheckInStatus, b.LastModifiedBy, b.ID)
	return err
}

// Detail is a booking joined with its room and owner for the list and
// detail endpoints.
type Detail struct {
	ID               uint64    `json:"id"`
	RoomID           uint64    `json:"room_id"`
	RoomName         string    `json:"room_name"`
	UserID           uint64    `json:"user_id"`
	UserName         string    `json:"user_name"`
	UserEmail        string    `json:"user_email"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount uint32    `json:"participant_count"`
	Status           string    `json:"status"`
	CheckInStatus    string    `json:"check_in_status"`
	LastModifiedBy   *string   `json:"last_modified_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListFilter narrows the booking list. Nil fields are ignored. The day
// window matches bookings overlapping [DayStart, DayEnd), the local
// calendar day converted to instants by the caller.
type ListFilter struct {
	RoomID   *uint64
	UserID   *uint64
	DayStart *time.Time
	DayEnd   *time.Time
}

// List returns non-cancelled bookings matching the filter ordered by
// start time, joined with room and user names.
func (r *BookingRepo) List(ctx context.Context, f ListFilter) ([]Detail, error) {
	q := `SELECT b.id, b.room_id, r.name, b.user_id, u.name, u.email,
	             b.title, b.description, b.start_time, b.end_time,
	             b.participant_count, b.status, b.check_in_status, m.name, b.created_at
	      FROM bookings b
	      JOIN rooms r ON r.id = b.room_id
	      JOIN users u ON u.id = b.user_id
	      LEFT JOIN users m ON m.id = b.last_modified_by
	      WHERE b.status <> 'CANCELLED'`
	args := make([]any, 0, 4)
	if f.RoomID != nil {
		q += ` AND b.room_id = ?`
		args = append(args, *f.RoomID)
	}
	if f.UserID != nil {
		q += ` AND b.user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.DayStart != nil && f.DayEnd != nil {
		q += ` AND b.start_time < ? AND b.end_time > ?`
		args = append(args, f.DayEnd.UTC(), f.DayStart.UTC())
	}
	q += ` ORDER BY b.start_time ASC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Detail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDetail returns one booking with its room and owner, regardless of
// status so cancelled bookings stay visible in history views. Returns
// sql.ErrNoRows when missing.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (Detail, error) {
	const q = `SELECT b.id, b.room_id, r.name, b.user_id, u.name, u.email,
	                  b.title, b.description, b.start_time, b.end_time,
	                  b.participant_count, b.status, b.check_in_status, m.name, b.created_at
	           FROM bookings b
	           JOIN rooms r ON r.id = b.room_id
	           JOIN users u ON u.id = b.user_id
	           LEFT JOIN users m ON m.id = b.last_modified_by
	           WHERE b.id = ?`
	return scanDetail(r.DB.QueryRowContext(ctx, q, id))
}

func scanDetail(row interface{ Scan(...any) error }) (Detail, error) {
	var (
		d           Detail
		description sql.NullString
		modifiedBy  sql.NullString
	)
	err := row.Scan(&d.ID, &d.RoomID, &d.RoomName, &d.UserID, &d.UserName, &d.UserEmail,
		&d.Title, &description, &d.StartTime, &d.EndTime,
		&d.ParticipantCount, &d.Status, &d.CheckInStatus, &modifiedBy, &d.CreatedAt)
	if err != nil {
		return Detail{}, err
	}
	if description.Valid {
		d.Description = &description.String
	}
	if modifiedBy.Valid {
		d.LastModifiedBy = &modifiedBy.String
	}
	d.StartTime = d.StartTime.UTC()
	d.EndTime = d.EndTime.UTC()
	return d, nil
}

// CountInWindow counts non-cancelled bookings fully inside the window,
// used for "bookings today" on the dashboard.
func (r *BookingRepo) CountInWindow(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE status <> 'CANCELLED' AND start_time >= ? AND end_time <= ?`,
		start.UTC(), end.UTC()).Scan(&n)
	return n, err
}

// CountUpcomingForUser counts the user's non-cancelled bookings that
// have not ended yet.
func (r *BookingRepo) CountUpcomingForUser(ctx context.Context, userID uint64, now time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id=? AND status <> 'CANCELLED' AND end_time >= ?`,
		userID, now.UTC()).Scan(&n)
	return n, err
}

// CountCoveringNow counts bookings currently in progress.
func (r *BookingRepo) CountCoveringNow(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE status <> 'CANCELLED' AND start_time <= ? AND end_time >= ?`,
		now.UTC(), now.UTC()).Scan(&n)
	return n, err
}

// RoomsOccupiedAt returns the set of room IDs with a confirmed booking
// covering the given instant, for the rooms list's is_occupied flag.
func (r *BookingRepo) RoomsOccupiedAt(ctx context.Context, now time.Time) (map[uint64]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT room_id FROM bookings WHERE status='CONFIRMED' AND start_time <= ? AND end_time > ?`,
		now.UTC(), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	occupied := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		occupied[id] = true
	}
	return occupied, rows.Err()
}

// UsageRow is one booking's contribution to the analytics aggregation.
type UsageRow struct {
	RoomID    uint64
	StartTime time.Time
	EndTime   time.Time
}

// ListActiveSince returns all non-cancelled bookings starting at or
// after the given instant, oldest first, for analytics aggregation.
func (r *BookingRepo) ListActiveSince(ctx context.Context, since time.Time) ([]UsageRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT room_id, start_time, end_time FROM bookings
		 WHERE status <> 'CANCELLED' AND start_time >= ? ORDER BY start_time ASC`,
		since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]UsageRow, 0)
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.RoomID, &u.StartTime, &u.EndTime); err != nil {
			return nil, err
		}
		u.StartTime = u.StartTime.UTC()
		u.EndTime = u.EndTime.UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

// SheetRowExists reports whether a booking with the given external row
// identifier was already imported.
func (r *BookingRepo) SheetRowExists(ctx context.Context, rowID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM bookings WHERE sheet_row_id=? LIMIT 1`, rowID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertSynced inserts a booking imported from the external sheet. The
// source is trusted verbatim, so no conflict check or room lock runs
// here; the unique sheet_row_id constraint turns a concurrent repeat
// import into ErrDuplicateRow.
func (r *BookingRepo) InsertSynced(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	  (room_id, user_id, title, description, start_time, end_time, participant_count, status, check_in_status, sheet_row_id)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q,
		b.RoomID, b.UserID, b.Title, b.Description, b.StartTime.UTC(), b.EndTime.UTC(),
		b.ParticipantCount, b.Status, b.CheckInStatus, b.SheetRowID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateRow
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// SyncRow is a local booking joined with the names the sheet columns
// need, for the push direction of the reconciler.
type SyncRow struct {
	BookingID        uint64
	RoomName         string
	Title            string
	UserEmail        string
	UserName         string
	StartTime        time.Time
	EndTime          time.Time
	ParticipantCount uint32
	Status           string
}

// ListUnsynced returns bookings without an external row identifier,
// oldest first, ready to be appended to the sheet.
func (r *BookingRepo) ListUnsynced(ctx context.Context) ([]SyncRow, error) {
	const q = `SELECT b.id, r.name, b.title, u.email, u.name,
	                  b.start_time, b.end_time, b.participant_count, b.status
	           FROM bookings b
	           JOIN rooms r ON r.id = b.room_id
	           JOIN users u ON u.id = b.user_id
	           WHERE b.sheet_row_id IS NULL
	           ORDER BY b.start_time ASC`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SyncRow, 0)
	for rows.Next() {
		var s SyncRow
		if err := rows.Scan(&s.BookingID, &s.RoomName, &s.Title, &s.UserEmail, &s.UserName,
			&s.StartTime, &s.EndTime, &s.ParticipantCount, &s.Status); err != nil {
			return nil, err
		}
		s.StartTime = s.StartTime.UTC()
		s.EndTime = s.EndTime.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// StampSheetRowID records the external row identifier assigned to a
// booking that was pushed to the sheet, preventing a re-push.
func (r *BookingRepo) StampSheetRowID(ctx context.Context, bookingID uint64, rowID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET sheet_row_id=? WHERE id=?`, rowID, bookingID)
	return err
}
