package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/satriadp/meeting-room-reservation/internal/model"
)

// RoomRepo provides CRUD operations for meeting rooms. Rooms are never
// hard-deleted: deactivation clears is_active so the room disappears
// from booking surfaces while its historical bookings stay intact.
type RoomRepo struct{ DB *sql.DB }

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

const roomColumns = `id, name, category, capacity, facilities, is_active, created_at, updated_at`

// scanRoom reads one room row. Facilities are stored as a JSON array
// in a TEXT column; an empty or invalid value becomes an empty slice.
func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var (
		r          model.Room
		facilities sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.Category, &r.Capacity, &facilities, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Room{}, err
	}
	r.Facilities = []string{}
	if facilities.Valid && facilities.String != "" {
		_ = json.Unmarshal([]byte(facilities.String), &r.Facilities)
	}
	return r, nil
}

func facilitiesJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Create inserts a room and populates its generated ID.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	const q = `INSERT INTO rooms (name, category, capacity, facilities, is_active) VALUES (?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q, room.Name, room.Category, room.Capacity, facilitiesJSON(room.Facilities), room.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	return nil
}

// Update rewrites the mutable attributes of a room.
func (r *RoomRepo) Update(ctx context.Context, room model.Room) error {
	const q = `UPDATE rooms SET name=?, category=?, capacity=?, facilities=?, is_active=? WHERE id=?`
	_, err := r.DB.ExecContext(ctx, q, room.Name, room.Category, room.Capacity, facilitiesJSON(room.Facilities), room.IsActive, room.ID)
	return err
}

// Deactivate soft-deletes a room by clearing its active flag.
func (r *RoomRepo) Deactivate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE rooms SET is_active=0 WHERE id=?`, id)
	return err
}

// GetByID fetches a room. The boolean reports whether it exists.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, bool, error) {
	room, err := scanRoom(r.DB.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return model.Room{}, false, nil
	}
	if err != nil {
		return model.Room{}, false, err
	}
	return room, true, nil
}

// ListActive returns all active rooms ordered by name, for the
// booking surfaces.
func (r *RoomRepo) ListActive(ctx context.Context) ([]model.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms WHERE is_active=1 ORDER BY name ASC`)
}

// ListAll returns every room including deactivated ones, for admin
// views and for sheet-row room matching.
func (r *RoomRepo) ListAll(ctx context.Context) ([]model.Room, error) {
	return r.list(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC`)
}

func (r *RoomRepo) list(ctx context.Context, query string) ([]model.Room, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// CountActive returns the number of active rooms.
func (r *RoomRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE is_active=1`).Scan(&n)
	return n, err
}
