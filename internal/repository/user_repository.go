package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/satriadp/meeting-room-reservation/internal/model"
	"github.com/satriadp/meeting-room-reservation/internal/utils"
)

// UserRepo provides persistence for application users. Emails are
// normalized to lower case on every write and lookup so uniqueness is
// effectively case-insensitive.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, role, avatar, status, bio, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u                   model.User
		avatar, status, bio sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &avatar, &status, &bio, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	if status.Valid {
		u.Status = &status.String
	}
	if bio.Valid {
		u.Bio = &bio.String
	}
	return u, nil
}

// Create inserts a user with a freshly hashed password and returns the
// new ID. A duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)`,
		name, email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email. Returns sql.ErrNoRows
// when no such user exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email))
}

// GetByID fetches a user by id. Returns sql.ErrNoRows when missing.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
}

// FindUser is the found-boolean variant of GetByID used by the booking
// engine's user directory.
func (r *UserRepo) FindUser(ctx context.Context, id uint64) (model.User, bool, error) {
	u, err := r.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

// FindByEmail is the found-boolean variant of GetByEmail used by the
// sheet reconciler.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	u, err := r.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

// UserListing is a user row for the admin user list, including how
// many bookings the user owns.
type UserListing struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Avatar       *string   `json:"avatar,omitempty"`
	Status       *string   `json:"status,omitempty"`
	BookingCount int       `json:"booking_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// List returns all users newest first with their booking counts.
func (r *UserRepo) List(ctx context.Context) ([]UserListing, error) {
	const q = `SELECT u.id, u.name, u.email, u.role, u.avatar, u.status, u.created_at,
	                  COUNT(b.id)
	           FROM users u
	           LEFT JOIN bookings b ON b.user_id = u.id
	           GROUP BY u.id, u.name, u.email, u.role, u.avatar, u.status, u.created_at
	           ORDER BY u.created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]UserListing, 0)
	for rows.Next() {
		var (
			l              UserListing
			avatar, status sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Role, &avatar, &status, &l.CreatedAt, &l.BookingCount); err != nil {
			return nil, err
		}
		if avatar.Valid {
			l.Avatar = &avatar.String
		}
		if status.Valid {
			l.Status = &status.String
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AdminPatch carries the fields an admin may change on a user. Nil
// fields are left untouched; PasswordHash must already be hashed.
type AdminPatch struct {
	Name         *string
	Email        *string
	Role         *string
	PasswordHash *string
}

// UpdateAdmin applies an admin patch. A duplicate email yields
// ErrEmailExists.
func (r *UserRepo) UpdateAdmin(ctx context.Context, id uint64, p AdminPatch) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *p.PasswordHash)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil && isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// ProfilePatch carries the self-service profile fields. Nil fields are
// left untouched.
type ProfilePatch struct {
	Name   *string
	Avatar *string
	Status *string
	Bio    *string
}

// UpdateProfile applies a profile patch to the user's own record.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfilePatch) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Avatar != nil {
		sets = append(sets, "avatar=?")
		args = append(args, *p.Avatar)
	}
	if p.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *p.Status)
	}
	if p.Bio != nil {
		sets = append(sets, "bio=?")
		args = append(args, *p.Bio)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	return err
}

// Delete removes a user. The bookings foreign key cascades, so all of
// the user's bookings disappear with the account.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	return err
}

// CountBookings returns how many bookings the user owns.
func (r *UserRepo) CountBookings(ctx context.Context, id uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id=?`, id).Scan(&n)
	return n, err
}
