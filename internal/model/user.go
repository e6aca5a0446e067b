package model

import "time"

// User roles ordered by privilege: EMPLOYEE < ADMIN < SUPER_ADMIN.
const (
	RoleEmployee   = "EMPLOYEE"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// User represents an application user record as stored in the `users`
// table. Emails are unique and normalized to lower case before any
// lookup or insert. Profile fields (avatar, status, bio) are nullable
// and peripheral to booking logic.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Name         - display name.
//  Email        - unique, lower-cased email address.
//  PasswordHash - bcrypt hashed password.
//  Role         - EMPLOYEE, ADMIN or SUPER_ADMIN.
//  Avatar       - avatar path or preset identifier (nullable).
//  Status       - short status text (nullable).
//  Bio          - longer free-text bio (nullable).
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Avatar       *string   // users.avatar (nullable)
	Status       *string   // users.status (nullable)
	Bio          *string   // users.bio (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the raw token value is stored.
//
// Fields:
//  ID        - primary key identifier.
//  UserID    - owner of the token.
//  TokenHash - SHA-256 hex digest of the token value.
//  ExpiresAt - expiration timestamp of the token.
//  RevokedAt - when the token was revoked (null if still active).
//  CreatedAt - timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
