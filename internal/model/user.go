package model

import "time"

// Roles stored in the users.role column and embedded in JWT claims.
// Beneficiaries book offers against their deposit credit; pros manage
// offerers, venues, offers and stocks.
const (
	RoleBeneficiary = "BENEFICIARY"
	RolePro         = "PRO"
)

// User represents an application user record as stored in the `users`
// table.  Both beneficiaries and professional users share the same
// table; the role column decides which endpoints they may call.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lower-cased).
//  PasswordHash – bcrypt hashed password.
//  Role         – BENEFICIARY or PRO.
//  IsActive     – whether the account is active; inactive accounts
//                 cannot book or manage offers.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// CanBook reports whether the user is allowed to create bookings.
// Only active beneficiaries hold booking rights.
func (u User) CanBook() bool {
	return u.IsActive && u.Role == RoleBeneficiary
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token is persisted.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
