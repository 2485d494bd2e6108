package model

import "time"

// Role names stored in users.role and carried in the access token's
// "role" claim.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name.
//  LastName     – family name.
//  Email        – unique email address (stored lower-case).
//  PasswordHash – bcrypt hashed password.
//  ContactPhone – optional phone number.
//  Address      – optional postal address.
//  ProfileURL   – optional avatar URL.
//  Role         – RoleUser or RoleAdmin.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    FirstName    string    // users.first_name
    LastName     string    // users.last_name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    ContactPhone *string   // users.contact_phone (nullable)
    Address      *string   // users.address (nullable)
    ProfileURL   *string   // users.profile_url (nullable)
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// FullName joins first and last name for greetings.
func (u User) FullName() string {
    if u.LastName == "" {
        return u.FirstName
    }
    return u.FirstName + " " + u.LastName
}

// UserPatch lists the profile fields a user (or an admin) may change.
// Nil pointers are left untouched.  Role is honoured for admins only;
// the handler clears it for everyone else.
type UserPatch struct {
    FirstName    *string
    LastName     *string
    ContactPhone *string
    Address      *string
    ProfileURL   *string
    Role         *string
}

// Empty reports whether no field is set.
func (p UserPatch) Empty() bool {
    return p.FirstName == nil && p.LastName == nil && p.ContactPhone == nil &&
        p.Address == nil && p.ProfileURL == nil && p.Role == nil
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
