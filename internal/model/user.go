package model

// User represents an account record as stored in the `users` table.
// Password holds the bcrypt hash, never the plain text, and is not
// serialized. PublicID is the identifier bound into access tokens so
// that tokens never carry the numeric primary key.
//
// Fields:
//
//	ID       – primary key identifier.
//	PublicID – random UUID assigned at insert time.
//	Name     – display name (max 20 characters).
//	Password – bcrypt hash of the password.
//	Email    – unique, lower-cased email address.
type User struct {
	ID       uint64 `json:"id"`    // users.id
	PublicID string `json:"-"`     // users.public_id
	Name     string `json:"name"`  // users.name
	Password string `json:"-"`     // users.password
	Email    string `json:"email"` // users.email
}
