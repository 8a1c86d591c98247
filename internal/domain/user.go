package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered borrower or administrator. Users are managed by the
// identity service; this service only reads them.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      UserRole
	CreatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role.IsAdmin()
}
