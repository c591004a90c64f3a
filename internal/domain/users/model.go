package users

import (
	"strings"
	"time"
)

type Role string

const (
	RoleBusiness Role = "business"
	RoleInvestor Role = "investor"
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
)

// User is the identity record provisioned by the auth collaborator.
// Role lives on the profile row and is the single source of truth for
// which side of the marketplace the user is on.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string
	Email      string `gorm:"not null;uniqueIndex:idx_users_email"`
	Role       Role   `gorm:"type:varchar(20);not null;default:'member'"`
	IsVerified bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeRole maps free-form profile values onto the known roles.
// Anything unknown is a plain member.
func NormalizeRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBusiness:
		return RoleBusiness
	case RoleInvestor:
		return RoleInvestor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

// MarketplaceRole returns the role only when it names a side of the
// marketplace (business or investor).
func (u User) MarketplaceRole() *Role {
	r := NormalizeRole(string(u.Role))
	if r == RoleBusiness || r == RoleInvestor {
		return &r
	}
	return nil
}
