package types

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is the local identity record, upserted on every successful token
// verification. ID is the provider-issued subject and never changes.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	DisplayName string    `bson:"display_name" json:"displayName"`
	Email       string    `bson:"email,omitempty" json:"email,omitempty"`
	Photo       string    `bson:"photo,omitempty" json:"photo,omitempty"`
	Provider    string    `bson:"provider" json:"-"`
	Role        string    `bson:"role" json:"role"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IdentityClaims is what the identity provider asserts about a subject.
type IdentityClaims struct {
	Subject string
	Name    string
	Email   string
	Picture string
}
