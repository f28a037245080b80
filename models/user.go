package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

type UserStatus string

const (
	UserActive UserStatus = "active"
	UserBanned UserStatus = "banned"
)

// Permissions is the capability flag set held by admins. A super_admin
// holds every capability implicitly and ignores these flags.
type Permissions struct {
	ManagePosts     bool `bson:"managePosts" json:"managePosts"`
	ManageDistricts bool `bson:"manageDistricts" json:"manageDistricts"`
	ManageUsers     bool `bson:"manageUsers" json:"manageUsers"`
	VerifyUsers     bool `bson:"verifyUsers" json:"verifyUsers"`
	ManageChannels  bool `bson:"manageChannels" json:"manageChannels"`
}

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	ContactHandle string             `bson:"contactHandle" json:"contactHandle"`
	Bio           string             `bson:"bio" json:"bio"`
	District      string             `bson:"district" json:"district"`
	Avatar        string             `bson:"avatar" json:"avatar"`
	Role          Role               `bson:"role" json:"role"`
	Status        UserStatus         `bson:"status" json:"status"`
	IsVerified    bool               `bson:"isVerified" json:"isVerified"`
	Permissions   Permissions        `bson:"permissions" json:"permissions"`
	PasswordHash  *string            `bson:"passwordHash,omitempty" json:"-"`
	CreatedAt     int64              `bson:"createdAt" json:"createdAt"`
	LastSeen      int64              `bson:"lastSeen" json:"lastSeen"`
}

// IsAdmin reports whether the user holds any moderation role at all.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
