package models

import "time"

// Membership roles. The creator role is assigned once at group creation and
// can never be changed or removed.
const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
	RoleMember  = "member"
)

// Attachment kinds produced by the upload collaborator.
const (
	KindImage = "image"
	KindVideo = "video"
	KindFile  = "file"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:120;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	AvatarURL    string    `gorm:"size:255" json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	AvatarURL   string    `gorm:"size:255" json:"avatar_url"`
	CreatorID   uint      `gorm:"index;not null" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`

	Members []GroupMember `json:"-"`
}

type GroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"uniqueIndex:idx_group_user;not null" json:"group_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_group_user;not null" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `json:"joined_at"`
}

// Message targets exactly one of ReceiverID (direct) or GroupID. Content may
// be nil for attachments-only messages; content and attachments are never
// both absent.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID *uint     `gorm:"index" json:"receiver_id,omitempty"`
	GroupID    *uint     `gorm:"index" json:"group_id,omitempty"`
	Content    *string   `gorm:"type:text" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"timestamp"`

	Attachments []Attachment `json:"files"`
}

type Attachment struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MessageID uint   `gorm:"index;not null" json:"-"`
	URL       string `gorm:"size:255;not null" json:"url"`
	Kind      string `gorm:"size:20;not null" json:"kind"`
}
