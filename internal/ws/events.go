package ws

import (
	"fmt"
	"time"

	"github.com/zhanyysh/Chat02/internal/models"
)

// FileRef is the opaque attachment descriptor produced by the upload
// collaborator and relayed with messages.
type FileRef struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Frame is the inbound wire envelope. Action tags the variant; an absent
// action means send. decode turns it into the variant carrying only the
// fields that action uses.
type Frame struct {
	Action     string    `json:"action,omitempty"`
	ReceiverID *uint     `json:"receiver_id,omitempty"`
	GroupID    *uint     `json:"group_id,omitempty"`
	Content    *string   `json:"content,omitempty"`
	Files      []FileRef `json:"files,omitempty"`
	MessageID  uint      `json:"message_id,omitempty"`
}

type sendAction struct {
	ReceiverID *uint
	GroupID    *uint
	Content    *string
	Files      []FileRef
}

type editAction struct {
	MessageID uint
	Content   *string
}

type deleteAction struct {
	MessageID uint
}

func (f Frame) decode() (interface{}, error) {
	switch f.Action {
	case "", "send":
		return sendAction{
			ReceiverID: f.ReceiverID,
			GroupID:    f.GroupID,
			Content:    f.Content,
			Files:      f.Files,
		}, nil
	case "edit":
		return editAction{MessageID: f.MessageID, Content: f.Content}, nil
	case "delete":
		return deleteAction{MessageID: f.MessageID}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", f.Action)
	}
}

// MessageEvent is the fully materialized outbound message, pushed on send
// and edit. Action is empty for a fresh send, mirroring the inbound default.
type MessageEvent struct {
	Action     string    `json:"action,omitempty"`
	ID         uint      `json:"id"`
	Content    *string   `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID *uint     `json:"receiver_id,omitempty"`
	GroupID    *uint     `json:"group_id,omitempty"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar_url"`
	IsRead     bool      `json:"is_read"`
	Files      []FileRef `json:"files"`
}

// DeleteEvent carries id and scope only, never content.
type DeleteEvent struct {
	Action     string `json:"action"`
	MessageID  uint   `json:"message_id"`
	ReceiverID *uint  `json:"receiver_id,omitempty"`
	GroupID    *uint  `json:"group_id,omitempty"`
}

// ErrorEvent reports a per-frame failure to the originating connection.
type ErrorEvent struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

func messageEvent(action string, msg *models.Message, sender *models.User) MessageEvent {
	files := make([]FileRef, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		files = append(files, FileRef{URL: a.URL, Kind: a.Kind})
	}
	return MessageEvent{
		Action:     action,
		ID:         msg.ID,
		Content:    msg.Content,
		Timestamp:  msg.CreatedAt,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		GroupID:    msg.GroupID,
		Username:   sender.Username,
		AvatarURL:  sender.AvatarURL,
		IsRead:     msg.IsRead,
		Files:      files,
	}
}
