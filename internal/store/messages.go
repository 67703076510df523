package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/zhanyysh/Chat02/internal/apperr"
	"github.com/zhanyysh/Chat02/internal/models"
)

// MessageStore is the durable repository for messages and their attachments.
// Ids and timestamps are assigned at persistence time.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// scope narrows a query to one conversation. Direct conversations cover both
// directions of the pair.
func (s *MessageStore) scope(tx *gorm.DB, key ConversationKey) *gorm.DB {
	if key.IsGroup() {
		return tx.Where("group_id = ?", key.GroupID)
	}
	return tx.Where(
		"group_id IS NULL AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
		key.UserA, key.UserB, key.UserB, key.UserA,
	)
}

// Append persists msg, assigning its id and server timestamp. A message must
// target exactly one of receiver/group and carry content and/or attachments.
func (s *MessageStore) Append(msg *models.Message) error {
	if (msg.ReceiverID == nil) == (msg.GroupID == nil) {
		return apperr.ErrInvalidMessage
	}
	if msg.Content != nil && *msg.Content == "" {
		msg.Content = nil
	}
	if msg.Content == nil && len(msg.Attachments) == 0 {
		return apperr.ErrInvalidMessage
	}
	return s.db.Create(msg).Error
}

// List returns the full history of a conversation, ascending by timestamp.
func (s *MessageStore) List(key ConversationKey) ([]models.Message, error) {
	var msgs []models.Message
	err := s.scope(s.db, key).
		Preload("Attachments").
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

func (s *MessageStore) Get(id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.Preload("Attachments").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// EditContent replaces a message's content. Only the original sender may
// edit. A nil content clears the text but is rejected when the message has
// no attachments, since that would leave it empty.
func (s *MessageStore) EditContent(id, editorID uint, content *string) (*models.Message, error) {
	msg, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, apperr.ErrNotAuthorized
	}
	if content != nil && *content == "" {
		return nil, apperr.ErrInvalidContent
	}
	if content == nil && len(msg.Attachments) == 0 {
		return nil, apperr.ErrInvalidMessage
	}
	if err := s.db.Model(msg).Update("content", content).Error; err != nil {
		return nil, err
	}
	msg.Content = content
	return msg, nil
}

// Delete removes a message and its attachments. Only the original sender may
// delete; group membership is not required at delete time.
func (s *MessageStore) Delete(id, requesterID uint) (*models.Message, error) {
	msg, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, apperr.ErrNotAuthorized
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PurgeBySender removes all of a sender's messages in a group. Called when a
// member leaves or is removed, so their footprint goes with them.
func (s *MessageStore) PurgeBySender(groupID, userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.Message{}).
			Where("group_id = ? AND sender_id = ?", groupID, userID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("message_id IN ?", ids).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, ids).Error
	})
}
