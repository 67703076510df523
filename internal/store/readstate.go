package store

import (
	"sort"

	"github.com/zhanyysh/Chat02/internal/models"
)

// ConversationSummary is one row of the recent-conversations listing.
type ConversationSummary struct {
	Key    ConversationKey `json:"key"`
	Unread int64           `json:"unread"`
}

const recentLimit = 10

// UnreadCount counts persisted messages in the conversation authored by
// someone other than viewer and not yet marked read.
func (s *MessageStore) UnreadCount(key ConversationKey, viewerID uint) (int64, error) {
	var n int64
	err := s.scope(s.db.Model(&models.Message{}), key).
		Where("sender_id <> ? AND is_read = ?", viewerID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags every message in the conversation not authored by viewer as
// read. Idempotent; other conversations are untouched.
func (s *MessageStore) MarkRead(key ConversationKey, viewerID uint) error {
	return s.scope(s.db.Model(&models.Message{}), key).
		Where("sender_id <> ? AND is_read = ?", viewerID, false).
		Update("is_read", true).Error
}

// RecentConversations ranks the viewer's direct and group conversations
// together by unread count descending, capped at the ten highest. Ties keep
// discovery order: direct partners in the order they first appear in message
// history, then groups in join order.
func (s *MessageStore) RecentConversations(viewerID uint) ([]ConversationSummary, error) {
	keys, err := s.conversationKeys(viewerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(keys))
	for _, key := range keys {
		n, err := s.UnreadCount(key, viewerID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConversationSummary{Key: key, Unread: n})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Unread > summaries[j].Unread
	})
	if len(summaries) > recentLimit {
		summaries = summaries[:recentLimit]
	}
	return summaries, nil
}

func (s *MessageStore) conversationKeys(viewerID uint) ([]ConversationKey, error) {
	var msgs []models.Message
	if err := s.db.
		Select("sender_id", "receiver_id").
		Where("group_id IS NULL AND (sender_id = ? OR receiver_id = ?)", viewerID, viewerID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}

	var keys []ConversationKey
	seen := map[ConversationKey]bool{}
	for _, m := range msgs {
		other := m.SenderID
		if other == viewerID && m.ReceiverID != nil {
			other = *m.ReceiverID
		}
		key := DirectKey(viewerID, other)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	var memberships []models.GroupMember
	if err := s.db.
		Where("user_id = ?", viewerID).
		Order("id ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	for _, m := range memberships {
		keys = append(keys, GroupKey(m.GroupID))
	}
	return keys, nil
}
