package store

// ConversationKey scopes messages and unread counters to either a direct
// pair or a group. Direct conversations are not stored entities; the key is
// derived from the two user ids, normalized so (a,b) and (b,a) collide.
type ConversationKey struct {
	UserA   uint `json:"user_a,omitempty"`
	UserB   uint `json:"user_b,omitempty"`
	GroupID uint `json:"group_id,omitempty"`
}

func DirectKey(a, b uint) ConversationKey {
	if a > b {
		a, b = b, a
	}
	return ConversationKey{UserA: a, UserB: b}
}

func GroupKey(groupID uint) ConversationKey {
	return ConversationKey{GroupID: groupID}
}

func (k ConversationKey) IsGroup() bool {
	return k.GroupID != 0
}

// Other returns the counterpart of viewer in a direct conversation.
func (k ConversationKey) Other(viewer uint) uint {
	if k.UserA == viewer {
		return k.UserB
	}
	return k.UserA
}
