package ws

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/zhanyysh/Chat02/internal/apperr"
	"github.com/zhanyysh/Chat02/internal/group"
	"github.com/zhanyysh/Chat02/internal/models"
	"github.com/zhanyysh/Chat02/internal/store"
)

// Router is the fan-out protocol: each inbound frame is persisted where
// applicable and pushed to every relevant online participant. There is no
// multi-step handshake; a frame is a complete unit of work.
type Router struct {
	store    *store.MessageStore
	users    *store.UserStore
	groups   *group.Service
	registry *Registry
	log      *zap.SugaredLogger
}

func NewRouter(msgs *store.MessageStore, users *store.UserStore, groups *group.Service, registry *Registry, log *zap.SugaredLogger) *Router {
	return &Router{
		store:    msgs,
		users:    users,
		groups:   groups,
		registry: registry,
		log:      log,
	}
}

// HandleFrame processes one inbound frame to completion. A failure is
// reported only to the originating connection; it never terminates the
// connection or affects other participants.
func (rt *Router) HandleFrame(senderID uint, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		rt.reject(senderID, errors.New("malformed frame"))
		return
	}

	action, err := frame.decode()
	if err != nil {
		rt.reject(senderID, err)
		return
	}

	switch a := action.(type) {
	case sendAction:
		err = rt.handleSend(senderID, a)
	case editAction:
		err = rt.handleEdit(senderID, a)
	case deleteAction:
		err = rt.handleDelete(senderID, a)
	}
	if err != nil {
		rt.reject(senderID, err)
	}
}

func (rt *Router) reject(senderID uint, err error) {
	rt.log.Debugw("frame rejected", "sender_id", senderID, "error", err)
	rt.registry.Deliver(senderID, ErrorEvent{Action: "error", Error: err.Error()})
}

func (rt *Router) handleSend(senderID uint, a sendAction) error {
	if a.GroupID != nil {
		ok, err := rt.groups.IsMember(*a.GroupID, senderID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrNotAuthorized
		}
	}
	if a.ReceiverID != nil {
		if _, err := rt.users.ByID(*a.ReceiverID); err != nil {
			return err
		}
	}

	attachments := make([]models.Attachment, 0, len(a.Files))
	for _, f := range a.Files {
		attachments = append(attachments, models.Attachment{URL: f.URL, Kind: f.Kind})
	}
	msg := &models.Message{
		SenderID:    senderID,
		ReceiverID:  a.ReceiverID,
		GroupID:     a.GroupID,
		Content:     a.Content,
		Attachments: attachments,
	}
	if err := rt.store.Append(msg); err != nil {
		return err
	}

	sender, err := rt.users.ByID(senderID)
	if err != nil {
		return err
	}
	rt.fanOut(msg, messageEvent("", msg, sender))
	return nil
}

func (rt *Router) handleEdit(senderID uint, a editAction) error {
	msg, err := rt.store.EditContent(a.MessageID, senderID, a.Content)
	if err != nil {
		return err
	}
	sender, err := rt.users.ByID(senderID)
	if err != nil {
		return err
	}
	rt.fanOut(msg, messageEvent("edit", msg, sender))
	return nil
}

func (rt *Router) handleDelete(senderID uint, a deleteAction) error {
	msg, err := rt.store.Delete(a.MessageID, senderID)
	if err != nil {
		return err
	}
	rt.fanOut(msg, DeleteEvent{
		Action:     "delete",
		MessageID:  msg.ID,
		ReceiverID: msg.ReceiverID,
		GroupID:    msg.GroupID,
	})
	return nil
}

// fanOut pushes ev to the message's current recipient set. Delivery is
// best-effort per recipient; a miss never blocks the rest and never rolls
// back the committed write.
func (rt *Router) fanOut(msg *models.Message, ev interface{}) {
	for _, id := range rt.recipients(msg) {
		if !rt.registry.Deliver(id, ev) {
			rt.log.Debugw("recipient offline", "user_id", id, "message_id", msg.ID)
		}
	}
}

func (rt *Router) recipients(msg *models.Message) []uint {
	if msg.GroupID != nil {
		ids, err := rt.groups.MemberIDs(*msg.GroupID)
		if err != nil {
			rt.log.Errorw("resolving recipients failed", "group_id", *msg.GroupID, "error", err)
			return nil
		}
		return ids
	}
	return []uint{msg.SenderID, *msg.ReceiverID}
}
