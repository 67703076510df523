package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zhanyysh/Chat02/internal/apperr"
	"github.com/zhanyysh/Chat02/internal/group"
	"github.com/zhanyysh/Chat02/internal/http/middleware"
	"github.com/zhanyysh/Chat02/internal/store"
)

// ChatHandler serves the read-side query surface: message history, the
// recent-conversations ranking and mark-read.
type ChatHandler struct {
	Store  *store.MessageStore
	Groups *group.Service
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}

func (h *ChatHandler) ListDirectMessages(c *gin.Context) {
	other, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	msgs, err := h.Store.List(store.DirectKey(middleware.MustUserID(c), other))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

// ListGroupMessages checks membership before returning history; unlike the
// live path, read access to a group is member-only.
func (h *ChatHandler) ListGroupMessages(c *gin.Context) {
	groupID, ok := uintParam(c, "group_id")
	if !ok {
		return
	}
	if !h.requireMember(c, groupID) {
		return
	}
	msgs, err := h.Store.List(store.GroupKey(groupID))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

func (h *ChatHandler) MarkDirectRead(c *gin.Context) {
	other, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	viewerID := middleware.MustUserID(c)
	if err := h.Store.MarkRead(store.DirectKey(viewerID, other), viewerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *ChatHandler) MarkGroupRead(c *gin.Context) {
	groupID, ok := uintParam(c, "group_id")
	if !ok {
		return
	}
	if !h.requireMember(c, groupID) {
		return
	}
	viewerID := middleware.MustUserID(c)
	if err := h.Store.MarkRead(store.GroupKey(groupID), viewerID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// RecentConversations ranks direct and group conversations together by
// unread count, capped at the ten highest.
func (h *ChatHandler) RecentConversations(c *gin.Context) {
	viewerID := middleware.MustUserID(c)
	summaries, err := h.Store.RecentConversations(viewerID)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		if s.Key.IsGroup() {
			out = append(out, gin.H{
				"type":     "group",
				"group_id": s.Key.GroupID,
				"unread":   s.Unread,
			})
		} else {
			out = append(out, gin.H{
				"type":    "direct",
				"user_id": s.Key.Other(viewerID),
				"unread":  s.Unread,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *ChatHandler) requireMember(c *gin.Context, groupID uint) bool {
	ok, err := h.Groups.IsMember(groupID, middleware.MustUserID(c))
	if err != nil {
		respondErr(c, err)
		return false
	}
	if !ok {
		respondErr(c, apperr.ErrNotAuthorized)
		return false
	}
	return true
}
