package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zhanyysh/Chat02/internal/group"
	"github.com/zhanyysh/Chat02/internal/http/middleware"
)

type GroupHandler struct {
	Groups *group.Service
}

type createGroupReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	MemberIDs   []uint `json:"member_ids"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	g, err := h.Groups.CreateGroup(middleware.MustUserID(c), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": g})
}

func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.Groups.GroupsFor(middleware.MustUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	g, err := h.Groups.Get(groupID)
	if err != nil {
		respondErr(c, err)
		return
	}
	members, err := h.Groups.Members(groupID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"avatar_url":  g.AvatarURL,
		"creator_id":  g.CreatorID,
		"created_at":  g.CreatedAt,
		"members":     members,
	}})
}

type addMemberReq struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}
	if err := h.Groups.AddMember(groupID, middleware.MustUserID(c), req.UserID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.Groups.RemoveMember(groupID, middleware.MustUserID(c), userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *GroupHandler) SetAdmin(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.Groups.SetAdmin(groupID, middleware.MustUserID(c), userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *GroupHandler) UnsetAdmin(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.Groups.UnsetAdmin(groupID, middleware.MustUserID(c), userID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *GroupHandler) Leave(c *gin.Context) {
	groupID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.Groups.Leave(groupID, middleware.MustUserID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
