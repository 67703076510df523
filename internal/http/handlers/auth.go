package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zhanyysh/Chat02/internal/auth"
	"github.com/zhanyysh/Chat02/internal/http/middleware"
	"github.com/zhanyysh/Chat02/internal/models"
	"github.com/zhanyysh/Chat02/internal/store"
)

type AuthHandler struct {
	DB     *gorm.DB
	Users  *store.UserStore
	Tokens *auth.TokenService
}

type registerReq struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	u := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
	}
	if err := h.DB.Create(&u).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username already taken"})
		return
	}

	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token": token,
		"user":         gin.H{"id": u.ID, "username": u.Username},
	})
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body", "error": err.Error()})
		return
	}

	var u models.User
	if err := h.DB.Where("username = ?", req.Username).First(&u).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "wrong username/password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "wrong username/password"})
		return
	}

	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         gin.H{"id": u.ID, "username": u.Username, "avatar_url": u.AvatarURL},
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Users.ByID(middleware.MustUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username, "avatar_url": u.AvatarURL})
}

func (h *AuthHandler) Search(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if x, err := strconv.Atoi(v); err == nil && x > 0 && x <= 50 {
			limit = x
		}
	}

	users, err := h.Users.Search(c.Query("query"), middleware.MustUserID(c), limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "username": u.Username, "avatar_url": u.AvatarURL})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
