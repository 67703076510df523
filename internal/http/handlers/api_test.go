package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhanyysh/Chat02/internal/auth"
	"github.com/zhanyysh/Chat02/internal/group"
	"github.com/zhanyysh/Chat02/internal/http/middleware"
	"github.com/zhanyysh/Chat02/internal/models"
	"github.com/zhanyysh/Chat02/internal/store"
)

type apiFixture struct {
	engine *gin.Engine
	store  *store.MessageStore
	db     *gorm.DB
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Message{},
		&models.Attachment{},
	))

	log := zap.NewNop().Sugar()
	msgs := store.NewMessageStore(db)
	users := store.NewUserStore(db)
	groups := group.NewService(db, msgs, log)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	r := gin.New()

	authH := &AuthHandler{DB: db, Users: users, Tokens: tokens}
	r.POST("/api/v1/auth/register", authH.Register)
	r.POST("/api/v1/auth/login", authH.Login)

	authed := r.Group("/api/v1")
	authed.Use(middleware.Auth(tokens))
	authed.GET("/users/me", authH.Me)
	authed.GET("/users/search", authH.Search)

	chatH := &ChatHandler{Store: msgs, Groups: groups}
	authed.GET("/conversations", chatH.RecentConversations)
	authed.GET("/messages/direct/:user_id", chatH.ListDirectMessages)
	authed.POST("/messages/direct/:user_id/read", chatH.MarkDirectRead)
	authed.GET("/messages/group/:group_id", chatH.ListGroupMessages)
	authed.POST("/messages/group/:group_id/read", chatH.MarkGroupRead)

	groupH := &GroupHandler{Groups: groups}
	authed.POST("/groups", groupH.Create)
	authed.GET("/groups", groupH.List)
	authed.GET("/groups/:id", groupH.Get)
	authed.POST("/groups/:id/members", groupH.AddMember)
	authed.DELETE("/groups/:id/members/:user_id", groupH.RemoveMember)
	authed.POST("/groups/:id/admins/:user_id", groupH.SetAdmin)
	authed.DELETE("/groups/:id/admins/:user_id", groupH.UnsetAdmin)
	authed.POST("/groups/:id/leave", groupH.Leave)

	return &apiFixture{engine: r, store: msgs, db: db}
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// register returns the user's id and access token.
func (f *apiFixture) register(t *testing.T, username string) (uint, string) {
	t.Helper()
	body := fmt.Sprintf(`{"username": %q, "password": "password1"}`, username)
	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.register(t, "alice")

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username": "alice", "password": "password1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username": "alice", "password": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/users/me", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	w = f.do(t, http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceTok := f.register(t, "alice")
	bobID, bobTok := f.register(t, "bob")
	carolID, carolTok := f.register(t, "carol")

	body := fmt.Sprintf(`{"name": "Team", "member_ids": [%d]}`, bobID)
	w := f.do(t, http.MethodPost, "/api/v1/groups", aliceTok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	groupID := created.Data.ID

	// short names are rejected before persistence
	w = f.do(t, http.MethodPost, "/api/v1/groups", aliceTok, `{"name": "ab"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a plain member cannot add
	addBody := fmt.Sprintf(`{"user_id": %d}`, carolID)
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/members", groupID), bobTok, addBody)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/members", groupID), aliceTok, addBody)
	assert.Equal(t, http.StatusOK, w.Code)

	// group info lists members with roles
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/groups/%d", groupID), aliceTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "creator")
	assert.Contains(t, w.Body.String(), "carol")

	// outsider cannot read group history
	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/group/%d", groupID), carolTok, "")
	assert.Equal(t, http.StatusOK, w.Code) // carol is a member now

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/leave", groupID), carolTok, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/group/%d", groupID), carolTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// creator cannot leave
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/groups/%d/leave", groupID), aliceTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessagesAndReadState(t *testing.T) {
	f := newAPIFixture(t)
	aliceID, aliceTok := f.register(t, "alice")
	bobID, bobTok := f.register(t, "bob")

	content := "hello bob"
	require.NoError(t, f.store.Append(&models.Message{
		SenderID:   aliceID,
		ReceiverID: &bobID,
		Content:    &content,
	}))

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/direct/%d", aliceID), bobTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello bob")

	w = f.do(t, http.MethodGet, "/api/v1/conversations", bobTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":1`)

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/messages/direct/%d/read", aliceID), bobTok, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/conversations", bobTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":0`)

	// sender sees no unread in that conversation
	w = f.do(t, http.MethodGet, "/api/v1/conversations", aliceTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":0`)
}

func TestUserSearch(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceTok := f.register(t, "alice")
	f.register(t, "bob")
	f.register(t, "bobby")

	w := f.do(t, http.MethodGet, "/api/v1/users/search?query=bob", aliceTok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bob")
	assert.Contains(t, w.Body.String(), "bobby")
	assert.NotContains(t, w.Body.String(), "alice")
}
