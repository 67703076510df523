package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/zhanyysh/Chat02/internal/auth"
	"github.com/zhanyysh/Chat02/internal/config"
	"github.com/zhanyysh/Chat02/internal/database"
	"github.com/zhanyysh/Chat02/internal/group"
	"github.com/zhanyysh/Chat02/internal/http/handlers"
	"github.com/zhanyysh/Chat02/internal/http/middleware"
	"github.com/zhanyysh/Chat02/internal/logger"
	"github.com/zhanyysh/Chat02/internal/models"
	"github.com/zhanyysh/Chat02/internal/store"
	"github.com/zhanyysh/Chat02/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DBDSN == "" || cfg.JWTSecret == "" {
		log.Fatal("DB_DSN and JWT_SECRET must be set")
	}

	zlog, err := logger.New(cfg.DevLog)
	if err != nil {
		log.Fatal("failed init logger:", err)
	}
	defer zlog.Sync()

	db, err := database.ConnectMySQL(cfg.DBDSN)
	if err != nil {
		zlog.Fatalw("failed connect db", "error", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Message{},
		&models.Attachment{},
	); err != nil {
		zlog.Fatalw("failed migrate", "error", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		zlog.Fatalw("failed create upload dir", "error", err)
	}

	msgs := store.NewMessageStore(db)
	users := store.NewUserStore(db)
	groups := group.NewService(db, msgs, zlog)
	registry := ws.NewRegistry(zlog)
	router := ws.NewRouter(msgs, users, groups, registry, zlog)
	tokens := auth.NewTokenService(cfg.JWTSecret, 7*24*time.Hour)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	authH := &handlers.AuthHandler{DB: db, Users: users, Tokens: tokens}
	r.POST("/api/v1/auth/register", authH.Register)
	r.POST("/api/v1/auth/login", authH.Login)

	wsH := &handlers.WSHandler{
		Registry:             registry,
		Router:               router,
		Resolver:             tokens,
		Log:                  zlog,
		WSInsecureSkipVerify: cfg.WSInsecureSkipVerify,
	}
	r.GET("/ws", wsH.Handle)

	r.Static("/uploads", cfg.UploadDir)

	authed := r.Group("/api/v1")
	authed.Use(middleware.Auth(tokens))

	authed.GET("/users/me", authH.Me)
	authed.GET("/users/search", authH.Search)

	chatH := &handlers.ChatHandler{Store: msgs, Groups: groups}
	authed.GET("/conversations", chatH.RecentConversations)
	authed.GET("/messages/direct/:user_id", chatH.ListDirectMessages)
	authed.POST("/messages/direct/:user_id/read", chatH.MarkDirectRead)
	authed.GET("/messages/group/:group_id", chatH.ListGroupMessages)
	authed.POST("/messages/group/:group_id/read", chatH.MarkGroupRead)

	groupH := &handlers.GroupHandler{Groups: groups}
	authed.POST("/groups", groupH.Create)
	authed.GET("/groups", groupH.List)
	authed.GET("/groups/:id", groupH.Get)
	authed.POST("/groups/:id/members", groupH.AddMember)
	authed.DELETE("/groups/:id/members/:user_id", groupH.RemoveMember)
	authed.POST("/groups/:id/admins/:user_id", groupH.SetAdmin)
	authed.DELETE("/groups/:id/admins/:user_id", groupH.UnsetAdmin)
	authed.POST("/groups/:id/leave", groupH.Leave)

	uploadH := &handlers.UploadHandler{Dir: cfg.UploadDir}
	authed.POST("/upload", uploadH.Upload)

	addr := fmt.Sprintf(":%d", cfg.Port)
	zlog.Infow("listening", "addr", addr)
	log.Fatal(r.Run(addr))
}
