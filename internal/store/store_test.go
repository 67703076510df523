package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhanyysh/Chat02/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

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
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedGroup(t *testing.T, db *gorm.DB, creatorID uint, memberIDs ...uint) *models.Group {
	t.Helper()
	g := &models.Group{Name: "test group", CreatorID: creatorID}
	require.NoError(t, db.Create(g).Error)
	require.NoError(t, db.Create(&models.GroupMember{GroupID: g.ID, UserID: creatorID, Role: models.RoleCreator}).Error)
	for _, id := range memberIDs {
		require.NoError(t, db.Create(&models.GroupMember{GroupID: g.ID, UserID: id, Role: models.RoleMember}).Error)
	}
	return g
}

func str(s string) *string { return &s }

func directMsg(sender, receiver uint, content string) *models.Message {
	return &models.Message{SenderID: sender, ReceiverID: &receiver, Content: str(content)}
}

func groupMsg(sender, groupID uint, content string) *models.Message {
	return &models.Message{SenderID: sender, GroupID: &groupID, Content: str(content)}
}
