package group

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zhanyysh/Chat02/internal/apperr"
	"github.com/zhanyysh/Chat02/internal/models"
)

const minNameLen = 3

// MessagePurger removes a departed member's messages from a group. Satisfied
// by store.MessageStore.
type MessagePurger interface {
	PurgeBySender(groupID, userID uint) error
}

// MemberInfo is a membership row joined with the user's public fields.
type MemberInfo struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

// Service authorizes and applies group membership mutations. Every mutation
// on one group runs under that group's lock, so two concurrent role changes
// cannot interleave into an inconsistent state.
type Service struct {
	db     *gorm.DB
	purger MessagePurger
	log    *zap.SugaredLogger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewService(db *gorm.DB, purger MessagePurger, log *zap.SugaredLogger) *Service {
	return &Service{
		db:     db,
		purger: purger,
		log:    log,
		locks:  map[uint]*sync.Mutex{},
	}
}

func (s *Service) lockGroup(groupID uint) func() {
	s.mu.Lock()
	l, ok := s.locks[groupID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[groupID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateGroup creates a group with the creator and all of memberIDs as
// members. The creator is implicitly included. Every id must resolve to an
// existing user or the whole call fails.
func (s *Service) CreateGroup(creatorID uint, name, description string, memberIDs []uint) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minNameLen {
		return nil, apperr.ErrInvalidName
	}

	ids := []uint{creatorID}
	seen := map[uint]bool{creatorID: true}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	g := &models.Group{Name: name, Description: description, CreatorID: creatorID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return apperr.ErrUnknownMember
		}
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		members := make([]models.GroupMember, 0, len(ids))
		for _, id := range ids {
			role := models.RoleMember
			if id == creatorID {
				role = models.RoleCreator
			}
			members = append(members, models.GroupMember{GroupID: g.ID, UserID: id, Role: role})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("group created", "group_id", g.ID, "creator_id", creatorID, "members", len(ids))
	return g, nil
}

// AddMember adds newUserID to the group. The actor must be the creator or an
// admin.
func (s *Service) AddMember(groupID, actorID, newUserID uint) error {
	defer s.lockGroup(groupID)()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		if err := requireElevated(tx, groupID, actorID); err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, newUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrUnknownUser
			}
			return err
		}
		if m, err := memberOf(tx, groupID, newUserID); err != nil {
			return err
		} else if m != nil {
			return apperr.ErrAlreadyMember
		}
		return tx.Create(&models.GroupMember{GroupID: groupID, UserID: newUserID, Role: models.RoleMember}).Error
	})
}

// RemoveMember removes targetID from the group and purges their messages in
// it. The creator can never be removed; an admin target can only be removed
// by the creator.
func (s *Service) RemoveMember(groupID, actorID, targetID uint) error {
	unlock := s.lockGroup(groupID)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		actor, err := memberOf(tx, groupID, actorID)
		if err != nil {
			return err
		}
		if actor == nil || actor.Role == models.RoleMember {
			return apperr.ErrNotAuthorized
		}
		target, err := memberOf(tx, groupID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.ErrNotAMember
		}
		if target.Role == models.RoleCreator {
			return apperr.ErrNotAuthorized
		}
		if target.Role == models.RoleAdmin && actor.Role != models.RoleCreator {
			return apperr.ErrNotAuthorized
		}
		return tx.Delete(&models.GroupMember{}, target.ID).Error
	})
	unlock()
	if err != nil {
		return err
	}

	if err := s.purger.PurgeBySender(groupID, targetID); err != nil {
		s.log.Errorw("purge after removal failed", "group_id", groupID, "user_id", targetID, "error", err)
	}
	s.log.Infow("member removed", "group_id", groupID, "actor_id", actorID, "user_id", targetID)
	return nil
}

// SetAdmin promotes a member to admin.
func (s *Service) SetAdmin(groupID, actorID, targetID uint) error {
	return s.setRole(groupID, actorID, targetID, models.RoleAdmin)
}

// UnsetAdmin demotes an admin back to member.
func (s *Service) UnsetAdmin(groupID, actorID, targetID uint) error {
	return s.setRole(groupID, actorID, targetID, models.RoleMember)
}

func (s *Service) setRole(groupID, actorID, targetID uint, role string) error {
	defer s.lockGroup(groupID)()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		if err := requireElevated(tx, groupID, actorID); err != nil {
			return err
		}
		target, err := memberOf(tx, groupID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.ErrNotAMember
		}
		if target.Role == models.RoleCreator {
			return apperr.ErrNotAuthorized
		}
		if target.Role == role {
			return apperr.ErrNoOp
		}
		return tx.Model(target).Update("role", role).Error
	})
}

// Leave removes the caller's own membership and purges their messages. The
// creator cannot leave, which keeps every group at one member minimum.
func (s *Service) Leave(groupID, userID uint) error {
	unlock := s.lockGroup(groupID)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		m, err := memberOf(tx, groupID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.ErrNotAMember
		}
		if m.Role == models.RoleCreator {
			return apperr.ErrCreatorCannotLeave
		}
		return tx.Delete(&models.GroupMember{}, m.ID).Error
	})
	unlock()
	if err != nil {
		return err
	}

	if err := s.purger.PurgeBySender(groupID, userID); err != nil {
		s.log.Errorw("purge after leave failed", "group_id", groupID, "user_id", userID, "error", err)
	}
	s.log.Infow("member left", "group_id", groupID, "user_id", userID)
	return nil
}

func (s *Service) Get(groupID uint) (*models.Group, error) {
	var g models.Group
	if err := s.db.First(&g, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUnknownGroup
		}
		return nil, err
	}
	return &g, nil
}

// GroupsFor lists the groups the user belongs to.
func (s *Service) GroupsFor(userID uint) ([]models.Group, error) {
	var ids []uint
	if err := s.db.Model(&models.GroupMember{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("group_id", &ids).Error; err != nil {
		return nil, err
	}
	groups := []models.Group{}
	if len(ids) == 0 {
		return groups, nil
	}
	err := s.db.Where("id IN ?", ids).Order("id ASC").Find(&groups).Error
	return groups, err
}

// Members lists the group's membership rows joined with usernames.
func (s *Service) Members(groupID uint) ([]MemberInfo, error) {
	if err := groupExists(s.db, groupID); err != nil {
		return nil, err
	}
	var members []MemberInfo
	err := s.db.Model(&models.GroupMember{}).
		Select("group_members.user_id", "users.username", "users.avatar_url", "group_members.role").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.id ASC").
		Scan(&members).Error
	return members, err
}

// MemberIDs resolves the current recipient set for a group fan-out.
func (s *Service) MemberIDs(groupID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *Service) IsMember(groupID, userID uint) (bool, error) {
	m, err := memberOf(s.db, groupID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

func groupExists(tx *gorm.DB, groupID uint) error {
	var g models.Group
	if err := tx.Select("id").First(&g, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUnknownGroup
		}
		return err
	}
	return nil
}

func memberOf(tx *gorm.DB, groupID, userID uint) (*models.GroupMember, error) {
	var m models.GroupMember
	err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func requireElevated(tx *gorm.DB, groupID, actorID uint) error {
	actor, err := memberOf(tx, groupID, actorID)
	if err != nil {
		return err
	}
	if actor == nil || actor.Role == models.RoleMember {
		return apperr.ErrNotAuthorized
	}
	return nil
}
