package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"groupledger/internal/models"
	"groupledger/internal/storage"
)

// GroupService manages groups and their membership. Membership writes
// are read-modify-write sequences over the whole member set, so they
// hold a per-group lock to keep concurrent changes from overwriting
// each other.
type GroupService struct {
	store        storage.Store
	locks        *keyedMutex
	storeTimeout time.Duration
}

// NewGroupService creates a group service backed by the given store.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{
		store:        store,
		locks:        newKeyedMutex(),
		storeTimeout: defaultStoreTimeout,
	}
}

// CreateGroup creates a group with the creator as its sole owner.
func (s *GroupService) CreateGroup(ctx context.Context, userID, name, description string) (*models.Group, error) {
	slog.Info("CreateGroup request received", "user_id", userID, "name", name)

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	creator, err := s.store.GetUserByID(opCtx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	now := time.Now().Unix()
	group := &models.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Members: map[string]models.Member{
			creator.ID: {
				UserID:      creator.ID,
				Email:       creator.Email,
				DisplayName: creator.DisplayName,
				Role:        models.RoleOwner,
				JoinedAt:    now,
			},
		},
		CreatedAt: now,
	}

	if err := storeErr(s.store.CreateGroup(opCtx, group)); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, ErrNotGroupMember
	}
	return group, nil
}

// ListGroups retrieves every group the caller belongs to.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	groups, err := s.store.ListGroupsByMember(opCtx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return groups, nil
}

// UpdateGroup renames a group. Only managers may update.
func (s *GroupService) UpdateGroup(ctx context.Context, userID, groupID, name, description string) (*models.Group, error) {
	slog.Info("UpdateGroup request received", "group_id", groupID, "user_id", userID)

	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(userID) {
		return nil, ErrNotGroupMember
	}
	if !group.CanManage(userID) {
		return nil, ErrPermissionDenied
	}

	group.Name = name
	group.Description = description

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if err := storeErr(s.store.UpdateGroup(opCtx, group)); err != nil {
		slog.Error("UpdateGroup failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Group updated", "group_id", group.ID)
	return group, nil
}

// AddMember adds a registered user to a group by email. Only managers
// may add members, and the owner role cannot be granted this way.
func (s *GroupService) AddMember(ctx context.Context, callerID, groupID, email string, role models.Role) (*models.Group, error) {
	slog.Info("AddMember request received", "group_id", groupID, "caller_id", callerID)

	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(callerID) {
		return nil, ErrNotGroupMember
	}
	if !group.CanManage(callerID) {
		return nil, ErrPermissionDenied
	}
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return nil, fmt.Errorf("role %s: %w", role, ErrPermissionDenied)
	}

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.store.GetUserByEmail(opCtx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	if group.IsMember(user.ID) {
		return nil, ErrAlreadyMember
	}

	group.Members[user.ID] = models.Member{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        role,
		JoinedAt:    time.Now().Unix(),
	}

	if err := storeErr(s.store.UpdateGroup(opCtx, group)); err != nil {
		slog.Error("AddMember failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Member added", "group_id", group.ID, "member_id", user.ID, "role", role)
	return group, nil
}

// RemoveMember removes a member from a group. A member may remove
// themselves; removing anyone else requires a manager role. The owner
// can only leave as the last remaining member, in which case the empty
// group is deleted.
func (s *GroupService) RemoveMember(ctx context.Context, callerID, groupID, userID string) error {
	slog.Info("RemoveMember request received", "group_id", groupID, "caller_id", callerID, "member_id", userID)

	unlock := s.locks.Lock(groupID)
	defer unlock()

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsMember(callerID) {
		return ErrNotGroupMember
	}
	member, ok := group.Members[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotGroupMember)
	}
	if callerID != userID && !group.CanManage(callerID) {
		return ErrPermissionDenied
	}
	if member.Role == models.RoleOwner && len(group.Members) > 1 {
		return fmt.Errorf("owner cannot leave a non-empty group: %w", ErrPermissionDenied)
	}

	delete(group.Members, userID)

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if len(group.Members) == 0 {
		if err := storeErr(s.store.DeleteGroup(opCtx, groupID)); err != nil {
			slog.Error("RemoveMember failed to delete empty group", "group_id", groupID, "error", err)
			return err
		}
		slog.Info("Group deleted, last member left", "group_id", groupID)
		return nil
	}
	if err := storeErr(s.store.UpdateGroup(opCtx, group)); err != nil {
		slog.Error("RemoveMember failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Member removed", "group_id", groupID, "member_id", userID)
	return nil
}

// DeleteGroup removes a group and all of its expenses. Owner only.
func (s *GroupService) DeleteGroup(ctx context.Context, callerID, groupID string) error {
	slog.Info("DeleteGroup request received", "group_id", groupID, "caller_id", callerID)

	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	member, ok := group.Members[callerID]
	if !ok {
		return ErrNotGroupMember
	}
	if member.Role != models.RoleOwner {
		return ErrPermissionDenied
	}

	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	if err := storeErr(s.store.DeleteGroup(opCtx, groupID)); err != nil {
		slog.Error("DeleteGroup failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Group deleted", "group_id", groupID)
	return nil
}

func (s *GroupService) getGroup(ctx context.Context, groupID string) (*models.Group, error) {
	opCtx, cancel := storeCtx(ctx, s.storeTimeout)
	defer cancel()
	group, err := s.store.GetGroup(opCtx, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	return group, nil
}
