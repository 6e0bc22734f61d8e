package service

import (
	"context"

	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/types"
)

// UserService backs the admin user endpoints.
type UserService struct {
	users repository.UserRepo
	audit *AuditService
}

func NewUserService(users repository.UserRepo, audit *AuditService) *UserService {
	return &UserService{
		users: users,
		audit: audit,
	}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.users.Get(ctx, id)
}

func (s *UserService) PaginateUsers(ctx context.Context, offset, limit int64) ([]*types.User, bool, error) {
	return s.users.Paginate(ctx, offset, limit)
}

// UpdateRole changes a user's role and records the change in the audit log.
func (s *UserService) UpdateRole(ctx context.Context, actor *types.User, userID, role string) (*types.User, error) {
	before, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor.ID, ActionUserRoleChange, "user", userID, map[string]string{
		"from": before.Role,
		"to":   updated.Role,
	})
	return updated, nil
}
