package service

import (
	"context"
	"encoding/json"

	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/types"
	"go.uber.org/zap"
)

const ActionUserRoleChange = "USER_ROLE_CHANGE"

// AuditService records admin actions. Writes are best-effort: a failed audit
// insert is logged and never fails the action it describes.
type AuditService struct {
	entries repository.AuditLogRepo
}

func NewAuditService(entries repository.AuditLogRepo) *AuditService {
	return &AuditService{
		entries: entries,
	}
}

func (s *AuditService) Record(ctx context.Context, actorID, action, resourceType, resourceID string, metadata any) {
	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			logger.Warn("audit metadata encoding failed", zap.String("action", action), zap.Error(err))
		} else {
			raw = encoded
		}
	}
	entry := &types.AuditLogEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     raw,
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		logger.Warn("audit insert failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, offset, limit int64) ([]types.AuditLogEntry, bool, error) {
	return s.entries.List(ctx, offset, limit)
}
