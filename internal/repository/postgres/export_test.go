package postgres

import (
	"context"

	"github.com/google/uuid"
)

func (s *Storage) AttachTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	return attachTags(ctx, s.pool, taskID, tagIDs)
}

func (s *Storage) DetachTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	return detachTags(ctx, s.pool, taskID, tagIDs)
}
