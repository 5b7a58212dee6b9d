package sqlite

import (
	"github.com/google/uuid"
)

func (s *Storage) DetachTags(taskID uuid.UUID, tagIDs []uuid.UUID) error {
	return detachTags(s.db, taskID, tagIDs)
}
