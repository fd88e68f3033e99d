package service

import (
	"context"

	"CycleScope/internal/domain/models"
)

// Notifier alerts humans when the discretised composite signal moves.
type Notifier interface {
	NotifySignalChange(ctx context.Context, prev, cur models.CompositeScore) error
}
