package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// CheckpointStore persists the last block up to which the ledger is reflected in the store
//
//go:generate mockgen -source=checkpoint.go -destination=../mocks/checkpoint_store.go -package=mocks -mock_names=CheckpointStore=MockCheckpointStore,SyncStore=MockSyncStore
type CheckpointStore interface {
	// GetCheckpoint returns the stored block and whether one is set
	GetCheckpoint(ctx context.Context) (uint64, bool, error)
	// SetCheckpoint stores block. Last write wins.
	SetCheckpoint(ctx context.Context, block uint64) error
	// ClearCheckpoint removes the stored block
	ClearCheckpoint(ctx context.Context) error
}

// SyncStore is the part of the store the sync engine drives
type SyncStore interface {
	CheckpointStore
	// Flush deletes every row of every table
	Flush(ctx context.Context) error
}

// GetCheckpoint returns the stored block and whether one is set
func (s *gormStore) GetCheckpoint(ctx context.Context) (uint64, bool, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", domain.CheckpointKey).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	block, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse checkpoint %q: %w", kv.Value, err)
	}

	return block, true, nil
}

// SetCheckpoint stores block under the checkpoint key
func (s *gormStore) SetCheckpoint(ctx context.Context, block uint64) error {
	kv := schema.KeyValueStore{
		Key:   domain.CheckpointKey,
		Value: strconv.FormatUint(block, 10),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}

	return nil
}

// ClearCheckpoint removes the checkpoint row
func (s *gormStore) ClearCheckpoint(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("key = ?", domain.CheckpointKey).Delete(&schema.KeyValueStore{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
