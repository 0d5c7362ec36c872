package store

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/geohash"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func contourLockKey(key domain.TokenKey) string {
	return "contour|" + key.String()
}

// UpsertContour replaces the stored contour of key with cells.
// Cells dropped from the contour are deleted, new ones inserted and survivors moved to their new position.
// A cell repeated in cells keeps its first position.
func (s *gormStore) UpsertContour(ctx context.Context, key domain.TokenKey, cells []string, opts ContourOptions) error {
	if err := geohash.ValidateAll(cells); err != nil {
		return err
	}
	key = domain.NewTokenKey(key.TokenID, key.ContractAddress)

	unlock := s.locks.Lock(contourLockKey(key))
	defer unlock()

	positions := make(map[string]int, len(cells))
	ordered := make([]string, 0, len(cells))
	for i, c := range cells {
		if _, ok := positions[c]; ok {
			continue
		}
		positions[c] = i
		ordered = append(ordered, c)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored []schema.ContourCell
		err := tx.Where("token_id = ? AND contract_address = ?", key.TokenID, key.ContractAddress).
			Find(&stored).Error
		if err != nil {
			return err
		}

		existing := make(map[string]schema.ContourCell, len(stored))
		var removed []uint64
		for _, c := range stored {
			if _, keep := positions[c.Geohash]; !keep {
				removed = append(removed, c.ID)
				continue
			}
			existing[c.Geohash] = c
		}

		if len(removed) > 0 {
			if err := tx.Where("id IN ?", removed).Delete(&schema.ContourCell{}).Error; err != nil {
				return err
			}
		}

		var added []schema.ContourCell
		for _, cell := range ordered {
			pos := positions[cell]
			old, ok := existing[cell]
			if !ok {
				added = append(added, schema.ContourCell{
					TokenID:         key.TokenID,
					ContractAddress: key.ContractAddress,
					Geohash:         cell,
					Position:        pos,
					Level:           opts.Level,
					TokenType:       opts.TokenType,
				})
				continue
			}
			if old.Position == pos && equalOpt(old.Level, opts.Level) && equalOpt(old.TokenType, opts.TokenType) {
				continue
			}
			err := tx.Model(&schema.ContourCell{}).Where("id = ?", old.ID).Updates(map[string]any{
				"position":   pos,
				"level":      opts.Level,
				"token_type": opts.TokenType,
			}).Error
			if err != nil {
				return err
			}
		}

		if len(added) > 0 {
			if err := tx.CreateInBatches(added, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert contour of %s: %w", key, err)
	}
	return nil
}

// GetContour returns the contour of key in ring order
func (s *gormStore) GetContour(ctx context.Context, key domain.TokenKey) ([]string, error) {
	key = domain.NewTokenKey(key.TokenID, key.ContractAddress)

	var cells []string
	err := s.db.WithContext(ctx).Model(&schema.ContourCell{}).
		Where("token_id = ? AND contract_address = ?", key.TokenID, key.ContractAddress).
		Order("position ASC").
		Pluck("geohash", &cells).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get contour of %s: %w", key, err)
	}
	return cells, nil
}

// DeleteContour removes every cell of key
func (s *gormStore) DeleteContour(ctx context.Context, key domain.TokenKey) error {
	key = domain.NewTokenKey(key.TokenID, key.ContractAddress)

	unlock := s.locks.Lock(contourLockKey(key))
	defer unlock()

	if err := deleteContour(s.db.WithContext(ctx), key); err != nil {
		return fmt.Errorf("failed to delete contour of %s: %w", key, err)
	}
	return nil
}

func deleteContour(tx *gorm.DB, key domain.TokenKey) error {
	return tx.Where("token_id = ? AND contract_address = ?", key.TokenID, key.ContractAddress).
		Delete(&schema.ContourCell{}).Error
}

// FindByParentGeohash returns every token with at least one cell under prefix
func (s *gormStore) FindByParentGeohash(ctx context.Context, prefix string, filter ContourFilter) ([]ContourResult, error) {
	return s.FindByParentGeohashes(ctx, []string{prefix}, filter)
}

// FindByParentGeohashes returns every token with a cell under any of prefixes, once per token
func (s *gormStore) FindByParentGeohashes(ctx context.Context, prefixes []string, filter ContourFilter) ([]ContourResult, error) {
	if len(prefixes) == 0 {
		return []ContourResult{}, nil
	}

	conds := s.db.WithContext(ctx)
	for i, p := range prefixes {
		p = geohash.Truncate(p)
		if err := geohash.Validate(p); err != nil {
			return nil, err
		}
		if i == 0 {
			conds = conds.Where("geohash LIKE ?", p+"%")
		} else {
			conds = conds.Or("geohash LIKE ?", p+"%")
		}
	}

	q := applyContourFilter(s.db.WithContext(ctx).Model(&schema.ContourCell{}), filter).Where(conds)
	return s.matchedContours(ctx, q)
}

// FindByExactGeohash returns every token whose contour contains cell
func (s *gormStore) FindByExactGeohash(ctx context.Context, cell string, filter ContourFilter) ([]ContourResult, error) {
	if err := geohash.Validate(cell); err != nil {
		return nil, err
	}

	q := applyContourFilter(s.db.WithContext(ctx).Model(&schema.ContourCell{}), filter).
		Where("geohash = ?", cell)
	return s.matchedContours(ctx, q)
}

func applyContourFilter(q *gorm.DB, filter ContourFilter) *gorm.DB {
	if filter.ContractAddress != "" {
		q = q.Where("contract_address = ?", domain.NormalizeAddress(filter.ContractAddress))
	}
	if filter.Level != nil {
		q = q.Where("level = ?", *filter.Level)
	}
	return q
}

// matchedContours loads the full contour of every token selected by q
func (s *gormStore) matchedContours(ctx context.Context, q *gorm.DB) ([]ContourResult, error) {
	var keys []domain.TokenKey
	err := q.Distinct("token_id", "contract_address").
		Order("contract_address ASC").Order("token_id ASC").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to match contours: %w", err)
	}
	if len(keys) == 0 {
		return []ContourResult{}, nil
	}

	byContract := make(map[string][]string)
	for _, k := range keys {
		byContract[k.ContractAddress] = append(byContract[k.ContractAddress], k.TokenID)
	}

	results := make(map[domain.TokenKey]*ContourResult, len(keys))
	for contract, ids := range byContract {
		var cells []schema.ContourCell
		err := s.db.WithContext(ctx).
			Where("contract_address = ? AND token_id IN ?", contract, ids).
			Order("position ASC").
			Find(&cells).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load contours: %w", err)
		}
		for _, c := range cells {
			k := domain.TokenKey{TokenID: c.TokenID, ContractAddress: c.ContractAddress}
			r, ok := results[k]
			if !ok {
				r = &ContourResult{
					TokenID:         c.TokenID,
					ContractAddress: c.ContractAddress,
					Level:           c.Level,
					TokenType:       c.TokenType,
				}
				results[k] = r
			}
			r.Contour = append(r.Contour, c.Geohash)
		}
	}

	out := make([]ContourResult, 0, len(results))
	for _, k := range keys {
		if r, ok := results[k]; ok {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContractAddress != out[j].ContractAddress {
			return out[i].ContractAddress < out[j].ContractAddress
		}
		return out[i].TokenID < out[j].TokenID
	})
	return out, nil
}

func equalOpt(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
