package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// GetGeoToken returns nil when the token is not stored
func (s *gormStore) GetGeoToken(ctx context.Context, key domain.TokenKey) (*schema.GeoToken, error) {
	var token schema.GeoToken
	ok, err := first(s.db.WithContext(ctx), tokenRowKey(key), &token)
	if err != nil || !ok {
		return nil, err
	}
	return &token, nil
}

func (s *gormStore) UpsertGeoToken(ctx context.Context, key domain.TokenKey, p *patch.Patch) error {
	_, err := s.upsert(ctx, tokenRowKey(key), p)
	return err
}

// DeleteGeoToken removes the token with its owners, features, memberships and contour
func (s *gormStore) DeleteGeoToken(ctx context.Context, key domain.TokenKey) error {
	key = domain.NewTokenKey(key.TokenID, key.ContractAddress)
	k := tokenRowKey(key)

	unlock := s.locks.Lock(k.lockKey())
	defer unlock()
	unlockContour := s.locks.Lock(contourLockKey(key))
	defer unlockContour()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head, err := lookupRow(tx, k)
		if err != nil {
			return err
		}
		if head != nil {
			for _, m := range []tabler{
				&schema.GeoTokenOwner{},
				&schema.GeoTokenFeature{},
				&schema.SaleOrderToken{},
				&schema.ApplicationToken{},
				&schema.CommunityToken{},
				&schema.CommunityApprovedToken{},
			} {
				if err := tx.Where("geo_token_id = ?", head.ID).Delete(m).Error; err != nil {
					return fmt.Errorf("failed to delete %s rows: %w", m.TableName(), err)
				}
			}
			if err := tx.Delete(&schema.GeoToken{}, head.ID).Error; err != nil {
				return err
			}
		}
		return deleteContour(tx, key)
	})
	if err != nil {
		return fmt.Errorf("failed to delete token %s: %w", key, err)
	}
	return nil
}

// SetTokenOwners replaces the owners of the token, keeping their order
func (s *gormStore) SetTokenOwners(ctx context.Context, key domain.TokenKey, owners []string) error {
	normalized := make([]string, len(owners))
	for i, o := range owners {
		normalized[i] = domain.NormalizeAddress(o)
	}
	normalized = dedupStrings(normalized)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := requireTokenID(tx, key)
		if err != nil {
			return err
		}
		if err := tx.Where("geo_token_id = ?", id).Delete(&schema.GeoTokenOwner{}).Error; err != nil {
			return err
		}
		if len(normalized) == 0 {
			return nil
		}
		rows := make([]schema.GeoTokenOwner, len(normalized))
		for i, o := range normalized {
			rows[i] = schema.GeoTokenOwner{GeoTokenID: id, Address: o, Position: i}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to set owners of token %s: %w", key, err)
	}
	return nil
}

func (s *gormStore) GetTokenOwners(ctx context.Context, key domain.TokenKey) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).Model(&schema.GeoTokenOwner{}).
		Joins("JOIN geo_tokens ON geo_tokens.id = geo_token_owners.geo_token_id").
		Where("geo_tokens.token_id = ? AND geo_tokens.contract_address = ?", key.TokenID, domain.NormalizeAddress(key.ContractAddress)).
		Order("geo_token_owners.position ASC").
		Pluck("geo_token_owners.address", &owners).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get owners of token %s: %w", key, err)
	}
	return owners, nil
}

// SetTokenFeatures replaces the feature set of the token
func (s *gormStore) SetTokenFeatures(ctx context.Context, key domain.TokenKey, features []string) error {
	features = dedupStrings(features)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := requireTokenID(tx, key)
		if err != nil {
			return err
		}
		if err := tx.Where("geo_token_id = ?", id).Delete(&schema.GeoTokenFeature{}).Error; err != nil {
			return err
		}
		if len(features) == 0 {
			return nil
		}
		rows := make([]schema.GeoTokenFeature, len(features))
		for i, f := range features {
			rows[i] = schema.GeoTokenFeature{GeoTokenID: id, Feature: f}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to set features of token %s: %w", key, err)
	}
	return nil
}

func (s *gormStore) GetTokenFeatures(ctx context.Context, key domain.TokenKey) ([]string, error) {
	var features []string
	err := s.db.WithContext(ctx).Model(&schema.GeoTokenFeature{}).
		Joins("JOIN geo_tokens ON geo_tokens.id = geo_token_features.geo_token_id").
		Where("geo_tokens.token_id = ? AND geo_tokens.contract_address = ?", key.TokenID, domain.NormalizeAddress(key.ContractAddress)).
		Order("geo_token_features.feature ASC").
		Pluck("geo_token_features.feature", &features).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get features of token %s: %w", key, err)
	}
	return features, nil
}

func (s *gormStore) GetTokenCommunities(ctx context.Context, key domain.TokenKey) ([]schema.Community, error) {
	var communities []schema.Community
	err := s.db.WithContext(ctx).
		Joins("JOIN community_tokens ON community_tokens.community_id = communities.id").
		Joins("JOIN geo_tokens ON geo_tokens.id = community_tokens.geo_token_id").
		Where("geo_tokens.token_id = ? AND geo_tokens.contract_address = ?", key.TokenID, domain.NormalizeAddress(key.ContractAddress)).
		Order("communities.id ASC").
		Find(&communities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get communities of token %s: %w", key, err)
	}
	return communities, nil
}

func (s *gormStore) FilterGeoTokens(ctx context.Context, filter TokenFilter) ([]schema.GeoToken, int64, error) {
	preds, err := filter.predicates()
	if err != nil {
		return nil, 0, err
	}
	return search[schema.GeoToken](s.db.WithContext(ctx), &schema.GeoToken{}, filter.Query,
		filter.order(tokenSortable, "id"), preds)
}

func requireTokenID(tx *gorm.DB, key domain.TokenKey) (uint64, error) {
	head, err := lookupRow(tx, tokenRowKey(key))
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, fmt.Errorf("token %s: %w", key, domain.ErrNotFound)
	}
	return head.ID, nil
}

// tokensByIDs loads tokens keeping the order of ids
func tokensByIDs(tx *gorm.DB, ids []uint64) ([]schema.GeoToken, error) {
	if len(ids) == 0 {
		return []schema.GeoToken{}, nil
	}
	var tokens []schema.GeoToken
	if err := tx.Where("id IN ?", ids).Find(&tokens).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]schema.GeoToken, len(tokens))
	for _, t := range tokens {
		byID[t.ID] = t
	}
	out := make([]schema.GeoToken, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
