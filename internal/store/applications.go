package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func applicationRowKey(key ApplicationKey) rowKey {
	return newRowKey(&schema.Application{},
		"application_id", key.ApplicationID,
		"contract_address", domain.NormalizeAddress(key.ContractAddress))
}

func (s *gormStore) GetApplication(ctx context.Context, key ApplicationKey) (*schema.Application, error) {
	var app schema.Application
	ok, err := first(s.db.WithContext(ctx), applicationRowKey(key), &app)
	if err != nil || !ok {
		return nil, err
	}
	return &app, nil
}

func (s *gormStore) UpsertApplication(ctx context.Context, key ApplicationKey, p *patch.Patch) error {
	_, err := s.upsert(ctx, applicationRowKey(key), p)
	return err
}

func requireApplicationID(tx *gorm.DB, key ApplicationKey) (uint64, error) {
	head, err := lookupRow(tx, applicationRowKey(key))
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, fmt.Errorf("application %s/%s: %w", key.ContractAddress, key.ApplicationID, domain.ErrNotFound)
	}
	return head.ID, nil
}

// SetApplicationRoles replaces the assigned roles, pending roles and oracles of the application
func (s *gormStore) SetApplicationRoles(ctx context.Context, key ApplicationKey, roles, availableRoles, oracles []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := requireApplicationID(tx, key)
		if err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", id).Delete(&schema.ApplicationRole{}).Error; err != nil {
			return err
		}

		var rows []schema.ApplicationRole
		add := func(kind string, values []string) {
			for _, v := range dedupStrings(values) {
				rows = append(rows, schema.ApplicationRole{ApplicationID: id, Kind: kind, Value: v})
			}
		}
		add(schema.ApplicationRoleKindRole, roles)
		add(schema.ApplicationRoleKindAvailable, availableRoles)
		normalized := make([]string, len(oracles))
		for i, o := range oracles {
			normalized[i] = domain.NormalizeAddress(o)
		}
		add(schema.ApplicationRoleKindOracle, normalized)

		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to set roles of application %s: %w", key.ApplicationID, err)
	}
	return nil
}

func (s *gormStore) GetApplicationRoles(ctx context.Context, key ApplicationKey, kind string) ([]string, error) {
	var values []string
	err := s.db.WithContext(ctx).Model(&schema.ApplicationRole{}).
		Joins("JOIN applications ON applications.id = application_roles.application_id").
		Where("applications.application_id = ? AND applications.contract_address = ?", key.ApplicationID, domain.NormalizeAddress(key.ContractAddress)).
		Where("application_roles.kind = ?", kind).
		Order("application_roles.value ASC").
		Pluck("application_roles.value", &values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s roles of application %s: %w", kind, key.ApplicationID, err)
	}
	return values, nil
}

// SetApplicationTokens replaces the tokens of the application. Tokens that are not stored are skipped.
func (s *gormStore) SetApplicationTokens(ctx context.Context, key ApplicationKey, tokens []domain.TokenKey) error {
	tokens = dedupTokenKeys(tokens)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appID, err := requireApplicationID(tx, key)
		if err != nil {
			return err
		}
		ids, err := tokenIDs(tx, tokens)
		if err != nil {
			return err
		}
		if err := tx.Where("application_id = ?", appID).Delete(&schema.ApplicationToken{}).Error; err != nil {
			return err
		}

		var rows []schema.ApplicationToken
		for _, t := range tokens {
			if id, ok := ids[t]; ok {
				rows = append(rows, schema.ApplicationToken{ApplicationID: appID, GeoTokenID: id})
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to set tokens of application %s: %w", key.ApplicationID, err)
	}
	return nil
}

func (s *gormStore) GetApplicationTokens(ctx context.Context, key ApplicationKey) ([]schema.GeoToken, error) {
	var tokens []schema.GeoToken
	err := s.db.WithContext(ctx).
		Joins("JOIN application_tokens ON application_tokens.geo_token_id = geo_tokens.id").
		Joins("JOIN applications ON applications.id = application_tokens.application_id").
		Where("applications.application_id = ? AND applications.contract_address = ?", key.ApplicationID, domain.NormalizeAddress(key.ContractAddress)).
		Order("geo_tokens.id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens of application %s: %w", key.ApplicationID, err)
	}
	return tokens, nil
}

func (s *gormStore) FilterApplications(ctx context.Context, filter ApplicationFilter) ([]schema.Application, int64, error) {
	return search[schema.Application](s.db.WithContext(ctx), &schema.Application{}, filter.Query,
		filter.order(applicationSortable, "id"), filter.predicates())
}
