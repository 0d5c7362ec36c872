package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/keylock"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

type gormStore struct {
	db    *gorm.DB
	locks *keylock.Locker
}

// NewStore creates a store on top of an opened and migrated database
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:    db,
		locks: keylock.New(),
	}
}

// Flush deletes every row of every table
func (s *gormStore) Flush(ctx context.Context) error {
	models := schema.Models()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := len(models) - 1; i >= 0; i-- {
			if err := tx.Where("1 = 1").Delete(models[i]).Error; err != nil {
				return fmt.Errorf("failed to flush %T: %w", models[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}

type tabler interface {
	TableName() string
}

// rowKey is the natural key of one row
type rowKey struct {
	model  tabler
	cols   []string
	values []any
}

func newRowKey(model tabler, colsAndValues ...any) rowKey {
	k := rowKey{model: model}
	for i := 0; i+1 < len(colsAndValues); i += 2 {
		k.cols = append(k.cols, colsAndValues[i].(string))
		k.values = append(k.values, colsAndValues[i+1])
	}
	return k
}

func (k rowKey) lockKey() string {
	var b strings.Builder
	b.WriteString(k.model.TableName())
	for _, v := range k.values {
		b.WriteByte('|')
		fmt.Fprint(&b, v)
	}
	return b.String()
}

func (k rowKey) where() map[string]any {
	m := make(map[string]any, len(k.cols))
	for i, c := range k.cols {
		m[c] = k.values[i]
	}
	return m
}

type rowHead struct {
	ID             uint64
	CreatedAtBlock uint64
}

func lookupRow(tx *gorm.DB, k rowKey) (*rowHead, error) {
	var rows []rowHead
	err := tx.Model(k.model).Select("id", "created_at_block").Where(k.where()).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", k.model.TableName(), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// upsert serializes on the natural key and merges p into the row, inserting it when absent.
// It returns the row id.
func (s *gormStore) upsert(ctx context.Context, k rowKey, p *patch.Patch) (uint64, error) {
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	return upsertRow(s.db.WithContext(ctx), k, p)
}

func upsertRow(tx *gorm.DB, k rowKey, p *patch.Patch) (uint64, error) {
	if p == nil {
		p = patch.New()
	}
	p = p.Without(append([]string{"id"}, k.cols...)...)

	head, err := lookupRow(tx, k)
	if err != nil {
		return 0, err
	}

	if head == nil {
		row := p.Map()
		for col, v := range k.where() {
			row[col] = v
		}
		err = tx.Model(k.model).Create(row).Error
		switch {
		case err == nil:
			head, err = lookupRow(tx, k)
			if err != nil {
				return 0, err
			}
			if head == nil {
				return 0, fmt.Errorf("inserted %s row vanished", k.model.TableName())
			}
			return head.ID, nil
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// lost the insert race to another writer of the same key
			head, err = lookupRow(tx, k)
			if err != nil {
				return 0, err
			}
			if head == nil {
				return 0, fmt.Errorf("duplicate %s row not found", k.model.TableName())
			}
		default:
			return 0, fmt.Errorf("failed to insert %s: %w", k.model.TableName(), err)
		}
	}

	if head.CreatedAtBlock != 0 {
		p = p.Without("created_at_block")
	}
	if p.Len() == 0 {
		return head.ID, nil
	}

	if err := tx.Model(k.model).Where("id = ?", head.ID).Updates(p.Map()).Error; err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", k.model.TableName(), err)
	}
	return head.ID, nil
}

// deleteRow removes the row of k and reports whether one existed
func deleteRow(tx *gorm.DB, k rowKey) (bool, error) {
	res := tx.Where(k.where()).Delete(k.model)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete %s: %w", k.model.TableName(), res.Error)
	}
	return res.RowsAffected > 0, nil
}

// first loads the row of k into dest and returns false when it does not exist
func first(tx *gorm.DB, k rowKey, dest any) (bool, error) {
	err := tx.Where(k.where()).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", k.model.TableName(), err)
	}
	return true, nil
}

func tokenRowKey(key domain.TokenKey) rowKey {
	return newRowKey(&schema.GeoToken{},
		"token_id", key.TokenID,
		"contract_address", domain.NormalizeAddress(key.ContractAddress))
}

// tokenIDs resolves token keys to row ids. Tokens that are not stored are absent from the map.
func tokenIDs(tx *gorm.DB, keys []domain.TokenKey) (map[domain.TokenKey]uint64, error) {
	byContract := make(map[string][]string)
	for _, k := range keys {
		c := domain.NormalizeAddress(k.ContractAddress)
		byContract[c] = append(byContract[c], k.TokenID)
	}

	ids := make(map[domain.TokenKey]uint64, len(keys))
	for contract, tokens := range byContract {
		var rows []struct {
			ID      uint64
			TokenID string
		}
		err := tx.Model(&schema.GeoToken{}).
			Select("id", "token_id").
			Where("contract_address = ? AND token_id IN ?", contract, tokens).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to resolve token ids: %w", err)
		}
		for _, r := range rows {
			ids[domain.TokenKey{TokenID: r.TokenID, ContractAddress: contract}] = r.ID
		}
	}
	return ids, nil
}

func dedupTokenKeys(keys []domain.TokenKey) []domain.TokenKey {
	seen := make(map[domain.TokenKey]struct{}, len(keys))
	out := make([]domain.TokenKey, 0, len(keys))
	for _, k := range keys {
		k = domain.NewTokenKey(k.TokenID, k.ContractAddress)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
