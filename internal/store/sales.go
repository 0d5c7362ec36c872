package store

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func orderRowKey(key OrderKey) rowKey {
	return newRowKey(&schema.SaleOrder{},
		"order_id", key.OrderID,
		"contract_address", domain.NormalizeAddress(key.ContractAddress))
}

func offerRowKey(key OfferKey) rowKey {
	return newRowKey(&schema.SaleOffer{},
		"order_id", key.OrderID,
		"buyer", domain.NormalizeAddress(key.Buyer),
		"contract_address", domain.NormalizeAddress(key.ContractAddress))
}

// offersLockKey is held by offer upserts and the first-offer recompute of the same order
func offersLockKey(order OrderKey) string {
	return "offers|" + order.String()
}

func (s *gormStore) GetSaleOrder(ctx context.Context, key OrderKey) (*schema.SaleOrder, error) {
	var order schema.SaleOrder
	ok, err := first(s.db.WithContext(ctx), orderRowKey(key), &order)
	if err != nil || !ok {
		return nil, err
	}
	return &order, nil
}

func (s *gormStore) UpsertSaleOrder(ctx context.Context, key OrderKey, p *patch.Patch) error {
	_, err := s.upsert(ctx, orderRowKey(key), p)
	return err
}

func requireOrderID(tx *gorm.DB, key OrderKey) (uint64, error) {
	head, err := lookupRow(tx, orderRowKey(key))
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, fmt.Errorf("sale order %s: %w", key, domain.ErrNotFound)
	}
	return head.ID, nil
}

// SetSaleOrderTokens replaces the ordered token list of the order.
// Tokens that are not stored yet become deferred references and are returned.
func (s *gormStore) SetSaleOrderTokens(ctx context.Context, key OrderKey, tokens []domain.TokenKey) ([]domain.TokenKey, error) {
	tokens = dedupTokenKeys(tokens)
	var missing []domain.TokenKey

	unlock := s.locks.Lock("order-tokens|" + key.String())
	defer unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderID, err := requireOrderID(tx, key)
		if err != nil {
			return err
		}
		ids, err := tokenIDs(tx, tokens)
		if err != nil {
			return err
		}

		if err := tx.Where("sale_order_id = ?", orderID).Delete(&schema.SaleOrderToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sale_order_id = ?", orderID).Delete(&schema.DeferredTokenRef{}).Error; err != nil {
			return err
		}

		var linked []schema.SaleOrderToken
		var deferred []schema.DeferredTokenRef
		for pos, t := range tokens {
			if id, ok := ids[t]; ok {
				linked = append(linked, schema.SaleOrderToken{SaleOrderID: orderID, GeoTokenID: id, Position: pos})
				continue
			}
			missing = append(missing, t)
			deferred = append(deferred, schema.DeferredTokenRef{
				SaleOrderID:     orderID,
				TokenID:         t.TokenID,
				ContractAddress: t.ContractAddress,
				Position:        pos,
			})
		}

		if len(linked) > 0 {
			if err := tx.Create(&linked).Error; err != nil {
				return err
			}
		}
		if len(deferred) > 0 {
			if err := tx.Create(&deferred).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set tokens of sale order %s: %w", key, err)
	}
	return missing, nil
}

// GetSaleOrderTokens returns the linked tokens in list order
func (s *gormStore) GetSaleOrderTokens(ctx context.Context, key OrderKey) ([]schema.GeoToken, error) {
	var tokens []schema.GeoToken
	err := s.db.WithContext(ctx).
		Joins("JOIN sale_order_tokens ON sale_order_tokens.geo_token_id = geo_tokens.id").
		Joins("JOIN sale_orders ON sale_orders.id = sale_order_tokens.sale_order_id").
		Where("sale_orders.order_id = ? AND sale_orders.contract_address = ?", key.OrderID, domain.NormalizeAddress(key.ContractAddress)).
		Order("sale_order_tokens.position ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens of sale order %s: %w", key, err)
	}
	return tokens, nil
}

// ResolveDeferredTokenRefs links a newly stored token into every order that referenced it.
// Each order is held under the same lock as SetSaleOrderTokens while its refs are linked.
func (s *gormStore) ResolveDeferredTokenRefs(ctx context.Context, token domain.TokenKey) ([]OrderKey, error) {
	token = domain.NewTokenKey(token.TokenID, token.ContractAddress)
	var linkedIDs []uint64

	// a ref written for an order outside the locked set during a pass is taken by the next one
	for {
		pending, err := s.deferredOrders(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve deferred refs of token %s: %w", token, err)
		}
		if len(pending) == 0 {
			break
		}
		ids, err := s.linkDeferredRefs(ctx, token, pending)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve deferred refs of token %s: %w", token, err)
		}
		if len(ids) == 0 {
			break
		}
		linkedIDs = append(linkedIDs, ids...)
	}
	if len(linkedIDs) == 0 {
		return nil, nil
	}

	var rows []schema.SaleOrder
	err := s.db.WithContext(ctx).Select("id", "order_id", "contract_address").
		Where("id IN ?", linkedIDs).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deferred refs of token %s: %w", token, err)
	}
	orders := make([]OrderKey, 0, len(rows))
	for _, o := range rows {
		orders = append(orders, OrderKey{OrderID: o.OrderID, ContractAddress: o.ContractAddress})
	}
	return orders, nil
}

// deferredOrders lists the orders holding a deferred ref to token, by row id
func (s *gormStore) deferredOrders(ctx context.Context, token domain.TokenKey) ([]schema.SaleOrder, error) {
	var rows []schema.SaleOrder
	err := s.db.WithContext(ctx).
		Distinct("sale_orders.id", "sale_orders.order_id", "sale_orders.contract_address").
		Joins("JOIN deferred_token_refs ON deferred_token_refs.sale_order_id = sale_orders.id").
		Where("deferred_token_refs.token_id = ? AND deferred_token_refs.contract_address = ?", token.TokenID, token.ContractAddress).
		Order("sale_orders.id ASC").
		Find(&rows).Error
	return rows, err
}

// linkDeferredRefs locks every order in ascending key order, then links the refs that are
// still present. It returns the ids of the orders that gained the token.
func (s *gormStore) linkDeferredRefs(ctx context.Context, token domain.TokenKey, orders []schema.SaleOrder) ([]uint64, error) {
	keys := make([]string, 0, len(orders))
	orderIDs := make([]uint64, 0, len(orders))
	for _, o := range orders {
		keys = append(keys, OrderKey{OrderID: o.OrderID, ContractAddress: o.ContractAddress}.String())
		orderIDs = append(orderIDs, o.ID)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	for _, k := range keys {
		unlock := s.locks.Lock("order-tokens|" + k)
		defer unlock()
	}

	var linked []uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head, err := lookupRow(tx, tokenRowKey(token))
		if err != nil || head == nil {
			return err
		}

		var refs []schema.DeferredTokenRef
		err = tx.Where("token_id = ? AND contract_address = ? AND sale_order_id IN ?", token.TokenID, token.ContractAddress, orderIDs).
			Order("sale_order_id ASC").
			Find(&refs).Error
		if err != nil || len(refs) == 0 {
			return err
		}

		for _, ref := range refs {
			row := schema.SaleOrderToken{SaleOrderID: ref.SaleOrderID, GeoTokenID: head.ID, Position: ref.Position}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
			linked = append(linked, ref.SaleOrderID)
		}
		return tx.Where("id IN ?", refIDs(refs)).Delete(&schema.DeferredTokenRef{}).Error
	})
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func refIDs(refs []schema.DeferredTokenRef) []uint64 {
	ids := make([]uint64, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

// SetSaleOrderFeatures replaces the feature and type memberships of the order
func (s *gormStore) SetSaleOrderFeatures(ctx context.Context, key OrderKey, features, typesSubtypes []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderID, err := requireOrderID(tx, key)
		if err != nil {
			return err
		}
		if err := tx.Where("sale_order_id = ?", orderID).Delete(&schema.SaleOrderFeature{}).Error; err != nil {
			return err
		}

		var rows []schema.SaleOrderFeature
		for _, f := range dedupStrings(features) {
			rows = append(rows, schema.SaleOrderFeature{SaleOrderID: orderID, Kind: schema.SaleOrderFeatureKindFeature, Value: f})
		}
		for _, t := range dedupStrings(typesSubtypes) {
			rows = append(rows, schema.SaleOrderFeature{SaleOrderID: orderID, Kind: schema.SaleOrderFeatureKindType, Value: t})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to set features of sale order %s: %w", key, err)
	}
	return nil
}

func (s *gormStore) FilterSaleOrders(ctx context.Context, filter SaleOrderFilter) ([]schema.SaleOrder, int64, error) {
	preds, err := filter.predicates()
	if err != nil {
		return nil, 0, err
	}
	return search[schema.SaleOrder](s.db.WithContext(ctx), &schema.SaleOrder{}, filter.Query,
		filter.order(orderSortable, "id"), preds)
}

func (s *gormStore) GetSaleOffer(ctx context.Context, key OfferKey) (*schema.SaleOffer, error) {
	var offer schema.SaleOffer
	ok, err := first(s.db.WithContext(ctx), offerRowKey(key), &offer)
	if err != nil || !ok {
		return nil, err
	}
	return &offer, nil
}

func (s *gormStore) UpsertSaleOffer(ctx context.Context, key OfferKey, p *patch.Patch) error {
	unlock := s.locks.Lock(offersLockKey(key.Order()))
	defer unlock()

	_, err := upsertRow(s.db.WithContext(ctx), offerRowKey(key), p)
	return err
}

// RecomputeFirstOffer flags the offer with the smallest created_at_block of the order.
// Ties go to the lowest buyer address.
func (s *gormStore) RecomputeFirstOffer(ctx context.Context, order OrderKey) error {
	unlock := s.locks.Lock(offersLockKey(order))
	defer unlock()

	contract := domain.NormalizeAddress(order.ContractAddress)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := tx.Model(&schema.SaleOffer{}).Where("order_id = ? AND contract_address = ?", order.OrderID, contract)

		var firstOffer []schema.SaleOffer
		err := offers.Session(&gorm.Session{}).
			Select("id").
			Order("created_at_block ASC").Order("buyer ASC").
			Limit(1).
			Find(&firstOffer).Error
		if err != nil {
			return err
		}

		if err := offers.Session(&gorm.Session{}).Update("is_first_offer", false).Error; err != nil {
			return err
		}
		if len(firstOffer) == 0 {
			return nil
		}
		return tx.Model(&schema.SaleOffer{}).Where("id = ?", firstOffer[0].ID).Update("is_first_offer", true).Error
	})
	if err != nil {
		return fmt.Errorf("failed to recompute first offer of %s: %w", order, err)
	}
	return nil
}

func (s *gormStore) FilterSaleOffers(ctx context.Context, filter SaleOfferFilter) ([]schema.SaleOffer, int64, error) {
	return search[schema.SaleOffer](s.db.WithContext(ctx), &schema.SaleOffer{}, filter.Query,
		filter.order(offerSortable, "id"), filter.predicates())
}
