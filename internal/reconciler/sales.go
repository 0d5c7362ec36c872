package reconciler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store"
)

const (
	tokenTypeLand     = "land"
	tokenTypeBuilding = "building"

	currencyNameETH = "ETH"
)

func (r *reconciler) handleSaleOrder(ctx context.Context, event domain.Event) ([]Effect, error) {
	key := store.OrderKey{OrderID: event.String("orderId", "id"), ContractAddress: event.Contract()}

	order, err := r.chain.SaleOrder(ctx, key.ContractAddress, key.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", key, err)
	}
	if order == nil {
		logger.WarnCtx(ctx, "Order not found on chain", zap.String("order", key.String()))
		return nil, nil
	}

	doc := r.resolveContent(ctx, order.DataLink)
	p := blockPatch(event.BlockNumber).
		Set("is_ppr", domain.NormalizeAddress(key.ContractAddress) != r.config.PropertyMarket).
		Set("status_name", optString(order.Status)).
		Set("ask", order.Ask).
		Set("seller", optString(order.Seller)).
		Set("last_buyer", optString(order.LastBuyer)).
		Set("currency", optString(order.Currency)).
		Set("currency_address", optString(order.CurrencyAddress)).
		Set("currency_name", optString(r.currencyName(ctx, order.Currency, order.CurrencyAddress))).
		Set("description", optString(r.describe(ctx, order.DataLink, doc))).
		Set("data_json", jsonColumn(doc))
	if err := r.store.UpsertSaleOrder(ctx, key, p); err != nil {
		return nil, err
	}

	tokens := make([]domain.TokenKey, 0, len(order.TokenIDs))
	for _, id := range order.TokenIDs {
		tokens = append(tokens, domain.NewTokenKey(id, order.TokenContract))
	}
	missing, err := r.store.SetSaleOrderTokens(ctx, key, tokens)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		logger.InfoCtx(ctx, "Order references tokens not indexed yet",
			zap.String("order", key.String()), zap.Int("deferred", len(missing)))
	}

	return nil, r.refreshOrderAggregates(ctx, key)
}

// currencyName is ETH for ether orders and the token symbol for ERC20 ones. A failing symbol
// call leaves the name empty.
func (r *reconciler) currencyName(ctx context.Context, currency, address string) string {
	if currency != chain.CurrencyERC20 {
		return currencyNameETH
	}
	if address == "" {
		return ""
	}
	symbol, err := r.chain.ContractSymbol(ctx, address)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read currency symbol", zap.String("currency", address), zap.Error(err))
		return ""
	}
	return symbol
}

// refreshOrderAggregates recomputes the area, room and year ranges of an order and the union
// of its token features and types from the tokens currently linked to it
func (r *reconciler) refreshOrderAggregates(ctx context.Context, key store.OrderKey) error {
	tokens, err := r.store.GetSaleOrderTokens(ctx, key)
	if err != nil {
		return err
	}

	var (
		land, building, years, baths, beds aggregate
		features, typesSubtypes            []string
		seenFeature                        = map[string]bool{}
		seenType                           = map[string]bool{}
	)
	for _, t := range tokens {
		area := floatOr(t.Area)
		switch strings.ToLower(stringOr(t.TokenType)) {
		case tokenTypeLand:
			land.add(area)
		case tokenTypeBuilding:
			building.add(area)
		}
		if t.YearBuilt != nil {
			years.add(float64(*t.YearBuilt))
		}
		if t.BathroomsCount != nil {
			baths.add(float64(*t.BathroomsCount))
		}
		if t.BedroomsCount != nil {
			beds.add(float64(*t.BedroomsCount))
		}

		for _, v := range []*string{t.Type, t.Subtype} {
			if v != nil && *v != "" && !seenType[*v] {
				seenType[*v] = true
				typesSubtypes = append(typesSubtypes, *v)
			}
		}

		tokenFeatures, err := r.store.GetTokenFeatures(ctx, domain.NewTokenKey(t.TokenID, t.ContractAddress))
		if err != nil {
			return err
		}
		for _, f := range tokenFeatures {
			if !seenFeature[f] {
				seenFeature[f] = true
				features = append(features, f)
			}
		}
	}

	p := patch.New()
	land.set(p, "sum_land_area", "min_land_area", "max_land_area", false)
	building.set(p, "sum_building_area", "min_building_area", "max_building_area", false)
	years.set(p, "", "min_year_built", "max_year_built", true)
	baths.set(p, "sum_bathrooms_count", "min_bathrooms_count", "max_bathrooms_count", true)
	beds.set(p, "sum_bedrooms_count", "min_bedrooms_count", "max_bedrooms_count", true)
	if err := r.store.UpsertSaleOrder(ctx, key, p); err != nil {
		return err
	}
	return r.store.SetSaleOrderFeatures(ctx, key, features, typesSubtypes)
}

type aggregate struct {
	sum, min, max float64
	n             int
}

func (a *aggregate) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

// set writes the aggregate columns, NULL when nothing was added. An empty column name is skipped.
func (a *aggregate) set(p *patch.Patch, sumCol, minCol, maxCol string, integer bool) {
	for _, c := range []struct {
		col string
		v   float64
	}{{sumCol, a.sum}, {minCol, a.min}, {maxCol, a.max}} {
		switch {
		case c.col == "":
		case a.n == 0:
			p.SetNull(c.col)
		case integer:
			p.Set(c.col, int(c.v))
		default:
			p.Set(c.col, c.v)
		}
	}
}

func (r *reconciler) handleSaleOffer(ctx context.Context, event domain.Event) ([]Effect, error) {
	key := store.OfferKey{
		OrderID:         event.String("orderId"),
		Buyer:           event.Address("buyer"),
		ContractAddress: event.Contract(),
	}

	offer, err := r.chain.SaleOffer(ctx, key.ContractAddress, key.OrderID, key.Buyer)
	if err != nil {
		return nil, fmt.Errorf("failed to read offer of %s on %s: %w", key.Buyer, key.Order(), err)
	}
	if offer == nil {
		return nil, nil
	}

	order, err := r.store.GetSaleOrder(ctx, key.Order())
	if err != nil {
		return nil, err
	}

	p := blockPatch(event.BlockNumber).
		Set("status", optString(offer.Status)).
		Set("ask", offer.Ask).
		Set("bid", offer.Bid).
		Set("last_offer_ask_at", offer.LastOfferAskAt).
		Set("last_offer_bid_at", offer.LastOfferBidAt).
		Set("created_offer_at", offer.CreatedAt)
	if order != nil {
		p.Set("seller", order.Seller).Set("sale_order_id", order.ID)
	}
	if err := r.store.UpsertSaleOffer(ctx, key, p); err != nil {
		return nil, err
	}

	return []Effect{r.recomputeFirstOffer(key.Order())}, nil
}

func (r *reconciler) recomputeFirstOffer(order store.OrderKey) Effect {
	return &RecomputeFirstOffer{r: r, Order: order}
}

// RecomputeFirstOffer schedules the first-offer tie-breaker of an order. Bursts of offer
// changes on one order collapse into a single recompute after the configured delay.
type RecomputeFirstOffer struct {
	r     *reconciler
	Order store.OrderKey
}

func (e *RecomputeFirstOffer) Key() string {
	return "first-offer:" + e.Order.String()
}

func (e *RecomputeFirstOffer) Apply(ctx context.Context) ([]Effect, error) {
	order := e.Order
	e.r.firstOffers.Trigger(order.String(), func() {
		// the triggering event's context may be gone by the time the timer fires
		runCtx := context.Background()
		if err := e.r.store.RecomputeFirstOffer(runCtx, order); err != nil {
			logger.ErrorCtx(runCtx, err, zap.String("order", order.String()))
			return
		}
		logger.DebugCtx(runCtx, "Recomputed first offer", zap.String("order", order.String()))
	})
	return nil, nil
}

func floatOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func stringOr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
