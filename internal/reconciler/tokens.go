package reconciler

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/geohash"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store"
)

// dataLinkPrefix marks data links that point at a configuration address
const dataLinkPrefix = "config_address="

var leadingNumber = regexp.MustCompile(`^-?\d+`)

func (r *reconciler) handleTokenChanged(ctx context.Context, event domain.Event) ([]Effect, error) {
	tokenID := event.String("spaceTokenId", "tokenId", "id")
	if tokenID == "" {
		logger.WarnCtx(ctx, "Token event without token id", zap.String("txHash", event.TxHash))
		return nil, nil
	}
	return r.saveToken(ctx, domain.NewTokenKey(tokenID, event.Contract()), event.BlockNumber, nil)
}

// saveToken re-reads a token from the chain and rewrites its row, contour, owners and features.
// When the stored row is already at block or later only the partial patch is applied.
func (r *reconciler) saveToken(ctx context.Context, key domain.TokenKey, block uint64, partial *patch.Patch) ([]Effect, error) {
	existing, err := r.store.GetGeoToken(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.UpdatedAtBlock >= block {
		if partial != nil && partial.Len() > 0 {
			return nil, r.store.UpsertGeoToken(ctx, key, partial)
		}
		return nil, nil
	}

	data, err := r.chain.SpaceTokenData(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read token %s: %w", key, err)
	}
	owner, err := r.chain.SpaceTokenOwner(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner of %s: %w", key, err)
	}
	if data == nil || owner == "" || domain.IsZeroAddress(owner) {
		logger.InfoCtx(ctx, "Token burned, deleting", zap.String("token", key.String()))
		return nil, r.store.DeleteGeoToken(ctx, key)
	}
	owner = domain.NormalizeAddress(owner)

	cells := data.Contour
	if err := geohash.ValidateAll(cells); err != nil {
		logger.WarnCtx(ctx, "Token contour has invalid cells, contour not indexed",
			zap.String("token", key.String()), zap.Error(err))
		cells = nil
	}

	level := optString(data.Level)
	tokenType := optString(data.TokenType)
	if level != nil || tokenType != nil {
		if err := r.store.UpsertContour(ctx, key, cells, store.ContourOptions{Level: level, TokenType: tokenType}); err != nil {
			return nil, err
		}
	}

	p := blockPatch(block).
		Set("is_ppr", !r.isMainToken(key.ContractAddress)).
		Set("token_type", tokenType).
		Set("level", level).
		Set("level_number", levelNumber(data.Level)).
		Set("area", data.Area).
		Set("area_source", optString(data.AreaSource)).
		Set("highest_point", data.HighestPoint).
		Set("human_address", optString(data.HumanAddress)).
		Set("ledger_identifier", optString(data.LedgerIdentifier)).
		Set("geohash_contour_json", jsonColumn(cells)).
		Set("heights_contour_json", jsonColumn(data.Heights)).
		Set("geohashes_count", len(cells))
	if lat, lon, ok := geohash.Center(cells); ok {
		p.Set("lat_center", lat).Set("lon_center", lon)
	}

	owners, err := r.applyOwner(ctx, p, owner)
	if err != nil {
		return nil, err
	}

	dataLink := strings.TrimPrefix(data.DataLink, dataLinkPrefix)
	features := r.applyDataLink(ctx, p, dataLink)

	communities, err := r.store.GetTokenCommunities(ctx, key)
	if err != nil {
		return nil, err
	}
	p.Set("communities_count", len(communities))

	if partial != nil {
		p = p.Merge(partial)
	}
	if err := r.store.UpsertGeoToken(ctx, key, p); err != nil {
		return nil, err
	}
	if err := r.store.SetTokenOwners(ctx, key, owners); err != nil {
		return nil, err
	}
	if err := r.store.SetTokenFeatures(ctx, key, features); err != nil {
		return nil, err
	}

	if !r.isMainToken(key.ContractAddress) {
		for _, o := range owners {
			if o == domain.SharedOwner {
				continue
			}
			if err := r.store.UpsertPprMember(ctx, key.ContractAddress, o, blockPatch(block)); err != nil {
				return nil, err
			}
		}
	}

	return []Effect{r.resolveDeferredTokenRefs(key, block)}, nil
}

// applyOwner sets the owner columns and returns the owner set. Tokens held by a locker are
// owned by the locker owners; more than one of them makes the token shared.
func (r *reconciler) applyOwner(ctx context.Context, p *patch.Patch, owner string) ([]string, error) {
	locker, err := r.chain.LockerInfo(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read locker %s: %w", owner, err)
	}
	if locker == nil {
		p.Set("owner", owner).SetNull("locker").Set("in_locker", false).SetNull("locker_type")
		return []string{owner}, nil
	}

	owners := locker.Owners
	switch len(owners) {
	case 0:
		owners = []string{owner}
		p.Set("owner", owner)
	case 1:
		p.Set("owner", owners[0])
	default:
		p.Set("owner", domain.SharedOwner)
	}
	p.Set("locker", owner).Set("in_locker", true).Set("locker_type", optString(locker.Type))
	return owners, nil
}

// applyDataLink sets the data link and the attributes found in its document and returns the
// token features
func (r *reconciler) applyDataLink(ctx context.Context, p *patch.Patch, dataLink string) []string {
	p.Set("data_link", optString(dataLink))

	doc := r.resolveContent(ctx, dataLink)
	if doc == nil {
		return nil
	}
	details := asMap(doc["details"])
	if details == nil {
		details = doc
	}

	photos := asList(doc["photos"])
	if photos == nil {
		photos = asList(details["photos"])
	}
	floorPlans := asList(doc["floorPlans"])
	if floorPlans == nil {
		floorPlans = asList(details["floorPlans"])
	}

	p.Set("data_json", jsonColumn(doc)).
		Set("type", optString(docText(details["type"]))).
		Set("subtype", optString(docText(details["subtype"]))).
		Set("purpose", optString(docText(details["purpose"]))).
		Set("photos_count", len(photos)).
		Set("floor_plans_count", len(floorPlans)).
		Set("bathrooms_count", asInt(details["bathroomsCount"])).
		Set("bedrooms_count", asInt(details["bedroomsCount"])).
		Set("year_built", asInt(details["yearBuilt"]))
	if len(photos) > 0 {
		p.Set("image_hash", optString(docText(photos[0])))
	}
	return asStrings(details["features"])
}

func (r *reconciler) resolveDeferredTokenRefs(key domain.TokenKey, block uint64) Effect {
	return &ResolveDeferredTokenRefs{r: r, Token: key, Block: block}
}

// ResolveDeferredTokenRefs links a newly indexed token into the orders that referenced it
// before it existed and refreshes their aggregates
type ResolveDeferredTokenRefs struct {
	r     *reconciler
	Token domain.TokenKey
	Block uint64
}

func (e *ResolveDeferredTokenRefs) Key() string {
	return "deferred-token-refs:" + e.Token.String()
}

func (e *ResolveDeferredTokenRefs) Apply(ctx context.Context) ([]Effect, error) {
	orders, err := e.r.store.ResolveDeferredTokenRefs(ctx, e.Token)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		logger.InfoCtx(ctx, "Resolved deferred token of order",
			zap.String("token", e.Token.String()), zap.String("order", order.String()))
		if err := e.r.refreshOrderAggregates(ctx, order); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (r *reconciler) refreshTokenCommunities(key domain.TokenKey) Effect {
	return &RefreshTokenCommunities{r: r, Token: key}
}

// RefreshTokenCommunities recounts the communities a token minted reputation in
type RefreshTokenCommunities struct {
	r     *reconciler
	Token domain.TokenKey
}

func (e *RefreshTokenCommunities) Key() string {
	return "token-communities:" + e.Token.String()
}

func (e *RefreshTokenCommunities) Apply(ctx context.Context) ([]Effect, error) {
	token, err := e.r.store.GetGeoToken(ctx, e.Token)
	if err != nil || token == nil {
		return nil, err
	}
	communities, err := e.r.store.GetTokenCommunities(ctx, e.Token)
	if err != nil {
		return nil, err
	}
	return nil, e.r.store.UpsertGeoToken(ctx, e.Token, patch.New().Set("communities_count", len(communities)))
}

// levelNumber reads the leading integer of a floor name, 0 when there is none
func levelNumber(level string) float64 {
	n, err := strconv.ParseFloat(leadingNumber.FindString(strings.TrimSpace(level)), 64)
	if err != nil {
		return 0
	}
	return n
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
