package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/api/shared/dto"
	apierrors "github.com/galtspace/geo-explorer/internal/api/shared/errors"
	"github.com/galtspace/geo-explorer/internal/block"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/store"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// Executor runs the read-only queries of the API and wraps each result in the sync envelope.
// A nil envelope with a nil error means the requested entity does not exist.
type Executor interface {
	// GetContoursByInnerGeohash returns the tokens whose contour contains the cell
	GetContoursByInnerGeohash(ctx context.Context, req *dto.ContoursByInnerGeohashRequest) (*dto.Envelope, error)

	// GetContoursByParentGeohashes returns the tokens with a contour cell under any of the prefixes
	GetContoursByParentGeohashes(ctx context.Context, req *dto.ContoursByParentGeohashRequest) (*dto.Envelope, error)

	// SearchTokens returns one page of geo tokens
	SearchTokens(ctx context.Context, req *dto.TokenSearchRequest) (*dto.Envelope, error)

	// GetToken returns a token with its owners and features
	GetToken(ctx context.Context, contractAddress, tokenID string) (*dto.Envelope, error)

	// SearchOrders returns one page of sale orders
	SearchOrders(ctx context.Context, req *dto.OrderSearchRequest) (*dto.Envelope, error)

	// GetOrder returns a sale order with its tokens in order position
	GetOrder(ctx context.Context, contractAddress, orderID string) (*dto.Envelope, error)

	// SearchOffers returns one page of sale offers
	SearchOffers(ctx context.Context, req *dto.OfferSearchRequest) (*dto.Envelope, error)

	// SearchApplications returns one page of applications
	SearchApplications(ctx context.Context, req *dto.ApplicationSearchRequest) (*dto.Envelope, error)

	// GetApplication returns an application with its roles, oracles and tokens
	GetApplication(ctx context.Context, contractAddress, applicationID string) (*dto.Envelope, error)

	// SearchCommunities returns one page of communities
	SearchCommunities(ctx context.Context, req *dto.CommunitySearchRequest) (*dto.Envelope, error)
}

type executor struct {
	store store.Store
	head  block.Provider
}

// NewExecutor creates an executor reading from st. head supplies the current block of each envelope.
func NewExecutor(st store.Store, head block.Provider) Executor {
	return &executor{store: st, head: head}
}

func (e *executor) GetContoursByInnerGeohash(ctx context.Context, req *dto.ContoursByInnerGeohashRequest) (*dto.Envelope, error) {
	results, err := e.store.FindByExactGeohash(ctx, req.Geohash, req.Filter())
	if err != nil {
		return nil, queryError("Failed to find contours", err)
	}
	return e.envelope(ctx, results)
}

func (e *executor) GetContoursByParentGeohashes(ctx context.Context, req *dto.ContoursByParentGeohashRequest) (*dto.Envelope, error) {
	results, err := e.store.FindByParentGeohashes(ctx, req.Geohashes, req.Filter())
	if err != nil {
		return nil, queryError("Failed to find contours", err)
	}
	return e.envelope(ctx, results)
}

func (e *executor) SearchTokens(ctx context.Context, req *dto.TokenSearchRequest) (*dto.Envelope, error) {
	tokens, total, err := e.store.FilterGeoTokens(ctx, req.Filter())
	if err != nil {
		return nil, queryError("Failed to search tokens", err)
	}
	return e.envelope(ctx, dto.NewListResponse(tokens, req.Offset, total, dto.MapGeoTokenToDTO))
}

func (e *executor) GetToken(ctx context.Context, contractAddress, tokenID string) (*dto.Envelope, error) {
	key := domain.NewTokenKey(tokenID, contractAddress)
	token, err := e.store.GetGeoToken(ctx, key)
	if err != nil {
		return nil, queryError("Failed to get token", err)
	}
	if token == nil {
		return nil, nil
	}

	resp := dto.MapGeoTokenToDTO(token)
	if resp.Owners, err = e.store.GetTokenOwners(ctx, key); err != nil {
		return nil, queryError("Failed to get token owners", err)
	}
	if resp.Features, err = e.store.GetTokenFeatures(ctx, key); err != nil {
		return nil, queryError("Failed to get token features", err)
	}
	return e.envelope(ctx, resp)
}

func (e *executor) SearchOrders(ctx context.Context, req *dto.OrderSearchRequest) (*dto.Envelope, error) {
	orders, total, err := e.store.FilterSaleOrders(ctx, req.Filter())
	if err != nil {
		return nil, queryError("Failed to search orders", err)
	}
	return e.envelope(ctx, dto.NewListResponse(orders, req.Offset, total, dto.MapSaleOrderToDTO))
}

func (e *executor) GetOrder(ctx context.Context, contractAddress, orderID string) (*dto.Envelope, error) {
	key := store.OrderKey{OrderID: orderID, ContractAddress: domain.NormalizeAddress(contractAddress)}
	order, err := e.store.GetSaleOrder(ctx, key)
	if err != nil {
		return nil, queryError("Failed to get order", err)
	}
	if order == nil {
		return nil, nil
	}

	tokens, err := e.store.GetSaleOrderTokens(ctx, key)
	if err != nil {
		return nil, queryError("Failed to get order tokens", err)
	}
	resp := dto.MapSaleOrderToDTO(order)
	resp.Tokens = mapTokens(tokens)
	return e.envelope(ctx, resp)
}

func (e *executor) SearchOffers(ctx context.Context, req *dto.OfferSearchRequest) (*dto.Envelope, error) {
	offers, total, err := e.store.FilterSaleOffers(ctx, req.Filter())
	if err != nil {
		return nil, queryError("Failed to search offers", err)
	}
	return e.envelope(ctx, dto.NewListResponse(offers, req.Offset, total, dto.MapSaleOfferToDTO))
}

func (e *executor) SearchApplications(ctx context.Context, req *dto.ApplicationSearchRequest) (*dto.Envelope, error) {
	apps, total, err := e.store.FilterApplications(ctx, req.Filter())
	if err != nil {
		return nil, queryError("Failed to search applications", err)
	}
	return e.envelope(ctx, dto.NewListResponse(apps, req.Offset, total, dto.MapApplicationToDTO))
}

func (e *executor) GetApplication(ctx context.Context, contractAddress, applicationID string) (*dto.Envelope, error) {
	key := store.ApplicationKey{ApplicationID: applicationID, ContractAddress: domain.NormalizeAddress(contractAddress)}
	app, err := e.store.GetApplication(ctx, key)
	if err != nil {
		return nil, queryError("Failed to get application", err)
	}
	if app == nil {
		return nil, nil
	}

	resp := dto.MapApplicationToDTO(app)
	if resp.Roles, err = e.store.GetApplicationRoles(ctx, key, schema.ApplicationRoleKindRole); err != nil {
		return nil, queryError("Failed to get application roles", err)
	}
	if resp.AvailableRoles, err = e.store.GetApplicationRoles(ctx, key, schema.ApplicationRoleKindAvailable); err != nil {
		return nil, queryError("Failed to get application roles", err)
	}
	if resp.Oracles, err = e.store.GetApplicationRoles(ctx, key, schema.ApplicationRoleKindOracle); err != nil {
		return nil, queryError("Failed to get application oracles", err)
	}
	tokens, err := e.store.GetApplicationTokens(ctx, key)
	if err != nil {
		return nil, queryError("Failed to get application tokens", err)
	}
	resp.Tokens = mapTokens(tokens)
	return e.envelope(ctx, resp)
}

func (e *executor) SearchCommunities(ctx context.Context, req *dto.CommunitySearchRequest) (*dto.Envelope, error) {
	communities, total, err := e.store.FilterCommunities(ctx, req.Filter())
	if err != nil {
		return nil, queryError("Failed to search communities", err)
	}
	return e.envelope(ctx, dto.NewListResponse(communities, req.Offset, total, dto.MapCommunityToDTO))
}

// envelope reads the checkpoint and the chain head for data
func (e *executor) envelope(ctx context.Context, data any) (*dto.Envelope, error) {
	checkpoint, _, err := e.store.GetCheckpoint(ctx)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get checkpoint: %v", err))
	}

	current, err := e.head.GetLatestBlock(ctx)
	if err != nil {
		cached, ok := e.head.Peek()
		if !ok {
			return nil, apierrors.NewServiceError("Failed to get current block", err.Error())
		}
		logger.WarnCtx(ctx, "Serving last known block number", zap.Uint64("block", cached), zap.Error(err))
		current = cached
	}

	return &dto.Envelope{
		LastChangeBlockNumber: checkpoint,
		CurrentBlockNumber:    current,
		Data:                  data,
	}, nil
}

func mapTokens(tokens []schema.GeoToken) []dto.TokenResponse {
	out := make([]dto.TokenResponse, 0, len(tokens))
	for i := range tokens {
		out = append(out, dto.MapGeoTokenToDTO(&tokens[i]))
	}
	return out
}

// queryError turns a store failure into an API error. Invalid geohashes are client errors.
func queryError(message string, err error) error {
	if errors.Is(err, domain.ErrInvalidGeohash) {
		return apierrors.NewValidationError(err.Error())
	}
	return apierrors.NewDatabaseError(fmt.Sprintf("%s: %v", message, err))
}
