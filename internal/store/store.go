package store

import (
	"context"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// ContourIndex stores the ordered geohash contour of each token and answers spatial lookups
type ContourIndex interface {
	// UpsertContour replaces the stored contour of key with cells, position for position
	UpsertContour(ctx context.Context, key domain.TokenKey, cells []string, opts ContourOptions) error
	// GetContour returns the contour of key ordered by position
	GetContour(ctx context.Context, key domain.TokenKey) ([]string, error)
	// DeleteContour removes every cell of key
	DeleteContour(ctx context.Context, key domain.TokenKey) error
	// FindByParentGeohash returns each token with a cell under prefix, with its full contour
	FindByParentGeohash(ctx context.Context, prefix string, filter ContourFilter) ([]ContourResult, error)
	// FindByParentGeohashes is the union of FindByParentGeohash over prefixes
	FindByParentGeohashes(ctx context.Context, prefixes []string, filter ContourFilter) ([]ContourResult, error)
	// FindByExactGeohash returns each token whose contour contains cell
	FindByExactGeohash(ctx context.Context, cell string, filter ContourFilter) ([]ContourResult, error)
}

// TokenStore holds geo tokens and their owner and feature sets
type TokenStore interface {
	GetGeoToken(ctx context.Context, key domain.TokenKey) (*schema.GeoToken, error)
	UpsertGeoToken(ctx context.Context, key domain.TokenKey, p *patch.Patch) error
	// DeleteGeoToken removes the token, its association rows and its contour
	DeleteGeoToken(ctx context.Context, key domain.TokenKey) error
	SetTokenOwners(ctx context.Context, key domain.TokenKey, owners []string) error
	GetTokenOwners(ctx context.Context, key domain.TokenKey) ([]string, error)
	SetTokenFeatures(ctx context.Context, key domain.TokenKey, features []string) error
	GetTokenFeatures(ctx context.Context, key domain.TokenKey) ([]string, error)
	// GetTokenCommunities returns the communities the token minted reputation in
	GetTokenCommunities(ctx context.Context, key domain.TokenKey) ([]schema.Community, error)
	FilterGeoTokens(ctx context.Context, filter TokenFilter) ([]schema.GeoToken, int64, error)
}

// SaleStore holds sale orders and offers
type SaleStore interface {
	GetSaleOrder(ctx context.Context, key OrderKey) (*schema.SaleOrder, error)
	UpsertSaleOrder(ctx context.Context, key OrderKey, p *patch.Patch) error
	// SetSaleOrderTokens replaces the ordered token list of the order. Tokens not indexed yet
	// are remembered as deferred references and returned.
	SetSaleOrderTokens(ctx context.Context, key OrderKey, tokens []domain.TokenKey) ([]domain.TokenKey, error)
	GetSaleOrderTokens(ctx context.Context, key OrderKey) ([]schema.GeoToken, error)
	// ResolveDeferredTokenRefs links token into every order waiting on it and returns those orders
	ResolveDeferredTokenRefs(ctx context.Context, token domain.TokenKey) ([]OrderKey, error)
	SetSaleOrderFeatures(ctx context.Context, key OrderKey, features, typesSubtypes []string) error
	FilterSaleOrders(ctx context.Context, filter SaleOrderFilter) ([]schema.SaleOrder, int64, error)

	GetSaleOffer(ctx context.Context, key OfferKey) (*schema.SaleOffer, error)
	UpsertSaleOffer(ctx context.Context, key OfferKey, p *patch.Patch) error
	// RecomputeFirstOffer marks the offer with the smallest created_at_block of the order
	RecomputeFirstOffer(ctx context.Context, order OrderKey) error
	FilterSaleOffers(ctx context.Context, filter SaleOfferFilter) ([]schema.SaleOffer, int64, error)
}

// ApplicationStore holds property applications
type ApplicationStore interface {
	GetApplication(ctx context.Context, key ApplicationKey) (*schema.Application, error)
	UpsertApplication(ctx context.Context, key ApplicationKey, p *patch.Patch) error
	SetApplicationRoles(ctx context.Context, key ApplicationKey, roles, availableRoles, oracles []string) error
	GetApplicationRoles(ctx context.Context, key ApplicationKey, kind string) ([]string, error)
	SetApplicationTokens(ctx context.Context, key ApplicationKey, tokens []domain.TokenKey) error
	GetApplicationTokens(ctx context.Context, key ApplicationKey) ([]schema.GeoToken, error)
	FilterApplications(ctx context.Context, filter ApplicationFilter) ([]schema.Application, int64, error)
}

// RegistryStore holds private property registries and their members, proposals and agreements
type RegistryStore interface {
	GetRegistry(ctx context.Context, address string) (*schema.PrivatePropertyRegistry, error)
	FindRegistryByController(ctx context.Context, controller string) (*schema.PrivatePropertyRegistry, error)
	UpsertRegistry(ctx context.Context, address string, p *patch.Patch) error
	DeleteRegistry(ctx context.Context, address string) error

	UpsertPprMember(ctx context.Context, registry, address string, p *patch.Patch) error
	DeletePprMember(ctx context.Context, registry, address string) error
	ListPprMembers(ctx context.Context, registry string) ([]schema.PprMember, error)

	UpsertPprProposal(ctx context.Context, key PprProposalKey, p *patch.Patch) error
	GetPprProposal(ctx context.Context, key PprProposalKey) (*schema.PprProposal, error)
	CountPprProposals(ctx context.Context, filter PprProposalFilter) (int64, error)

	UpsertLegalAgreement(ctx context.Context, registry, ipfsHash string, p *patch.Patch) error
	ListLegalAgreements(ctx context.Context, registry string) ([]schema.PprLegalAgreement, error)
}

// CommunityStore holds communities and everything governed inside them
type CommunityStore interface {
	GetCommunity(ctx context.Context, address string) (*schema.Community, error)
	// FindCommunityByContract resolves any community contract (storage, rule registry,
	// proposal manager) to its community
	FindCommunityByContract(ctx context.Context, address string) (*schema.Community, error)
	UpsertCommunity(ctx context.Context, address string, p *patch.Patch) error
	FilterCommunities(ctx context.Context, filter CommunityFilter) ([]schema.Community, int64, error)

	AddCommunityTokens(ctx context.Context, community string, tokens []domain.TokenKey) error
	RemoveCommunityTokens(ctx context.Context, community string, tokens []domain.TokenKey) error
	CountCommunityTokens(ctx context.Context, community string) (int64, error)
	AddApprovedTokens(ctx context.Context, community string, tokens []domain.TokenKey) error
	RemoveApprovedTokens(ctx context.Context, community string, tokens []domain.TokenKey) error
	GetApprovedTokens(ctx context.Context, community string) ([]schema.GeoToken, error)

	GetCommunityMember(ctx context.Context, community, address string) (*schema.CommunityMember, error)
	UpsertCommunityMember(ctx context.Context, community, address string, p *patch.Patch) error
	DeleteCommunityMember(ctx context.Context, community, address string) error
	CountCommunityMembers(ctx context.Context, community string) (int64, error)
	// GetCommunityMemberTokens returns the community tokens owned by address
	GetCommunityMemberTokens(ctx context.Context, community, address string) ([]schema.GeoToken, error)

	GetCommunityVoting(ctx context.Context, community, marker string) (*schema.CommunityVoting, error)
	UpsertCommunityVoting(ctx context.Context, community, marker string, p *patch.Patch) error
	DeleteCommunityVoting(ctx context.Context, community, marker string) error

	GetCommunityProposal(ctx context.Context, pmAddress, proposalID string) (*schema.CommunityProposal, error)
	UpsertCommunityProposal(ctx context.Context, pmAddress, proposalID string, p *patch.Patch) error
	CountCommunityProposals(ctx context.Context, filter ProposalFilter) (int64, error)
	FindCommunityProposals(ctx context.Context, filter ProposalFilter) ([]schema.CommunityProposal, error)
	// MarkRuleProposalsNotActual clears is_actual on the add-rule proposals linked to a rule
	MarkRuleProposalsNotActual(ctx context.Context, ruleDbID uint64) error

	GetCommunityRule(ctx context.Context, community, ruleID string) (*schema.CommunityRule, error)
	UpsertCommunityRule(ctx context.Context, community, ruleID string, p *patch.Patch) (*schema.CommunityRule, error)
	DeleteCommunityRule(ctx context.Context, community, ruleID string) error
	CountCommunityRules(ctx context.Context, community, meetingID string) (int64, error)

	GetCommunityMeeting(ctx context.Context, community, meetingID string) (*schema.CommunityMeeting, error)
	UpsertCommunityMeeting(ctx context.Context, community, meetingID string, p *patch.Patch) (*schema.CommunityMeeting, error)
}

// Store is the whole read model
type Store interface {
	SyncStore
	ContourIndex
	TokenStore
	SaleStore
	ApplicationStore
	RegistryStore
	CommunityStore
}

// OrderKey is the natural key of a sale order
type OrderKey struct {
	OrderID         string
	ContractAddress string
}

func (k OrderKey) String() string {
	return domain.NormalizeAddress(k.ContractAddress) + "/" + k.OrderID
}

// OfferKey is the natural key of a sale offer
type OfferKey struct {
	OrderID         string
	Buyer           string
	ContractAddress string
}

// Order returns the key of the order the offer belongs to
func (k OfferKey) Order() OrderKey {
	return OrderKey{OrderID: k.OrderID, ContractAddress: k.ContractAddress}
}

// ApplicationKey is the natural key of an application
type ApplicationKey struct {
	ApplicationID   string
	ContractAddress string
}

// PprProposalKey is the natural key of a private registry proposal
type PprProposalKey struct {
	RegistryAddress string
	ContractAddress string
	ProposalID      string
}

// ContourOptions are copied onto every stored cell
type ContourOptions struct {
	Level     *string
	TokenType *string
}

// ContourFilter narrows spatial lookups
type ContourFilter struct {
	ContractAddress string
	Level           *string
}

// ContourResult is one token matched by a spatial lookup with its whole ordered contour
type ContourResult struct {
	TokenID         string   `json:"tokenId"`
	ContractAddress string   `json:"contractAddress"`
	Level           *string  `json:"level,omitempty"`
	TokenType       *string  `json:"tokenType,omitempty"`
	Contour         []string `json:"contour"`
}

// Key returns the token key of the result
func (r ContourResult) Key() domain.TokenKey {
	return domain.TokenKey{TokenID: r.TokenID, ContractAddress: r.ContractAddress}
}

// ProposalFilter selects community proposals. Empty fields are ignored.
type ProposalFilter struct {
	CommunityAddress string
	Marker           string
	MeetingID        string
	Statuses         []string
	Limit            int
}

// PprProposalFilter counts registry proposals for the pending counters of a token
type PprProposalFilter struct {
	RegistryAddress string
	TokenID         string
	Statuses        []string
	IsBurnProposal  *bool
	// Approved* filters match the given approval flag when set
	ApprovedByTokenOwner    *bool
	ApprovedByRegistryOwner *bool
}
