package chain

import (
	"context"
	"time"

	"github.com/galtspace/geo-explorer/internal/domain"
)

// Reader performs read-only contract calls. Methods return nil without error when the
// contract reports no such entity.
//
//go:generate mockgen -source=reader.go -destination=../mocks/chain_reader.go -package=mocks -mock_names=Reader=MockChainReader
type Reader interface {
	// SpaceTokenData returns the geometry and attributes of a token
	SpaceTokenData(ctx context.Context, key domain.TokenKey) (*SpaceTokenData, error)
	// SpaceTokenOwner returns the owner address, zero address for burned tokens
	SpaceTokenOwner(ctx context.Context, key domain.TokenKey) (string, error)
	// LockerInfo describes the locker contract holding a token, nil when owner is not a locker
	LockerInfo(ctx context.Context, owner string) (*LockerInfo, error)

	SaleOrder(ctx context.Context, market, orderID string) (*SaleOrder, error)
	SaleOffer(ctx context.Context, market, orderID, buyer string) (*SaleOffer, error)
	// ContractSymbol returns the ERC20 symbol of a currency contract
	ContractSymbol(ctx context.Context, address string) (string, error)

	Application(ctx context.Context, contract, applicationID string) (*Application, error)

	Registry(ctx context.Context, address string) (*Registry, error)
	PprProposal(ctx context.Context, controller, proposalID string) (*PprProposal, error)
	BurnTimeout(ctx context.Context, controller, tokenID string) (*BurnTimeout, error)

	// CommunityAddress resolves a fund created by a community factory to its reputation accounting address
	CommunityAddress(ctx context.Context, factory, fundID string) (string, error)
	Community(ctx context.Context, ref CommunityRef) (*Community, error)
	Member(ctx context.Context, ref CommunityRef, address string) (*Member, error)
	// ReputationMinted reports whether the token currently holds minted reputation in the community
	ReputationMinted(ctx context.Context, ref CommunityRef, key domain.TokenKey) (bool, error)
	// TokenApproved reports whether the community approved the token for minting
	TokenApproved(ctx context.Context, ref CommunityRef, key domain.TokenKey) (bool, error)
	Voting(ctx context.Context, ref CommunityRef, marker string) (*Voting, error)
	Proposal(ctx context.Context, ref CommunityRef, pmAddress, proposalID string) (*Proposal, error)
	Rule(ctx context.Context, ref CommunityRef, ruleID string) (*Rule, error)
	Meeting(ctx context.Context, ref CommunityRef, meetingID string) (*Meeting, error)
	// AddedRuleID returns the id of the rule added to the rule registry by a transaction, empty when none
	AddedRuleID(ctx context.Context, ref CommunityRef, txHash string) (string, error)

	BlockTimestamp(ctx context.Context, block uint64) (time.Time, error)
}

// SpaceTokenData is the on-chain state of a geo token
type SpaceTokenData struct {
	TokenType        string
	Contour          []string
	Heights          []float64
	HighestPoint     float64
	Area             float64
	AreaSource       string
	HumanAddress     string
	DataLink         string
	LedgerIdentifier string
	// Level is the floor of a room token, empty for land
	Level string
}

// LockerInfo describes a locker contract that holds a token on behalf of its owners
type LockerInfo struct {
	Address string
	Type    string
	Owners  []string
}

// SaleOrder is the on-chain state of a market order
type SaleOrder struct {
	OrderID         string
	Seller          string
	Operator        string
	LastBuyer       string
	Ask             float64
	Status          string
	Currency        string
	CurrencyAddress string
	TokenContract   string
	TokenIDs        []string
	DataLink        string
	CreatedAt       time.Time
}

// Currencies of sale orders
const (
	CurrencyETH   = "eth"
	CurrencyERC20 = "erc20"
)

// SaleOffer is the on-chain state of a buyer offer on an order
type SaleOffer struct {
	OrderID        string
	Buyer          string
	Seller         string
	Ask            float64
	Bid            float64
	Status         string
	LastOfferAskAt *time.Time
	LastOfferBidAt *time.Time
	CreatedAt      *time.Time
}

// Application is the on-chain state of a property application
type Application struct {
	ApplicationID      string
	Applicant          string
	CredentialsHash    string
	Status             string
	ContractType       string
	FeeCurrency        string
	FeeCurrencyAddress string
	FeeAmount          float64
	TotalOraclesReward float64
	TokenID            string
	DataLink           string
	Roles              []string
	AvailableRoles     []string
	Oracles            []string
}

// Registry is the on-chain state of a private property registry
type Registry struct {
	Address                  string
	Controller               string
	Owner                    string
	ControllerOwner          string
	Minter                   string
	GeoDataManager           string
	FeeManager               string
	Burner                   string
	ContourVerification      string
	ContourVerificationOwner string
	DefaultBurnTimeout       uint64
	TotalSupply              uint64
	Name                     string
	Symbol                   string
	DataLink                 string
	CreatedAt                time.Time
	// Members maps each registry role to its current holders
	Members map[string][]string
}

// PprProposal is a proposal on a private registry controller
type PprProposal struct {
	ProposalID              string
	TokenID                 string
	Creator                 string
	Status                  string
	Data                    string
	Signature               string
	DataLink                string
	Description             string
	IsExecuted              bool
	IsBurnProposal          bool
	ApprovedByTokenOwner    bool
	ApprovedByRegistryOwner bool
}

// Statuses of registry proposals
const (
	PprProposalPending  = "pending"
	PprProposalApproved = "approved"
	PprProposalExecuted = "executed"
	PprProposalRejected = "rejected"
)

// BurnTimeout is the pending burn of a private registry token
type BurnTimeout struct {
	Timeout uint64
	BurnOn  *time.Time
}

// CommunityRef locates the contracts of one community
type CommunityRef struct {
	Address             string
	StorageAddress      string
	RuleRegistryAddress string
	IsPpr               bool
}

// Community is the on-chain state of a community
type Community struct {
	StorageAddress        string
	RuleRegistryAddress   string
	MultisigAddress       string
	PmAddress             string
	IsPrivate             bool
	Name                  string
	Description           string
	DataLink              string
	ReputationTotalSupply float64
	ActiveFundRulesCount  int
	SpaceTokenOwnersCount int
	MultisigOwners        []string
}

// Member is the reputation of an address in a community
type Member struct {
	CurrentReputation float64
	BasicReputation   float64
	FullNameHash      string
	Photos            []string
	// Tokens are the token ids the member minted reputation with
	Tokens   []string
	Expelled map[string]bool
}

// Voting is a proposal marker registered in a community
type Voting struct {
	ProposalManager string
	Name            string
	Destination     string
	Description     string
	DataLink        string
	Support         float64
	MinAcceptQuorum float64
	Timeout         uint64
	Active          bool
}

// Proposal is a community governance proposal with tallies as reported by the contract
type Proposal struct {
	ProposalID      string
	Marker          string
	Creator         string
	Destination     string
	Status          string
	Data            string
	DataLink        string
	Description     string
	AcceptedShare   float64
	AcceptedCount   int
	DeclinedShare   float64
	DeclinedCount   int
	AbstainedShare  float64
	AbstainedCount  int
	TotalAccepted   float64
	TotalDeclined   float64
	TotalAbstained  float64
	RequiredSupport float64
	MinAcceptQuorum float64
	CurrentSupport  float64
	CurrentQuorum   float64
	TimeoutAt       uint64
	CreatedAt       time.Time
	// Action is the rule registry method the proposal calls when executed, empty for other calls
	Action string
	// RuleID is the rule disabled by a disable-rule proposal
	RuleID string
	// Rule fields proposed by an add-rule proposal
	RuleTypeID   string
	RuleIpfsHash string
	RuleDataLink string
	// MeetingID is set for proposals created inside a meeting
	MeetingID string
}

// Rule registry actions a community proposal can carry
const (
	ActionAddRule     = "addRuleType"
	ActionDisableRule = "disableRuleType"
)

// Proposal statuses as reported by the proposal manager
const (
	ProposalNull     = "null"
	ProposalActive   = "active"
	ProposalExecuted = "executed"
)

// Rule is a community rule as stored in its rule registry
type Rule struct {
	IsActive              bool
	IsAbstract            bool
	TypeID                string
	Manager               string
	IpfsHash              string
	DataLink              string
	Description           string
	MeetingID             string
	InsideMeetingID       int
	AddRuleProposalUniqID string
}

// Meeting is a community meeting as stored in its rule registry
type Meeting struct {
	Creator     string
	IsActive    bool
	StartOn     *time.Time
	EndOn       *time.Time
	DataLink    string
	Description string
}
