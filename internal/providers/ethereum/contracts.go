package ethereum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/galtspace/geo-explorer/internal/domain"
)

// Contract names as they appear in the contracts file
const (
	ContractSpaceGeoData        = "spaceGeoData"
	ContractSpaceToken          = "spaceToken"
	ContractSpaceLocker         = "spaceLocker"
	ContractPropertyMarket      = "propertyMarket"
	ContractPprMarket           = "ppMarket"
	ContractNewPropertyManager  = "newPropertyManager"
	ContractPprTokenFactory     = "ppTokenFactory"
	ContractPprToken            = "ppToken"
	ContractPprController       = "ppTokenController"
	ContractFundFactory         = "fundFactory"
	ContractPprFundFactory      = "ppFundFactory"
	ContractFundRegistry        = "fundRegistry"
	ContractFundStorage         = "fundStorage"
	ContractFundRuleRegistry    = "fundRuleRegistry"
	ContractFundRA              = "fundRA"
	ContractFundProposalManager = "fundProposalManager"
	ContractFundMultiSig        = "fundMultiSig"
	ContractERC20               = "erc20"
)

// binding ties an event type to the ABI event that carries it.
// Events without static emitters come from contracts deployed at runtime (registries,
// communities) and are matched by topic alone.
type binding struct {
	contract string
	event    string
	static   []string
}

var bindings = map[domain.EventType]binding{
	domain.EventSetSpaceTokenContour:  {ContractSpaceGeoData, "SetSpaceTokenContour", []string{ContractSpaceGeoData}},
	domain.EventSetSpaceTokenDataLink: {ContractSpaceGeoData, "SetSpaceTokenDataLink", []string{ContractSpaceGeoData}},
	domain.EventSpaceTokenDataChanged: {ContractPprToken, "SetDetails", nil},

	domain.EventSaleOrderStatusChanged: {ContractPropertyMarket, "SaleOrderStatusChanged", []string{ContractPropertyMarket, ContractPprMarket}},
	domain.EventSaleOfferBidChanged:    {ContractPropertyMarket, "SaleOfferBidChanged", []string{ContractPropertyMarket, ContractPprMarket}},
	domain.EventSaleOfferAskChanged:    {ContractPropertyMarket, "SaleOfferAskChanged", []string{ContractPropertyMarket, ContractPprMarket}},
	domain.EventSaleOfferStatusChanged: {ContractPropertyMarket, "SaleOfferStatusChanged", []string{ContractPropertyMarket, ContractPprMarket}},

	domain.EventNewApplication: {ContractNewPropertyManager, "NewApplication", []string{ContractNewPropertyManager}},

	domain.EventNewPrivatePropertyRegistry:     {ContractPprTokenFactory, "NewPPToken", []string{ContractPprTokenFactory}},
	domain.EventPrivatePropertyRegistryUpdated: {ContractPprToken, "SetContractDataLink", nil},
	domain.EventPprProposalNew:                 {ContractPprController, "NewProposal", nil},
	domain.EventPprProposalApproved:            {ContractPprController, "ProposalApproval", nil},
	domain.EventPprProposalExecuted:            {ContractPprController, "ProposalExecuted", nil},
	domain.EventPprProposalRejected:            {ContractPprController, "ProposalRejection", nil},
	domain.EventPprBurnTimeoutSet:              {ContractPprController, "SetBurnTimeout", nil},
	domain.EventPprLegalAgreementSet:           {ContractPprToken, "SetLegalAgreementIpfsHash", nil},

	domain.EventNewCommunity:                {ContractFundFactory, "CreateFundDone", []string{ContractFundFactory, ContractPprFundFactory}},
	domain.EventCommunityTokenMint:          {ContractFundRA, "TokenMint", nil},
	domain.EventCommunityTokenBurn:          {ContractFundRA, "TokenBurn", nil},
	domain.EventCommunityTokenApproved:      {ContractFundStorage, "ApproveMint", nil},
	domain.EventCommunityReputationTransfer: {ContractFundRA, "ReputationTransfer", nil},
	domain.EventCommunityAddVoting:          {ContractFundStorage, "AddProposalMarker", nil},
	domain.EventCommunityRemoveVoting:       {ContractFundStorage, "RemoveProposalMarker", nil},
	domain.EventCommunityAddProposal:        {ContractFundProposalManager, "NewProposal", nil},
	domain.EventCommunityUpdateProposal:     {ContractFundProposalManager, "UpdateProposal", nil},
	domain.EventCommunityRuleChanged:        {ContractFundRuleRegistry, "AddFundRule", nil},
	domain.EventCommunityMeetingChanged:     {ContractFundRuleRegistry, "AddMeeting", nil},
}

// ContractsFile is the on-disk layout of the contracts file
type ContractsFile struct {
	// BlockNumber is the deployment block of the contracts set
	BlockNumber uint64                    `json:"blockNumber"`
	Contracts   map[string]ContractConfig `json:"contracts"`
}

// ContractConfig is one contract of the contracts file. Address is empty for contracts that are
// deployed at runtime and only contribute an ABI.
type ContractConfig struct {
	Address string          `json:"address"`
	ABI     json.RawMessage `json:"abi"`
}

// boundEvent is an event type resolved against the configured ABIs
type boundEvent struct {
	abi       *abi.ABI
	event     abi.Event
	addresses []common.Address
}

// Contracts holds the parsed ABIs and addresses of the contracts set
type Contracts struct {
	deploymentBlock uint64
	abis            map[string]*abi.ABI
	addresses       map[string]common.Address
	events          map[domain.EventType]boundEvent
}

// LoadContracts reads and parses a contracts file
func LoadContracts(path string) (*Contracts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts file: %w", err)
	}

	var file ContractsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode contracts file: %w", err)
	}

	return NewContracts(file)
}

// NewContracts parses the ABIs of file and binds every event type whose contract is present
func NewContracts(file ContractsFile) (*Contracts, error) {
	c := &Contracts{
		deploymentBlock: file.BlockNumber,
		abis:            make(map[string]*abi.ABI, len(file.Contracts)),
		addresses:       make(map[string]common.Address, len(file.Contracts)),
		events:          make(map[domain.EventType]boundEvent),
	}

	for name, cfg := range file.Contracts {
		if len(cfg.ABI) > 0 {
			parsed, err := abi.JSON(bytes.NewReader(cfg.ABI))
			if err != nil {
				return nil, fmt.Errorf("failed to parse ABI of %s: %w", name, err)
			}
			c.abis[name] = &parsed
		}
		if cfg.Address != "" {
			if !common.IsHexAddress(cfg.Address) {
				return nil, fmt.Errorf("invalid address of %s: %q", name, cfg.Address)
			}
			c.addresses[name] = common.HexToAddress(cfg.Address)
		}
	}

	for t, b := range bindings {
		parsed, ok := c.abis[b.contract]
		if !ok {
			continue
		}
		ev, ok := parsed.Events[b.event]
		if !ok {
			continue
		}

		bound := boundEvent{abi: parsed, event: ev}
		for _, name := range b.static {
			if addr, ok := c.addresses[name]; ok {
				bound.addresses = append(bound.addresses, addr)
			}
		}
		// a static event with no deployed emitter cannot be watched
		if len(b.static) > 0 && len(bound.addresses) == 0 {
			continue
		}
		c.events[t] = bound
	}

	return c, nil
}

// DeploymentBlock returns the block the contracts set was deployed at
func (c *Contracts) DeploymentBlock() uint64 {
	return c.deploymentBlock
}

// EventTypes returns the event types the contracts set can serve, in registration order
func (c *Contracts) EventTypes() []domain.EventType {
	types := make([]domain.EventType, 0, len(c.events))
	for _, t := range domain.AllEventTypes {
		if _, ok := c.events[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Address returns the configured address of a contract
func (c *Contracts) Address(name string) (common.Address, bool) {
	addr, ok := c.addresses[name]
	return addr, ok
}

// ABI returns the parsed ABI of a contract
func (c *Contracts) ABI(name string) (*abi.ABI, bool) {
	parsed, ok := c.abis[name]
	return parsed, ok
}

// IsAddress reports whether address is the configured address of contract name
func (c *Contracts) IsAddress(name, address string) bool {
	addr, ok := c.addresses[name]
	return ok && common.IsHexAddress(address) && addr == common.HexToAddress(address)
}

func (c *Contracts) event(t domain.EventType) (boundEvent, error) {
	ev, ok := c.events[t]
	if !ok {
		return boundEvent{}, fmt.Errorf("%w: %s", domain.ErrUnknownEventType, t)
	}
	return ev, nil
}

// names returns the configured contract names, sorted
func (c *Contracts) names() []string {
	names := make([]string, 0, len(c.abis))
	for name := range c.abis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
