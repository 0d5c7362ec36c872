package domain

import (
	"fmt"
	"strconv"
)

// EventType names a ledger event the indexer reacts to
type EventType string

const (
	EventSetSpaceTokenContour  EventType = "SetSpaceTokenContour"
	EventSetSpaceTokenDataLink EventType = "SetSpaceTokenDataLink"
	EventSpaceTokenDataChanged EventType = "SpaceTokenDataChanged"

	EventSaleOrderStatusChanged EventType = "SaleOrderStatusChanged"
	EventSaleOfferBidChanged    EventType = "SaleOfferBidChanged"
	EventSaleOfferAskChanged    EventType = "SaleOfferAskChanged"
	EventSaleOfferStatusChanged EventType = "SaleOfferStatusChanged"

	EventNewApplication EventType = "NewApplication"

	EventNewPrivatePropertyRegistry     EventType = "NewPrivatePropertyRegistry"
	EventPrivatePropertyRegistryUpdated EventType = "PrivatePropertyRegistryUpdated"
	EventPprProposalNew                 EventType = "PprProposalNew"
	EventPprProposalApproved            EventType = "PprProposalApproved"
	EventPprProposalExecuted            EventType = "PprProposalExecuted"
	EventPprProposalRejected            EventType = "PprProposalRejected"
	EventPprBurnTimeoutSet              EventType = "PprBurnTimeoutSet"
	EventPprLegalAgreementSet           EventType = "PprLegalAgreementSet"

	EventNewCommunity                EventType = "NewCommunity"
	EventCommunityTokenMint          EventType = "CommunityTokenMint"
	EventCommunityTokenBurn          EventType = "CommunityTokenBurn"
	EventCommunityTokenApproved      EventType = "CommunityTokenApproved"
	EventCommunityReputationTransfer EventType = "CommunityReputationTransfer"
	EventCommunityAddVoting          EventType = "CommunityAddVoting"
	EventCommunityRemoveVoting       EventType = "CommunityRemoveVoting"
	EventCommunityAddProposal        EventType = "CommunityAddProposal"
	EventCommunityUpdateProposal     EventType = "CommunityUpdateProposal"
	EventCommunityRuleChanged        EventType = "CommunityRuleChanged"
	EventCommunityMeetingChanged     EventType = "CommunityMeetingChanged"
)

// AllEventTypes lists every event type in the order the sync engine registers them
var AllEventTypes = []EventType{
	EventSetSpaceTokenContour,
	EventSetSpaceTokenDataLink,
	EventSpaceTokenDataChanged,
	EventSaleOrderStatusChanged,
	EventSaleOfferBidChanged,
	EventSaleOfferAskChanged,
	EventSaleOfferStatusChanged,
	EventNewApplication,
	EventNewPrivatePropertyRegistry,
	EventPrivatePropertyRegistryUpdated,
	EventPprProposalNew,
	EventPprProposalApproved,
	EventPprProposalExecuted,
	EventPprProposalRejected,
	EventPprBurnTimeoutSet,
	EventPprLegalAgreementSet,
	EventNewCommunity,
	EventCommunityTokenMint,
	EventCommunityTokenBurn,
	EventCommunityTokenApproved,
	EventCommunityReputationTransfer,
	EventCommunityAddVoting,
	EventCommunityRemoveVoting,
	EventCommunityAddProposal,
	EventCommunityUpdateProposal,
	EventCommunityRuleChanged,
	EventCommunityMeetingChanged,
}

// Event is a decoded ledger log.
// Values holds the event arguments keyed by their ABI names. Providers normalize
// addresses to lowercase hex, integers to decimal strings and fixed bytes to 0x hex.
type Event struct {
	Type            EventType
	ContractAddress string
	BlockNumber     uint64
	TxHash          string
	LogIndex        uint
	Values          map[string]any
}

// Value returns the first present argument among names
func (e Event) Value(names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := e.Values[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first present argument among names as a string, "" when absent
func (e Event) String(names ...string) string {
	v, ok := e.Value(names...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Uint returns the first present argument among names as an unsigned integer, 0 when absent or malformed
func (e Event) Uint(names ...string) uint64 {
	v, ok := e.Value(names...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case uint64:
		return t
	case uint:
		return uint64(t)
	case int:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Address returns the first present argument among names as a normalized address
func (e Event) Address(names ...string) string {
	return NormalizeAddress(e.String(names...))
}

// Contract returns the normalized emitting contract address
func (e Event) Contract() string {
	return NormalizeAddress(e.ContractAddress)
}

// Before reports whether e sorts before o in ledger order
func (e Event) Before(o Event) bool {
	if e.BlockNumber != o.BlockNumber {
		return e.BlockNumber < o.BlockNumber
	}
	return e.LogIndex < o.LogIndex
}
