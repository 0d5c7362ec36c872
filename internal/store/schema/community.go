package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Community is a member governed fund keyed by its reputation accounting address
type Community struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_communities_key"`

	StorageAddress        *string        `gorm:"column:storage_address;type:text;index:idx_communities_storage"`
	RuleRegistryAddress   *string        `gorm:"column:rule_registry_address;type:text;index:idx_communities_rule_registry"`
	MultisigAddress       *string        `gorm:"column:multisig_address;type:text"`
	PmAddress             *string        `gorm:"column:pm_address;type:text"`
	IsPpr                 bool           `gorm:"column:is_ppr;not null;default:false"`
	IsPrivate             bool           `gorm:"column:is_private;not null;default:false"`
	TokensCount           int            `gorm:"column:tokens_count;not null;default:0"`
	ActiveFundRulesCount  int            `gorm:"column:active_fund_rules_count;not null;default:0"`
	SpaceTokenOwnersCount int            `gorm:"column:space_token_owners_count;not null;default:0"`
	ReputationTotalSupply *float64       `gorm:"column:reputation_total_supply"`
	Name                  *string        `gorm:"column:name;type:text"`
	Description           *string        `gorm:"column:description;type:text"`
	DataLink              *string        `gorm:"column:data_link;type:text"`
	DataJSON              datatypes.JSON `gorm:"column:data_json"`
	MultisigOwnersJSON    datatypes.JSON `gorm:"column:multisig_owners_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (Community) TableName() string {
	return "communities"
}

// CommunityToken is a token that minted reputation in a community
type CommunityToken struct {
	CommunityID uint64 `gorm:"column:community_id;primaryKey"`
	GeoTokenID  uint64 `gorm:"column:geo_token_id;primaryKey;index:idx_community_tokens_token"`
}

func (CommunityToken) TableName() string {
	return "community_tokens"
}

// CommunityApprovedToken is a token approved for minting and not expelled
type CommunityApprovedToken struct {
	CommunityID uint64 `gorm:"column:community_id;primaryKey"`
	GeoTokenID  uint64 `gorm:"column:geo_token_id;primaryKey;index:idx_community_approved_tokens_token"`
}

func (CommunityApprovedToken) TableName() string {
	return "community_approved_tokens"
}

// CommunityMember is a reputation holder of a community
type CommunityMember struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CommunityAddress string `gorm:"column:community_address;not null;type:text;uniqueIndex:idx_community_members_key,priority:1"`
	Address          string `gorm:"column:address;not null;type:text;uniqueIndex:idx_community_members_key,priority:2"`

	CommunityID       *uint64        `gorm:"column:community_id"`
	IsPpr             bool           `gorm:"column:is_ppr;not null;default:false"`
	CurrentReputation *float64       `gorm:"column:current_reputation"`
	BasicReputation   *float64       `gorm:"column:basic_reputation"`
	TokensCount       int            `gorm:"column:tokens_count;not null;default:0"`
	FullNameHash      *string        `gorm:"column:full_name_hash;type:text"`
	PhotosJSON        datatypes.JSON `gorm:"column:photos_json"`
	TokensJSON        datatypes.JSON `gorm:"column:tokens_json"`
	ExpelledJSON      datatypes.JSON `gorm:"column:expelled_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (CommunityMember) TableName() string {
	return "community_members"
}

// CommunityVoting is a proposal marker with its voting configuration
type CommunityVoting struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CommunityAddress string `gorm:"column:community_address;not null;type:text;uniqueIndex:idx_community_votings_key,priority:1"`
	Marker           string `gorm:"column:marker;not null;type:text;uniqueIndex:idx_community_votings_key,priority:2"`

	CommunityID         *uint64        `gorm:"column:community_id"`
	ProposalManager     *string        `gorm:"column:proposal_manager;type:text;index:idx_community_votings_pm"`
	Name                *string        `gorm:"column:name;type:text"`
	Destination         *string        `gorm:"column:destination;type:text"`
	Description         *string        `gorm:"column:description;type:text"`
	DataLink            *string        `gorm:"column:data_link;type:text"`
	DataJSON            datatypes.JSON `gorm:"column:data_json"`
	Support             *float64       `gorm:"column:support"`
	MinAcceptQuorum     *float64       `gorm:"column:min_accept_quorum"`
	Timeout             *uint64        `gorm:"column:timeout"`
	TotalProposalsCount int            `gorm:"column:total_proposals_count;not null;default:0"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (CommunityVoting) TableName() string {
	return "community_votings"
}

const (
	ProposalStatusActive   = "active"
	ProposalStatusExecuted = "executed"
)

// CommunityProposal is a governance proposal. Shares and counts are read from the ledger.
type CommunityProposal struct {
	ID         uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	PmAddress  string `gorm:"column:pm_address;not null;type:text;uniqueIndex:idx_community_proposals_key,priority:1"`
	ProposalID string `gorm:"column:proposal_id;not null;type:text;uniqueIndex:idx_community_proposals_key,priority:2"`

	CommunityAddress        string         `gorm:"column:community_address;not null;type:text;default:'';index:idx_community_proposals_community"`
	CommunityID             *uint64        `gorm:"column:community_id"`
	VotingID                *uint64        `gorm:"column:voting_id"`
	Marker                  *string        `gorm:"column:marker;type:text"`
	MarkerName              *string        `gorm:"column:marker_name;type:text"`
	Status                  *string        `gorm:"column:status;type:text"`
	CreatorAddress          *string        `gorm:"column:creator_address;type:text"`
	Destination             *string        `gorm:"column:destination;type:text"`
	AcceptedShare           *float64       `gorm:"column:accepted_share"`
	AcceptedCount           *int           `gorm:"column:accepted_count"`
	AbstainedShare          *float64       `gorm:"column:abstained_share"`
	AbstainedCount          *int           `gorm:"column:abstained_count"`
	DeclinedShare           *float64       `gorm:"column:declined_share"`
	DeclinedCount           *int           `gorm:"column:declined_count"`
	TotalAccepted           *float64       `gorm:"column:total_accepted"`
	TotalDeclined           *float64       `gorm:"column:total_declined"`
	TotalAbstained          *float64       `gorm:"column:total_abstained"`
	RequiredSupport         *float64       `gorm:"column:required_support"`
	MinAcceptQuorum         *float64       `gorm:"column:min_accept_quorum"`
	CurrentSupport          *float64       `gorm:"column:current_support"`
	CurrentQuorum           *float64       `gorm:"column:current_quorum"`
	AcceptedEnoughToExecute bool           `gorm:"column:accepted_enough_to_execute;not null;default:false"`
	ProposeTxID             *string        `gorm:"column:propose_tx_id;type:text"`
	ExecuteTxID             *string        `gorm:"column:execute_tx_id;type:text"`
	ClosedAtBlock           *uint64        `gorm:"column:closed_at_block"`
	ClosedAt                *time.Time     `gorm:"column:closed_at"`
	CreatedAt               *time.Time     `gorm:"column:created_at"`
	TimeoutAt               *uint64        `gorm:"column:timeout_at"`
	RuleDbID                *uint64        `gorm:"column:rule_db_id"`
	IsActual                bool           `gorm:"column:is_actual;not null;default:true"`
	MeetingID               *string        `gorm:"column:meeting_id;type:text;index:idx_community_proposals_meeting"`
	UniqID                  *string        `gorm:"column:uniq_id;type:text"`
	DataLink                *string        `gorm:"column:data_link;type:text"`
	DataJSON                datatypes.JSON `gorm:"column:data_json"`
	Data                    *string        `gorm:"column:data;type:text"`
	Description             *string        `gorm:"column:description;type:text"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (CommunityProposal) TableName() string {
	return "community_proposals"
}

// CommunityRule is a fund rule. Abstract rules mirror add-rule proposals that are not executed yet.
type CommunityRule struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CommunityAddress string `gorm:"column:community_address;not null;type:text;uniqueIndex:idx_community_rules_key,priority:1"`
	RuleID           string `gorm:"column:rule_id;not null;type:text;uniqueIndex:idx_community_rules_key,priority:2"`

	CommunityID           *uint64        `gorm:"column:community_id"`
	IsActive              bool           `gorm:"column:is_active;not null;default:false"`
	IsAbstract            bool           `gorm:"column:is_abstract;not null;default:false"`
	TypeID                *string        `gorm:"column:type_id;type:text"`
	Type                  *string        `gorm:"column:type;type:text"`
	Manager               *string        `gorm:"column:manager;type:text"`
	MeetingID             *string        `gorm:"column:meeting_id;type:text;index:idx_community_rules_meeting"`
	InsideMeetingID       *int           `gorm:"column:inside_meeting_id"`
	AddRuleProposalUniqID *string        `gorm:"column:add_rule_proposal_uniq_id;type:text"`
	IpfsHash              *string        `gorm:"column:ipfs_hash;type:text"`
	DataLink              *string        `gorm:"column:data_link;type:text"`
	Description           *string        `gorm:"column:description;type:text"`
	DataJSON              datatypes.JSON `gorm:"column:data_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (CommunityRule) TableName() string {
	return "community_rules"
}

const (
	MeetingStatusDeactivated = "deactivated"
	MeetingStatusDone        = "done"
	MeetingStatusFailed      = "failed"
	MeetingStatusInProcess   = "in_process"
	MeetingStatusPlanned     = "planned"
)

// CommunityMeeting groups add-rule proposals voted together
type CommunityMeeting struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	CommunityAddress string `gorm:"column:community_address;not null;type:text;uniqueIndex:idx_community_meetings_key,priority:1"`
	MeetingID        string `gorm:"column:meeting_id;not null;type:text;uniqueIndex:idx_community_meetings_key,priority:2"`

	CommunityID                 *uint64        `gorm:"column:community_id"`
	CreatorAddress              *string        `gorm:"column:creator_address;type:text"`
	IsActive                    bool           `gorm:"column:is_active;not null;default:false"`
	Status                      *string        `gorm:"column:status;type:text"`
	StartDateTime               *time.Time     `gorm:"column:start_date_time"`
	EndDateTime                 *time.Time     `gorm:"column:end_date_time"`
	RulesCount                  int            `gorm:"column:rules_count;not null;default:0"`
	LocalProposalsToCreateCount int            `gorm:"column:local_proposals_to_create_count;not null;default:0"`
	ExecutedProposalsCount      int            `gorm:"column:executed_proposals_count;not null;default:0"`
	LastProposalTimeoutAt       *uint64        `gorm:"column:last_proposal_timeout_at"`
	Description                 *string        `gorm:"column:description;type:text"`
	DataLink                    *string        `gorm:"column:data_link;type:text"`
	DataJSON                    datatypes.JSON `gorm:"column:data_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (CommunityMeeting) TableName() string {
	return "community_meetings"
}
