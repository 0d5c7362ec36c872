package schema

import (
	"time"

	"gorm.io/datatypes"
)

// PrivatePropertyRegistry is a privately deployed token registry with its role holders
type PrivatePropertyRegistry struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_ppr_key"`

	Controller               *string        `gorm:"column:controller;type:text;index:idx_ppr_controller"`
	Owner                    *string        `gorm:"column:owner;type:text"`
	ControllerOwner          *string        `gorm:"column:controller_owner;type:text"`
	Minter                   *string        `gorm:"column:minter;type:text"`
	GeoDataManager           *string        `gorm:"column:geo_data_manager;type:text"`
	FeeManager               *string        `gorm:"column:fee_manager;type:text"`
	Burner                   *string        `gorm:"column:burner;type:text"`
	ContourVerification      *string        `gorm:"column:contour_verification;type:text"`
	ContourVerificationOwner *string        `gorm:"column:contour_verification_owner;type:text"`
	DefaultBurnTimeout       *uint64        `gorm:"column:default_burn_timeout"`
	TotalSupply              *uint64        `gorm:"column:total_supply"`
	Name                     *string        `gorm:"column:name;type:text"`
	Symbol                   *string        `gorm:"column:symbol;type:text"`
	DataLink                 *string        `gorm:"column:data_link;type:text"`
	DataJSON                 datatypes.JSON `gorm:"column:data_json"`
	Description              *string        `gorm:"column:description;type:text"`

	IsBridgetHome          bool    `gorm:"column:is_bridget_home;not null;default:false"`
	IsBridgetForeign       bool    `gorm:"column:is_bridget_foreign;not null;default:false"`
	HomeMediator           *string `gorm:"column:home_mediator;type:text"`
	HomeMediatorNetwork    *string `gorm:"column:home_mediator_network;type:text"`
	ForeignMediator        *string `gorm:"column:foreign_mediator;type:text"`
	ForeignMediatorNetwork *string `gorm:"column:foreign_mediator_network;type:text"`

	ChainCreatedAt *time.Time `gorm:"column:chain_created_at"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (PrivatePropertyRegistry) TableName() string {
	return "private_property_registries"
}

// PprMember is an address holding a role or a token in a private registry
type PprMember struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	RegistryAddress string  `gorm:"column:registry_address;not null;type:text;uniqueIndex:idx_ppr_members_key,priority:1"`
	Address         string  `gorm:"column:address;not null;type:text;uniqueIndex:idx_ppr_members_key,priority:2"`
	RegistryID      *uint64 `gorm:"column:registry_id"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (PprMember) TableName() string {
	return "ppr_members"
}

// PprProposal is an edit or burn proposal against a private registry token
type PprProposal struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	RegistryAddress string `gorm:"column:registry_address;not null;type:text;uniqueIndex:idx_ppr_proposals_key,priority:1"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_ppr_proposals_key,priority:2"`
	ProposalID      string `gorm:"column:proposal_id;not null;type:text;uniqueIndex:idx_ppr_proposals_key,priority:3"`

	TokenID                   *string        `gorm:"column:token_id;type:text;index:idx_ppr_proposals_token"`
	GeoTokenID                *uint64        `gorm:"column:geo_token_id"`
	Creator                   *string        `gorm:"column:creator;type:text"`
	Status                    *string        `gorm:"column:status;type:text"`
	IsExecuted                bool           `gorm:"column:is_executed;not null;default:false"`
	Data                      *string        `gorm:"column:data;type:text"`
	Signature                 *string        `gorm:"column:signature;type:text"`
	IsBurnProposal            bool           `gorm:"column:is_burn_proposal;not null;default:false"`
	IsApprovedByTokenOwner    bool           `gorm:"column:is_approved_by_token_owner;not null;default:false"`
	IsApprovedByRegistryOwner bool           `gorm:"column:is_approved_by_registry_owner;not null;default:false"`
	DataLink                  *string        `gorm:"column:data_link;type:text"`
	Description               *string        `gorm:"column:description;type:text"`
	DataJSON                  datatypes.JSON `gorm:"column:data_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (PprProposal) TableName() string {
	return "ppr_proposals"
}

// PprLegalAgreement is a legal agreement document attached to a registry
type PprLegalAgreement struct {
	ID              uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	RegistryAddress string     `gorm:"column:registry_address;not null;type:text;uniqueIndex:idx_ppr_legal_agreements_key,priority:1"`
	IpfsHash        string     `gorm:"column:ipfs_hash;not null;type:text;uniqueIndex:idx_ppr_legal_agreements_key,priority:2"`
	SetAt           *time.Time `gorm:"column:set_at"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (PprLegalAgreement) TableName() string {
	return "ppr_legal_agreements"
}
