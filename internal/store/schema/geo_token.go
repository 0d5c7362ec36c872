package schema

import (
	"time"

	"gorm.io/datatypes"
)

// GeoToken is the read model of a land, building or room token
type GeoToken struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	TokenID         string  `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_geo_tokens_key,priority:1"`
	ContractAddress string  `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_geo_tokens_key,priority:2"`
	IsPpr           bool    `gorm:"column:is_ppr;not null;default:false"`
	PprID           *uint64 `gorm:"column:ppr_id"`

	TokenType        *string  `gorm:"column:token_type;type:text"`
	Type             *string  `gorm:"column:type;type:text;index:idx_geo_tokens_type"`
	Subtype          *string  `gorm:"column:subtype;type:text"`
	Purpose          *string  `gorm:"column:purpose;type:text"`
	Area             *float64 `gorm:"column:area"`
	AreaSource       *string  `gorm:"column:area_source;type:text"`
	Level            *string  `gorm:"column:level;type:text"`
	LevelNumber      *float64 `gorm:"column:level_number"`
	HumanAddress     *string  `gorm:"column:human_address;type:text"`
	LedgerIdentifier *string  `gorm:"column:ledger_identifier;type:text"`
	HighestPoint     *float64 `gorm:"column:highest_point"`
	InnerHeight      *float64 `gorm:"column:inner_height"`

	// Owner is a lowercase address or domain.SharedOwner
	Owner      *string `gorm:"column:owner;type:text;index:idx_geo_tokens_owner"`
	Locker     *string `gorm:"column:locker;type:text"`
	InLocker   bool    `gorm:"column:in_locker;not null;default:false"`
	LockerType *string `gorm:"column:locker_type;type:text"`

	PhotosCount     int     `gorm:"column:photos_count;not null;default:0"`
	FloorPlansCount int     `gorm:"column:floor_plans_count;not null;default:0"`
	BathroomsCount  *int    `gorm:"column:bathrooms_count"`
	BedroomsCount   *int    `gorm:"column:bedrooms_count"`
	YearBuilt       *int    `gorm:"column:year_built"`
	ImageHash       *string `gorm:"column:image_hash;type:text"`

	DataLink            *string        `gorm:"column:data_link;type:text"`
	DataJSON            datatypes.JSON `gorm:"column:data_json"`
	GeohashContourJSON  datatypes.JSON `gorm:"column:geohash_contour_json"`
	HeightsContourJSON  datatypes.JSON `gorm:"column:heights_contour_json"`
	ContractContourJSON datatypes.JSON `gorm:"column:contract_contour_json"`
	GeohashesCount      int            `gorm:"column:geohashes_count;not null;default:0"`
	LatCenter           *float64       `gorm:"column:lat_center"`
	LonCenter           *float64       `gorm:"column:lon_center"`

	CommunitiesCount                     int `gorm:"column:communities_count;not null;default:0"`
	ProposalsToEditForTokenOwnerCount    int `gorm:"column:proposals_to_edit_for_token_owner_count;not null;default:0"`
	ProposalsToBurnForTokenOwnerCount    int `gorm:"column:proposals_to_burn_for_token_owner_count;not null;default:0"`
	ProposalsToEditForRegistryOwnerCount int `gorm:"column:proposals_to_edit_for_registry_owner_count;not null;default:0"`
	ProposalsToBurnForRegistryOwnerCount int `gorm:"column:proposals_to_burn_for_registry_owner_count;not null;default:0"`

	BurnTimeout          *uint64    `gorm:"column:burn_timeout"`
	BurnOn               *time.Time `gorm:"column:burn_on"`
	VerificationPledge   *float64   `gorm:"column:verification_pledge"`
	CreationTimeoutEndOn *time.Time `gorm:"column:creation_timeout_end_on"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (GeoToken) TableName() string {
	return "geo_tokens"
}

// GeoTokenOwner links a token to each of its owners, ordered by position
type GeoTokenOwner struct {
	GeoTokenID uint64 `gorm:"column:geo_token_id;primaryKey"`
	Address    string `gorm:"column:address;primaryKey;type:text;index:idx_geo_token_owners_address"`
	Position   int    `gorm:"column:position;not null;default:0"`
}

func (GeoTokenOwner) TableName() string {
	return "geo_token_owners"
}

// GeoTokenFeature is one feature of a token, e.g. "pool"
type GeoTokenFeature struct {
	GeoTokenID uint64 `gorm:"column:geo_token_id;primaryKey"`
	Feature    string `gorm:"column:feature;primaryKey;type:text;index:idx_geo_token_features_feature"`
}

func (GeoTokenFeature) TableName() string {
	return "geo_token_features"
}
