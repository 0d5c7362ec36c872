package schema

import "gorm.io/datatypes"

// Application is a request to register a new property
type Application struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ApplicationID   string `gorm:"column:application_id;not null;type:text;uniqueIndex:idx_applications_key,priority:1"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_applications_key,priority:2"`

	ApplicantAddress   *string        `gorm:"column:applicant_address;type:text;index:idx_applications_applicant"`
	CredentialsHash    *string        `gorm:"column:credentials_hash;type:text"`
	FeeCurrency        *string        `gorm:"column:fee_currency;type:text"`
	FeeCurrencyAddress *string        `gorm:"column:fee_currency_address;type:text"`
	FeeCurrencyName    *string        `gorm:"column:fee_currency_name;type:text"`
	FeeAmount          *float64       `gorm:"column:fee_amount"`
	StatusName         *string        `gorm:"column:status_name;type:text"`
	ContractType       *string        `gorm:"column:contract_type;type:text"`
	TotalOraclesReward *float64       `gorm:"column:total_oracles_reward"`
	DataJSON           datatypes.JSON `gorm:"column:data_json"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (Application) TableName() string {
	return "applications"
}

const (
	ApplicationRoleKindRole      = "role"
	ApplicationRoleKindAvailable = "available"
	ApplicationRoleKindOracle    = "oracle"
)

// ApplicationRole holds assigned roles, still pending roles and oracle addresses of an application
type ApplicationRole struct {
	ApplicationID uint64 `gorm:"column:application_id;primaryKey"`
	Kind          string `gorm:"column:kind;primaryKey;type:text"`
	Value         string `gorm:"column:value;primaryKey;type:text;index:idx_application_roles_value"`
}

func (ApplicationRole) TableName() string {
	return "application_roles"
}

// ApplicationToken links an application to the tokens it concerns
type ApplicationToken struct {
	ApplicationID uint64 `gorm:"column:application_id;primaryKey"`
	GeoTokenID    uint64 `gorm:"column:geo_token_id;primaryKey"`
}

func (ApplicationToken) TableName() string {
	return "application_tokens"
}
