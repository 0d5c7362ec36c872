package schema

import (
	"time"

	"gorm.io/datatypes"
)

// SaleOrder is a marketplace order selling one or more tokens
type SaleOrder struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         string `gorm:"column:order_id;not null;type:text;uniqueIndex:idx_sale_orders_key,priority:1"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_sale_orders_key,priority:2"`
	IsPpr           bool   `gorm:"column:is_ppr;not null;default:false"`

	StatusName      *string        `gorm:"column:status_name;type:text"`
	Currency        *string        `gorm:"column:currency;type:text"`
	CurrencyAddress *string        `gorm:"column:currency_address;type:text"`
	CurrencyName    *string        `gorm:"column:currency_name;type:text"`
	Ask             *float64       `gorm:"column:ask"`
	Seller          *string        `gorm:"column:seller;type:text"`
	LastBuyer       *string        `gorm:"column:last_buyer;type:text"`
	Description     *string        `gorm:"column:description;type:text"`
	DataJSON        datatypes.JSON `gorm:"column:data_json"`

	SumLandArea       *float64 `gorm:"column:sum_land_area"`
	MinLandArea       *float64 `gorm:"column:min_land_area"`
	MaxLandArea       *float64 `gorm:"column:max_land_area"`
	SumBuildingArea   *float64 `gorm:"column:sum_building_area"`
	MinBuildingArea   *float64 `gorm:"column:min_building_area"`
	MaxBuildingArea   *float64 `gorm:"column:max_building_area"`
	MinYearBuilt      *int     `gorm:"column:min_year_built"`
	MaxYearBuilt      *int     `gorm:"column:max_year_built"`
	SumBathroomsCount *int     `gorm:"column:sum_bathrooms_count"`
	MinBathroomsCount *int     `gorm:"column:min_bathrooms_count"`
	MaxBathroomsCount *int     `gorm:"column:max_bathrooms_count"`
	SumBedroomsCount  *int     `gorm:"column:sum_bedrooms_count"`
	MinBedroomsCount  *int     `gorm:"column:min_bedrooms_count"`
	MaxBedroomsCount  *int     `gorm:"column:max_bedrooms_count"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (SaleOrder) TableName() string {
	return "sale_orders"
}

// SaleOrderToken is the ordered token list of an order
type SaleOrderToken struct {
	SaleOrderID uint64 `gorm:"column:sale_order_id;primaryKey"`
	GeoTokenID  uint64 `gorm:"column:geo_token_id;primaryKey;index:idx_sale_order_tokens_token"`
	Position    int    `gorm:"column:position;not null;default:0"`
}

func (SaleOrderToken) TableName() string {
	return "sale_order_tokens"
}

const (
	SaleOrderFeatureKindFeature = "feature"
	SaleOrderFeatureKindType    = "type"
)

// SaleOrderFeature holds the union of features and of types/subtypes of the order tokens
type SaleOrderFeature struct {
	SaleOrderID uint64 `gorm:"column:sale_order_id;primaryKey"`
	Kind        string `gorm:"column:kind;primaryKey;type:text"`
	Value       string `gorm:"column:value;primaryKey;type:text;index:idx_sale_order_features_value"`
}

func (SaleOrderFeature) TableName() string {
	return "sale_order_features"
}

// DeferredTokenRef remembers a token an order points at before the token was indexed
type DeferredTokenRef struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	SaleOrderID     uint64 `gorm:"column:sale_order_id;not null;uniqueIndex:idx_deferred_token_refs_key,priority:1"`
	TokenID         string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_deferred_token_refs_key,priority:2;index:idx_deferred_token_refs_token,priority:1"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_deferred_token_refs_key,priority:3;index:idx_deferred_token_refs_token,priority:2"`
	Position        int    `gorm:"column:position;not null;default:0"`
}

func (DeferredTokenRef) TableName() string {
	return "deferred_token_refs"
}

// SaleOffer is a buyer offer on an order
type SaleOffer struct {
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         string `gorm:"column:order_id;not null;type:text;uniqueIndex:idx_sale_offers_key,priority:1"`
	Buyer           string `gorm:"column:buyer;not null;type:text;uniqueIndex:idx_sale_offers_key,priority:2"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_sale_offers_key,priority:3"`

	Seller         *string    `gorm:"column:seller;type:text"`
	Ask            *float64   `gorm:"column:ask"`
	Bid            *float64   `gorm:"column:bid"`
	Status         *string    `gorm:"column:status;type:text"`
	LastOfferAskAt *time.Time `gorm:"column:last_offer_ask_at"`
	LastOfferBidAt *time.Time `gorm:"column:last_offer_bid_at"`
	CreatedOfferAt *time.Time `gorm:"column:created_offer_at"`
	SaleOrderID    *uint64    `gorm:"column:sale_order_id"`
	IsFirstOffer   bool       `gorm:"column:is_first_offer;not null;default:false"`

	CreatedAtBlock uint64 `gorm:"column:created_at_block;not null;default:0"`
	UpdatedAtBlock uint64 `gorm:"column:updated_at_block;not null;default:0"`
}

func (SaleOffer) TableName() string {
	return "sale_offers"
}
