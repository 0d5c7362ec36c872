package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// OrderResponse represents a sale order with its aggregates
type OrderResponse struct {
	OrderID         string         `json:"orderId"`
	ContractAddress string         `json:"contractAddress"`
	IsPpr           bool           `json:"isPpr"`
	StatusName      *string        `json:"statusName"`
	Currency        *string        `json:"currency"`
	CurrencyAddress *string        `json:"currencyAddress"`
	CurrencyName    *string        `json:"currencyName"`
	Ask             *float64       `json:"ask"`
	Seller          *string        `json:"seller"`
	LastBuyer       *string        `json:"lastBuyer"`
	Description     *string        `json:"description"`
	Data            datatypes.JSON `json:"data"`

	SumLandArea       *float64 `json:"sumLandArea"`
	MinLandArea       *float64 `json:"minLandArea"`
	MaxLandArea       *float64 `json:"maxLandArea"`
	SumBuildingArea   *float64 `json:"sumBuildingArea"`
	MinBuildingArea   *float64 `json:"minBuildingArea"`
	MaxBuildingArea   *float64 `json:"maxBuildingArea"`
	MinYearBuilt      *int     `json:"minYearBuilt"`
	MaxYearBuilt      *int     `json:"maxYearBuilt"`
	SumBathroomsCount *int     `json:"sumBathroomsCount"`
	MinBathroomsCount *int     `json:"minBathroomsCount"`
	MaxBathroomsCount *int     `json:"maxBathroomsCount"`
	SumBedroomsCount  *int     `json:"sumBedroomsCount"`
	MinBedroomsCount  *int     `json:"minBedroomsCount"`
	MaxBedroomsCount  *int     `json:"maxBedroomsCount"`

	CreatedAtBlock uint64 `json:"createdAtBlock"`
	UpdatedAtBlock uint64 `json:"updatedAtBlock"`

	// Tokens is filled on single order lookups, in order position
	Tokens []TokenResponse `json:"tokens,omitempty"`
}

// MapSaleOrderToDTO maps a schema.SaleOrder to OrderResponse
func MapSaleOrderToDTO(order *schema.SaleOrder) OrderResponse {
	return OrderResponse{
		OrderID:         order.OrderID,
		ContractAddress: order.ContractAddress,
		IsPpr:           order.IsPpr,
		StatusName:      order.StatusName,
		Currency:        order.Currency,
		CurrencyAddress: order.CurrencyAddress,
		CurrencyName:    order.CurrencyName,
		Ask:             order.Ask,
		Seller:          order.Seller,
		LastBuyer:       order.LastBuyer,
		Description:     order.Description,
		Data:            order.DataJSON,

		SumLandArea:       order.SumLandArea,
		MinLandArea:       order.MinLandArea,
		MaxLandArea:       order.MaxLandArea,
		SumBuildingArea:   order.SumBuildingArea,
		MinBuildingArea:   order.MinBuildingArea,
		MaxBuildingArea:   order.MaxBuildingArea,
		MinYearBuilt:      order.MinYearBuilt,
		MaxYearBuilt:      order.MaxYearBuilt,
		SumBathroomsCount: order.SumBathroomsCount,
		MinBathroomsCount: order.MinBathroomsCount,
		MaxBathroomsCount: order.MaxBathroomsCount,
		SumBedroomsCount:  order.SumBedroomsCount,
		MinBedroomsCount:  order.MinBedroomsCount,
		MaxBedroomsCount:  order.MaxBedroomsCount,

		CreatedAtBlock: order.CreatedAtBlock,
		UpdatedAtBlock: order.UpdatedAtBlock,
	}
}

// OfferResponse represents a buyer offer on an order
type OfferResponse struct {
	OrderID         string     `json:"orderId"`
	Buyer           string     `json:"buyer"`
	ContractAddress string     `json:"contractAddress"`
	Seller          *string    `json:"seller"`
	Ask             *float64   `json:"ask"`
	Bid             *float64   `json:"bid"`
	Status          *string    `json:"status"`
	LastOfferAskAt  *time.Time `json:"lastOfferAskAt"`
	LastOfferBidAt  *time.Time `json:"lastOfferBidAt"`
	CreatedOfferAt  *time.Time `json:"createdOfferAt"`
	IsFirstOffer    bool       `json:"isFirstOffer"`
	CreatedAtBlock  uint64     `json:"createdAtBlock"`
	UpdatedAtBlock  uint64     `json:"updatedAtBlock"`
}

// MapSaleOfferToDTO maps a schema.SaleOffer to OfferResponse
func MapSaleOfferToDTO(offer *schema.SaleOffer) OfferResponse {
	return OfferResponse{
		OrderID:         offer.OrderID,
		Buyer:           offer.Buyer,
		ContractAddress: offer.ContractAddress,
		Seller:          offer.Seller,
		Ask:             offer.Ask,
		Bid:             offer.Bid,
		Status:          offer.Status,
		LastOfferAskAt:  offer.LastOfferAskAt,
		LastOfferBidAt:  offer.LastOfferBidAt,
		CreatedOfferAt:  offer.CreatedOfferAt,
		IsFirstOffer:    offer.IsFirstOffer,
		CreatedAtBlock:  offer.CreatedAtBlock,
		UpdatedAtBlock:  offer.UpdatedAtBlock,
	}
}
