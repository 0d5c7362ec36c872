package dto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/galtspace/geo-explorer/internal/api/shared/constants"
	apierrors "github.com/galtspace/geo-explorer/internal/api/shared/errors"
	"github.com/galtspace/geo-explorer/internal/geohash"
	"github.com/galtspace/geo-explorer/internal/store"
)

// ContoursByInnerGeohashRequest represents the request body for finding the contours that contain a cell
type ContoursByInnerGeohashRequest struct {
	Geohash         string  `json:"geohash"`
	ContractAddress string  `json:"contractAddress"`
	Level           *string `json:"level"`
}

// Validate validates the request body
func (r *ContoursByInnerGeohashRequest) Validate() error {
	if r.Geohash == "" {
		return apierrors.NewValidationError("geohash is required")
	}
	if !geohash.Valid(r.Geohash) {
		return apierrors.NewValidationError(fmt.Sprintf("invalid geohash: %s", r.Geohash))
	}
	return validateAddress("contractAddress", r.ContractAddress)
}

// Filter returns the contour filter of the request
func (r *ContoursByInnerGeohashRequest) Filter() store.ContourFilter {
	return store.ContourFilter{ContractAddress: r.ContractAddress, Level: r.Level}
}

// ContoursByParentGeohashRequest represents the request body for finding the contours under any of several prefixes
type ContoursByParentGeohashRequest struct {
	Geohashes       []string `json:"geohashes"`
	ContractAddress string   `json:"contractAddress"`
	Level           *string  `json:"level"`
}

// Validate validates the request body
func (r *ContoursByParentGeohashRequest) Validate() error {
	if len(r.Geohashes) == 0 {
		return apierrors.NewValidationError("geohashes is required")
	}
	if len(r.Geohashes) > constants.MAX_GEOHASHES_PER_REQUEST {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d geohashes allowed", constants.MAX_GEOHASHES_PER_REQUEST))
	}
	if err := validateGeohashPrefixes("geohashes", r.Geohashes); err != nil {
		return err
	}
	return validateAddress("contractAddress", r.ContractAddress)
}

// Filter returns the contour filter of the request
func (r *ContoursByParentGeohashRequest) Filter() store.ContourFilter {
	return store.ContourFilter{ContractAddress: r.ContractAddress, Level: r.Level}
}

// Page holds the pagination and sorting of a search
type Page struct {
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	SortBy  string `json:"sortBy"`
	SortDir string `json:"sortDir"`
}

// Validate validates the page
func (p Page) Validate() error {
	if p.Limit < 0 || p.Limit > constants.MAX_PAGE_SIZE {
		return apierrors.NewValidationError(fmt.Sprintf("limit must be between 0 and %d", constants.MAX_PAGE_SIZE))
	}
	if p.Offset < 0 {
		return apierrors.NewValidationError("offset must not be negative")
	}
	if p.SortDir != "" && p.SortDir != store.SortAsc && p.SortDir != store.SortDesc {
		return apierrors.NewValidationError("sortDir must be asc or desc")
	}
	return validateLength("sortBy", p.SortBy)
}

func (p Page) query() store.Query {
	limit := p.Limit
	if limit == 0 {
		limit = constants.DEFAULT_PAGE_SIZE
	}
	return store.Query{Limit: limit, Offset: p.Offset, SortBy: p.SortBy, SortDir: p.SortDir}
}

// TokenSearchRequest represents the request body for searching geo tokens
type TokenSearchRequest struct {
	Page
	ContractAddress string   `json:"contractAddress"`
	TokenIDs        []string `json:"tokenIds"`
	Owner           string   `json:"owner"`
	TokenType       string   `json:"tokenType"`
	Types           []string `json:"types"`
	Subtypes        []string `json:"subtypes"`
	Level           string   `json:"level"`
	IsPpr           *bool    `json:"isPpr"`
	HumanAddress    string   `json:"humanAddress"`
	Features        []string `json:"features"`
	Geohashes       []string `json:"geohashes"`
	AreaMin         *float64 `json:"areaMin"`
	AreaMax         *float64 `json:"areaMax"`
	BedroomsMin     *int     `json:"bedroomsMin"`
	BedroomsMax     *int     `json:"bedroomsMax"`
	BathroomsMin    *int     `json:"bathroomsMin"`
	BathroomsMax    *int     `json:"bathroomsMax"`
}

// Validate validates the request body
func (r *TokenSearchRequest) Validate() error {
	if err := r.Page.Validate(); err != nil {
		return err
	}
	if err := validateAddress("contractAddress", r.ContractAddress); err != nil {
		return err
	}
	if err := validateAddress("owner", r.Owner); err != nil {
		return err
	}
	if len(r.TokenIDs) > constants.MAX_IDS_PER_REQUEST {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d tokenIds allowed", constants.MAX_IDS_PER_REQUEST))
	}
	for name, values := range map[string][]string{"types": r.Types, "subtypes": r.Subtypes, "features": r.Features} {
		if err := validateValues(name, values); err != nil {
			return err
		}
	}
	if err := validateLength("humanAddress", r.HumanAddress); err != nil {
		return err
	}
	return validateGeohashPrefixes("geohashes", r.Geohashes)
}

// Filter returns the store filter of the request
func (r *TokenSearchRequest) Filter() store.TokenFilter {
	return store.TokenFilter{
		Query:           r.query(),
		ContractAddress: r.ContractAddress,
		TokenIDs:        r.TokenIDs,
		Owner:           r.Owner,
		TokenType:       r.TokenType,
		Types:           r.Types,
		Subtypes:        r.Subtypes,
		Level:           r.Level,
		IsPpr:           r.IsPpr,
		HumanAddress:    r.HumanAddress,
		Features:        r.Features,
		Geohashes:       r.Geohashes,
		AreaMin:         r.AreaMin,
		AreaMax:         r.AreaMax,
		BedroomsMin:     r.BedroomsMin,
		BedroomsMax:     r.BedroomsMax,
		BathroomsMin:    r.BathroomsMin,
		BathroomsMax:    r.BathroomsMax,
	}
}

// OrderSearchRequest represents the request body for searching sale orders
type OrderSearchRequest struct {
	Page
	ContractAddress string   `json:"contractAddress"`
	StatusName      string   `json:"statusName"`
	Currency        string   `json:"currency"`
	CurrencyAddress string   `json:"currencyAddress"`
	Seller          string   `json:"seller"`
	IsPpr           *bool    `json:"isPpr"`
	Features        []string `json:"features"`
	Types           []string `json:"types"`
	Geohashes       []string `json:"geohashes"`
	AskMin          *float64 `json:"askMin"`
	AskMax          *float64 `json:"askMax"`
	LandAreaMin     *float64 `json:"landAreaMin"`
	LandAreaMax     *float64 `json:"landAreaMax"`
	BuildingAreaMin *float64 `json:"buildingAreaMin"`
	BuildingAreaMax *float64 `json:"buildingAreaMax"`
	BedroomsMin     *int     `json:"bedroomsMin"`
	BedroomsMax     *int     `json:"bedroomsMax"`
	BathroomsMin    *int     `json:"bathroomsMin"`
	BathroomsMax    *int     `json:"bathroomsMax"`
}

// Validate validates the request body
func (r *OrderSearchRequest) Validate() error {
	if err := r.Page.Validate(); err != nil {
		return err
	}
	for name, address := range map[string]string{"contractAddress": r.ContractAddress, "currencyAddress": r.CurrencyAddress, "seller": r.Seller} {
		if err := validateAddress(name, address); err != nil {
			return err
		}
	}
	if err := validateValues("features", r.Features); err != nil {
		return err
	}
	if err := validateValues("types", r.Types); err != nil {
		return err
	}
	return validateGeohashPrefixes("geohashes", r.Geohashes)
}

// Filter returns the store filter of the request
func (r *OrderSearchRequest) Filter() store.SaleOrderFilter {
	return store.SaleOrderFilter{
		Query:           r.query(),
		ContractAddress: r.ContractAddress,
		StatusName:      r.StatusName,
		Currency:        r.Currency,
		CurrencyAddress: r.CurrencyAddress,
		Seller:          r.Seller,
		IsPpr:           r.IsPpr,
		Features:        r.Features,
		Types:           r.Types,
		Geohashes:       r.Geohashes,
		AskMin:          r.AskMin,
		AskMax:          r.AskMax,
		LandAreaMin:     r.LandAreaMin,
		LandAreaMax:     r.LandAreaMax,
		BuildingAreaMin: r.BuildingAreaMin,
		BuildingAreaMax: r.BuildingAreaMax,
		BedroomsMin:     r.BedroomsMin,
		BedroomsMax:     r.BedroomsMax,
		BathroomsMin:    r.BathroomsMin,
		BathroomsMax:    r.BathroomsMax,
	}
}

// OfferSearchRequest represents the request body for searching sale offers
type OfferSearchRequest struct {
	Page
	ContractAddress string   `json:"contractAddress"`
	OrderID         string   `json:"orderId"`
	Buyer           string   `json:"buyer"`
	Seller          string   `json:"seller"`
	Status          string   `json:"status"`
	IsFirstOffer    *bool    `json:"isFirstOffer"`
	BidMin          *float64 `json:"bidMin"`
	BidMax          *float64 `json:"bidMax"`
}

// Validate validates the request body
func (r *OfferSearchRequest) Validate() error {
	if err := r.Page.Validate(); err != nil {
		return err
	}
	for name, address := range map[string]string{"contractAddress": r.ContractAddress, "buyer": r.Buyer, "seller": r.Seller} {
		if err := validateAddress(name, address); err != nil {
			return err
		}
	}
	return validateLength("orderId", r.OrderID)
}

// Filter returns the store filter of the request
func (r *OfferSearchRequest) Filter() store.SaleOfferFilter {
	return store.SaleOfferFilter{
		Query:           r.query(),
		ContractAddress: r.ContractAddress,
		OrderID:         r.OrderID,
		Buyer:           r.Buyer,
		Seller:          r.Seller,
		Status:          r.Status,
		IsFirstOffer:    r.IsFirstOffer,
		BidMin:          r.BidMin,
		BidMax:          r.BidMax,
	}
}

// ApplicationSearchRequest represents the request body for searching applications
type ApplicationSearchRequest struct {
	Page
	ContractAddress  string   `json:"contractAddress"`
	ApplicantAddress string   `json:"applicantAddress"`
	StatusName       string   `json:"statusName"`
	ContractType     string   `json:"contractType"`
	FeeCurrency      string   `json:"feeCurrency"`
	Oracles          []string `json:"oracles"`
	AvailableRoles   []string `json:"availableRoles"`
}

// Validate validates the request body
func (r *ApplicationSearchRequest) Validate() error {
	if err := r.Page.Validate(); err != nil {
		return err
	}
	if err := validateAddress("contractAddress", r.ContractAddress); err != nil {
		return err
	}
	if err := validateAddress("applicantAddress", r.ApplicantAddress); err != nil {
		return err
	}
	if err := validateValues("oracles", r.Oracles); err != nil {
		return err
	}
	for _, oracle := range r.Oracles {
		if err := validateAddress("oracles", oracle); err != nil {
			return err
		}
	}
	return validateValues("availableRoles", r.AvailableRoles)
}

// Filter returns the store filter of the request
func (r *ApplicationSearchRequest) Filter() store.ApplicationFilter {
	return store.ApplicationFilter{
		Query:            r.query(),
		ContractAddress:  r.ContractAddress,
		ApplicantAddress: r.ApplicantAddress,
		StatusName:       r.StatusName,
		ContractType:     r.ContractType,
		FeeCurrency:      r.FeeCurrency,
		Oracles:          r.Oracles,
		AvailableRoles:   r.AvailableRoles,
	}
}

// CommunitySearchRequest represents the request body for searching communities
type CommunitySearchRequest struct {
	Page
	Addresses      []string `json:"addresses"`
	IsPpr          *bool    `json:"isPpr"`
	IsPrivate      *bool    `json:"isPrivate"`
	Member         string   `json:"member"`
	TokensCountMin *int     `json:"tokensCountMin"`
	TokensCountMax *int     `json:"tokensCountMax"`
}

// Validate validates the request body
func (r *CommunitySearchRequest) Validate() error {
	if err := r.Page.Validate(); err != nil {
		return err
	}
	if len(r.Addresses) > constants.MAX_IDS_PER_REQUEST {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d addresses allowed", constants.MAX_IDS_PER_REQUEST))
	}
	for _, address := range r.Addresses {
		if err := validateAddress("addresses", address); err != nil {
			return err
		}
	}
	return validateAddress("member", r.Member)
}

// Filter returns the store filter of the request
func (r *CommunitySearchRequest) Filter() store.CommunityFilter {
	return store.CommunityFilter{
		Query:          r.query(),
		Addresses:      r.Addresses,
		IsPpr:          r.IsPpr,
		IsPrivate:      r.IsPrivate,
		Member:         r.Member,
		TokensCountMin: r.TokensCountMin,
		TokensCountMax: r.TokensCountMax,
	}
}

// validateAddress accepts an empty value or a hex address
func validateAddress(field, address string) error {
	if address == "" || common.IsHexAddress(address) {
		return nil
	}
	return apierrors.NewValidationError(fmt.Sprintf("invalid %s: %s", field, address))
}

// validateGeohashPrefixes checks each prefix after cutting it to the indexed precision
func validateGeohashPrefixes(field string, prefixes []string) error {
	if len(prefixes) > constants.MAX_GEOHASHES_PER_REQUEST {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d %s allowed", constants.MAX_GEOHASHES_PER_REQUEST, field))
	}
	for _, p := range prefixes {
		if !geohash.Valid(geohash.Truncate(p)) {
			return apierrors.NewValidationError(fmt.Sprintf("invalid geohash in %s: %s", field, p))
		}
	}
	return nil
}

func validateValues(field string, values []string) error {
	if len(values) > constants.MAX_FILTER_VALUES {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d %s allowed", constants.MAX_FILTER_VALUES, field))
	}
	for _, v := range values {
		if err := validateLength(field, v); err != nil {
			return err
		}
	}
	return nil
}

func validateLength(field, value string) error {
	if len(value) > constants.MAX_FIELD_LENGTH {
		return apierrors.NewValidationError(fmt.Sprintf("%s exceeds %d characters", field, constants.MAX_FIELD_LENGTH))
	}
	return nil
}
