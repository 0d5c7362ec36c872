package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// TokenResponse represents a geo token
type TokenResponse struct {
	TokenID          string   `json:"tokenId"`
	ContractAddress  string   `json:"contractAddress"`
	IsPpr            bool     `json:"isPpr"`
	TokenType        *string  `json:"tokenType"`
	Type             *string  `json:"type"`
	Subtype          *string  `json:"subtype"`
	Purpose          *string  `json:"purpose"`
	Area             *float64 `json:"area"`
	AreaSource       *string  `json:"areaSource"`
	Level            *string  `json:"level"`
	LevelNumber      *float64 `json:"levelNumber"`
	HumanAddress     *string  `json:"humanAddress"`
	LedgerIdentifier *string  `json:"ledgerIdentifier"`
	HighestPoint     *float64 `json:"highestPoint"`
	InnerHeight      *float64 `json:"innerHeight"`

	Owner      *string `json:"owner"`
	Locker     *string `json:"locker"`
	InLocker   bool    `json:"inLocker"`
	LockerType *string `json:"lockerType"`

	PhotosCount     int     `json:"photosCount"`
	FloorPlansCount int     `json:"floorPlansCount"`
	BathroomsCount  *int    `json:"bathroomsCount"`
	BedroomsCount   *int    `json:"bedroomsCount"`
	YearBuilt       *int    `json:"yearBuilt"`
	ImageHash       *string `json:"imageHash"`

	DataLink       *string        `json:"dataLink"`
	Data           datatypes.JSON `json:"data"`
	GeohashContour datatypes.JSON `json:"geohashContour"`
	HeightsContour datatypes.JSON `json:"heightsContour"`
	GeohashesCount int            `json:"geohashesCount"`
	LatCenter      *float64       `json:"latCenter"`
	LonCenter      *float64       `json:"lonCenter"`

	CommunitiesCount                     int `json:"communitiesCount"`
	ProposalsToEditForTokenOwnerCount    int `json:"proposalsToEditForTokenOwnerCount"`
	ProposalsToBurnForTokenOwnerCount    int `json:"proposalsToBurnForTokenOwnerCount"`
	ProposalsToEditForRegistryOwnerCount int `json:"proposalsToEditForRegistryOwnerCount"`
	ProposalsToBurnForRegistryOwnerCount int `json:"proposalsToBurnForRegistryOwnerCount"`

	BurnTimeout          *uint64    `json:"burnTimeout"`
	BurnOn               *time.Time `json:"burnOn"`
	VerificationPledge   *float64   `json:"verificationPledge"`
	CreationTimeoutEndOn *time.Time `json:"creationTimeoutEndOn"`

	CreatedAtBlock uint64 `json:"createdAtBlock"`
	UpdatedAtBlock uint64 `json:"updatedAtBlock"`

	// Expansions, filled on single token lookups
	Owners   []string `json:"owners,omitempty"`
	Features []string `json:"features,omitempty"`
}

// MapGeoTokenToDTO maps a schema.GeoToken to TokenResponse
func MapGeoTokenToDTO(token *schema.GeoToken) TokenResponse {
	return TokenResponse{
		TokenID:          token.TokenID,
		ContractAddress:  token.ContractAddress,
		IsPpr:            token.IsPpr,
		TokenType:        token.TokenType,
		Type:             token.Type,
		Subtype:          token.Subtype,
		Purpose:          token.Purpose,
		Area:             token.Area,
		AreaSource:       token.AreaSource,
		Level:            token.Level,
		LevelNumber:      token.LevelNumber,
		HumanAddress:     token.HumanAddress,
		LedgerIdentifier: token.LedgerIdentifier,
		HighestPoint:     token.HighestPoint,
		InnerHeight:      token.InnerHeight,

		Owner:      token.Owner,
		Locker:     token.Locker,
		InLocker:   token.InLocker,
		LockerType: token.LockerType,

		PhotosCount:     token.PhotosCount,
		FloorPlansCount: token.FloorPlansCount,
		BathroomsCount:  token.BathroomsCount,
		BedroomsCount:   token.BedroomsCount,
		YearBuilt:       token.YearBuilt,
		ImageHash:       token.ImageHash,

		DataLink:       token.DataLink,
		Data:           token.DataJSON,
		GeohashContour: token.GeohashContourJSON,
		HeightsContour: token.HeightsContourJSON,
		GeohashesCount: token.GeohashesCount,
		LatCenter:      token.LatCenter,
		LonCenter:      token.LonCenter,

		CommunitiesCount:                     token.CommunitiesCount,
		ProposalsToEditForTokenOwnerCount:    token.ProposalsToEditForTokenOwnerCount,
		ProposalsToBurnForTokenOwnerCount:    token.ProposalsToBurnForTokenOwnerCount,
		ProposalsToEditForRegistryOwnerCount: token.ProposalsToEditForRegistryOwnerCount,
		ProposalsToBurnForRegistryOwnerCount: token.ProposalsToBurnForRegistryOwnerCount,

		BurnTimeout:          token.BurnTimeout,
		BurnOn:               token.BurnOn,
		VerificationPledge:   token.VerificationPledge,
		CreationTimeoutEndOn: token.CreationTimeoutEndOn,

		CreatedAtBlock: token.CreatedAtBlock,
		UpdatedAtBlock: token.UpdatedAtBlock,
	}
}
