package dto

import (
	"gorm.io/datatypes"

	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// CommunityResponse represents a community
type CommunityResponse struct {
	Address               string         `json:"address"`
	StorageAddress        *string        `json:"storageAddress"`
	RuleRegistryAddress   *string        `json:"ruleRegistryAddress"`
	MultisigAddress       *string        `json:"multisigAddress"`
	PmAddress             *string        `json:"pmAddress"`
	IsPpr                 bool           `json:"isPpr"`
	IsPrivate             bool           `json:"isPrivate"`
	TokensCount           int            `json:"tokensCount"`
	ActiveFundRulesCount  int            `json:"activeFundRulesCount"`
	SpaceTokenOwnersCount int            `json:"spaceTokenOwnersCount"`
	ReputationTotalSupply *float64       `json:"reputationTotalSupply"`
	Name                  *string        `json:"name"`
	Description           *string        `json:"description"`
	DataLink              *string        `json:"dataLink"`
	Data                  datatypes.JSON `json:"data"`
	MultisigOwners        datatypes.JSON `json:"multisigOwners"`
	CreatedAtBlock        uint64         `json:"createdAtBlock"`
	UpdatedAtBlock        uint64         `json:"updatedAtBlock"`
}

// MapCommunityToDTO maps a schema.Community to CommunityResponse
func MapCommunityToDTO(c *schema.Community) CommunityResponse {
	return CommunityResponse{
		Address:               c.Address,
		StorageAddress:        c.StorageAddress,
		RuleRegistryAddress:   c.RuleRegistryAddress,
		MultisigAddress:       c.MultisigAddress,
		PmAddress:             c.PmAddress,
		IsPpr:                 c.IsPpr,
		IsPrivate:             c.IsPrivate,
		TokensCount:           c.TokensCount,
		ActiveFundRulesCount:  c.ActiveFundRulesCount,
		SpaceTokenOwnersCount: c.SpaceTokenOwnersCount,
		ReputationTotalSupply: c.ReputationTotalSupply,
		Name:                  c.Name,
		Description:           c.Description,
		DataLink:              c.DataLink,
		Data:                  c.DataJSON,
		MultisigOwners:        c.MultisigOwnersJSON,
		CreatedAtBlock:        c.CreatedAtBlock,
		UpdatedAtBlock:        c.UpdatedAtBlock,
	}
}
