package dto

import (
	"gorm.io/datatypes"

	"github.com/galtspace/geo-explorer/internal/store/schema"
)

// ApplicationResponse represents a property application
type ApplicationResponse struct {
	ApplicationID      string         `json:"applicationId"`
	ContractAddress    string         `json:"contractAddress"`
	ApplicantAddress   *string        `json:"applicantAddress"`
	CredentialsHash    *string        `json:"credentialsHash"`
	FeeCurrency        *string        `json:"feeCurrency"`
	FeeCurrencyAddress *string        `json:"feeCurrencyAddress"`
	FeeCurrencyName    *string        `json:"feeCurrencyName"`
	FeeAmount          *float64       `json:"feeAmount"`
	StatusName         *string        `json:"statusName"`
	ContractType       *string        `json:"contractType"`
	TotalOraclesReward *float64       `json:"totalOraclesReward"`
	Data               datatypes.JSON `json:"data"`
	CreatedAtBlock     uint64         `json:"createdAtBlock"`
	UpdatedAtBlock     uint64         `json:"updatedAtBlock"`

	// Expansions, filled on single application lookups
	Roles          []string        `json:"roles,omitempty"`
	AvailableRoles []string        `json:"availableRoles,omitempty"`
	Oracles        []string        `json:"oracles,omitempty"`
	Tokens         []TokenResponse `json:"tokens,omitempty"`
}

// MapApplicationToDTO maps a schema.Application to ApplicationResponse
func MapApplicationToDTO(app *schema.Application) ApplicationResponse {
	return ApplicationResponse{
		ApplicationID:      app.ApplicationID,
		ContractAddress:    app.ContractAddress,
		ApplicantAddress:   app.ApplicantAddress,
		CredentialsHash:    app.CredentialsHash,
		FeeCurrency:        app.FeeCurrency,
		FeeCurrencyAddress: app.FeeCurrencyAddress,
		FeeCurrencyName:    app.FeeCurrencyName,
		FeeAmount:          app.FeeAmount,
		StatusName:         app.StatusName,
		ContractType:       app.ContractType,
		TotalOraclesReward: app.TotalOraclesReward,
		Data:               app.DataJSON,
		CreatedAtBlock:     app.CreatedAtBlock,
		UpdatedAtBlock:     app.UpdatedAtBlock,
	}
}
