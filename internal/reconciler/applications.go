package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/store"
)

// applicationTokenPrefix keys the token of an application that has no minted token yet
const applicationTokenPrefix = "application_"

func (r *reconciler) handleNewApplication(ctx context.Context, event domain.Event) ([]Effect, error) {
	key := store.ApplicationKey{
		ApplicationID:   event.String("applicationId", "id"),
		ContractAddress: event.Contract(),
	}

	app, err := r.chain.Application(ctx, key.ContractAddress, key.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read application %s of %s: %w", key.ApplicationID, key.ContractAddress, err)
	}
	if app == nil {
		logger.WarnCtx(ctx, "Application not found on chain",
			zap.String("application", key.ApplicationID), zap.String("contract", key.ContractAddress))
		return nil, nil
	}

	p := blockPatch(event.BlockNumber).
		Set("applicant_address", optString(domain.NormalizeAddress(app.Applicant))).
		Set("credentials_hash", optString(app.CredentialsHash)).
		Set("fee_currency", optString(app.FeeCurrency)).
		Set("fee_currency_address", optString(app.FeeCurrencyAddress)).
		Set("fee_currency_name", optString(r.currencyName(ctx, app.FeeCurrency, app.FeeCurrencyAddress))).
		Set("fee_amount", app.FeeAmount).
		Set("status_name", optString(app.Status)).
		Set("contract_type", optString(app.ContractType)).
		Set("total_oracles_reward", app.TotalOraclesReward)
	if err := r.store.UpsertApplication(ctx, key, p); err != nil {
		return nil, err
	}
	if err := r.store.SetApplicationRoles(ctx, key, app.Roles, app.AvailableRoles, app.Oracles); err != nil {
		return nil, err
	}

	var (
		token   domain.TokenKey
		effects []Effect
	)
	if app.TokenID != "" && app.TokenID != "0" {
		token = domain.NewTokenKey(app.TokenID, r.config.SpaceGeoData)
		effects, err = r.saveToken(ctx, token, event.BlockNumber, nil)
	} else {
		token = domain.NewTokenKey(applicationTokenPrefix+key.ContractAddress+"_"+key.ApplicationID, r.config.SpaceGeoData)
		err = r.saveApplicationToken(ctx, token, app.Applicant, app.DataLink, event.BlockNumber)
	}
	if err != nil {
		return nil, err
	}

	stored, err := r.store.GetGeoToken(ctx, token)
	if err != nil {
		return nil, err
	}
	var tokens []domain.TokenKey
	if stored != nil {
		tokens = append(tokens, token)
	}
	if err := r.store.SetApplicationTokens(ctx, key, tokens); err != nil {
		return nil, err
	}
	return effects, nil
}

// saveApplicationToken stores the property an application describes before a token is minted
// for it. Only the data link document is known at this point.
func (r *reconciler) saveApplicationToken(ctx context.Context, key domain.TokenKey, applicant, dataLink string, block uint64) error {
	if dataLink == "" {
		return nil
	}
	applicant = domain.NormalizeAddress(applicant)

	p := blockPatch(block).
		Set("is_ppr", false).
		Set("owner", optString(applicant))
	features := r.applyDataLink(ctx, p, dataLink)
	if err := r.store.UpsertGeoToken(ctx, key, p); err != nil {
		return err
	}
	if applicant != "" {
		if err := r.store.SetTokenOwners(ctx, key, []string{applicant}); err != nil {
			return err
		}
	}
	return r.store.SetTokenFeatures(ctx, key, features)
}
