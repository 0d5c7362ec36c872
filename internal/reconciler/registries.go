package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/chain"
	"github.com/galtspace/geo-explorer/internal/content"
	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/logger"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func (r *reconciler) handleRegistry(ctx context.Context, event domain.Event) ([]Effect, error) {
	address := event.Contract()
	if event.Type == domain.EventNewPrivatePropertyRegistry {
		address = event.Address("token")
	}
	if address == "" {
		return nil, nil
	}

	reg, err := r.chain.Registry(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", address, err)
	}
	if reg == nil || reg.Owner == "" || domain.IsZeroAddress(reg.Owner) {
		logger.InfoCtx(ctx, "Registry has no owner, deleting", zap.String("registry", address))
		return nil, r.store.DeleteRegistry(ctx, address)
	}

	previous, err := r.store.GetRegistry(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := r.syncRegistryMembers(ctx, address, previous, reg, event.BlockNumber); err != nil {
		return nil, err
	}

	doc := r.resolveContent(ctx, reg.DataLink)
	p := blockPatch(event.BlockNumber).
		Set("controller", optString(domain.NormalizeAddress(reg.Controller))).
		Set("owner", optString(domain.NormalizeAddress(reg.Owner))).
		Set("controller_owner", optString(domain.NormalizeAddress(reg.ControllerOwner))).
		Set("minter", optString(domain.NormalizeAddress(reg.Minter))).
		Set("geo_data_manager", optString(domain.NormalizeAddress(reg.GeoDataManager))).
		Set("fee_manager", optString(domain.NormalizeAddress(reg.FeeManager))).
		Set("burner", optString(domain.NormalizeAddress(reg.Burner))).
		Set("contour_verification", optString(domain.NormalizeAddress(reg.ContourVerification))).
		Set("contour_verification_owner", optString(domain.NormalizeAddress(reg.ContourVerificationOwner))).
		Set("default_burn_timeout", reg.DefaultBurnTimeout).
		Set("total_supply", reg.TotalSupply).
		Set("name", optString(reg.Name)).
		Set("symbol", optString(reg.Symbol)).
		Set("data_link", optString(reg.DataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("description", optString(r.describe(ctx, reg.DataLink, doc)))
	if event.Type == domain.EventNewPrivatePropertyRegistry {
		p.Set("chain_created_at", r.blockTime(ctx, event.BlockNumber))
	}
	return nil, r.store.UpsertRegistry(ctx, address, p)
}

// syncRegistryMembers adds the current role holders as members and drops previous holders that
// lost every role and own no token of the registry
func (r *reconciler) syncRegistryMembers(ctx context.Context, address string, previous *schema.PrivatePropertyRegistry, reg *chain.Registry, block uint64) error {
	current := map[string]bool{}
	for _, holders := range reg.Members {
		for _, h := range holders {
			if h = domain.NormalizeAddress(h); h != "" && !domain.IsZeroAddress(h) {
				current[h] = true
			}
		}
	}

	for h := range current {
		if err := r.store.UpsertPprMember(ctx, address, h, blockPatch(block)); err != nil {
			return err
		}
	}

	if previous == nil {
		return nil
	}
	for _, old := range []*string{
		previous.Owner, previous.Minter, previous.GeoDataManager,
		previous.FeeManager, previous.Burner, previous.ContourVerificationOwner,
	} {
		if old == nil || *old == "" || current[*old] {
			continue
		}
		_, owned, err := r.store.FilterGeoTokens(ctx, store.TokenFilter{
			Query:           store.Query{Limit: 1},
			ContractAddress: address,
			Owner:           *old,
		})
		if err != nil {
			return err
		}
		if owned > 0 {
			continue
		}
		if err := r.store.DeletePprMember(ctx, address, *old); err != nil {
			return err
		}
	}
	return nil
}

func (r *reconciler) handlePprProposal(ctx context.Context, event domain.Event) ([]Effect, error) {
	controller := event.Contract()
	reg, err := r.store.FindRegistryByController(ctx, controller)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		logger.WarnCtx(ctx, "Proposal of an unknown registry controller", zap.String("controller", controller))
		return nil, nil
	}

	proposalID := event.String("proposalId")
	proposal, err := r.chain.PprProposal(ctx, controller, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal %s of %s: %w", proposalID, controller, err)
	}
	if proposal == nil {
		return nil, nil
	}

	tokenID := proposal.TokenID
	if id := event.String("tokenId"); id != "" {
		tokenID = id
	}
	tokenKey := domain.NewTokenKey(tokenID, reg.Address)
	token, err := r.store.GetGeoToken(ctx, tokenKey)
	if err != nil {
		return nil, err
	}
	if token == nil {
		logger.InfoCtx(ctx, "Proposal of a token not indexed, skipping",
			zap.String("token", tokenKey.String()), zap.String("proposal", proposalID))
		return nil, nil
	}

	creator := proposal.Creator
	if c := event.Address("creator"); c != "" {
		creator = c
	}

	doc := r.resolveContent(ctx, proposal.DataLink)
	description := proposal.Description
	if description == "" {
		description = r.describe(ctx, proposal.DataLink, doc)
	}
	if content.IsContentHash(description) {
		// descriptions may themselves point at stored text
		description = r.describe(ctx, description, nil)
	}

	key := store.PprProposalKey{RegistryAddress: reg.Address, ContractAddress: controller, ProposalID: proposalID}
	p := blockPatch(event.BlockNumber).
		Set("token_id", optString(tokenID)).
		Set("geo_token_id", token.ID).
		Set("creator", optString(domain.NormalizeAddress(creator))).
		Set("status", optString(proposal.Status)).
		Set("is_executed", proposal.Status == chain.PprProposalExecuted).
		Set("data", optString(proposal.Data)).
		Set("signature", optString(proposal.Signature)).
		Set("is_burn_proposal", proposal.IsBurnProposal).
		Set("is_approved_by_token_owner", proposal.ApprovedByTokenOwner).
		Set("is_approved_by_registry_owner", proposal.ApprovedByRegistryOwner).
		Set("data_link", optString(proposal.DataLink)).
		Set("description", optString(description)).
		Set("data_json", jsonColumn(doc))
	if err := r.store.UpsertPprProposal(ctx, key, p); err != nil {
		return nil, err
	}

	counts, err := r.pendingProposalCounts(ctx, reg.Address, tokenID)
	if err != nil {
		return nil, err
	}
	return nil, r.store.UpsertGeoToken(ctx, tokenKey, counts)
}

// pendingProposalCounts counts the pending edit and burn proposals of a token that still wait
// for the token owner or the registry owner
func (r *reconciler) pendingProposalCounts(ctx context.Context, registry, tokenID string) (*patch.Patch, error) {
	yes, no := true, false
	p := patch.New()
	for _, c := range []struct {
		col             string
		burn            bool
		byRegistryOwner bool
	}{
		{"proposals_to_edit_for_token_owner_count", false, false},
		{"proposals_to_burn_for_token_owner_count", true, false},
		{"proposals_to_edit_for_registry_owner_count", false, true},
		{"proposals_to_burn_for_registry_owner_count", true, true},
	} {
		filter := store.PprProposalFilter{
			RegistryAddress: registry,
			TokenID:         tokenID,
			Statuses:        []string{chain.PprProposalPending},
			IsBurnProposal:  &no,
		}
		if c.burn {
			filter.IsBurnProposal = &yes
		}
		if c.byRegistryOwner {
			filter.ApprovedByRegistryOwner = &no
		} else {
			filter.ApprovedByTokenOwner = &no
		}
		n, err := r.store.CountPprProposals(ctx, filter)
		if err != nil {
			return nil, err
		}
		p.Set(c.col, int(n))
	}
	return p, nil
}

func (r *reconciler) handleBurnTimeout(ctx context.Context, event domain.Event) ([]Effect, error) {
	controller := event.Contract()
	reg, err := r.store.FindRegistryByController(ctx, controller)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		logger.WarnCtx(ctx, "Burn timeout of an unknown registry controller", zap.String("controller", controller))
		return nil, nil
	}

	tokenID := event.String("id", "tokenId", "_tokenId", "spaceTokenId", "privatePropertyId")
	timeout, err := r.chain.BurnTimeout(ctx, controller, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read burn timeout of %s: %w", tokenID, err)
	}
	if timeout == nil {
		return nil, nil
	}

	partial := patch.New().Set("burn_timeout", timeout.Timeout).Set("burn_on", timeout.BurnOn)
	return r.saveToken(ctx, domain.NewTokenKey(tokenID, reg.Address), event.BlockNumber, partial)
}

func (r *reconciler) handleLegalAgreement(ctx context.Context, event domain.Event) ([]Effect, error) {
	registry := event.Contract()
	hash := content.HashFromBytes32(event.String("legalAgreementIpfsHash", "_legalAgreementIpfsHash"))
	if hash == "" {
		logger.WarnCtx(ctx, "Legal agreement without hash", zap.String("registry", registry), zap.String("txHash", event.TxHash))
		return nil, nil
	}

	p := blockPatch(event.BlockNumber).Set("set_at", r.blockTime(ctx, event.BlockNumber))
	return nil, r.store.UpsertLegalAgreement(ctx, registry, hash, p)
}
