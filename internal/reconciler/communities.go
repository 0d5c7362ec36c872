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

func communityRef(c *schema.Community) chain.CommunityRef {
	ref := chain.CommunityRef{Address: c.Address, IsPpr: c.IsPpr}
	if c.StorageAddress != nil {
		ref.StorageAddress = *c.StorageAddress
	}
	if c.RuleRegistryAddress != nil {
		ref.RuleRegistryAddress = *c.RuleRegistryAddress
	}
	return ref
}

// eventCommunity resolves the community owning the emitting contract
func (r *reconciler) eventCommunity(ctx context.Context, event domain.Event) (*schema.Community, error) {
	community, err := r.store.FindCommunityByContract(ctx, event.Contract())
	if err != nil {
		return nil, err
	}
	if community == nil {
		logger.WarnCtx(ctx, "Event of an unknown community contract",
			zap.String("eventType", string(event.Type)), zap.String("contract", event.Contract()))
	}
	return community, nil
}

// communityToken is the token a community event refers to. Events of the main registry
// communities carry no registry argument.
func (r *reconciler) communityToken(event domain.Event) domain.TokenKey {
	registry := event.Address("registry")
	if registry == "" {
		registry = r.config.SpaceGeoData
	}
	return domain.NewTokenKey(event.String("tokenId", "spaceTokenId"), registry)
}

// stamp drops the provenance columns of refreshes that are not tied to a block
func stamp(block uint64) *patch.Patch {
	if block == 0 {
		return patch.New()
	}
	return blockPatch(block)
}

func (r *reconciler) handleNewCommunity(ctx context.Context, event domain.Event) ([]Effect, error) {
	factory := event.Contract()
	fundID := event.String("fundId", "id")
	address, err := r.chain.CommunityAddress(ctx, factory, fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve community of fund %s: %w", fundID, err)
	}
	if address == "" || domain.IsZeroAddress(address) {
		logger.WarnCtx(ctx, "Fund without community", zap.String("factory", factory), zap.String("fund", fundID))
		return nil, nil
	}
	return []Effect{r.refreshCommunity(address, factory == r.config.PprFundFactory, event.BlockNumber)}, nil
}

func (r *reconciler) handleCommunityTokenMint(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	token := r.communityToken(event)

	minted, err := r.chain.ReputationMinted(ctx, communityRef(community), token)
	if err != nil {
		return nil, fmt.Errorf("failed to read minted reputation of %s: %w", token, err)
	}
	if minted {
		err = r.store.AddCommunityTokens(ctx, community.Address, []domain.TokenKey{token})
	} else {
		err = r.store.RemoveCommunityTokens(ctx, community.Address, []domain.TokenKey{token})
	}
	if err != nil {
		return nil, err
	}

	owners, err := r.store.GetTokenOwners(ctx, token)
	if err != nil {
		return nil, err
	}
	effects := []Effect{r.refreshTokenCommunities(token)}
	for _, owner := range owners {
		effects = append(effects, r.refreshCommunityMember(community.Address, owner, event.BlockNumber))
	}
	return append(effects, r.refreshCommunity(community.Address, community.IsPpr, event.BlockNumber)), nil
}

func (r *reconciler) handleCommunityTokenApproved(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	token := r.communityToken(event)

	approved, err := r.chain.TokenApproved(ctx, communityRef(community), token)
	if err != nil {
		return nil, fmt.Errorf("failed to read approval of %s: %w", token, err)
	}
	if approved {
		err = r.store.AddApprovedTokens(ctx, community.Address, []domain.TokenKey{token})
	} else {
		err = r.store.RemoveApprovedTokens(ctx, community.Address, []domain.TokenKey{token})
	}
	if err != nil {
		return nil, err
	}

	owners, err := r.store.GetTokenOwners(ctx, token)
	if err != nil {
		return nil, err
	}
	var effects []Effect
	for _, owner := range owners {
		effects = append(effects, r.refreshCommunityMember(community.Address, owner, event.BlockNumber))
	}
	return effects, nil
}

func (r *reconciler) handleReputationTransfer(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}

	var effects []Effect
	for _, name := range []string{"from", "to", "owner"} {
		address := event.Address(name)
		if address == "" || domain.IsZeroAddress(address) {
			continue
		}
		effects = append(effects, r.refreshCommunityMember(community.Address, address, event.BlockNumber))
	}
	return append(effects, r.refreshCommunity(community.Address, community.IsPpr, event.BlockNumber)), nil
}

func (r *reconciler) handleAddVoting(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	marker := event.String("marker", "key")
	if marker == "" {
		return nil, nil
	}
	return []Effect{r.refreshVoting(community.Address, marker, event.BlockNumber)}, nil
}

func (r *reconciler) handleRemoveVoting(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	return nil, r.store.DeleteCommunityVoting(ctx, community.Address, event.String("marker", "key"))
}

func (r *reconciler) handleCommunityProposal(ctx context.Context, event domain.Event) ([]Effect, error) {
	pm := event.Contract()
	proposalID := event.String("proposalId", "id")
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}

	existing, err := r.store.GetCommunityProposal(ctx, pm, proposalID)
	if err != nil {
		return nil, err
	}
	marker := event.String("marker")
	if marker == "" && existing != nil && existing.Marker != nil {
		marker = *existing.Marker
	}
	if marker == "" {
		// votes may be logged before the proposal creation is handled
		logger.WarnCtx(ctx, "Proposal update before the proposal is known",
			zap.String("pm", pm), zap.String("proposal", proposalID))
		return nil, nil
	}

	ref := communityRef(community)
	proposal, err := r.chain.Proposal(ctx, ref, pm, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal %s of %s: %w", proposalID, pm, err)
	}
	if proposal == nil {
		return nil, nil
	}

	voting, err := r.store.GetCommunityVoting(ctx, community.Address, marker)
	if err != nil {
		return nil, err
	}

	doc := r.resolveContent(ctx, proposal.DataLink)
	uniqID := docText(doc["uniqId"])
	if uniqID == "" {
		uniqID = pm + "-" + proposalID
	}
	description := proposal.Description
	if description == "" {
		description = r.describe(ctx, proposal.DataLink, doc)
	}

	p := blockPatch(event.BlockNumber).
		Set("community_address", community.Address).
		Set("community_id", community.ID).
		Set("marker", marker).
		Set("status", optString(proposal.Status)).
		Set("creator_address", optString(domain.NormalizeAddress(proposal.Creator))).
		Set("destination", optString(domain.NormalizeAddress(proposal.Destination))).
		Set("accepted_share", proposal.AcceptedShare).
		Set("accepted_count", proposal.AcceptedCount).
		Set("declined_share", proposal.DeclinedShare).
		Set("declined_count", proposal.DeclinedCount).
		Set("abstained_share", proposal.AbstainedShare).
		Set("abstained_count", proposal.AbstainedCount).
		Set("total_accepted", proposal.TotalAccepted).
		Set("total_declined", proposal.TotalDeclined).
		Set("total_abstained", proposal.TotalAbstained).
		Set("required_support", proposal.RequiredSupport).
		Set("min_accept_quorum", proposal.MinAcceptQuorum).
		Set("current_support", proposal.CurrentSupport).
		Set("current_quorum", proposal.CurrentQuorum).
		Set("accepted_enough_to_execute",
			proposal.CurrentQuorum >= proposal.MinAcceptQuorum && proposal.CurrentSupport >= proposal.RequiredSupport).
		Set("timeout_at", proposal.TimeoutAt).
		Set("uniq_id", uniqID).
		Set("data", optString(proposal.Data)).
		Set("data_link", optString(proposal.DataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("description", optString(description))
	if voting != nil {
		p.Set("voting_id", voting.ID).Set("marker_name", voting.Name)
	} else {
		p.Set("marker_name", "unknown")
	}
	if !proposal.CreatedAt.IsZero() {
		p.Set("created_at", proposal.CreatedAt)
	}
	if isSet(proposal.MeetingID) {
		p.Set("meeting_id", proposal.MeetingID)
	}
	if event.Type == domain.EventCommunityAddProposal {
		p.Set("propose_tx_id", event.TxHash)
	}

	executed := proposal.Status == chain.ProposalExecuted
	newlyExecuted := executed && (existing == nil || existing.ExecuteTxID == nil)
	if newlyExecuted {
		p.Set("execute_tx_id", event.TxHash).
			Set("closed_at_block", event.BlockNumber).
			Set("closed_at", r.blockTime(ctx, event.BlockNumber))
	}

	if err := r.store.UpsertCommunityProposal(ctx, pm, proposalID, p); err != nil {
		return nil, err
	}

	effects, err := r.applyRuleAction(ctx, community, existing, proposal, pm, proposalID, uniqID, newlyExecuted, event)
	if err != nil {
		return nil, err
	}
	return append(effects, r.refreshVoting(community.Address, marker, event.BlockNumber)), nil
}

// applyRuleAction mirrors proposals that add or disable rules into the rule set. An add-rule
// proposal under vote is shown as an abstract rule until its execution adds the real one.
func (r *reconciler) applyRuleAction(
	ctx context.Context,
	community *schema.Community,
	existing *schema.CommunityProposal,
	proposal *chain.Proposal,
	pm, proposalID, uniqID string,
	newlyExecuted bool,
	event domain.Event,
) ([]Effect, error) {
	abstractID := pm + "-" + proposalID
	link := &proposalLink{PmAddress: pm, ProposalID: proposalID}

	switch proposal.Action {
	case chain.ActionAddRule:
		switch {
		case newlyExecuted:
			ruleID, err := r.chain.AddedRuleID(ctx, communityRef(community), event.TxHash)
			if err != nil {
				return nil, fmt.Errorf("failed to read rule added by %s: %w", event.TxHash, err)
			}
			if ruleID == "" {
				return nil, nil
			}
			if err := r.store.DeleteCommunityRule(ctx, community.Address, abstractID); err != nil {
				return nil, err
			}
			return []Effect{r.refreshRule(community.Address, ruleID, uniqID, link, event.BlockNumber)}, nil

		case proposal.Status == chain.ProposalActive && (existing == nil || existing.RuleDbID == nil):
			return r.saveAbstractRule(ctx, community, proposal, abstractID, pm, proposalID, uniqID, event.BlockNumber)
		}

	case chain.ActionDisableRule:
		if isSet(proposal.RuleID) {
			return []Effect{r.refreshRule(community.Address, proposal.RuleID, "", link, event.BlockNumber)}, nil
		}
	}
	return nil, nil
}

func (r *reconciler) saveAbstractRule(
	ctx context.Context,
	community *schema.Community,
	proposal *chain.Proposal,
	ruleID, pm, proposalID, uniqID string,
	block uint64,
) ([]Effect, error) {
	doc := r.resolveContent(ctx, proposal.RuleDataLink)
	p := blockPatch(block).
		Set("community_id", community.ID).
		Set("is_active", false).
		Set("is_abstract", true).
		Set("type_id", optString(proposal.RuleTypeID)).
		Set("manager", pm).
		Set("add_rule_proposal_uniq_id", uniqID).
		Set("ipfs_hash", optString(proposal.RuleIpfsHash)).
		Set("data_link", optString(proposal.RuleDataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("type", optString(docText(doc["type"]))).
		Set("description", optString(r.ruleDescription(ctx, proposal.RuleDataLink, doc)))
	if isSet(proposal.MeetingID) {
		p.Set("meeting_id", proposal.MeetingID)
	}
	rule, err := r.store.UpsertCommunityRule(ctx, community.Address, ruleID, p)
	if err != nil {
		return nil, err
	}

	link := patch.New().Set("rule_db_id", rule.ID)
	if isSet(proposal.MeetingID) {
		link.Set("meeting_id", proposal.MeetingID)
	}
	if err := r.store.UpsertCommunityProposal(ctx, pm, proposalID, link); err != nil {
		return nil, err
	}

	if isSet(proposal.MeetingID) {
		return []Effect{r.refreshMeeting(community.Address, proposal.MeetingID, block)}, nil
	}
	return nil, nil
}

// ruleDescription reads the text of a rule document. Texts stored under their own hash are
// fetched; a rule with a link but no readable text is described as not found.
func (r *reconciler) ruleDescription(ctx context.Context, link string, doc map[string]any) string {
	if link == "" {
		return ""
	}
	if doc == nil {
		if content.IsContentHash(link) {
			return "Not found"
		}
		return link
	}
	for _, field := range []string{"description", "text"} {
		if text := docText(doc[field]); text != "" {
			return r.describe(ctx, text, nil)
		}
	}
	return "Not found"
}

func (r *reconciler) handleRuleChanged(ctx context.Context, event domain.Event) ([]Effect, error) {
	community, err := r.eventCommunity(ctx, event)
	if err != nil || community == nil {
		return nil, err
	}
	ruleID := event.String("id", "ruleId")
	if ruleID == "" {
		return nil, nil
	}
	return []Effect{r.refreshRule(community.Address, ruleID, "", nil, event.BlockNumber)}, nil
}

// proposalLink names the proposal a rule refresh was caused by
type proposalLink struct {
	PmAddress  string
	ProposalID string
}

func (r *reconciler) refreshRule(community, ruleID, proposalUniqID string, link *proposalLink, block uint64) Effect {
	return &RefreshRule{r: r, Community: community, RuleID: ruleID, ProposalUniqID: proposalUniqID, Proposal: link, Block: block}
}

// RefreshRule re-reads a rule from the rule registry. The proposal that caused it, if any, is
// linked to the rule; proposals of an inactive rule are no longer actual.
type RefreshRule struct {
	r              *reconciler
	Community      string
	RuleID         string
	ProposalUniqID string
	Proposal       *proposalLink
	Block          uint64
}

func (e *RefreshRule) Key() string {
	return "rule:" + domain.NormalizeAddress(e.Community) + ":" + e.RuleID
}

func (e *RefreshRule) Apply(ctx context.Context) ([]Effect, error) {
	r := e.r
	community, err := r.store.GetCommunity(ctx, e.Community)
	if err != nil || community == nil {
		return nil, err
	}
	rule, err := r.chain.Rule(ctx, communityRef(community), e.RuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule %s: %w", e.RuleID, err)
	}
	if rule == nil {
		return nil, nil
	}

	doc := r.resolveContent(ctx, rule.DataLink)
	description := rule.Description
	if description == "" {
		description = r.ruleDescription(ctx, rule.DataLink, doc)
	}
	uniqID := rule.AddRuleProposalUniqID
	if e.ProposalUniqID != "" {
		uniqID = e.ProposalUniqID
	}

	p := stamp(e.Block).
		Set("community_id", community.ID).
		Set("is_active", rule.IsActive).
		Set("is_abstract", false).
		Set("type_id", optString(rule.TypeID)).
		Set("manager", optString(domain.NormalizeAddress(rule.Manager))).
		Set("ipfs_hash", optString(rule.IpfsHash)).
		Set("data_link", optString(rule.DataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("type", optString(docText(doc["type"]))).
		Set("description", optString(description))
	meetingID := ""
	if isSet(rule.MeetingID) {
		meetingID = rule.MeetingID
		p.Set("meeting_id", meetingID)
	} else {
		p.SetNull("meeting_id")
	}
	if uniqID != "" {
		p.Set("add_rule_proposal_uniq_id", uniqID)
		inside, err := r.insideMeetingID(ctx, community.Address, meetingID, uniqID)
		if err != nil {
			return nil, err
		}
		if inside != nil {
			p.Set("inside_meeting_id", *inside)
		}
	}

	stored, err := r.store.UpsertCommunityRule(ctx, community.Address, e.RuleID, p)
	if err != nil {
		return nil, err
	}

	if e.Proposal != nil {
		err := r.store.UpsertCommunityProposal(ctx, e.Proposal.PmAddress, e.Proposal.ProposalID,
			patch.New().Set("rule_db_id", stored.ID))
		if err != nil {
			return nil, err
		}
	}
	if !rule.IsActive {
		if err := r.store.MarkRuleProposalsNotActual(ctx, stored.ID); err != nil {
			return nil, err
		}
	}

	effects := []Effect{r.refreshCommunity(community.Address, community.IsPpr, e.Block)}
	if meetingID != "" {
		effects = append(effects, r.refreshMeeting(community.Address, meetingID, e.Block))
	}
	return effects, nil
}

func (r *reconciler) refreshVoting(community, marker string, block uint64) Effect {
	return &RefreshVoting{r: r, Community: community, Marker: marker, Block: block}
}

// RefreshVoting re-reads a proposal marker and its voting configuration
type RefreshVoting struct {
	r         *reconciler
	Community string
	Marker    string
	Block     uint64
}

func (e *RefreshVoting) Key() string {
	return "voting:" + domain.NormalizeAddress(e.Community) + ":" + e.Marker
}

func (e *RefreshVoting) Apply(ctx context.Context) ([]Effect, error) {
	r := e.r
	community, err := r.store.GetCommunity(ctx, e.Community)
	if err != nil || community == nil {
		return nil, err
	}
	voting, err := r.chain.Voting(ctx, communityRef(community), e.Marker)
	if err != nil {
		return nil, fmt.Errorf("failed to read voting %s: %w", e.Marker, err)
	}
	if voting == nil || voting.ProposalManager == "" || domain.IsZeroAddress(voting.ProposalManager) {
		return nil, nil
	}

	total, err := r.store.CountCommunityProposals(ctx, store.ProposalFilter{CommunityAddress: community.Address, Marker: e.Marker})
	if err != nil {
		return nil, err
	}

	pm := domain.NormalizeAddress(voting.ProposalManager)
	doc := r.resolveContent(ctx, voting.DataLink)
	description := voting.Description
	if description == "" {
		description = r.describe(ctx, voting.DataLink, doc)
	}
	p := stamp(e.Block).
		Set("community_id", community.ID).
		Set("proposal_manager", pm).
		Set("name", optString(voting.Name)).
		Set("destination", optString(domain.NormalizeAddress(voting.Destination))).
		Set("description", optString(description)).
		Set("data_link", optString(voting.DataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("support", voting.Support).
		Set("min_accept_quorum", voting.MinAcceptQuorum).
		Set("timeout", voting.Timeout).
		Set("total_proposals_count", int(total))
	if err := r.store.UpsertCommunityVoting(ctx, community.Address, e.Marker, p); err != nil {
		return nil, err
	}
	return nil, r.store.UpsertCommunity(ctx, community.Address, patch.New().Set("pm_address", pm))
}

func (r *reconciler) refreshCommunityMember(community, address string, block uint64) Effect {
	return &RefreshCommunityMember{r: r, Community: community, Address: domain.NormalizeAddress(address), Block: block}
}

// RefreshCommunityMember re-reads the reputation of an address. Members left without minted
// tokens are removed.
type RefreshCommunityMember struct {
	r         *reconciler
	Community string
	Address   string
	Block     uint64
}

func (e *RefreshCommunityMember) Key() string {
	return "member:" + domain.NormalizeAddress(e.Community) + ":" + e.Address
}

func (e *RefreshCommunityMember) Apply(ctx context.Context) ([]Effect, error) {
	r := e.r
	if e.Address == "" || e.Address == domain.SharedOwner {
		return nil, nil
	}
	community, err := r.store.GetCommunity(ctx, e.Community)
	if err != nil || community == nil {
		return nil, err
	}
	ref := communityRef(community)
	follow := []Effect{r.refreshCommunity(community.Address, community.IsPpr, e.Block)}

	held, err := r.store.GetCommunityMemberTokens(ctx, community.Address, e.Address)
	if err != nil {
		return nil, err
	}
	var tokens []schema.GeoToken
	for _, t := range held {
		minted, err := r.chain.ReputationMinted(ctx, ref, domain.NewTokenKey(t.TokenID, t.ContractAddress))
		if err != nil {
			return nil, fmt.Errorf("failed to read minted reputation of %s: %w", t.TokenID, err)
		}
		if minted {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return follow, r.store.DeleteCommunityMember(ctx, community.Address, e.Address)
	}

	member, err := r.chain.Member(ctx, ref, e.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to read member %s: %w", e.Address, err)
	}
	if member == nil {
		member = &chain.Member{}
	}

	var photos []any
	for _, p := range member.Photos {
		photos = append(photos, p)
	}
	if len(photos) == 0 {
		for _, t := range tokens {
			if t.PhotosCount > 0 {
				photos = asList(unmarshalColumn(t.DataJSON)["photos"])
				break
			}
		}
	}

	summaries := make([]map[string]any, 0, len(tokens))
	expelled := map[string]bool{}
	for _, t := range tokens {
		summaries = append(summaries, map[string]any{
			"tokenId":         t.TokenID,
			"contractAddress": t.ContractAddress,
			"tokenType":       t.TokenType,
			"humanAddress":    t.HumanAddress,
			"type":            t.Type,
			"subtype":         t.Subtype,
			"area":            t.Area,
		})
		if member.Expelled[t.TokenID] {
			expelled[t.ContractAddress+"_"+t.TokenID] = true
		}
	}

	p := stamp(e.Block).
		Set("community_id", community.ID).
		Set("is_ppr", community.IsPpr).
		Set("current_reputation", member.CurrentReputation).
		Set("basic_reputation", member.BasicReputation).
		Set("tokens_count", len(tokens)).
		Set("full_name_hash", optString(member.FullNameHash)).
		Set("photos_json", jsonColumn(photos)).
		Set("tokens_json", jsonColumn(summaries)).
		Set("expelled_json", jsonColumn(expelled))
	return follow, r.store.UpsertCommunityMember(ctx, community.Address, e.Address, p)
}

func (r *reconciler) refreshCommunity(address string, isPpr bool, block uint64) Effect {
	return &RefreshCommunity{r: r, Address: domain.NormalizeAddress(address), IsPpr: isPpr, Block: block}
}

// RefreshCommunity re-reads a community and recounts its tokens and members
type RefreshCommunity struct {
	r       *reconciler
	Address string
	IsPpr   bool
	Block   uint64
}

func (e *RefreshCommunity) Key() string {
	return "community:" + e.Address
}

func (e *RefreshCommunity) Apply(ctx context.Context) ([]Effect, error) {
	r := e.r
	existing, err := r.store.GetCommunity(ctx, e.Address)
	if err != nil {
		return nil, err
	}
	ref := chain.CommunityRef{Address: e.Address, IsPpr: e.IsPpr}
	if existing != nil {
		ref = communityRef(existing)
	}

	info, err := r.chain.Community(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read community %s: %w", e.Address, err)
	}
	if info == nil {
		return nil, nil
	}

	tokens, err := r.store.CountCommunityTokens(ctx, e.Address)
	if err != nil {
		return nil, err
	}
	members, err := r.store.CountCommunityMembers(ctx, e.Address)
	if err != nil {
		return nil, err
	}

	doc := r.resolveContent(ctx, info.DataLink)
	name := info.Name
	if n := docText(doc["name"]); n != "" {
		name = n
	}
	description := info.Description
	if description == "" {
		description = r.describe(ctx, info.DataLink, doc)
	}

	p := stamp(e.Block).
		Set("is_ppr", ref.IsPpr).
		Set("storage_address", optString(domain.NormalizeAddress(info.StorageAddress))).
		Set("rule_registry_address", optString(domain.NormalizeAddress(info.RuleRegistryAddress))).
		Set("multisig_address", optString(domain.NormalizeAddress(info.MultisigAddress))).
		Set("is_private", info.IsPrivate).
		Set("tokens_count", int(tokens)).
		Set("active_fund_rules_count", info.ActiveFundRulesCount).
		Set("space_token_owners_count", int(members)).
		Set("reputation_total_supply", info.ReputationTotalSupply).
		Set("name", optString(name)).
		Set("description", optString(description)).
		Set("data_link", optString(info.DataLink)).
		Set("data_json", jsonColumn(doc)).
		Set("multisig_owners_json", jsonColumn(info.MultisigOwners))
	if info.PmAddress != "" {
		p.Set("pm_address", domain.NormalizeAddress(info.PmAddress))
	}
	if existing == nil {
		logger.InfoCtx(ctx, "Community created", zap.String("community", e.Address))
	}
	return nil, r.store.UpsertCommunity(ctx, e.Address, p)
}
