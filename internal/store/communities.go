package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func communityRowKey(address string) rowKey {
	return newRowKey(&schema.Community{}, "address", domain.NormalizeAddress(address))
}

func (s *gormStore) GetCommunity(ctx context.Context, address string) (*schema.Community, error) {
	var community schema.Community
	ok, err := first(s.db.WithContext(ctx), communityRowKey(address), &community)
	if err != nil || !ok {
		return nil, err
	}
	return &community, nil
}

// FindCommunityByContract resolves the community owning address, which may be the community
// itself, its storage, its rule registry, or one of its proposal managers
func (s *gormStore) FindCommunityByContract(ctx context.Context, address string) (*schema.Community, error) {
	address = domain.NormalizeAddress(address)
	db := s.db.WithContext(ctx)

	var communities []schema.Community
	err := db.Where("address = ? OR storage_address = ? OR rule_registry_address = ? OR pm_address = ?",
		address, address, address, address).
		Order("id ASC").Limit(1).
		Find(&communities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find community of %s: %w", address, err)
	}
	if len(communities) > 0 {
		return &communities[0], nil
	}

	var voting schema.CommunityVoting
	ok, err := first(db, newRowKey(&schema.CommunityVoting{}, "proposal_manager", address), &voting)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetCommunity(ctx, voting.CommunityAddress)
}

func (s *gormStore) UpsertCommunity(ctx context.Context, address string, p *patch.Patch) error {
	_, err := s.upsert(ctx, communityRowKey(address), p)
	return err
}

func (s *gormStore) FilterCommunities(ctx context.Context, filter CommunityFilter) ([]schema.Community, int64, error) {
	return search[schema.Community](s.db.WithContext(ctx), &schema.Community{}, filter.Query,
		filter.order(communitySortable, "id"), filter.predicates())
}

func requireCommunityID(tx *gorm.DB, address string) (uint64, error) {
	head, err := lookupRow(tx, communityRowKey(address))
	if err != nil {
		return 0, err
	}
	if head == nil {
		return 0, fmt.Errorf("community %s: %w", address, domain.ErrNotFound)
	}
	return head.ID, nil
}

// linkTokens adds tokens to a community token set. row builds one join row.
func (s *gormStore) linkTokens(ctx context.Context, community string, tokens []domain.TokenKey, row func(communityID, tokenID uint64) any) error {
	tokens = dedupTokenKeys(tokens)
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		communityID, err := requireCommunityID(tx, community)
		if err != nil {
			return err
		}
		ids, err := tokenIDs(tx, tokens)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			id, ok := ids[t]
			if !ok {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row(communityID, id)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *gormStore) unlinkTokens(ctx context.Context, community string, tokens []domain.TokenKey, model tabler) error {
	tokens = dedupTokenKeys(tokens)
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head, err := lookupRow(tx, communityRowKey(community))
		if err != nil || head == nil {
			return err
		}
		ids, err := tokenIDs(tx, tokens)
		if err != nil || len(ids) == 0 {
			return err
		}
		rowIDs := make([]uint64, 0, len(ids))
		for _, id := range ids {
			rowIDs = append(rowIDs, id)
		}
		return tx.Where("community_id = ? AND geo_token_id IN ?", head.ID, rowIDs).Delete(model).Error
	})
}

func (s *gormStore) AddCommunityTokens(ctx context.Context, community string, tokens []domain.TokenKey) error {
	err := s.linkTokens(ctx, community, tokens, func(communityID, tokenID uint64) any {
		return &schema.CommunityToken{CommunityID: communityID, GeoTokenID: tokenID}
	})
	if err != nil {
		return fmt.Errorf("failed to add tokens to community %s: %w", community, err)
	}
	return nil
}

func (s *gormStore) RemoveCommunityTokens(ctx context.Context, community string, tokens []domain.TokenKey) error {
	if err := s.unlinkTokens(ctx, community, tokens, &schema.CommunityToken{}); err != nil {
		return fmt.Errorf("failed to remove tokens from community %s: %w", community, err)
	}
	return nil
}

func (s *gormStore) CountCommunityTokens(ctx context.Context, community string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.CommunityToken{}).
		Joins("JOIN communities ON communities.id = community_tokens.community_id").
		Where("communities.address = ?", domain.NormalizeAddress(community)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens of community %s: %w", community, err)
	}
	return count, nil
}

func (s *gormStore) AddApprovedTokens(ctx context.Context, community string, tokens []domain.TokenKey) error {
	err := s.linkTokens(ctx, community, tokens, func(communityID, tokenID uint64) any {
		return &schema.CommunityApprovedToken{CommunityID: communityID, GeoTokenID: tokenID}
	})
	if err != nil {
		return fmt.Errorf("failed to add approved tokens to community %s: %w", community, err)
	}
	return nil
}

func (s *gormStore) RemoveApprovedTokens(ctx context.Context, community string, tokens []domain.TokenKey) error {
	if err := s.unlinkTokens(ctx, community, tokens, &schema.CommunityApprovedToken{}); err != nil {
		return fmt.Errorf("failed to remove approved tokens from community %s: %w", community, err)
	}
	return nil
}

func (s *gormStore) GetApprovedTokens(ctx context.Context, community string) ([]schema.GeoToken, error) {
	var tokens []schema.GeoToken
	err := s.db.WithContext(ctx).
		Joins("JOIN community_approved_tokens ON community_approved_tokens.geo_token_id = geo_tokens.id").
		Joins("JOIN communities ON communities.id = community_approved_tokens.community_id").
		Where("communities.address = ?", domain.NormalizeAddress(community)).
		Order("geo_tokens.id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get approved tokens of community %s: %w", community, err)
	}
	return tokens, nil
}

func memberRowKey(community, address string) rowKey {
	return newRowKey(&schema.CommunityMember{},
		"community_address", domain.NormalizeAddress(community),
		"address", domain.NormalizeAddress(address))
}

func (s *gormStore) GetCommunityMember(ctx context.Context, community, address string) (*schema.CommunityMember, error) {
	var member schema.CommunityMember
	ok, err := first(s.db.WithContext(ctx), memberRowKey(community, address), &member)
	if err != nil || !ok {
		return nil, err
	}
	return &member, nil
}

func (s *gormStore) UpsertCommunityMember(ctx context.Context, community, address string, p *patch.Patch) error {
	_, err := s.upsert(ctx, memberRowKey(community, address), p)
	return err
}

func (s *gormStore) DeleteCommunityMember(ctx context.Context, community, address string) error {
	k := memberRowKey(community, address)
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	_, err := deleteRow(s.db.WithContext(ctx), k)
	return err
}

func (s *gormStore) CountCommunityMembers(ctx context.Context, community string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.CommunityMember{}).
		Where("community_address = ?", domain.NormalizeAddress(community)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count members of community %s: %w", community, err)
	}
	return count, nil
}

// GetCommunityMemberTokens returns the community tokens held by address, directly or through a locker
func (s *gormStore) GetCommunityMemberTokens(ctx context.Context, community, address string) ([]schema.GeoToken, error) {
	address = domain.NormalizeAddress(address)

	var tokens []schema.GeoToken
	err := s.db.WithContext(ctx).
		Joins("JOIN community_tokens ON community_tokens.geo_token_id = geo_tokens.id").
		Joins("JOIN communities ON communities.id = community_tokens.community_id").
		Where("communities.address = ?", domain.NormalizeAddress(community)).
		Where("geo_tokens.owner = ? OR geo_tokens.id IN (SELECT geo_token_id FROM geo_token_owners WHERE address = ?)", address, address).
		Order("geo_tokens.id ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens of member %s in community %s: %w", address, community, err)
	}
	return tokens, nil
}

func votingRowKey(community, marker string) rowKey {
	return newRowKey(&schema.CommunityVoting{},
		"community_address", domain.NormalizeAddress(community),
		"marker", marker)
}

func (s *gormStore) GetCommunityVoting(ctx context.Context, community, marker string) (*schema.CommunityVoting, error) {
	var voting schema.CommunityVoting
	ok, err := first(s.db.WithContext(ctx), votingRowKey(community, marker), &voting)
	if err != nil || !ok {
		return nil, err
	}
	return &voting, nil
}

func (s *gormStore) UpsertCommunityVoting(ctx context.Context, community, marker string, p *patch.Patch) error {
	_, err := s.upsert(ctx, votingRowKey(community, marker), p)
	return err
}

func (s *gormStore) DeleteCommunityVoting(ctx context.Context, community, marker string) error {
	k := votingRowKey(community, marker)
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	_, err := deleteRow(s.db.WithContext(ctx), k)
	return err
}

func proposalRowKey(pmAddress, proposalID string) rowKey {
	return newRowKey(&schema.CommunityProposal{},
		"pm_address", domain.NormalizeAddress(pmAddress),
		"proposal_id", proposalID)
}

func (s *gormStore) GetCommunityProposal(ctx context.Context, pmAddress, proposalID string) (*schema.CommunityProposal, error) {
	var proposal schema.CommunityProposal
	ok, err := first(s.db.WithContext(ctx), proposalRowKey(pmAddress, proposalID), &proposal)
	if err != nil || !ok {
		return nil, err
	}
	return &proposal, nil
}

func (s *gormStore) UpsertCommunityProposal(ctx context.Context, pmAddress, proposalID string, p *patch.Patch) error {
	_, err := s.upsert(ctx, proposalRowKey(pmAddress, proposalID), p)
	return err
}

func (s *gormStore) proposalQuery(ctx context.Context, filter ProposalFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&schema.CommunityProposal{})
	if filter.CommunityAddress != "" {
		q = q.Where("community_address = ?", domain.NormalizeAddress(filter.CommunityAddress))
	}
	if filter.Marker != "" {
		q = q.Where("marker = ?", filter.Marker)
	}
	if filter.MeetingID != "" {
		q = q.Where("meeting_id = ?", filter.MeetingID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	return q
}

func (s *gormStore) CountCommunityProposals(ctx context.Context, filter ProposalFilter) (int64, error) {
	var count int64
	if err := s.proposalQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count community proposals: %w", err)
	}
	return count, nil
}

// FindCommunityProposals returns matching proposals, latest timeout first
func (s *gormStore) FindCommunityProposals(ctx context.Context, filter ProposalFilter) ([]schema.CommunityProposal, error) {
	q := s.proposalQuery(ctx, filter).Order("timeout_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var proposals []schema.CommunityProposal
	if err := q.Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to find community proposals: %w", err)
	}
	return proposals, nil
}

// MarkRuleProposalsNotActual clears is_actual on every proposal linked to the rule row
func (s *gormStore) MarkRuleProposalsNotActual(ctx context.Context, ruleDbID uint64) error {
	err := s.db.WithContext(ctx).Model(&schema.CommunityProposal{}).
		Where("rule_db_id = ?", ruleDbID).
		Update("is_actual", false).Error
	if err != nil {
		return fmt.Errorf("failed to mark proposals of rule %d not actual: %w", ruleDbID, err)
	}
	return nil
}

func ruleRowKey(community, ruleID string) rowKey {
	return newRowKey(&schema.CommunityRule{},
		"community_address", domain.NormalizeAddress(community),
		"rule_id", ruleID)
}

func (s *gormStore) GetCommunityRule(ctx context.Context, community, ruleID string) (*schema.CommunityRule, error) {
	var rule schema.CommunityRule
	ok, err := first(s.db.WithContext(ctx), ruleRowKey(community, ruleID), &rule)
	if err != nil || !ok {
		return nil, err
	}
	return &rule, nil
}

// UpsertCommunityRule merges p into the rule and returns the stored row
func (s *gormStore) UpsertCommunityRule(ctx context.Context, community, ruleID string, p *patch.Patch) (*schema.CommunityRule, error) {
	if _, err := s.upsert(ctx, ruleRowKey(community, ruleID), p); err != nil {
		return nil, err
	}
	return s.GetCommunityRule(ctx, community, ruleID)
}

func (s *gormStore) DeleteCommunityRule(ctx context.Context, community, ruleID string) error {
	k := ruleRowKey(community, ruleID)
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	_, err := deleteRow(s.db.WithContext(ctx), k)
	return err
}

// CountCommunityRules counts the rules of a community, or of one of its meetings when meetingID is set.
// Abstract rules are included.
func (s *gormStore) CountCommunityRules(ctx context.Context, community, meetingID string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.CommunityRule{}).
		Where("community_address = ?", domain.NormalizeAddress(community))
	if meetingID != "" {
		q = q.Where("meeting_id = ?", meetingID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rules of community %s: %w", community, err)
	}
	return count, nil
}

func meetingRowKey(community, meetingID string) rowKey {
	return newRowKey(&schema.CommunityMeeting{},
		"community_address", domain.NormalizeAddress(community),
		"meeting_id", meetingID)
}

func (s *gormStore) GetCommunityMeeting(ctx context.Context, community, meetingID string) (*schema.CommunityMeeting, error) {
	var meeting schema.CommunityMeeting
	ok, err := first(s.db.WithContext(ctx), meetingRowKey(community, meetingID), &meeting)
	if err != nil || !ok {
		return nil, err
	}
	return &meeting, nil
}

// UpsertCommunityMeeting merges p into the meeting and returns the stored row
func (s *gormStore) UpsertCommunityMeeting(ctx context.Context, community, meetingID string, p *patch.Patch) (*schema.CommunityMeeting, error) {
	if _, err := s.upsert(ctx, meetingRowKey(community, meetingID), p); err != nil {
		return nil, err
	}
	return s.GetCommunityMeeting(ctx, community, meetingID)
}
