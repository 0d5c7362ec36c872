package store

import (
	"context"
	"fmt"

	"github.com/galtspace/geo-explorer/internal/domain"
	"github.com/galtspace/geo-explorer/internal/patch"
	"github.com/galtspace/geo-explorer/internal/store/schema"
)

func registryRowKey(address string) rowKey {
	return newRowKey(&schema.PrivatePropertyRegistry{}, "address", domain.NormalizeAddress(address))
}

func (s *gormStore) GetRegistry(ctx context.Context, address string) (*schema.PrivatePropertyRegistry, error) {
	var reg schema.PrivatePropertyRegistry
	ok, err := first(s.db.WithContext(ctx), registryRowKey(address), &reg)
	if err != nil || !ok {
		return nil, err
	}
	return &reg, nil
}

// FindRegistryByController returns the registry managed by a controller contract
func (s *gormStore) FindRegistryByController(ctx context.Context, controller string) (*schema.PrivatePropertyRegistry, error) {
	var reg schema.PrivatePropertyRegistry
	ok, err := first(s.db.WithContext(ctx),
		newRowKey(&schema.PrivatePropertyRegistry{}, "controller", domain.NormalizeAddress(controller)), &reg)
	if err != nil || !ok {
		return nil, err
	}
	return &reg, nil
}

func (s *gormStore) UpsertRegistry(ctx context.Context, address string, p *patch.Patch) error {
	_, err := s.upsert(ctx, registryRowKey(address), p)
	return err
}

func (s *gormStore) DeleteRegistry(ctx context.Context, address string) error {
	k := registryRowKey(address)
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	_, err := deleteRow(s.db.WithContext(ctx), k)
	return err
}

func pprMemberRowKey(registry, address string) rowKey {
	return newRowKey(&schema.PprMember{},
		"registry_address", domain.NormalizeAddress(registry),
		"address", domain.NormalizeAddress(address))
}

func (s *gormStore) UpsertPprMember(ctx context.Context, registry, address string, p *patch.Patch) error {
	_, err := s.upsert(ctx, pprMemberRowKey(registry, address), p)
	return err
}

func (s *gormStore) DeletePprMember(ctx context.Context, registry, address string) error {
	k := pprMemberRowKey(registry, address)
	unlock := s.locks.Lock(k.lockKey())
	defer unlock()

	_, err := deleteRow(s.db.WithContext(ctx), k)
	return err
}

func (s *gormStore) ListPprMembers(ctx context.Context, registry string) ([]schema.PprMember, error) {
	var members []schema.PprMember
	err := s.db.WithContext(ctx).
		Where("registry_address = ?", domain.NormalizeAddress(registry)).
		Order("address ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members of registry %s: %w", registry, err)
	}
	return members, nil
}

func pprProposalRowKey(key PprProposalKey) rowKey {
	return newRowKey(&schema.PprProposal{},
		"registry_address", domain.NormalizeAddress(key.RegistryAddress),
		"contract_address", domain.NormalizeAddress(key.ContractAddress),
		"proposal_id", key.ProposalID)
}

func (s *gormStore) UpsertPprProposal(ctx context.Context, key PprProposalKey, p *patch.Patch) error {
	_, err := s.upsert(ctx, pprProposalRowKey(key), p)
	return err
}

func (s *gormStore) GetPprProposal(ctx context.Context, key PprProposalKey) (*schema.PprProposal, error) {
	var proposal schema.PprProposal
	ok, err := first(s.db.WithContext(ctx), pprProposalRowKey(key), &proposal)
	if err != nil || !ok {
		return nil, err
	}
	return &proposal, nil
}

// CountPprProposals counts the registry proposals of a token matching filter
func (s *gormStore) CountPprProposals(ctx context.Context, filter PprProposalFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&schema.PprProposal{}).
		Where("registry_address = ?", domain.NormalizeAddress(filter.RegistryAddress))
	if filter.TokenID != "" {
		q = q.Where("token_id = ?", filter.TokenID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.IsBurnProposal != nil {
		q = q.Where("is_burn_proposal = ?", *filter.IsBurnProposal)
	}
	if filter.ApprovedByTokenOwner != nil {
		q = q.Where("is_approved_by_token_owner = ?", *filter.ApprovedByTokenOwner)
	}
	if filter.ApprovedByRegistryOwner != nil {
		q = q.Where("is_approved_by_registry_owner = ?", *filter.ApprovedByRegistryOwner)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count registry proposals: %w", err)
	}
	return count, nil
}

func (s *gormStore) UpsertLegalAgreement(ctx context.Context, registry, ipfsHash string, p *patch.Patch) error {
	k := newRowKey(&schema.PprLegalAgreement{},
		"registry_address", domain.NormalizeAddress(registry),
		"ipfs_hash", ipfsHash)
	_, err := s.upsert(ctx, k, p)
	return err
}

func (s *gormStore) ListLegalAgreements(ctx context.Context, registry string) ([]schema.PprLegalAgreement, error) {
	var agreements []schema.PprLegalAgreement
	err := s.db.WithContext(ctx).
		Where("registry_address = ?", domain.NormalizeAddress(registry)).
		Order("set_at ASC").Order("id ASC").
		Find(&agreements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list legal agreements of registry %s: %w", registry, err)
	}
	return agreements, nil
}
