package services

import (
	"context"

	"github.com/guardpost/apiserver/types"
)

type ClientService = Resource[types.Client, types.ClientFilter]

func NewClientService(repo Repository[types.Client, types.ClientFilter], activity *ActivityService) *ClientService {
	return NewResource(repo, "client", func(c *types.Client) *string { return &c.ID }, checkClient, activity)
}

func checkClient(c types.Client) error {
	if c.ContractStart != nil && c.ContractEnd != nil && c.ContractEnd.Before(*c.ContractStart) {
		return types.NewValidationError("contract_end", "must not be before contract_start")
	}
	return nil
}

type PropertyService = Resource[types.Property, types.PropertyFilter]

func NewPropertyService(repo Repository[types.Property, types.PropertyFilter], activity *ActivityService) *PropertyService {
	return NewResource(repo, "property", func(p *types.Property) *string { return &p.ID }, nil, activity)
}

type CommunityResourceService = Resource[types.CommunityResource, types.ReferenceFilter]

func NewCommunityResourceService(repo Repository[types.CommunityResource, types.ReferenceFilter], activity *ActivityService) *CommunityResourceService {
	return NewResource(repo, "community_resource", func(r *types.CommunityResource) *string { return &r.ID }, nil, activity)
}

type LawService = Resource[types.LawReference, types.ReferenceFilter]

func NewLawService(repo Repository[types.LawReference, types.ReferenceFilter], activity *ActivityService) *LawService {
	return NewResource(repo, "law_reference", func(l *types.LawReference) *string { return &l.ID }, nil, activity)
}

// FinancialRepository adds aggregate totals to the CRUD contract.
type FinancialRepository interface {
	Repository[types.FinancialRecord, types.FinancialFilter]
	Totals(ctx context.Context, filter types.FinancialFilter) (types.FinancialTotals, error)
}

type FinancialService struct {
	*Resource[types.FinancialRecord, types.FinancialFilter]
	repo FinancialRepository
}

func NewFinancialService(repo FinancialRepository, activity *ActivityService) *FinancialService {
	return &FinancialService{
		Resource: NewResource[types.FinancialRecord, types.FinancialFilter](repo, "financial_record", func(f *types.FinancialRecord) *string { return &f.ID }, checkFinancial, activity),
		repo:     repo,
	}
}

func (s *FinancialService) Totals(ctx context.Context, filter types.FinancialFilter) (types.FinancialTotals, error) {
	return s.repo.Totals(ctx, filter)
}

func checkFinancial(f types.FinancialRecord) error {
	if f.Status == "paid" && f.PaidAt == nil {
		return types.NewValidationError("paid_at", "is required when status is paid")
	}
	return nil
}
