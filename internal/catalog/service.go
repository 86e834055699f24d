package catalog

import "context"

// Service exposes catalog reads and admin writes.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Products(ctx context.Context, category string) ([]Product, error) {
	return s.repo.ListProducts(ctx, category)
}

func (s *Service) Product(ctx context.Context, id int64) (Product, error) {
	return s.repo.FindProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if !p.IsActive {
		p.IsActive = true
	}
	return s.repo.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *Product) error {
	return s.repo.UpdateProduct(ctx, p)
}

func (s *Service) Offerings(ctx context.Context) ([]Offering, error) {
	return s.repo.ListOfferings(ctx)
}

func (s *Service) Offering(ctx context.Context, id int64) (Offering, error) {
	return s.repo.FindOffering(ctx, id)
}

func (s *Service) CreateOffering(ctx context.Context, o *Offering) error {
	if !o.IsActive {
		o.IsActive = true
	}
	return s.repo.CreateOffering(ctx, o)
}
