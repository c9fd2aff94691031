package services

import (
	"context"
	"strings"
	"time"
)

type CompanyStore interface {
	InsertCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
}

type CompanyService struct {
	store CompanyStore
	now   func() time.Time
	idGen func() string
}

func NewCompanyService(store CompanyStore) *CompanyService {
	return &CompanyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(10) },
	}
}

func (s *CompanyService) Create(ctx context.Context, in Company) (*Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewInvalidError("name required")
	}
	c := &Company{
		ID:            s.idGen(),
		Name:          name,
		Industry:      strings.TrimSpace(in.Industry),
		Size:          strings.TrimSpace(in.Size),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertCompany(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) Get(ctx context.Context, id string) (*Company, error) {
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("company not found")
	}
	return c, nil
}

// List returns companies newest first, each with its assessment count.
func (s *CompanyService) List(ctx context.Context) ([]*Company, error) {
	return s.store.ListCompanies(ctx)
}
