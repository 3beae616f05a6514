// Package contacts resolves buyer identities per tenant. Checkout never
// creates duplicate contacts: the email is the identity within a tenant.
package contacts

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lumastore/storefront-backend/pkg/db"
	"github.com/lumastore/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
)

// Repository exposes contact persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, tenantID, email string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
}

// ResolveInput carries the buyer fields captured by the checkout wizard.
type ResolveInput struct {
	TenantID  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Source    string
}

// Service resolves or creates contacts.
type Service interface {
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, input ResolveInput) (*models.Contact, error)
}

type service struct {
	repo Repository
}

// NewService validates dependencies and builds the contact service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository is required")
	}
	return &service{repo: repo}, nil
}

// ResolveOrCreate finds the tenant's contact for the email, creating it on
// first sight. Email matching is case-insensitive; a concurrent insert of
// the same email resolves to the winning row instead of failing checkout.
func (s *service) ResolveOrCreate(ctx context.Context, tx *gorm.DB, input ResolveInput) (*models.Contact, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}
	if strings.TrimSpace(input.TenantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByEmail(ctx, input.TenantID, email)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up contact")
	}

	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "checkout"
	}

	contact := &models.Contact{
		TenantID:  input.TenantID,
		Email:     email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
		Source:    source,
	}

	created, err := repo.Create(ctx, contact)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_contacts_tenant_email") {
			return repo.FindByEmail(ctx, input.TenantID, email)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating contact")
	}
	return created, nil
}
