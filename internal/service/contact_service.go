package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/yourorg/bizledger/internal/domain"
)

// ContactService handles customer/vendor CRUD.
type ContactService struct {
	contacts domain.ContactRepository
	logger   *slog.Logger
}

// NewContactService creates a new contact service
func NewContactService(contacts domain.ContactRepository, logger *slog.Logger) *ContactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{contacts: contacts, logger: logger}
}

// ContactInput carries create/update fields. On update, empty strings leave
// the existing value untouched.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Type    string
}

func validateContactField(field, value string) *domain.ValidationError {
	switch field {
	case "name":
		if len(strings.TrimSpace(value)) < 2 {
			return domain.NewValidationError("name", "Name must be at least 2 characters long")
		}
	case "email":
		if _, err := mail.ParseAddress(value); err != nil {
			return domain.NewValidationError("email", "Valid email is required")
		}
	case "phone":
		if len(strings.TrimSpace(value)) < 5 {
			return domain.NewValidationError("phone", "Phone number must be at least 5 characters long")
		}
	case "address":
		if len(strings.TrimSpace(value)) < 3 {
			return domain.NewValidationError("address", "Address, if provided, must be at least 3 characters long")
		}
	case "type":
		if !domain.ContactType(value).Valid() {
			return domain.NewValidationError("type", `Type must be either "customer" or "vendor"`)
		}
	}
	return nil
}

// Create validates and stores a new contact.
func (s *ContactService) Create(ctx context.Context, scope domain.BusinessScope, in ContactInput) (*domain.Contact, error) {
	required := map[string]string{
		"name":  in.Name,
		"email": in.Email,
		"phone": in.Phone,
		"type":  in.Type,
	}
	for field, value := range required {
		if err := validateContactField(field, value); err != nil {
			return nil, err
		}
	}
	if in.Address != "" {
		if err := validateContactField("address", in.Address); err != nil {
			return nil, err
		}
	}

	contact := &domain.Contact{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Type:    domain.ContactType(in.Type),
	}
	if err := s.contacts.Create(ctx, scope, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact created",
		slog.String("contact_id", contact.ID),
		slog.String("business_id", scope.BusinessID()),
		slog.String("type", string(contact.Type)),
	)
	return contact, nil
}

// Get returns one contact in scope.
func (s *ContactService) Get(ctx context.Context, scope domain.BusinessScope, id string) (*domain.Contact, error) {
	return s.contacts.GetByID(ctx, scope, id)
}

// List returns all contacts in scope.
func (s *ContactService) List(ctx context.Context, scope domain.BusinessScope) ([]*domain.Contact, error) {
	return s.contacts.List(ctx, scope)
}

// Update applies the provided fields to an existing contact.
func (s *ContactService) Update(ctx context.Context, scope domain.BusinessScope, id string, in ContactInput) (*domain.Contact, error) {
	provided := map[string]string{
		"name":    in.Name,
		"email":   in.Email,
		"phone":   in.Phone,
		"address": in.Address,
		"type":    in.Type,
	}
	for field, value := range provided {
		if value == "" {
			continue
		}
		if err := validateContactField(field, value); err != nil {
			return nil, err
		}
	}

	contact, err := s.contacts.GetByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		contact.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" {
		contact.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Phone != "" {
		contact.Phone = strings.TrimSpace(in.Phone)
	}
	if in.Address != "" {
		contact.Address = strings.TrimSpace(in.Address)
	}
	if in.Type != "" {
		contact.Type = domain.ContactType(in.Type)
	}

	if err := s.contacts.Update(ctx, scope, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Delete removes a contact in scope.
func (s *ContactService) Delete(ctx context.Context, scope domain.BusinessScope, id string) error {
	if err := s.contacts.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.logger.Info("contact deleted",
		slog.String("contact_id", id),
		slog.String("business_id", scope.BusinessID()),
	)
	return nil
}
