package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
)

// ClientService handles client-related operations
type ClientService struct {
	clientRepo repository.ClientRepository
}

// NewClientService creates a new client service
func NewClientService(clientRepo repository.ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// CreateClientInput represents the create client input
type CreateClientInput struct {
	UserID  uuid.UUID
	Name    string
	Email   string
	Phone   *string
	Company *string
	Address *string
	Notes   *string
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// CreateClient creates a new client
func (s *ClientService) CreateClient(ctx context.Context, input *CreateClientInput) (*entity.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewBadRequestError("Client name is required")
	}
	if !validEmail(input.Email) {
		return nil, apperror.NewBadRequestError("Client email is invalid")
	}

	client := &entity.Client{
		UserID:  input.UserID,
		Name:    name,
		Email:   strings.TrimSpace(input.Email),
		Phone:   input.Phone,
		Company: input.Company,
		Address: input.Address,
		Notes:   input.Notes,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// GetClient retrieves a client owned by userID
func (s *ClientService) GetClient(ctx context.Context, userID, id uuid.UUID) (*entity.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, apperror.NewNotFoundError("Client")
	}
	return client, nil
}

// ListClients lists the user's clients
func (s *ClientService) ListClients(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Client], error) {
	clients, total, err := s.clientRepo.List(ctx, userID, params, search)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(clients, total, params), nil
}

// UpdateClientInput represents the update client input
type UpdateClientInput struct {
	UserID  uuid.UUID
	ID      uuid.UUID
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Address *string
	Notes   *string
}

// UpdateClient updates an existing client
func (s *ClientService) UpdateClient(ctx context.Context, input *UpdateClientInput) (*entity.Client, error) {
	client, err := s.GetClient(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.NewBadRequestError("Client name is required")
		}
		client.Name = name
	}
	if input.Email != nil {
		if !validEmail(*input.Email) {
			return nil, apperror.NewBadRequestError("Client email is invalid")
		}
		client.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		client.Phone = input.Phone
	}
	if input.Company != nil {
		client.Company = input.Company
	}
	if input.Address != nil {
		client.Address = input.Address
	}
	if input.Notes != nil {
		client.Notes = input.Notes
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// DeleteClient deletes a client that no quote or invoice references
func (s *ClientService) DeleteClient(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetClient(ctx, userID, id); err != nil {
		return err
	}

	refs, err := s.clientRepo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperror.NewConflictError("Client has quotes or invoices and cannot be deleted")
	}

	return s.clientRepo.Delete(ctx, userID, id)
}
