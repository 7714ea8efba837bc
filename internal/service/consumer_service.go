package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/google/uuid"
)

const consumerSearchLimit = 50

type ConsumerService interface {
	Create(ctx context.Context, req dto.ConsumerRequest) (*dto.ConsumerResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ConsumerResponse, error)
	Search(ctx context.Context, term string) ([]dto.ConsumerResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.ConsumerRequest) (*dto.ConsumerResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type consumerService struct {
	repo repository.ConsumerRepository
}

func NewConsumerService(repo repository.ConsumerRepository) ConsumerService {
	return &consumerService{repo: repo}
}

func (s *consumerService) Create(ctx context.Context, req dto.ConsumerRequest) (*dto.ConsumerResponse, error) {
	c := &model.Consumer{
		Name:  strings.TrimSpace(req.Name),
		CPF:   req.CPF,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Conflict("a consumer with this cpf already exists")
		}
		return nil, err
	}
	resp := consumerToResponse(c)
	return &resp, nil
}

func (s *consumerService) Get(ctx context.Context, id uuid.UUID) (*dto.ConsumerResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := consumerToResponse(c)
	return &resp, nil
}

func (s *consumerService) Search(ctx context.Context, term string) ([]dto.ConsumerResponse, error) {
	consumers, err := s.repo.Search(ctx, strings.TrimSpace(term), consumerSearchLimit)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ConsumerResponse, len(consumers))
	for i := range consumers {
		resp[i] = consumerToResponse(&consumers[i])
	}
	return resp, nil
}

func (s *consumerService) Update(ctx context.Context, id uuid.UUID, req dto.ConsumerRequest) (*dto.ConsumerResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.CPF = req.CPF
	c.Email = req.Email
	c.Phone = req.Phone
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Conflict("a consumer with this cpf already exists")
		}
		return nil, err
	}
	resp := consumerToResponse(c)
	return &resp, nil
}

func (s *consumerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apierror.NotFound("consumer not found")
		}
		return err
	}
	return nil
}

func (s *consumerService) find(ctx context.Context, id uuid.UUID) (*model.Consumer, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("consumer not found")
		}
		return nil, err
	}
	return c, nil
}

func consumerToResponse(c *model.Consumer) dto.ConsumerResponse {
	return dto.ConsumerResponse{
		ID:    c.ID.String(),
		Name:  c.Name,
		CPF:   c.CPF,
		Email: c.Email,
		Phone: c.Phone,
	}
}
