package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	Create(ctx context.Context, operatorID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req dto.CancelSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	ListCurrent(ctx context.Context, operatorID uuid.UUID) ([]dto.SaleResponse, error)
}

type saleService struct {
	repo      repository.SaleRepository
	registers RegisterService
	products  repository.ProductRepository
	consumers repository.ConsumerRepository
	now       func() time.Time
}

func NewSaleService(
	repo repository.SaleRepository,
	registers RegisterService,
	products repository.ProductRepository,
	consumers repository.ConsumerRepository,
) SaleService {
	return &saleService{
		repo:      repo,
		registers: registers,
		products:  products,
		consumers: consumers,
		now:       time.Now,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Create ────────────────────────────────────────────────────────────────────
//   1. Resolve the operator's open register
//   2. Resolve products and compute the total from catalog prices
//   3. BEGIN TX: lock the register row, create sale + items, decrement stock
//   4. COMMIT
// A register closed between steps 1 and 3 rejects the sale with a Conflict.

func (s *saleService) Create(ctx context.Context, operatorID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	method := model.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, apierror.Validation("unknown payment method %q", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return nil, apierror.Validation("a sale needs at least one item")
	}

	reg, err := s.registers.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	var consumerID *uuid.UUID
	if req.ConsumerID != nil {
		cid, err := uuid.Parse(*req.ConsumerID)
		if err != nil {
			return nil, apierror.Validation("invalid consumerId")
		}
		if _, err := s.consumers.FindByID(ctx, cid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apierror.NotFound("consumer %s not found", cid)
			}
			return nil, err
		}
		consumerID = &cid
	}

	sale := model.Sale{
		RegisterID:    reg.ID,
		OperatorID:    operatorID,
		ConsumerID:    consumerID,
		PaymentMethod: method,
		Status:        model.SaleCompleted,
		CreatedAt:     s.now(),
	}
	total := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, apierror.Validation("quantity must be at least 1")
		}
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, apierror.Validation("invalid productId %q", item.ProductID)
		}
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apierror.NotFound("product %s not found", pid)
			}
			return nil, err
		}
		if !p.Active {
			return nil, apierror.Validation("product %s is inactive and cannot be sold", p.Name)
		}
		subtotal := p.SalePrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID: pid,
			Quantity:  item.Quantity,
			UnitPrice: p.SalePrice,
			Subtotal:  subtotal,
			Product:   p,
		})
	}
	sale.Total = total

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &sale); err != nil {
			if errors.Is(err, repository.ErrRegisterClosed) {
				return apierror.Conflict("register was closed before the sale was recorded")
			}
			return err
		}
		for _, item := range sale.Items {
			if err := s.products.AdjustStockTx(ctx, tx, item.ProductID, -item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return apierror.Conflict("insufficient stock for product %s", item.Product.Name)
				}
				return fmt.Errorf("decrement stock of %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := saleToResponse(&sale)
	return &resp, nil
}

// ── Cancel ────────────────────────────────────────────────────────────────────
// Only sales of a still-open register can be cancelled; a closed register's
// figures are final.

func (s *saleService) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelSaleRequest) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("sale not found")
		}
		return nil, err
	}
	if !sale.IsCompleted() {
		return nil, apierror.Conflict("sale is already cancelled")
	}

	reg, err := s.registers.Get(ctx, sale.RegisterID)
	if err != nil {
		return nil, err
	}
	if !reg.IsOpen() {
		return nil, apierror.Conflict("sale belongs to a closed register")
	}

	at := s.now()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.MarkCancelled(ctx, tx, sale.ID, req.Reason, at); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apierror.Conflict("sale is already cancelled")
			}
			return err
		}
		for _, item := range sale.Items {
			if err := s.products.AdjustStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock of %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	reason := req.Reason
	sale.Status = model.SaleCancelled
	sale.CancelReason = &reason
	sale.CancelledAt = &at
	resp := saleToResponse(sale)
	return &resp, nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("sale not found")
		}
		return nil, err
	}
	resp := saleToResponse(sale)
	return &resp, nil
}

func (s *saleService) ListCurrent(ctx context.Context, operatorID uuid.UUID) ([]dto.SaleResponse, error) {
	reg, err := s.registers.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListByRegister(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		resp[i] = saleToResponse(&sales[i])
	}
	return resp, nil
}

func saleToResponse(s *model.Sale) dto.SaleResponse {
	resp := dto.SaleResponse{
		ID:            s.ID.String(),
		RegisterID:    s.RegisterID.String(),
		OperatorID:    s.OperatorID.String(),
		Total:         s.Total,
		PaymentMethod: string(s.PaymentMethod),
		Status:        string(s.Status),
		CancelReason:  s.CancelReason,
		CreatedAt:     formatTime(s.CreatedAt),
		Items:         make([]dto.SaleItemResponse, len(s.Items)),
	}
	if s.ConsumerID != nil {
		cid := s.ConsumerID.String()
		resp.ConsumerID = &cid
	}
	for i, item := range s.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		resp.Items[i] = dto.SaleItemResponse{
			ProductID: item.ProductID.String(),
			Product:   name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
	}
	return resp
}
