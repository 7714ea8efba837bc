package repository

import (
	"context"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CloseParams carries the fields written when a register transitions to closed.
type CloseParams struct {
	FinalBalance decimal.Decimal
	ClosedAt     time.Time
	ClosedByID   uuid.UUID
	ClosingNotes string
}

type RegisterRepository interface {
	Create(ctx context.Context, r *model.Register) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error)
	FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Register, error)
	FindLastClosedByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Register, error)
	ListOpen(ctx context.Context) ([]model.Register, error)
	ListClosedByOperator(ctx context.Context, operatorID uuid.UUID, page, limit int) ([]model.Register, int64, error)
	// Close flips an open register to closed. Returns ErrNotFound when the
	// register is missing or no longer open.
	Close(ctx context.Context, id uuid.UUID, p CloseParams) error
	// Settle closes an open register while holding its row lock, so no sale
	// can be attached between reading the totals and the close. settle derives
	// the close fields from the locked register and its sales. Returns
	// ErrNotFound when the register is missing or no longer open.
	Settle(ctx context.Context, id uuid.UUID, settle func(reg *model.Register) CloseParams) (*model.Register, error)
	// AddWithdrawal appends to the withdrawal ledger. Withdrawals are never updated.
	AddWithdrawal(ctx context.Context, w *model.CashWithdrawal) error
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) Create(ctx context.Context, reg *model.Register) error {
	return translate(r.db.WithContext(ctx).Omit("Sales", "CashWithdrawals", "Operator", "ClosedBy").Create(reg).Error)
}

func (r *registerRepo) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Sales", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("CashWithdrawals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	var reg model.Register
	if err := r.preloaded(ctx).Preload("Operator").Preload("ClosedBy").First(&reg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) FindOpenByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Register, error) {
	var reg model.Register
	err := r.preloaded(ctx).
		Where("operator_id = ? AND status = ?", operatorID, model.RegisterOpen).
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) FindLastClosedByOperator(ctx context.Context, operatorID uuid.UUID) (*model.Register, error) {
	var reg model.Register
	err := r.preloaded(ctx).
		Where("operator_id = ? AND status = ?", operatorID, model.RegisterClosed).
		Order("closed_at DESC").
		First(&reg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) ListOpen(ctx context.Context) ([]model.Register, error) {
	var regs []model.Register
	err := r.db.WithContext(ctx).
		Where("status = ?", model.RegisterOpen).
		Order("opened_at ASC").
		Find(&regs).Error
	return regs, err
}

func (r *registerRepo) ListClosedByOperator(ctx context.Context, operatorID uuid.UUID, page, limit int) ([]model.Register, int64, error) {
	var regs []model.Register
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Register{}).
		Where("operator_id = ? AND status = ?", operatorID, model.RegisterClosed)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Sales").Preload("CashWithdrawals").
		Order("closed_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&regs).Error
	return regs, total, err
}

func (r *registerRepo) Close(ctx context.Context, id uuid.UUID, p CloseParams) error {
	// Conditional update: a concurrent close of the same register affects zero rows.
	res := r.db.WithContext(ctx).Model(&model.Register{}).
		Where("id = ? AND status = ?", id, model.RegisterOpen).
		Updates(closeColumns(p))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registerRepo) Settle(ctx context.Context, id uuid.UUID, settle func(reg *model.Register) CloseParams) (*model.Register, error) {
	var out model.Register
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SELECT ... FOR UPDATE: sale inserts take the same lock first.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.RegisterOpen).
			Take(&out).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("register_id = ?", id).Order("created_at ASC").Find(&out.Sales).Error; err != nil {
			return err
		}
		if err := tx.Where("register_id = ?", id).Order("created_at ASC").Find(&out.CashWithdrawals).Error; err != nil {
			return err
		}
		var operator model.User
		if err := tx.Take(&operator, "id = ?", out.OperatorID).Error; err == nil {
			out.Operator = &operator
		}

		p := settle(&out)
		if err := tx.Model(&model.Register{}).Where("id = ?", id).Updates(closeColumns(p)).Error; err != nil {
			return err
		}
		final, closedAt, closedBy := p.FinalBalance, p.ClosedAt, p.ClosedByID
		out.FinalBalance = &final
		out.Status = model.RegisterClosed
		out.ClosedAt = &closedAt
		out.ClosedByID = &closedBy
		out.ClosingNotes = p.ClosingNotes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func closeColumns(p CloseParams) map[string]interface{} {
	return map[string]interface{}{
		"final_balance": p.FinalBalance,
		"status":        model.RegisterClosed,
		"closed_at":     p.ClosedAt,
		"closed_by_id":  p.ClosedByID,
		"closing_notes": p.ClosingNotes,
	}
}

func (r *registerRepo) AddWithdrawal(ctx context.Context, w *model.CashWithdrawal) error {
	return r.db.WithContext(ctx).Create(w).Error
}
