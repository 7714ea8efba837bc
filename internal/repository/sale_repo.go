package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	// Create locks the sale's register row and inserts the sale only while the
	// register is open. Returns ErrRegisterClosed otherwise.
	Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListByRegister(ctx context.Context, registerID uuid.UUID) ([]model.Sale, error)
	// MarkCancelled flips a completed sale to cancelled. Returns ErrNotFound
	// when the sale is missing or already cancelled.
	MarkCancelled(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *saleRepo) Create(ctx context.Context, tx *gorm.DB, s *model.Sale) error {
	db := r.conn(tx).WithContext(ctx)
	var reg model.Register
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND status = ?", s.RegisterID, model.RegisterOpen).
		Take(&reg).Error
	if err != nil {
		if err = translate(err); errors.Is(err, ErrNotFound) {
			return ErrRegisterClosed
		}
		return err
	}
	return db.Omit("Consumer", "Items.Product").Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items.Product").Preload("Consumer").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *saleRepo) ListByRegister(ctx context.Context, registerID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("register_id = ?", registerID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason string, at time.Time) error {
	res := r.conn(tx).WithContext(ctx).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, model.SaleCompleted).
		Updates(map[string]interface{}{
			"status":        model.SaleCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
