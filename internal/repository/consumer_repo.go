package repository

import (
	"context"

	"github.com/eoivo/embala-fest-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsumerRepository interface {
	Create(ctx context.Context, c *model.Consumer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Consumer, error)
	Search(ctx context.Context, term string, limit int) ([]model.Consumer, error)
	Update(ctx context.Context, c *model.Consumer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type consumerRepo struct{ db *gorm.DB }

func NewConsumerRepository(db *gorm.DB) ConsumerRepository { return &consumerRepo{db: db} }

func (r *consumerRepo) Create(ctx context.Context, c *model.Consumer) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *consumerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Consumer, error) {
	var c model.Consumer
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *consumerRepo) Search(ctx context.Context, term string, limit int) ([]model.Consumer, error) {
	var consumers []model.Consumer
	q := r.db.WithContext(ctx).Order("name ASC").Limit(limit)
	if term != "" {
		like := "%" + term + "%"
		q = q.Where("name ILIKE ? OR cpf LIKE ? OR email ILIKE ?", like, like, like)
	}
	err := q.Find(&consumers).Error
	return consumers, err
}

func (r *consumerRepo) Update(ctx context.Context, c *model.Consumer) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

func (r *consumerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Consumer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
