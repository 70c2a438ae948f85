package repository

import (
	"context"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GRNRepository interface {
	Create(ctx context.Context, grn *model.GRN) error
	ListByPO(ctx context.Context, poNumber string) ([]model.GRN, error)
	// SumReceivedQty aggregates the physically received quantity for a PO.
	// Zero with no error means no GRN has been recorded yet.
	SumReceivedQty(ctx context.Context, poNumber string) (decimal.Decimal, error)
}

type grnRepository struct {
	db *gorm.DB
}

func NewGRNRepository(db *gorm.DB) GRNRepository {
	return &grnRepository{db: db}
}

func (r *grnRepository) Create(ctx context.Context, grn *model.GRN) error {
	return GetDB(ctx, r.db).Create(grn).Error
}

func (r *grnRepository) ListByPO(ctx context.Context, poNumber string) ([]model.GRN, error) {
	var grns []model.GRN
	if err := GetDB(ctx, r.db).Where("po_number = ?", poNumber).
		Order("created_at asc").Find(&grns).Error; err != nil {
		return nil, err
	}
	return grns, nil
}

func (r *grnRepository) SumReceivedQty(ctx context.Context, poNumber string) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.GRN{}).
		Select("SUM(received_qty)").
		Where("po_number = ?", poNumber).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
