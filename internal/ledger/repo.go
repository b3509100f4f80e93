package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
)

// Repository is append-only: ledger rows are never updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ExistsForPayment(ctx context.Context, paymentID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
	ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ExistsForPayment(ctx context.Context, paymentID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("payment_id = ? AND type = ?", paymentID, eventType).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// ListByPaymentID returns the payment's history oldest first.
func (r *repository) ListByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	return events, err
}
