package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	"github.com/hirelanka/marketplace-backend/pkg/pagination"
)

// Repository persists payments. Status changes are conditional on the current
// row state so concurrent webhook deliveries and releases cannot both win.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (*models.Payment, error)
	ApplyGatewayResult(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	ReleaseEscrow(ctx context.Context, id, releasedBy uuid.UUID, at time.Time) (bool, error)
	ListByPayer(ctx context.Context, payerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payment, string, error)
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

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_external_order_id = ?", externalOrderID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ApplyGatewayResult writes a webhook outcome only while the payment is still pending.
func (r *repository) ApplyGatewayResult(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseEscrow completes a held payment exactly once.
func (r *repository) ReleaseEscrow(ctx context.Context, id, releasedBy uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ? AND escrow_enabled = ? AND escrow_released_at IS NULL", id, enums.PaymentStatusEscrow, true).
		Updates(map[string]any{
			"status":             enums.PaymentStatusCompleted,
			"escrow_released_at": at,
			"escrow_released_by": releasedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByPayer(ctx context.Context, payerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payment, string, error) {
	query := r.db.WithContext(ctx).Where("payer_id = ?", payerID)
	var rows []models.Payment
	if err := pagination.Keyset(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Page(rows, limit, func(p models.Payment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, next, nil
}
