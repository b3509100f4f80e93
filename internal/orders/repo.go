package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelanka/marketplace-backend/pkg/db"
	"github.com/hirelanka/marketplace-backend/pkg/db/models"
	"github.com/hirelanka/marketplace-backend/pkg/enums"
	"github.com/hirelanka/marketplace-backend/pkg/pagination"
)

const (
	productOrderNumberIndex = "ux_product_orders_order_number"
	serviceOrderNumberIndex = "ux_service_orders_order_number"
)

// Repository defines persistence operations for product orders and bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProductOrder(ctx context.Context, order *models.ProductOrder) error
	FindProductOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error)
	TransitionProductOrder(ctx context.Context, id uuid.UUID, from enums.ProductOrderStatus, updates map[string]any) (bool, error)
	UpdateProductOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListBuyerProductOrders(ctx context.Context, buyerID uuid.UUID, params ListQuery) ([]models.ProductOrder, string, error)
	ListSellerProductOrders(ctx context.Context, sellerID uuid.UUID, params ListQuery) ([]models.ProductOrder, string, error)

	CreateServiceOrder(ctx context.Context, order *models.ServiceOrder) error
	FindServiceOrder(ctx context.Context, id uuid.UUID) (*models.ServiceOrder, error)
	TransitionServiceOrder(ctx context.Context, id uuid.UUID, from enums.ServiceOrderStatus, updates map[string]any) (bool, error)
	UpdateServiceOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetServiceOrderReview(ctx context.Context, id uuid.UUID, review models.BuyerReview) (bool, error)
	ListBuyerServiceOrders(ctx context.Context, buyerID uuid.UUID, params ListQuery) ([]models.ServiceOrder, string, error)
	ListProviderServiceOrders(ctx context.Context, providerID uuid.UUID, params ListQuery) ([]models.ServiceOrder, string, error)
}

// ListQuery is a decoded cursor page request.
type ListQuery struct {
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProductOrder(ctx context.Context, order *models.ProductOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindProductOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error) {
	var order models.ProductOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionProductOrder applies updates only while the row is still in from.
// A false result means a concurrent writer moved the order first.
func (r *repository) TransitionProductOrder(ctx context.Context, id uuid.UUID, from enums.ProductOrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateProductOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListBuyerProductOrders(ctx context.Context, buyerID uuid.UUID, params ListQuery) ([]models.ProductOrder, string, error) {
	query := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID)
	return r.pageProductOrders(query, params)
}

func (r *repository) ListSellerProductOrders(ctx context.Context, sellerID uuid.UUID, params ListQuery) ([]models.ProductOrder, string, error) {
	sellerOrders := r.db.Model(&models.ProductOrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)
	query := r.db.WithContext(ctx).Where("id IN (?)", sellerOrders)
	return r.pageProductOrders(query, params)
}

func (r *repository) pageProductOrders(query *gorm.DB, params ListQuery) ([]models.ProductOrder, string, error) {
	var rows []models.ProductOrder
	err := pagination.Keyset(query, params.Cursor, params.Limit).Preload("Items").Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Page(rows, params.Limit, func(o models.ProductOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func (r *repository) CreateServiceOrder(ctx context.Context, order *models.ServiceOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindServiceOrder(ctx context.Context, id uuid.UUID) (*models.ServiceOrder, error) {
	var order models.ServiceOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionServiceOrder applies updates only while the row is still in from.
func (r *repository) TransitionServiceOrder(ctx context.Context, id uuid.UUID, from enums.ServiceOrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateServiceOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetServiceOrderReview stores the buyer review once, on a completed booking.
func (r *repository) SetServiceOrderReview(ctx context.Context, id uuid.UUID, review models.BuyerReview) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ServiceOrder{}).
		Where("id = ? AND status = ? AND review_rating IS NULL", id, enums.ServiceOrderStatusCompleted).
		Updates(map[string]any{
			"review_rating":     review.Rating,
			"review_comment":    review.Comment,
			"review_created_at": review.ReviewedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListBuyerServiceOrders(ctx context.Context, buyerID uuid.UUID, params ListQuery) ([]models.ServiceOrder, string, error) {
	return r.pageServiceOrders(r.db.WithContext(ctx).Where("buyer_id = ?", buyerID), params)
}

func (r *repository) ListProviderServiceOrders(ctx context.Context, providerID uuid.UUID, params ListQuery) ([]models.ServiceOrder, string, error) {
	return r.pageServiceOrders(r.db.WithContext(ctx).Where("provider_id = ?", providerID), params)
}

func (r *repository) pageServiceOrders(query *gorm.DB, params ListQuery) ([]models.ServiceOrder, string, error) {
	var rows []models.ServiceOrder
	err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	page, next := pagination.Page(rows, params.Limit, func(o models.ServiceOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func isOrderNumberConflict(err error, index string) bool {
	return db.IsUniqueViolationOn(err, index, "order_number")
}
