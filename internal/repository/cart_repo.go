package repository

import (
	"context"
	"errors"

	"bot-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartLine — строка корзины вместе со снимком товара на момент чтения.
type CartLine struct {
	ProductID     uuid.UUID
	ProductName   string
	Quantity      int32
	UnitPrice     int64 // действующая цена: скидочная, если задана
	ImageURL      string
	ProductActive bool
}

type CartRepo interface {
	Upsert(ctx context.Context, convID int64, productID uuid.UUID, qty int32) error
	Get(ctx context.Context, convID int64, productID uuid.UUID) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, convID int64, productID uuid.UUID, qty int32) (bool, error)
	Delete(ctx context.Context, convID int64, productID uuid.UUID) (bool, error)
	ListLines(ctx context.Context, convID int64) ([]CartLine, error)
	Clear(ctx context.Context, convID int64) (int64, error)
	Total(ctx context.Context, convID int64) (int64, error)
	Count(ctx context.Context, convID int64) (int64, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

// Upsert: повторное добавление того же товара наращивает количество одной строки.
// Дубликат доставки события просто добавит дважды — это бизнес-семантика, не порча данных.
func (r *cartRepo) Upsert(ctx context.Context, convID int64, productID uuid.UUID, qty int32) error {
	item := models.CartItem{
		ConversationID: convID,
		ProductID:      productID,
		Quantity:       qty,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity": gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
		}),
	}).Create(&item).Error
}

func (r *cartRepo) Get(ctx context.Context, convID int64, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND product_id = ?", convID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, convID int64, productID uuid.UUID, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("conversation_id = ? AND product_id = ?", convID, productID).
		Update("quantity", qty)
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) Delete(ctx context.Context, convID int64, productID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("conversation_id = ? AND product_id = ?", convID, productID).
		Delete(&models.CartItem{})
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) ListLines(ctx context.Context, convID int64) ([]CartLine, error) {
	var lines []CartLine
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Select(`cart_items.product_id,
			products.name AS product_name,
			cart_items.quantity,
			COALESCE(products.discount_price, products.price) AS unit_price,
			products.image_url,
			products.is_active AS product_active`).
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.conversation_id = ?", convID).
		Order("cart_items.created_at ASC").
		Scan(&lines).Error
	return lines, err
}

func (r *cartRepo) Clear(ctx context.Context, convID int64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&models.CartItem{})
	return tx.RowsAffected, tx.Error
}

// Total считается на чтении, не кэшируется: смена цены товара видна до оформления.
func (r *cartRepo) Total(ctx context.Context, convID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(COALESCE(products.discount_price, products.price) * cart_items.quantity), 0)").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.conversation_id = ?", convID).
		Scan(&total).Error
	return total, err
}

func (r *cartRepo) Count(ctx context.Context, convID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("conversation_id = ?", convID).
		Count(&cnt).Error
	return cnt, err
}
