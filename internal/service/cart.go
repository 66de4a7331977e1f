package service

import (
	"context"

	"bot-service/internal/repository"

	"github.com/google/uuid"
)

type CartService interface {
	AddItem(ctx context.Context, convID int64, productID uuid.UUID, qty int32) error
	ChangeQuantity(ctx context.Context, convID int64, productID uuid.UUID, delta int32) error
	ListItems(ctx context.Context, convID int64) ([]repository.CartLine, error)
	Clear(ctx context.Context, convID int64) error
	TotalPrice(ctx context.Context, convID int64) (int64, error)
}

type cartService struct {
	carts    repository.CartRepo
	products repository.ProductRepo
}

func NewCartService(carts repository.CartRepo, products repository.ProductRepo) CartService {
	return &cartService{
		carts:    carts,
		products: products,
	}
}

func (s *cartService) AddItem(ctx context.Context, convID int64, productID uuid.UUID, qty int32) error {
	if qty <= 0 {
		return ErrQuantityInvalid
	}

	p, err := s.products.GetActiveByID(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProductNotFound
	}

	return s.carts.Upsert(ctx, convID, productID, qty)
}

// ChangeQuantity применяет дельту к строке корзины. Результат <= 0 удаляет
// строку: отрицательных и нулевых количеств в хранилище не бывает.
func (s *cartService) ChangeQuantity(ctx context.Context, convID int64, productID uuid.UUID, delta int32) error {
	item, err := s.carts.Get(ctx, convID, productID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotFound
	}

	newQty := item.Quantity + delta
	if newQty <= 0 {
		_, err := s.carts.Delete(ctx, convID, productID)
		return err
	}

	_, err = s.carts.UpdateQuantity(ctx, convID, productID, newQty)
	return err
}

func (s *cartService) ListItems(ctx context.Context, convID int64) ([]repository.CartLine, error) {
	return s.carts.ListLines(ctx, convID)
}

func (s *cartService) Clear(ctx context.Context, convID int64) error {
	_, err := s.carts.Clear(ctx, convID)
	return err
}

func (s *cartService) TotalPrice(ctx context.Context, convID int64) (int64, error) {
	return s.carts.Total(ctx, convID)
}
