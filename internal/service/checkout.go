package service

import (
	"context"
	"fmt"
	"time"

	"bot-service/internal/models"
	"bot-service/internal/repository"

	"go.uber.org/zap"
)

type CheckoutService interface {
	Commit(ctx context.Context, convID int64) (*models.Order, error)
}

type checkoutService struct {
	orders     repository.OrderRepo
	orderItems repository.OrderItemRepo
	carts      repository.CartRepo
	dialogues  repository.DialogueRepo
	cache      DialogueCache
	events     EventBus
	log        *zap.Logger
	now        func() time.Time
}

func NewCheckoutService(repo *repository.Repository, cache DialogueCache, events EventBus, log *zap.Logger) CheckoutService {
	return &checkoutService{
		orders:     repo.Orders,
		orderItems: repo.OrderItems,
		carts:      repo.CartItems,
		dialogues:  repo.Dialogues,
		cache:      cache,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// Commit атомарно создаёт заказ из корзины беседы.
//
// Сериализация на беседу — CAS по шагу диалога: перевод STEP_CONFIRMED ->
// STEP_BROWSING выполняется той же транзакцией, что пишет заказ, поэтому из
// двух одновременных коммитов заказ создаст ровно один.
func (s *checkoutService) Commit(ctx context.Context, convID int64) (*models.Order, error) {
	lines, err := s.carts.ListLines(ctx, convID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	st, err := s.dialogues.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	if st == nil || st.Step != models.StepConfirmed {
		return nil, ErrIncompleteCheckout
	}

	// Снимок названия и действующей цены на момент коммита: дальнейшие
	// переименования и переоценки товара историю заказа не трогают.
	var (
		itemsDB []models.OrderItem
		total   int64
		now     = s.now()
	)
	for _, ln := range lines {
		if !ln.ProductActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, ln.ProductName)
		}

		line := int64(ln.Quantity) * ln.UnitPrice
		total += line

		itemsDB = append(itemsDB, models.OrderItem{
			ProductID:   ln.ProductID,
			ProductName: ln.ProductName,
			Quantity:    ln.Quantity,
			UnitPrice:   ln.UnitPrice,
			LineTotal:   line,
			CreatedAt:   now,
		})
	}

	order := &models.Order{
		ConversationID: convID,
		CustomerName:   st.Name,
		Phone:          st.Phone,
		Address:        st.Address,
		TotalPrice:     total,
		PaymentMethod:  models.PaymentMethod(st.PaymentMethod),
		SourceChannel:  models.SourceChannelBot,
		Status:         models.OrderStatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.orders.WithTx(ctx, func(txOrders repository.OrderRepo, txItems repository.OrderItemRepo, txCarts repository.CartRepo, txDialogues repository.DialogueRepo) error {
		ok, err := txDialogues.ResetIfConfirmed(ctx, convID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCommitConflict
		}

		if err := txOrders.Create(ctx, order); err != nil {
			return err
		}

		for i := range itemsDB {
			itemsDB[i].OrderID = order.ID
		}
		if err := txItems.BulkCreate(ctx, itemsDB); err != nil {
			return err
		}

		if _, err := txCarts.Clear(ctx, convID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheDrop(ctx, convID)

	// Контрольная сверка после коммита. Расхождение означает наполовину
	// записанный заказ — он уходит оператору, автоповтора нет: повтор мог
	// бы задвоить заказ.
	persisted, sumErr := s.orderItems.SumByOrder(ctx, order.ID)
	if sumErr == nil && persisted != total {
		s.log.Error("Заказ записан не полностью, требуется ручная сверка",
			zap.String("order_id", order.ID.String()),
			zap.Int64("expected_total", total),
			zap.Int64("persisted_total", persisted))
		return nil, fmt.Errorf("%w: order %s", ErrPartialCommit, order.ID)
	}

	order.Items = itemsDB

	if s.events != nil {
		evItems := make([]OrderItemEvent, 0, len(itemsDB))
		for _, it := range itemsDB {
			evItems = append(evItems, OrderItemEvent{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				LineTotal:   it.LineTotal,
			})
		}
		ev := OrderCreatedEvent{
			OrderID:        order.ID,
			ConversationID: convID,
			CustomerName:   order.CustomerName,
			Phone:          order.Phone,
			Address:        order.Address,
			Items:          evItems,
			TotalPrice:     order.TotalPrice,
			PaymentMethod:  string(order.PaymentMethod),
			SourceChannel:  order.SourceChannel,
			CreatedAt:      order.CreatedAt,
		}
		// заказ уже в БД, сбой шины его не отменяет
		if err := s.events.PublishOrderCreated(ctx, ev); err != nil {
			s.log.Warn("Не удалось опубликовать событие о заказе",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	return order, nil
}

func (s *checkoutService) cacheDrop(ctx context.Context, convID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelDialogue(ctx, convID); err != nil {
		s.log.Warn("Не удалось сбросить кэш диалога после коммита", zap.Int64("conversation_id", convID), zap.Error(err))
	}
}
