package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"bot-service/internal/models"
	"bot-service/internal/repository"
	"bot-service/internal/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler — диспетчер диалога: (шаг, вид события) -> действие.
// На один Update всегда ровно один Reply.
type Handler struct {
	catalog  service.CatalogService
	cart     service.CartService
	dialogue service.DialogueService
	checkout service.CheckoutService
	log      *zap.Logger
}

func NewHandler(
	catalog service.CatalogService,
	cart service.CartService,
	dialogue service.DialogueService,
	checkout service.CheckoutService,
	log *zap.Logger,
) *Handler {
	return &Handler{
		catalog:  catalog,
		cart:     cart,
		dialogue: dialogue,
		checkout: checkout,
		log:      log,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd Update) Reply {
	var st *models.DialogueState
	err := h.retry(ctx, func() error {
		var e error
		st, e = h.dialogue.Get(ctx, upd.ConversationID)
		return e
	})
	if err != nil {
		h.log.Error("Не удалось загрузить состояние диалога",
			zap.Int64("conversation_id", upd.ConversationID), zap.Error(err))
		return h.apology(upd)
	}

	var reply Reply
	if upd.Kind == KindCallback {
		reply = h.handleCallback(ctx, st, upd)
		// callback пришёл с кнопки на сообщении бота — редактируем его же
		if reply.EditMessageID == 0 {
			reply.EditMessageID = upd.MessageID
		}
		if upd.MessageID != 0 {
			if err := h.dialogue.RememberMessage(ctx, upd.ConversationID, upd.MessageID); err != nil {
				h.log.Warn("Не удалось сохранить id сообщения", zap.Error(err))
			}
		}
	} else {
		reply = h.handleText(ctx, st, upd)
	}

	reply.ConversationID = upd.ConversationID
	return reply
}

func (h *Handler) handleText(ctx context.Context, st *models.DialogueState, upd Update) Reply {
	text := strings.TrimSpace(upd.Text)

	switch st.Step {
	case models.StepBrowsing:
		// любой текст в Browsing встречаем меню; /start — явный вход
		return h.replyMenu(ctx, upd)

	case models.StepAwaitingName, models.StepAwaitingPhone, models.StepAwaitingAddress, models.StepAwaitingPayment:
		return h.advance(ctx, st, upd, text)

	case models.StepConfirmed:
		return h.replySummary(ctx, st, upd)

	default:
		return Reply{Text: msgUnknown}
	}
}

// advance передаёт ввод автомату; невалидный ввод переспрашивает тот же шаг.
func (h *Handler) advance(ctx context.Context, st *models.DialogueState, upd Update, input string) Reply {
	prevStep := st.Step

	var next *models.DialogueState
	err := h.retry(ctx, func() error {
		var e error
		next, e = h.dialogue.Advance(ctx, upd.ConversationID, input)
		return e
	})

	if errors.Is(err, service.ErrValidation) {
		switch prevStep {
		case models.StepAwaitingName:
			return Reply{Text: msgBadName, Keyboard: cancelKeyboard()}
		case models.StepAwaitingPhone:
			return Reply{Text: msgBadPhone, Keyboard: cancelKeyboard()}
		case models.StepAwaitingAddress:
			return Reply{Text: msgBadAddress, Keyboard: cancelKeyboard()}
		default:
			return Reply{Text: msgBadPayment, Keyboard: paymentKeyboard()}
		}
	}
	if err != nil {
		h.log.Error("Не удалось продвинуть диалог", zap.Error(err))
		return h.apology(upd)
	}

	switch next.Step {
	case models.StepAwaitingPhone:
		return Reply{Text: msgPromptPhone, Keyboard: cancelKeyboard()}
	case models.StepAwaitingAddress:
		return Reply{Text: msgPromptAddress, Keyboard: cancelKeyboard()}
	case models.StepAwaitingPayment:
		return Reply{Text: msgPromptPayment, Keyboard: paymentKeyboard()}
	case models.StepConfirmed:
		return h.replySummary(ctx, next, upd)
	default:
		return Reply{Text: msgUnknown}
	}
}

func (h *Handler) handleCallback(ctx context.Context, st *models.DialogueState, upd Update) Reply {
	action, arg, _ := strings.Cut(upd.CallbackData, ":")

	switch action {
	case cbMenu:
		return h.replyMenu(ctx, upd)

	case cbCart:
		return h.replyCart(ctx, upd)

	case cbClear:
		if err := h.retry(ctx, func() error { return h.cart.Clear(ctx, upd.ConversationID) }); err != nil {
			h.log.Error("Не удалось очистить корзину", zap.Error(err))
			return h.apology(upd)
		}
		return h.replyCart(ctx, upd)

	case cbPrefixCategory:
		return h.replyProducts(ctx, upd, arg)

	case cbPrefixProduct:
		return h.replyProduct(ctx, upd, arg)

	case cbPrefixAdd:
		return h.addToCart(ctx, upd, arg)

	case cbPrefixInc:
		return h.changeQuantity(ctx, upd, arg, 1)

	case cbPrefixDec:
		return h.changeQuantity(ctx, upd, arg, -1)

	case cbCheckout:
		return h.startCheckout(ctx, upd)

	case cbPrefixPay:
		if st.Step != models.StepAwaitingPayment {
			return Reply{Text: msgUnknown}
		}
		return h.advance(ctx, st, upd, arg)

	case cbConfirm:
		return h.commit(ctx, upd)

	case cbCancel:
		if err := h.retry(ctx, func() error { return h.dialogue.Reset(ctx, upd.ConversationID) }); err != nil {
			h.log.Error("Не удалось сбросить диалог", zap.Error(err))
			return h.apology(upd)
		}
		return Reply{Text: msgCancelled, Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})}}

	default:
		return Reply{Text: msgUnknown}
	}
}

func (h *Handler) replyMenu(ctx context.Context, upd Update) Reply {
	var categories []models.Category
	err := h.retry(ctx, func() error {
		var e error
		categories, e = h.catalog.ListCategories(ctx)
		return e
	})
	if err != nil {
		h.log.Error("Не удалось загрузить категории", zap.Error(err))
		return h.apology(upd)
	}
	text, kb := renderCategories(categories)
	return Reply{Text: text, Keyboard: kb}
}

func (h *Handler) replyProducts(ctx context.Context, upd Update, arg string) Reply {
	id, err := uuid.Parse(arg)
	if err != nil {
		return Reply{Text: msgUnknown}
	}

	var (
		categories []models.Category
		products   []models.Product
	)
	err = h.retry(ctx, func() error {
		var e error
		categories, e = h.catalog.ListCategories(ctx)
		if e != nil {
			return e
		}
		products, e = h.catalog.ListProducts(ctx, &id)
		return e
	})
	if errors.Is(err, service.ErrCategoryNotFound) {
		return h.replyMenu(ctx, upd)
	}
	if err != nil {
		h.log.Error("Не удалось загрузить товары", zap.Error(err))
		return h.apology(upd)
	}

	var category *models.Category
	for i := range categories {
		if categories[i].ID == id {
			category = &categories[i]
			break
		}
	}
	if category == nil {
		return h.replyMenu(ctx, upd)
	}

	text, kb := renderProducts(category, products)
	return Reply{Text: text, Keyboard: kb}
}

func (h *Handler) replyProduct(ctx context.Context, upd Update, arg string) Reply {
	id, err := uuid.Parse(arg)
	if err != nil {
		return Reply{Text: msgUnknown}
	}

	var p *models.Product
	err = h.retry(ctx, func() error {
		var e error
		p, e = h.catalog.GetProduct(ctx, id)
		return e
	})
	if errors.Is(err, service.ErrProductNotFound) {
		return Reply{Text: "Это блюдо сейчас недоступно.", Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})}}
	}
	if err != nil {
		h.log.Error("Не удалось загрузить товар", zap.Error(err))
		return h.apology(upd)
	}

	text, kb := renderProduct(p)
	return Reply{Text: text, Keyboard: kb}
}

func (h *Handler) addToCart(ctx context.Context, upd Update, arg string) Reply {
	id, err := uuid.Parse(arg)
	if err != nil {
		return Reply{Text: msgUnknown}
	}

	err = h.retry(ctx, func() error { return h.cart.AddItem(ctx, upd.ConversationID, id, 1) })
	if errors.Is(err, service.ErrProductNotFound) {
		return Reply{Text: "Это блюдо сейчас недоступно.", Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})}}
	}
	if err != nil {
		h.log.Error("Не удалось добавить в корзину", zap.Error(err))
		return h.apology(upd)
	}

	return h.replyCart(ctx, upd)
}

func (h *Handler) changeQuantity(ctx context.Context, upd Update, arg string, delta int32) Reply {
	id, err := uuid.Parse(arg)
	if err != nil {
		return Reply{Text: msgUnknown}
	}

	err = h.retry(ctx, func() error { return h.cart.ChangeQuantity(ctx, upd.ConversationID, id, delta) })
	if err != nil && !errors.Is(err, service.ErrCartItemNotFound) {
		h.log.Error("Не удалось изменить количество", zap.Error(err))
		return h.apology(upd)
	}

	return h.replyCart(ctx, upd)
}

func (h *Handler) replyCart(ctx context.Context, upd Update) Reply {
	var (
		lines []repository.CartLine
		total int64
	)
	err := h.retry(ctx, func() error {
		var e error
		lines, e = h.cart.ListItems(ctx, upd.ConversationID)
		if e != nil {
			return e
		}
		total, e = h.cart.TotalPrice(ctx, upd.ConversationID)
		return e
	})
	if err != nil {
		h.log.Error("Не удалось загрузить корзину", zap.Error(err))
		return h.apology(upd)
	}

	text, kb := renderCart(lines, total)
	return Reply{Text: text, Keyboard: kb}
}

func (h *Handler) replySummary(ctx context.Context, st *models.DialogueState, upd Update) Reply {
	var (
		lines []repository.CartLine
		total int64
	)
	err := h.retry(ctx, func() error {
		var e error
		lines, e = h.cart.ListItems(ctx, upd.ConversationID)
		if e != nil {
			return e
		}
		total, e = h.cart.TotalPrice(ctx, upd.ConversationID)
		return e
	})
	if err != nil {
		h.log.Error("Не удалось собрать сводку заказа", zap.Error(err))
		return h.apology(upd)
	}

	text, kb := renderSummary(st, lines, total)
	return Reply{Text: text, Keyboard: kb}
}

func (h *Handler) startCheckout(ctx context.Context, upd Update) Reply {
	err := h.retry(ctx, func() error {
		_, e := h.dialogue.StartCheckout(ctx, upd.ConversationID)
		return e
	})
	if errors.Is(err, service.ErrEmptyCart) {
		return Reply{Text: msgEmptyCartCheckout, Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})}}
	}
	if err != nil {
		h.log.Error("Не удалось начать оформление", zap.Error(err))
		return h.apology(upd)
	}

	return Reply{Text: msgPromptName, Keyboard: cancelKeyboard()}
}

func (h *Handler) commit(ctx context.Context, upd Update) Reply {
	var order *models.Order
	err := h.retry(ctx, func() error {
		var e error
		order, e = h.checkout.Commit(ctx, upd.ConversationID)
		return e
	})

	switch {
	case err == nil:
		return Reply{
			Text:     renderOrderCreated(order),
			Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})},
		}
	case errors.Is(err, service.ErrEmptyCart):
		return Reply{Text: msgEmptyCartCheckout, Keyboard: [][]Button{row(Button{Label: "📋 Меню", CallbackData: cbMenu})}}
	case errors.Is(err, service.ErrIncompleteCheckout):
		return Reply{Text: msgUnknown, Keyboard: [][]Button{row(Button{Label: "🛒 Корзина", CallbackData: cbCart})}}
	case errors.Is(err, service.ErrProductUnavailable):
		return Reply{Text: msgItemUnavailable, Keyboard: [][]Button{row(Button{Label: "🛒 Корзина", CallbackData: cbCart})}}
	case errors.Is(err, service.ErrCommitConflict):
		return Reply{Text: msgAlreadyCommitted}
	default:
		// в том числе ErrPartialCommit: уже залогирован как фатальный в сервисе
		h.log.Error("Коммит заказа не удался", zap.Int64("conversation_id", upd.ConversationID), zap.Error(err))
		return h.apology(upd)
	}
}

func (h *Handler) apology(upd Update) Reply {
	return Reply{ConversationID: upd.ConversationID, Text: msgApology}
}

// retry повторяет только инфраструктурные сбои; бизнес-ошибки возвращаются сразу.
func (h *Handler) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isBusinessErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func isBusinessErr(err error) bool {
	for _, target := range []error{
		service.ErrCategoryNotFound,
		service.ErrProductNotFound,
		service.ErrCartItemNotFound,
		service.ErrQuantityInvalid,
		service.ErrEmptyCart,
		service.ErrIncompleteCheckout,
		service.ErrValidation,
		service.ErrProductUnavailable,
		service.ErrCommitConflict,
		service.ErrPartialCommit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
