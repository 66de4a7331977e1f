package bot

import (
	"fmt"
	"strings"

	"bot-service/internal/models"
	"bot-service/internal/repository"
)

// Данные callback-кнопок: "<префикс>:<uuid>" либо одиночное слово.
const (
	cbMenu     = "menu"
	cbCart     = "cart"
	cbClear    = "clear"
	cbCheckout = "checkout"
	cbConfirm  = "confirm"
	cbCancel   = "cancel"

	cbPrefixCategory = "cat"
	cbPrefixProduct  = "prod"
	cbPrefixAdd      = "add"
	cbPrefixInc      = "inc"
	cbPrefixDec      = "dec"
	cbPrefixPay      = "pay"
)

func formatPrice(sum int64) string {
	return fmt.Sprintf("%d сум", sum)
}

func renderCategories(categories []models.Category) (string, [][]Button) {
	if len(categories) == 0 {
		return "Меню пока пустое, загляните позже.", nil
	}

	var kb [][]Button
	for _, c := range categories {
		kb = append(kb, row(Button{Label: c.Name, CallbackData: cbPrefixCategory + ":" + c.ID.String()}))
	}
	kb = append(kb, row(Button{Label: "🛒 Корзина", CallbackData: cbCart}))
	return "Выберите категорию:", kb
}

func renderProducts(category *models.Category, products []models.Product) (string, [][]Button) {
	if len(products) == 0 {
		return "В этой категории пока нет блюд.", [][]Button{
			row(Button{Label: "⬅️ Назад", CallbackData: cbMenu}),
		}
	}

	var kb [][]Button
	for _, p := range products {
		label := fmt.Sprintf("%s — %s", p.Name, formatPrice(p.EffectivePrice()))
		kb = append(kb, row(Button{Label: label, CallbackData: cbPrefixProduct + ":" + p.ID.String()}))
	}
	kb = append(kb, row(
		Button{Label: "⬅️ Назад", CallbackData: cbMenu},
		Button{Label: "🛒 Корзина", CallbackData: cbCart},
	))
	return category.Name + ":", kb
}

func renderProduct(p *models.Product) (string, [][]Button) {
	var b strings.Builder
	b.WriteString(p.Name + "\n")
	if p.Description != "" {
		b.WriteString(p.Description + "\n")
	}
	if p.DiscountPrice != nil {
		fmt.Fprintf(&b, "Цена: %s (вместо %s)", formatPrice(*p.DiscountPrice), formatPrice(p.Price))
	} else {
		b.WriteString("Цена: " + formatPrice(p.Price))
	}

	kb := [][]Button{
		row(Button{Label: "➕ В корзину", CallbackData: cbPrefixAdd + ":" + p.ID.String()}),
		row(
			Button{Label: "⬅️ Назад", CallbackData: cbPrefixCategory + ":" + p.CategoryID.String()},
			Button{Label: "🛒 Корзина", CallbackData: cbCart},
		),
	}
	return b.String(), kb
}

func renderCart(lines []repository.CartLine, total int64) (string, [][]Button) {
	if len(lines) == 0 {
		return "Корзина пуста. Добавьте что-нибудь из меню!", [][]Button{
			row(Button{Label: "📋 Меню", CallbackData: cbMenu}),
		}
	}

	var b strings.Builder
	b.WriteString("Ваша корзина:\n")
	for _, ln := range lines {
		fmt.Fprintf(&b, "• %s × %d = %s\n", ln.ProductName, ln.Quantity, formatPrice(int64(ln.Quantity)*ln.UnitPrice))
	}
	fmt.Fprintf(&b, "\nИтого: %s", formatPrice(total))

	var kb [][]Button
	for _, ln := range lines {
		kb = append(kb, row(
			Button{Label: "➖ " + ln.ProductName, CallbackData: cbPrefixDec + ":" + ln.ProductID.String()},
			Button{Label: "➕", CallbackData: cbPrefixInc + ":" + ln.ProductID.String()},
		))
	}
	kb = append(kb,
		row(Button{Label: "✅ Оформить заказ", CallbackData: cbCheckout}),
		row(
			Button{Label: "📋 Меню", CallbackData: cbMenu},
			Button{Label: "🗑 Очистить", CallbackData: cbClear},
		),
	)
	return b.String(), kb
}

func renderSummary(st *models.DialogueState, lines []repository.CartLine, total int64) (string, [][]Button) {
	var b strings.Builder
	b.WriteString("Проверьте заказ:\n")
	for _, ln := range lines {
		fmt.Fprintf(&b, "• %s × %d\n", ln.ProductName, ln.Quantity)
	}
	fmt.Fprintf(&b, "\nИтого: %s\n", formatPrice(total))
	fmt.Fprintf(&b, "Имя: %s\nТелефон: %s\nАдрес: %s\nОплата: %s",
		st.Name, st.Phone, st.Address, paymentLabel(st.PaymentMethod))

	kb := [][]Button{
		row(Button{Label: "✅ Подтвердить", CallbackData: cbConfirm}),
		row(Button{Label: "❌ Отменить", CallbackData: cbCancel}),
	}
	return b.String(), kb
}

func renderOrderCreated(o *models.Order) string {
	return fmt.Sprintf(
		"Спасибо! Заказ принят. 🎉\nНомер заказа: %s\nСумма: %s\nМы свяжемся с вами для подтверждения.",
		o.ID, formatPrice(o.TotalPrice))
}

func paymentLabel(method string) string {
	switch models.PaymentMethod(method) {
	case models.PaymentCash:
		return "наличными"
	case models.PaymentCard:
		return "картой"
	default:
		return method
	}
}

func paymentKeyboard() [][]Button {
	return [][]Button{
		row(
			Button{Label: "💵 Наличными", CallbackData: cbPrefixPay + ":cash"},
			Button{Label: "💳 Картой", CallbackData: cbPrefixPay + ":card"},
		),
		row(Button{Label: "❌ Отменить", CallbackData: cbCancel}),
	}
}

func cancelKeyboard() [][]Button {
	return [][]Button{row(Button{Label: "❌ Отменить", CallbackData: cbCancel})}
}

const (
	msgPromptName    = "Как вас зовут?"
	msgPromptPhone   = "Укажите телефон в формате +998901234567:"
	msgPromptAddress = "Укажите адрес доставки:"
	msgPromptPayment = "Как будете оплачивать?"

	msgBadName    = "Имя не должно быть пустым. Как вас зовут?"
	msgBadPhone   = "Не похоже на номер телефона. Пример: +998901234567"
	msgBadAddress = "Адрес слишком короткий. Укажите адрес доставки:"
	msgBadPayment = "Выберите способ оплаты кнопкой ниже."

	msgEmptyCartCheckout = "Корзина пуста — сначала добавьте блюда из меню."
	msgCancelled         = "Оформление отменено. Возвращаемся в меню."
	msgItemUnavailable   = "Часть блюд из корзины уже недоступна. Удалите их и попробуйте снова."
	msgAlreadyCommitted  = "Этот заказ уже оформляется. Если что-то не так — напишите нам."
	msgApology           = "Что-то пошло не так. Попробуйте ещё раз чуть позже. 🙏"
	msgUnknown           = "Не понял вас. Воспользуйтесь кнопками ниже. 🙂"
)
