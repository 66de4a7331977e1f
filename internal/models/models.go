package models

import (
	"time"

	"github.com/google/uuid"
)

// Шаг диалога оформления заказа — строковый тип (как OrderStatus)
type DialogueStep string

const (
	StepBrowsing        DialogueStep = "STEP_BROWSING"
	StepAwaitingName    DialogueStep = "STEP_AWAITING_NAME"
	StepAwaitingPhone   DialogueStep = "STEP_AWAITING_PHONE"
	StepAwaitingAddress DialogueStep = "STEP_AWAITING_ADDRESS"
	StepAwaitingPayment DialogueStep = "STEP_AWAITING_PAYMENT"
	StepConfirmed       DialogueStep = "STEP_CONFIRMED"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type OrderStatus string

const (
	OrderStatusNew OrderStatus = "new"
	// дальнейшие статусы меняет бэк-офис, не этот сервис
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

const SourceChannelBot = "bot"

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	SortOrder int32     `gorm:"type:int;not null;default:0;index"`
	IsActive  bool      `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Category) TableName() string { return "categories" }

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"type:text;not null"`
	Description   string    `gorm:"type:text"`
	Price         int64     `gorm:"not null;default:0"` // сумы, без копеек
	DiscountPrice *int64    `gorm:"default:null"`
	ImageURL      string    `gorm:"type:text"`
	IsActive      bool      `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Product) TableName() string { return "products" }

// EffectivePrice — цена со скидкой, если она задана.
func (p *Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Позиция корзины. Не больше одной строки на (conversation_id, product_id).
type CartItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID int64     `gorm:"not null;index;uniqueIndex:ux_cart_items_conv_product"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_conv_product"`
	Quantity       int32     `gorm:"type:int;not null"` // CHECK > 0 в миграции

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (CartItem) TableName() string { return "cart_items" }

// Состояние диалога одной беседы. Источник истины — Postgres,
// Redis используется только как сквозной кэш.
type DialogueState struct {
	ConversationID int64        `gorm:"primaryKey;autoIncrement:false"`
	Step           DialogueStep `gorm:"type:text;not null;default:'STEP_BROWSING'"`

	// собранные поля оформления; пустая строка = ещё не получено
	Name          string `gorm:"type:text;not null;default:''"`
	Phone         string `gorm:"type:text;not null;default:''"`
	Address       string `gorm:"type:text;not null;default:''"`
	PaymentMethod string `gorm:"type:text;not null;default:''"`

	// id последнего сообщения бота — цель для edit при callback-кнопках
	LastMessageID int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (DialogueState) TableName() string { return "dialogue_states" }

type Order struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID int64         `gorm:"not null;index"`
	CustomerName   string        `gorm:"type:text;not null"`
	Phone          string        `gorm:"type:text;not null"`
	Address        string        `gorm:"type:text;not null"`
	TotalPrice     int64         `gorm:"not null;default:0"`
	PaymentMethod  PaymentMethod `gorm:"type:text;not null"`
	SourceChannel  string        `gorm:"type:text;not null;default:'bot'"`
	Status         OrderStatus   `gorm:"type:text;not null;default:'new';index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"` // каскад на позиции
}

func (Order) TableName() string { return "orders" }

// Позиция заказа. Название и цена денормализованы намеренно:
// история заказов не должна меняться при переименовании/переоценке товара.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	ProductName string    `gorm:"type:text;not null"`
	Quantity    int32     `gorm:"type:int;not null"` // CHECK > 0 в миграции
	UnitPrice   int64     `gorm:"not null"`          // цена на момент заказа
	LineTotal   int64     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }
