package bot

// Абстрактный конверт входящего события от мессенджера. Прослойка до
// Telegram/WhatsApp живёт вне сервиса и переводит их апдейты в этот вид.
type UpdateKind string

const (
	KindText     UpdateKind = "text"
	KindCallback UpdateKind = "callback"
)

type Update struct {
	ConversationID int64      `json:"conversation_id" binding:"required"`
	Kind           UpdateKind `json:"kind" binding:"required,oneof=text callback"`
	Text           string     `json:"text"`
	CallbackData   string     `json:"callback_data"`
	// id сообщения с кнопкой — цель для edit при callback
	MessageID int64 `json:"message_id"`
}

type Button struct {
	Label        string `json:"label"`
	CallbackData string `json:"callback_data"`
}

// Ровно один Reply на один Update. EditMessageID != 0 означает
// редактирование существующего сообщения вместо отправки нового —
// какой вызов сделать на проводе, решает транспортный адаптер.
type Reply struct {
	ConversationID int64      `json:"conversation_id"`
	Text           string     `json:"text"`
	Keyboard       [][]Button `json:"keyboard,omitempty"`
	EditMessageID  int64      `json:"edit_message_id,omitempty"`
}

func row(buttons ...Button) []Button { return buttons }
