package bot

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// UpdateKind — вид входящего события.
type UpdateKind string

const (
	UpdateText              UpdateKind = "text"
	UpdateImage             UpdateKind = "image"
	UpdateButton            UpdateKind = "button"
	UpdateCommand           UpdateKind = "command"
	UpdatePreCheckout       UpdateKind = "pre_checkout"
	UpdateSuccessfulPayment UpdateKind = "successful_payment"
)

// Update — событие платформы, уже приведённое транспортом к логическому виду.
type Update struct {
	ID          string                      `json:"id"`
	Kind        UpdateKind                  `json:"kind" validate:"required,oneof=text image button command pre_checkout successful_payment"`
	UserID      int64                       `json:"user_id" validate:"required"`
	ChatID      int64                       `json:"chat_id"`
	MessageID   int64                       `json:"message_id,omitempty"`
	Text        string                      `json:"text,omitempty"`
	ImageRef    string                      `json:"image_ref,omitempty"`
	CallbackID  string                      `json:"callback_id,omitempty"`
	Data        string                      `json:"data,omitempty"`
	PreCheckout *models.PreCheckoutQuery    `json:"pre_checkout,omitempty"`
	Payment     *models.PaymentConfirmation `json:"payment,omitempty"`
}

// UpdateKey возвращает ключ упорядочивания события: id пользователя.
// События одного пользователя должны обрабатываться по одному в порядке
// поступления, иначе шаги мастера перемешаются. Для неразбираемого тела
// возвращает пустую строку.
func UpdateKey(body []byte) string {
	var k struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal(body, &k); err != nil {
		return ""
	}
	return strconv.FormatInt(k.UserID, 10)
}

// OutgoingKind — вид исходящего сообщения.
type OutgoingKind string

const (
	OutgoingMessage        OutgoingKind = "message"
	OutgoingInvoice        OutgoingKind = "invoice"
	OutgoingPreCheckout    OutgoingKind = "pre_checkout_answer"
	OutgoingCallbackAnswer OutgoingKind = "callback_answer"
)

// Button — кнопка встроенной клавиатуры: с данными обратного вызова или ссылкой.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// PreCheckoutAnswer — ответ на предварительный запрос оплаты.
type PreCheckoutAnswer struct {
	QueryID string `json:"query_id"`
	OK      bool   `json:"ok"`
}

// Outgoing — команда транспорту: отправить или отредактировать сообщение,
// выставить счёт, ответить на запрос.
type Outgoing struct {
	ID            string             `json:"id"`
	Kind          OutgoingKind       `json:"kind"`
	ChatID        int64              `json:"chat_id"`
	EditMessageID int64              `json:"edit_message_id,omitempty"`
	Text          string             `json:"text,omitempty"`
	ParseMode     string             `json:"parse_mode,omitempty"`
	ImageRef      string             `json:"image_ref,omitempty"`
	Keyboard      [][]Button         `json:"keyboard,omitempty"`
	CallbackID    string             `json:"callback_id,omitempty"`
	Invoice       *models.Invoice    `json:"invoice,omitempty"`
	ProviderToken string             `json:"provider_token,omitempty"`
	PreCheckout   *PreCheckoutAnswer `json:"pre_checkout,omitempty"`
}

func newOutgoing(kind OutgoingKind, chatID int64) Outgoing {
	return Outgoing{ID: uuid.NewString(), Kind: kind, ChatID: chatID}
}

// message строит текстовое сообщение. Если editID не ноль, транспорт редактирует его.
func message(chatID, editID int64, text string, keyboard [][]Button) Outgoing {
	o := newOutgoing(OutgoingMessage, chatID)
	o.EditMessageID = editID
	o.Text = text
	o.ParseMode = "HTML"
	o.Keyboard = keyboard
	return o
}
