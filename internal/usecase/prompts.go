package usecase

import (
	"fmt"
	"time"

	"rental-booking-bot/internal/domain/model"
)

// The oracle tags every answer with an audience marker. "client" output is
// sent verbatim; "admin" output carries one JSON command object.
const systemPrompt = `Ты — менеджер посуточной аренды квартир. Отвечай кратко и вежливо на русском.

Каждый ответ помечай словом-маркером:
- "client" — если это готовый ответ клиенту, отправляемый как есть;
- "admin" — если это команда системе. Команда содержит один JSON-объект с полем "type":
  {"type": 1, "checkin": "YYYY-MM-DD", "checkout": "YYYY-MM-DD", "guests": N} — подбор квартир на даты;
  {"type": 3, "price": P} или {"type": 3, "choice": N} — клиент выбрал квартиру по цене или по номеру в списке;
  {"type": 4} — клиент сообщает что оплатил;
  {"type": 5} — клиент просит инструкцию по заселению;
  {"type": 7} — клиент забронировал квартиру на другой площадке (Airbnb, Booking и т.п.).

Если клиент пишет что уже забронировал квартиру на другой площадке, ответь "забронировал admin".`

// agreementPrompt classifies a free-text reply as agreement or not.
const agreementPrompt = `Клиенту задали вопрос, требующий согласия. Определи по его ответу, согласен ли он.
Ответь строго одной цифрой: 1 — согласен, 0 — не согласен или ответ неоднозначен.`

// dispatchPrompt appends conversation context: the stored booking window and
// today's date, so stale dates get re-asked rather than reused.
func dispatchPrompt(conv *model.Conversation, now time.Time) string {
	return fmt.Sprintf("%s\n\nДаты клиента: заезд %q, выезд %q, гостей %d. "+
		"Если даты раньше сегодняшнего дня, уточни на какие даты хочет заселиться клиент. Сегодня %s.",
		systemPrompt, conv.Window.CheckIn, conv.Window.CheckOut, conv.Window.Guests,
		now.Format("2006-01-02"))
}
