package usecase

import "fmt"

// Customer-facing texts. The audience writes in Russian, so the catalog does
// too; code and identifiers stay English.
const (
	msgWelcome = "Здравствуйте! Я помогу подобрать квартиру посуточно. " +
		"Напишите даты заезда и выезда и количество гостей, и я пришлю свободные варианты."

	msgDeposit = "Обратите внимание: помимо стоимости проживания удерживается возвратный депозит 10000тг. " +
		"Он возвращается при выезде, если квартира в порядке."

	msgKaspiInstructions = "Оплатить можно переводом на Kaspi по номеру +7 777 777 77 77 (Золотая корона). " +
		"В комментарии к переводу ничего указывать не нужно."

	msgKaspiConsentQuestion = "Можете ли провести оплату по каспи?"
	msgNotifyAfterPayment   = "И после оплаты прошу уведомите нас об оплате 😊"
	msgCreatingBooking      = "Отлично, сейчас создам бронь"
	msgManagerWillContact   = "В скором времени с вами свяжется менеджер"
	msgNoAvailabilityFixed  = "Здравствуйте, к сожалению в данный момент нет свободных квартир."
	msgBookingConfirmed     = "Вы успешно забронировали, в день заселения мы отправим вам инструкцию"

	msgPaymentNotFound = "Мы не смогли найти вашу оплату, напишите номер телефона в формате " +
		"'+7 777 777 77 77' по которому провели оплату"
	msgBookingNotFoundAskPhone = "К сожалению мы не смогли найти вашу бронь. Отправьте номер в формате " +
		"'+7 777 777 77 77' по которому забронировали квартиру, чтобы мы могли проверить"
	msgBookingNotFoundFinal = "К сожалению мы не смогли найти вашу бронь, пожалуйста, проверьте номер телефона " +
		"или свяжитесь с менеджером"
	msgInstructionNotFound = "К сожалению мы не смогли найти инструкцию по этой квартире, с вами свяжется менеджер"
	msgInvalidPhone        = "Пожалуйста, укажите корректный номер телефона"
	msgInvalidChoice       = "Неверный номер квартиры"

	msgExpireWarning = "Ваша бронь будет удалена через 5 минут, если вы не подтвердите оплату."
	msgBookingPurged = "Ваша бронь была удалена из-за отсутствия ответа."

	msgApology         = "Извините, у меня возникли проблемы с обработкой вашего запроса. Попробуйте еще раз позже."
	msgGenericAck      = "Я понял ваш запрос. Обрабатываю..."
	msgDidNotSee       = "Извините, я не понял ваш запрос. Уточните, пожалуйста!"
	alternateOriginTag = "пишу из приложения 2гис."
)

func msgStayTotal(sum int64) string {
	return fmt.Sprintf("Стоимость проживания %d + депозит", sum)
}

func msgCandidatesLink(checkIn, checkOut string, count int, url string) string {
	return fmt.Sprintf("С %s по %s подобрано вариантов: %d. Для просмотра перейдите по ссылке: %s",
		checkIn, checkOut, count, url)
}

func msgNoCandidates(checkIn, checkOut string) string {
	return fmt.Sprintf("С %s по %s нет свободных квартир", checkIn, checkOut)
}

func msgConfirmApartment(amount int64) string {
	return fmt.Sprintf("Вам номер за %d, да?", amount)
}

func msgPartialPayment(remaining int64) string {
	return fmt.Sprintf("К сожалению вы отправили не полную сумму, вы можете еще раз пройти по ссылке "+
		"и оплатить оставшуюся сумму (%d). После оплаты напишите слово 'Оплатил'", remaining)
}

func escalateCannotPay(name, phone string) string {
	if name == "" {
		name = "Неизвестный"
	}
	return fmt.Sprintf("Клиенту %s с номером '%s' нужно написать, не может оплатить по каспи", name, phone)
}

func escalateUnclearChoice(name, phone string) string {
	return fmt.Sprintf("Клиенту %s с номером '%s' нужно написать, не можем понять какая квартира нужна wa.me//+%s",
		name, phone, phone)
}

func escalateContact(name, phone string) string {
	return fmt.Sprintf("Клиенту %s с номером '%s' нужно написать wa.me//+%s", name, phone, phone)
}
