package handlers

import (
	"fmt"

	"snapsell-bot/internal/store"
)

const supportHandle = "@snapsell\\_support"

const sendPhotoPrompt = "📷 Пришлите фото вашего товара.\n\n" +
	"Советы для лучшего результата:\n" +
	"• Хорошее освещение\n" +
	"• Товар на нейтральном или однотонном фоне\n" +
	"• Чёткое изображение без размытия"

const (
	analyzingStatus = "🔍 *Шаг 1/2* — Анализирую товар..."
	renderingStatus = "🎨 *Шаг 2/2* — Генерирую изображения..."
)

const paywallText = "⭐ *Бесплатные попытки закончились*\n\n" +
	"Вы использовали все бесплатные генерации.\n" +
	"Выберите план, чтобы продолжить:"

const successText = "✅ *Готово! Ваши 4 фото для маркетплейса*\n\n" +
	"Нажмите на любое фото — оно откроется в полном размере.\n" +
	"Можно сразу загружать на Wildberries, Ozon, Avito и другие площадки."

const textOnlyReply = "📷 Пожалуйста, отправьте *фото товара* — текст не нужен!\n\n" +
	"Просто пришлите снимок, и я всё сделаю сам."

const (
	errExternalService = "❌ Ошибка при обращении к сервису генерации. Попробуйте позже или обратитесь в поддержку: " + supportHandle
	errUnrecognized    = "❌ Не удалось распознать товар на фото. Попробуйте другое фото с более чётким изображением товара."
	errInternal        = "❌ Что-то пошло не так. Попробуйте ещё раз или напишите в поддержку: " + supportHandle
	errDownload        = "❌ Не удалось загрузить фото. Попробуйте отправить его ещё раз."
)

func welcomeText(freeLeft int) string {
	return fmt.Sprintf("✦ *Добро пожаловать в SnapSell!*\n\n"+
		"Я превращаю фото вашего товара в 4 профессиональных снимка для маркетплейсов:\n\n"+
		"📸 *Витрина* — товар на красивом стенде\n"+
		"🧍 *Лайфстайл* — товар с человеком\n"+
		"🏠 *Интерьер* — товар в доме или офисе\n"+
		"🔍 *Крупный план* — детали и текстура\n\n"+
		"Просто *пришлите фото* вашего товара — никакого текста не нужно!\n\n"+
		"У вас *%d бесплатных генераций*.", freeLeft)
}

func helpText() string {
	return "📖 *Как пользоваться SnapSell:*\n\n" +
		"1. Отправьте фото вашего товара\n" +
		"2. Подождите ~30–60 секунд\n" +
		"3. Получите 4 профессиональных фото\n\n" +
		"*Команды:*\n" +
		"/start — Главное меню\n" +
		"/balance — Проверить баланс генераций\n" +
		"/plans — Тарифные планы\n" +
		"/help — Эта справка\n\n" +
		"📞 Поддержка: " + supportHandle
}

func balanceText(usage store.Usage, freeLimit int) string {
	switch usage.Plan {
	case store.PlanPro:
		return "⭐ *Тариф PRO* — безлимитные генерации"
	case store.PlanBasic:
		return fmt.Sprintf("💎 *Тариф Базовый* — осталось генераций: *%d*", usage.PaidLeft)
	default:
		freeLeft := freeLimit - usage.FreeUses
		if freeLeft < 0 {
			freeLeft = 0
		}
		return fmt.Sprintf("🆓 *Бесплатный план*\n"+
			"Использовано: %d / %d\n"+
			"Осталось: *%d*", usage.FreeUses, freeLimit, freeLeft)
	}
}

func (h *Handler) plansText() string {
	return fmt.Sprintf("💳 *Тарифные планы SnapSell*\n\n"+
		"🆓 *Бесплатно* — %d генерации\n\n"+
		"💎 *Базовый — %d ⭐ Звёзд*\n"+
		"  • %d генераций\n"+
		"  • Все 4 сцены\n"+
		"  • Скачивание в высоком качестве\n\n"+
		"🚀 *PRO — %d ⭐ Звёзд / мес*\n"+
		"  • Безлимитные генерации\n"+
		"  • Приоритетная обработка\n"+
		"  • Поддержка в чате\n\n"+
		"_1 ⭐ Telegram Star ≈ 0.013 USD_",
		h.store.FreeLimit(), h.basicPriceStars, h.basicGenerations, h.proPriceStars)
}

func (h *Handler) successFooter(usage store.Usage) string {
	switch usage.Plan {
	case store.PlanPro:
		return "\n\n🚀 PRO активен — генерируйте без ограничений"
	case store.PlanBasic:
		return fmt.Sprintf("\n\n💎 Осталось генераций: *%d*", usage.PaidLeft)
	default:
		freeLeft := h.store.FreeLimit() - usage.FreeUses
		if freeLeft < 0 {
			freeLeft = 0
		}
		return fmt.Sprintf("\n\n🆓 Осталось бесплатных генераций: *%d*", freeLeft)
	}
}

func statsText(st store.Stats) string {
	return fmt.Sprintf("📊 *Статистика SnapSell*\n\n"+
		"👥 Пользователей: *%d*\n"+
		"💳 Платящих: *%d*\n"+
		"🖼 Генераций всего: *%d*\n"+
		"📅 Генераций сегодня: *%d*",
		st.TotalUsers, st.PaidUsers, st.TotalGenerations, st.TodayGenerations)
}
