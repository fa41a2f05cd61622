package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"snapsell-bot/internal/store"
)

// starsCurrency is the Telegram Stars currency code; invoices in it
// carry an empty provider token.
const starsCurrency = "XTR"

func (h *Handler) sendPlanInvoice(chatID, userID int64, plan store.Plan) error {
	payload := planPayload(plan, userID)

	switch plan {
	case store.PlanBasic:
		return h.tg.SendInvoice(chatID,
			"SnapSell Базовый",
			fmt.Sprintf("%d генераций профессиональных фото", h.basicGenerations),
			payload,
			starsCurrency,
			[]tgbotapi.LabeledPrice{{Label: fmt.Sprintf("%d генераций", h.basicGenerations), Amount: h.basicPriceStars}},
		)
	case store.PlanPro:
		return h.tg.SendInvoice(chatID,
			"SnapSell PRO",
			fmt.Sprintf("Безлимитные генерации на %d дней", h.proDurationDays),
			payload,
			starsCurrency,
			[]tgbotapi.LabeledPrice{{Label: fmt.Sprintf("PRO на %d дней", h.proDurationDays), Amount: h.proPriceStars}},
		)
	default:
		return fmt.Errorf("no invoice for plan %q", plan)
	}
}

func planPayload(plan store.Plan, userID int64) string {
	return fmt.Sprintf("plan_%s_%d", plan, userID)
}

// parsePlanPayload reverses planPayload: "plan_basic_123" -> (basic,
// 123, true).
func parsePlanPayload(payload string) (store.Plan, int64, bool) {
	parts := strings.Split(strings.TrimSpace(payload), "_")
	if len(parts) != 3 || parts[0] != "plan" {
		return "", 0, false
	}

	plan := store.Plan(parts[1])
	if plan != store.PlanBasic && plan != store.PlanPro {
		return "", 0, false
	}

	userID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return plan, userID, true
}

func (h *Handler) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) error {
	_, _, ok := parsePlanPayload(query.InvoicePayload)
	errMessage := ""
	if !ok {
		errMessage = "Некорректный платёж"
	}
	return h.tg.AnswerPreCheckout(query.ID, ok, errMessage)
}

func (h *Handler) handleSuccessfulPayment(ctx context.Context, chatID, userID int64, payment *tgbotapi.SuccessfulPayment) error {
	plan, _, ok := parsePlanPayload(payment.InvoicePayload)
	if !ok {
		h.logger.Warn("payment with unknown payload", "user_id", userID, "payload", payment.InvoicePayload)
		_, err := h.tg.SendMarkdown(chatID, "✅ Оплата получена!", nil)
		return err
	}

	var text string
	switch plan {
	case store.PlanBasic:
		if err := h.store.GrantPlan(userID, store.PlanBasic, h.basicGenerations, 0); err != nil {
			return fmt.Errorf("grant basic: %w", err)
		}
		text = fmt.Sprintf("✅ *Оплата прошла!* Вам зачислено *%d генераций*.\nОтправьте фото товара!", h.basicGenerations)
	case store.PlanPro:
		if err := h.store.GrantPlan(userID, store.PlanPro, 0, h.proDurationDays); err != nil {
			return fmt.Errorf("grant pro: %w", err)
		}
		text = fmt.Sprintf("✅ *PRO активирован!* У вас безлимитные генерации на %d дней.\nОтправьте фото товара!", h.proDurationDays)
	}

	h.logger.Info("plan purchased", "user_id", userID, "plan", plan, "amount", payment.TotalAmount, "currency", payment.Currency)
	_, err := h.tg.SendMarkdown(chatID, text, nil)
	return err
}
