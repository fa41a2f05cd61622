// Package handlers routes Telegram updates: commands, product photos,
// inline buttons and the Stars payment flow. Every pipeline failure is
// converted to one of three user-facing replies here; nothing
// propagates past the per-request boundary.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"snapsell-bot/internal/analysis"
	"snapsell-bot/internal/apierr"
	"snapsell-bot/internal/mediagroup"
	"snapsell-bot/internal/pipeline"
	"snapsell-bot/internal/store"
	"snapsell-bot/internal/telegram"
)

type Options struct {
	Telegram *telegram.Client
	Pipeline *pipeline.Generator
	Store    *store.Store
	Logger   *slog.Logger

	AdminID          int64
	BasicPriceStars  int
	ProPriceStars    int
	BasicGenerations int
	ProDurationDays  int
}

type Handler struct {
	tg       *telegram.Client
	pipeline *pipeline.Generator
	store    *store.Store
	logger   *slog.Logger

	adminID          int64
	basicPriceStars  int
	proPriceStars    int
	basicGenerations int
	proDurationDays  int

	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:               opts.Telegram,
		pipeline:         opts.Pipeline,
		store:            opts.Store,
		logger:           logger,
		adminID:          opts.AdminID,
		basicPriceStars:  opts.BasicPriceStars,
		proPriceStars:    opts.ProPriceStars,
		basicGenerations: opts.BasicGenerations,
		proDurationDays:  opts.ProDurationDays,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.PreCheckoutQuery != nil {
		return h.handlePreCheckout(update.PreCheckoutQuery)
	}

	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if err := h.store.EnsureAccount(userID, msg.From.UserName, msg.From.FirstName); err != nil {
		h.logger.Error("ensure account failed", "user_id", userID, "err", err)
	}

	switch {
	case msg.SuccessfulPayment != nil:
		return h.handleSuccessfulPayment(ctx, chatID, userID, msg.SuccessfulPayment)
	case msg.IsCommand():
		return h.handleCommand(chatID, userID, msg)
	case len(msg.Photo) > 0:
		return h.handlePhoto(ctx, chatID, userID, msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		return h.runGeneration(ctx, chatID, userID, msg.Document.FileID)
	case msg.Text != "":
		return h.handleText(chatID)
	}

	return nil
}

// HandleMediaGroup runs once per debounced album: one generation for
// the whole album, from its first photo.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if len(group.FileIDs) == 0 {
		return
	}
	if err := h.store.EnsureAccount(group.UserID, group.Username, group.FirstName); err != nil {
		h.logger.Error("ensure account failed", "user_id", group.UserID, "err", err)
	}
	if err := h.runGeneration(ctx, group.ChatID, group.UserID, group.FileIDs[0]); err != nil {
		h.logger.Error("media group generation failed", "user_id", group.UserID, "err", err)
	}
}

func (h *Handler) handleCommand(chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		usage, err := h.store.Usage(userID)
		if err != nil {
			h.logger.Error("usage lookup failed", "user_id", userID, "err", err)
		}
		freeLeft := h.store.FreeLimit() - usage.FreeUses
		if freeLeft < 0 {
			freeLeft = 0
		}
		kb := sendPhotoKeyboard()
		_, err = h.tg.SendMarkdown(chatID, welcomeText(freeLeft), &kb)
		return err
	case "help":
		_, err := h.tg.SendMarkdown(chatID, helpText(), nil)
		return err
	case "balance":
		usage, err := h.store.Usage(userID)
		if err != nil {
			return err
		}
		kb := buyKeyboard()
		_, err = h.tg.SendMarkdown(chatID, balanceText(usage, h.store.FreeLimit()), &kb)
		return err
	case "plans":
		return h.sendPlans(chatID)
	case "admin":
		if h.adminID == 0 || userID != h.adminID {
			_, err := h.tg.SendMarkdown(chatID, "❌ Неизвестная команда. Используйте /help.", nil)
			return err
		}
		st, err := h.store.Stats()
		if err != nil {
			return err
		}
		_, err = h.tg.SendMarkdown(chatID, statsText(st), nil)
		return err
	default:
		_, err := h.tg.SendMarkdown(chatID, "❌ Неизвестная команда. Используйте /help.", nil)
		return err
	}
}

func (h *Handler) handleText(chatID int64) error {
	kb := sendPhotoKeyboard()
	_, err := h.tg.SendMarkdown(chatID, textOnlyReply, &kb)
	return err
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	// Telegram lists photo sizes smallest first; take the largest.
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			FirstName:    msg.From.FirstName,
			MediaGroupID: msg.MediaGroupID,
			FileID:       photo.FileID,
		})
		return nil
	}

	return h.runGeneration(ctx, chatID, userID, photo.FileID)
}

func (h *Handler) runGeneration(ctx context.Context, chatID, userID int64, fileID string) error {
	h.tg.SendTyping(chatID)

	image, mimeType, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "user_id", userID, "err", err)
		_, err := h.tg.SendMarkdown(chatID, errDownload, nil)
		return err
	}

	statusID := 0
	onStage := func(stage pipeline.Stage) {
		text := analyzingStatus
		if stage == pipeline.StageRendering {
			text = renderingStatus
			h.tg.SendUploadingPhoto(chatID)
		}
		if statusID == 0 {
			statusID, _ = h.tg.SendMarkdown(chatID, text, nil)
		} else {
			_ = h.tg.EditMarkdown(chatID, statusID, text)
		}
	}

	res, err := h.pipeline.Run(ctx, pipeline.Request{
		UserID:   userID,
		Image:    image,
		MimeType: mimeType,
		OnStage:  onStage,
		Deliver: func(ctx context.Context, images []pipeline.SceneImage, _ analysis.ProductDescription) error {
			if statusID != 0 {
				_ = h.tg.DeleteMessage(chatID, statusID)
				statusID = 0
			}

			album := make([]telegram.AlbumPhoto, 0, len(images))
			for i, img := range images {
				caption := ""
				if i == 0 {
					caption = img.Scene.Emoji + " *" + img.Scene.Name + "*"
				}
				album = append(album, telegram.AlbumPhoto{
					Name:    img.Scene.Key + ".jpg",
					Data:    img.Data,
					Caption: caption,
				})
			}
			return h.tg.SendAlbum(chatID, album)
		},
	})
	if err != nil {
		return h.reportGenerationError(chatID, userID, statusID, err)
	}

	kb := successKeyboard()
	_, err = h.tg.SendMarkdown(chatID, successText+h.successFooter(res.Usage), &kb)
	return err
}

// reportGenerationError maps a pipeline failure onto its user-facing
// reply. The paywall is not an error to the user, it gets the plans
// menu.
func (h *Handler) reportGenerationError(chatID, userID int64, statusID int, err error) error {
	if errors.Is(err, pipeline.ErrQuotaExhausted) {
		if statusID != 0 {
			_ = h.tg.DeleteMessage(chatID, statusID)
		}
		kb := buyKeyboard()
		_, sendErr := h.tg.SendMarkdown(chatID, paywallText, &kb)
		return sendErr
	}

	text := errInternal
	var malformed *apierr.MalformedResponseError
	var external *apierr.ExternalServiceError
	switch {
	case errors.As(err, &malformed):
		text = errUnrecognized
	case errors.As(err, &external):
		text = errExternalService
	}

	h.logger.Error("generation failed", "user_id", userID, "err", err)

	if statusID != 0 {
		return h.tg.EditText(chatID, statusID, text)
	}
	_, sendErr := h.tg.SendMarkdown(chatID, text, nil)
	return sendErr
}

func (h *Handler) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	h.tg.AnswerCallback(query.ID)

	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	data := query.Data
	switch {
	case data == "send_photo":
		_, err := h.tg.SendMarkdown(chatID, sendPhotoPrompt, nil)
		return err
	case data == "show_plans":
		return h.sendPlans(chatID)
	case strings.HasPrefix(data, "buy_"):
		plan := store.Plan(strings.TrimPrefix(data, "buy_"))
		if plan != store.PlanBasic && plan != store.PlanPro {
			return nil
		}
		return h.sendPlanInvoice(chatID, userID, plan)
	}

	return nil
}

func (h *Handler) sendPlans(chatID int64) error {
	kb := h.plansKeyboard()
	_, err := h.tg.SendMarkdown(chatID, h.plansText(), &kb)
	return err
}

func sendPhotoKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📸 Загрузить фото товара", "send_photo"),
		),
	)
}

func buyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Купить генерации", "show_plans"),
		),
	)
}

func successKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📸 Новый товар", "send_photo"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Купить генерации", "show_plans"),
		),
	)
}

func (h *Handler) plansKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💎 Базовый — %d ⭐", h.basicPriceStars), "buy_basic"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🚀 PRO — %d ⭐", h.proPriceStars), "buy_pro"),
		),
	)
}
