package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/ad/go-telegram-buttons/internal/db"
	"github.com/ad/go-telegram-buttons/internal/keyboards"
	"github.com/ad/go-telegram-buttons/internal/models"
	"github.com/ad/go-telegram-buttons/internal/services"
)

// messageChunkSize is Telegram's maximum message length.
const messageChunkSize = 4096

// ComposerHandler adapts raw Telegram updates into composer operations.
// It owns callback parsing, forwarded-button extraction and the /invite
// admin report; everything stateful lives in the composer.
type ComposerHandler struct {
	tg       services.TelegramClient
	composer *services.Composer
	invites  *db.InviteLinkRepository
	adminID  int64
}

func NewComposerHandler(tg services.TelegramClient, composer *services.Composer, invites *db.InviteLinkRepository, adminID int64) *ComposerHandler {
	return &ComposerHandler{
		tg:       tg,
		composer: composer,
		invites:  invites,
		adminID:  adminID,
	}
}

func (h *ComposerHandler) HandleCommand(ctx context.Context, msg *tgmodels.Message) bool {
	if msg.Chat.Type != tgmodels.ChatTypePrivate || msg.From == nil {
		return false
	}

	switch strings.TrimSpace(msg.Text) {
	case "/start":
		h.send(ctx, msg.Chat.ID, "Send me a message (or forward one) and I will help you attach URL buttons to it.")
		return true
	case "/invite":
		h.handleInviteCommand(ctx, msg.From.ID, msg.Chat.ID)
		return true
	default:
		return false
	}
}

func (h *ComposerHandler) HandleMessage(ctx context.Context, msg *tgmodels.Message) bool {
	if msg.Chat.Type != tgmodels.ChatTypePrivate || msg.From == nil {
		return false
	}
	if strings.HasPrefix(msg.Text, "/") {
		return false
	}

	in := buildIncoming(msg)
	if err := h.composer.HandleFreeText(ctx, in); err != nil {
		log.Printf("[COMPOSER_HANDLER] Free text from %d: %v", msg.From.ID, err)
	}
	return true
}

func (h *ComposerHandler) HandleCallback(ctx context.Context, callback *tgmodels.CallbackQuery) bool {
	msg := callback.Message.Message
	if msg == nil || msg.Chat.Type != tgmodels.ChatTypePrivate {
		return false
	}

	h.tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	})

	sessionID, action, args, ok := parseCallback(callback.Data)
	if !ok {
		// Malformed payloads are no-ops by contract.
		return false
	}
	ownerID := msg.Chat.ID

	var err error
	switch action {
	case keyboards.ActionAddToRow:
		if len(args) < 1 {
			return false
		}
		rowIndex, convErr := strconv.Atoi(args[0])
		if convErr != nil {
			return false
		}
		err = h.composer.AddToRow(ctx, ownerID, sessionID, rowIndex)
	case keyboards.ActionNewRow:
		err = h.composer.NewRow(ctx, ownerID, sessionID)
	case keyboards.ActionDone:
		err = h.composer.Done(ctx, ownerID, sessionID)
	case keyboards.ActionPost:
		err = h.composer.StartPost(ctx, ownerID, sessionID)
	case keyboards.ActionPostConfirm:
		if len(args) < 1 {
			return false
		}
		switch args[0] {
		case "yes":
			if len(args) < 2 {
				return false
			}
			dest, convErr := strconv.ParseInt(args[1], 10, 64)
			if convErr != nil {
				return false
			}
			err = h.composer.ConfirmPost(ctx, ownerID, sessionID, true, dest)
		case "no":
			err = h.composer.ConfirmPost(ctx, ownerID, sessionID, false, 0)
		default:
			return false
		}
	default:
		return false
	}

	if err != nil {
		log.Printf("[COMPOSER_HANDLER] Callback %q from %d: %v", callback.Data, callback.From.ID, err)
	}
	return true
}

func (h *ComposerHandler) HandleInlineQuery(ctx context.Context, query *tgmodels.InlineQuery) bool {
	if query.From == nil {
		return false
	}
	if !strings.HasPrefix(query.Query, keyboards.SharePrefix) {
		return false
	}
	if err := h.composer.InlineShare(ctx, query.From.ID, query.ID, query.Query); err != nil {
		log.Printf("[COMPOSER_HANDLER] Inline query from %d: %v", query.From.ID, err)
	}
	return true
}

func (h *ComposerHandler) handleInviteCommand(ctx context.Context, userID, chatID int64) {
	if h.adminID == 0 || userID != h.adminID {
		h.send(ctx, chatID, "You are not authorized to use this command.")
		return
	}

	links, err := h.invites.GetAll()
	if err != nil {
		log.Printf("[COMPOSER_HANDLER] Failed to load invite links: %v", err)
		h.send(ctx, chatID, "Failed to load invite links.")
		return
	}
	if len(links) == 0 {
		h.send(ctx, chatID, "No invite links have been created yet.")
		return
	}

	var sb strings.Builder
	for _, link := range links {
		fmt.Fprintf(&sb, "Channel/Group: %s\nInvite Link: %s\n\n", link.Title, link.Link)
	}
	for _, chunk := range splitText(sb.String(), messageChunkSize) {
		h.send(ctx, chatID, chunk)
	}
}

func (h *ComposerHandler) send(ctx context.Context, chatID int64, text string) {
	_, err := h.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		log.Printf("[COMPOSER_HANDLER] Failed to send to %d: %v", chatID, err)
	}
}

// parseCallback splits "session:<session_id>:<action>[:extra...]". Anything
// shorter than three fields, or with the wrong prefix, is not ours.
func parseCallback(data string) (sessionID, action string, args []string, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || parts[0] != keyboards.CallbackPrefix {
		return "", "", nil, false
	}
	return parts[1], parts[2], parts[3:], true
}

// buildIncoming lifts a private-chat message into the composer's input,
// extracting any URL buttons a forwarded message carried.
func buildIncoming(msg *tgmodels.Message) services.IncomingMessage {
	content := msg.Text
	isMedia := msg.Text == ""
	if isMedia {
		content = msg.Caption
	}
	return services.IncomingMessage{
		ChatID:          msg.Chat.ID,
		UserID:          msg.From.ID,
		MessageID:       msg.ID,
		Text:            msg.Text,
		Content:         content,
		IsMedia:         isMedia,
		ForwardedChatID: forwardedChatID(msg),
		ExtractedRows:   extractButtonRows(msg),
	}
}

// forwardedChatID returns the origin chat of a forwarded message, or 0.
func forwardedChatID(msg *tgmodels.Message) int64 {
	origin := msg.ForwardOrigin
	if origin == nil {
		return 0
	}
	switch origin.Type {
	case tgmodels.MessageOriginTypeChannel:
		if origin.MessageOriginChannel != nil {
			return origin.MessageOriginChannel.Chat.ID
		}
	case tgmodels.MessageOriginTypeChat:
		if origin.MessageOriginChat != nil {
			return origin.MessageOriginChat.SenderChat.ID
		}
	}
	return 0
}

// extractButtonRows keeps only the URL buttons of a message's inline
// keyboard, preserving row structure and dropping rows left empty.
func extractButtonRows(msg *tgmodels.Message) [][]models.Button {
	if msg.ReplyMarkup == nil || len(msg.ReplyMarkup.InlineKeyboard) == 0 {
		return nil
	}
	var rows [][]models.Button
	for _, row := range msg.ReplyMarkup.InlineKeyboard {
		var buttons []models.Button
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, models.Button{Label: btn.Text, URL: btn.URL})
			}
		}
		if len(buttons) > 0 {
			rows = append(rows, buttons)
		}
	}
	return rows
}

// splitText chunks text at Telegram's message length limit. The limit
// counts characters, not bytes, so chunking walks runes.
func splitText(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > size {
		chunks = append(chunks, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
