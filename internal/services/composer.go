package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/ad/go-telegram-buttons/internal/db"
	"github.com/ad/go-telegram-buttons/internal/keyboards"
	"github.com/ad/go-telegram-buttons/internal/models"
	"github.com/ad/go-telegram-buttons/internal/session"
)

// IncomingMessage carries the parts of a private-chat message the composer
// cares about. The handler layer fills it from a Telegram update, including
// URL buttons extracted from a forwarded message's keyboard.
type IncomingMessage struct {
	ChatID          int64
	UserID          int64
	MessageID       int
	Text            string
	Content         string
	IsMedia         bool
	ForwardedChatID int64
	ExtractedRows   [][]models.Button
}

// Composer drives the per-user composition state machine: it owns every
// session mutation and asks the keyboard builders and the Telegram client
// for everything else.
type Composer struct {
	tg      TelegramClient
	store   *session.Store
	invites *db.InviteLinkRepository
}

func NewComposer(tg TelegramClient, store *session.Store, invites *db.InviteLinkRepository) *Composer {
	return &Composer{
		tg:      tg,
		store:   store,
		invites: invites,
	}
}

// NewComposable starts a fresh session for the message described by in and
// renders it back with the editing keyboard. A user may hold any number of
// open sessions; new ones never merge with or replace existing ones.
func (c *Composer) NewComposable(ctx context.Context, in IncomingMessage) (*models.Session, error) {
	s := models.NewSession(in.ChatID, in.Content, in.IsMedia, in.MessageID, in.ExtractedRows)
	c.store.Put(in.ChatID, s)

	sent, err := c.tg.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:      in.ChatID,
		FromChatID:  in.ChatID,
		MessageID:   in.MessageID,
		ReplyMarkup: keyboards.Editing(s),
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to render new session %s: %v", s.ID, err)
		c.notify(ctx, in.ChatID, fmt.Sprintf("Failed to render message: %v", err))
		return s, &TransportError{Op: "copyMessage", Err: err}
	}
	s.LastRenderedMessageID = sent.ID
	return s, nil
}

// AddToRow asks the owner for a new button to append to an existing row.
func (c *Composer) AddToRow(ctx context.Context, ownerID int64, sessionID string, rowIndex int) error {
	return c.promptButtonInput(ctx, ownerID, sessionID, rowIndex)
}

// NewRow asks the owner for the first button of a brand-new row.
func (c *Composer) NewRow(ctx context.Context, ownerID int64, sessionID string) error {
	s, ok := c.store.Get(ownerID, sessionID)
	if !ok {
		c.notify(ctx, ownerID, "Session not found.")
		return ErrSessionNotFound
	}
	return c.promptButtonInput(ctx, ownerID, sessionID, len(s.ButtonRows))
}

func (c *Composer) promptButtonInput(ctx context.Context, ownerID int64, sessionID string, targetRow int) error {
	s, ok := c.store.Get(ownerID, sessionID)
	if !ok {
		c.notify(ctx, ownerID, "Session not found.")
		return ErrSessionNotFound
	}

	s.Pending = models.PendingInput{Kind: models.PendingButtonLabel, TargetRow: targetRow}
	c.store.SetAwaitingLabel(ownerID, sessionID)

	c.notify(ctx, s.OwnerChatID, "Please send button info in format: <label> <URL>")
	return nil
}

// Done finalizes the composition: a non-editable render of the grid followed
// by the Share / Post follow-up. The session stays alive so Share and Post
// can still reference it.
func (c *Composer) Done(ctx context.Context, ownerID int64, sessionID string) error {
	s, ok := c.store.Get(ownerID, sessionID)
	if !ok {
		c.notify(ctx, ownerID, "Session not found.")
		return ErrSessionNotFound
	}
	if !s.HasButtons() {
		c.notify(ctx, s.OwnerChatID, "No URL buttons created yet.")
		return nil
	}

	sent, err := c.tg.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:      s.OwnerChatID,
		FromChatID:  s.OwnerChatID,
		MessageID:   s.SourceMessageID,
		ReplyMarkup: keyboards.Final(s),
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to render final message for %s: %v", s.ID, err)
		c.notify(ctx, s.OwnerChatID, fmt.Sprintf("Failed to render final message: %v", err))
		return &TransportError{Op: "copyMessage", Err: err}
	}
	s.FinalMessageID = sent.ID

	_, err = c.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      s.OwnerChatID,
		Text:        "You can share it or post it to a group/channel.",
		ReplyMarkup: keyboards.SharePost(s),
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to send share/post prompt for %s: %v", s.ID, err)
		return &TransportError{Op: "sendMessage", Err: err}
	}
	return nil
}

// StartPost begins the cross-posting flow by asking for a destination.
func (c *Composer) StartPost(ctx context.Context, ownerID int64, sessionID string) error {
	s, ok := c.store.Get(ownerID, sessionID)
	if !ok {
		c.notify(ctx, ownerID, "Session not found.")
		return ErrSessionNotFound
	}

	s.Post = models.PostState{Kind: models.PostAwaitingDestination}
	c.store.SetAwaitingPost(ownerID, sessionID)

	c.notify(ctx, s.OwnerChatID, "Please send the channel/group ID or forward a message from that channel/group.")
	return nil
}

// ConfirmPost finishes the flow. On approval it copies the finalized message
// into dest, notifies the owner, and records an invite link; any failure is
// reported in place and never blocks cleanup. The session is removed on
// approval and decline alike.
func (c *Composer) ConfirmPost(ctx context.Context, ownerID int64, sessionID string, approve bool, dest int64) error {
	s, ok := c.store.Get(ownerID, sessionID)
	if !ok {
		c.notify(ctx, ownerID, "Session not found.")
		return ErrSessionNotFound
	}

	if !approve {
		s.Post = models.PostState{Kind: models.PostCancelled}
		c.store.Delete(ownerID, sessionID)
		c.notify(ctx, s.OwnerChatID, "Posting cancelled.")
		return nil
	}

	if s.Post.Kind != models.PostAwaitingConfirmation || s.Post.Destination != dest {
		// Stale or forged confirmation payload; nothing to do.
		log.Printf("[COMPOSER] Ignoring confirm for %s: state=%d dest=%d", s.ID, s.Post.Kind, dest)
		return nil
	}

	err := c.publish(ctx, s, dest)
	if err != nil {
		c.notify(ctx, s.OwnerChatID, fmt.Sprintf("Failed to post message: %v", err))
	} else {
		s.Post = models.PostState{Kind: models.PostPosted, Destination: dest}
	}
	// Cleanup happens whether publishing worked or not.
	c.store.Delete(ownerID, sessionID)
	return err
}

func (c *Composer) publish(ctx context.Context, s *models.Session, dest int64) error {
	_, err := c.tg.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:      dest,
		FromChatID:  s.OwnerChatID,
		MessageID:   s.SourceMessageID,
		ReplyMarkup: keyboards.Final(s),
	})
	if err != nil {
		return &TransportError{Op: "copyMessage", Err: err}
	}

	c.notify(ctx, s.OwnerChatID, "Message posted successfully!")

	invite, err := c.tg.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{ChatID: dest})
	if err != nil {
		return &TransportError{Op: "createChatInviteLink", Err: err}
	}

	title := "Unknown Title"
	chat, err := c.tg.GetChat(ctx, &bot.GetChatParams{ChatID: dest})
	if err != nil {
		return &TransportError{Op: "getChat", Err: err}
	}
	if chat.Title != "" {
		title = chat.Title
	}

	if c.invites != nil {
		record := &models.InviteLink{ChatID: dest, Title: title, Link: invite.InviteLink}
		if err := c.invites.Save(record); err != nil {
			log.Printf("[COMPOSER] Failed to save invite link for %d: %v", dest, err)
		}
	}
	return nil
}

// HandleFreeText routes a plain private-chat message by the owner's pending
// pointers: post destination first, then button input, else a new
// composition.
func (c *Composer) HandleFreeText(ctx context.Context, in IncomingMessage) error {
	if sessionID, ok := c.store.AwaitingPost(in.ChatID); ok {
		return c.handleDestinationInput(ctx, in, sessionID)
	}
	if sessionID, ok := c.store.AwaitingLabel(in.ChatID); ok {
		return c.handleButtonInput(ctx, in, sessionID)
	}
	_, err := c.NewComposable(ctx, in)
	return err
}

func (c *Composer) handleDestinationInput(ctx context.Context, in IncomingMessage, sessionID string) error {
	s, ok := c.store.Get(in.ChatID, sessionID)
	if !ok {
		c.store.ClearAwaitingPost(in.ChatID)
		log.Printf("[COMPOSER] Awaiting-post session %s vanished", sessionID)
		return ErrSessionNotFound
	}

	dest, err := resolveDestination(in)
	if err != nil {
		c.store.ClearAwaitingPost(in.ChatID)
		s.Post = models.PostState{Kind: models.PostNone}
		c.reply(ctx, in, "Invalid channel/group ID. It should be numeric.")
		return err
	}

	member, err := c.tg.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: dest,
		UserID: in.UserID,
	})
	if err != nil {
		c.store.ClearAwaitingPost(in.ChatID)
		s.Post = models.PostState{Kind: models.PostNone}
		c.reply(ctx, in, fmt.Sprintf("Error checking admin status: %v", err))
		return &TransportError{Op: "getChatMember", Err: err}
	}
	if !isChatAdmin(member) {
		c.store.ClearAwaitingPost(in.ChatID)
		s.Post = models.PostState{Kind: models.PostNone}
		c.reply(ctx, in, "You are not an admin in that channel/group.")
		return ErrPermissionDenied
	}

	s.Post = models.PostState{Kind: models.PostAwaitingConfirmation, Destination: dest}
	c.store.ClearAwaitingPost(in.ChatID)

	params := &bot.SendMessageParams{
		ChatID:      in.ChatID,
		Text:        fmt.Sprintf("Do you want to post the final message to channel/group %d?", dest),
		ReplyMarkup: keyboards.Confirm(s, dest),
	}
	if s.FinalMessageID > 0 {
		params.ReplyParameters = &tgmodels.ReplyParameters{MessageID: s.FinalMessageID}
	}
	if _, err := c.tg.SendMessage(ctx, params); err != nil {
		log.Printf("[COMPOSER] Failed to send confirmation prompt for %s: %v", s.ID, err)
		return &TransportError{Op: "sendMessage", Err: err}
	}
	return nil
}

func resolveDestination(in IncomingMessage) (int64, error) {
	if in.ForwardedChatID != 0 {
		return in.ForwardedChatID, nil
	}
	dest, err := strconv.ParseInt(strings.TrimSpace(in.Text), 10, 64)
	if err != nil {
		return 0, ErrInvalidDestination
	}
	return dest, nil
}

func isChatAdmin(member *tgmodels.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.Type == tgmodels.ChatMemberTypeOwner ||
		member.Type == tgmodels.ChatMemberTypeAdministrator
}

func (c *Composer) handleButtonInput(ctx context.Context, in IncomingMessage, sessionID string) error {
	s, ok := c.store.Get(in.ChatID, sessionID)
	if !ok {
		c.store.ClearAwaitingLabel(in.ChatID)
		log.Printf("[COMPOSER] Awaiting-label session %s vanished", sessionID)
		return ErrSessionNotFound
	}

	label, url, err := splitButtonInput(in.Text)
	if err != nil {
		// Pending state stays open so the user can retry.
		c.reply(ctx, in, "Invalid format. Please send in format: <label> <URL>")
		return err
	}
	if !models.IsValidButtonURL(url) {
		c.reply(ctx, in, "Invalid URL. It must start with http://, https:// or tg://")
		return ErrInvalidURL
	}

	if err := s.AddButton(s.Pending.TargetRow, models.Button{Label: label, URL: url}); err != nil {
		log.Printf("[COMPOSER] Failed to add button to %s: %v", s.ID, err)
		s.Pending = models.PendingInput{}
		c.store.ClearAwaitingLabel(in.ChatID)
		return err
	}
	s.Pending = models.PendingInput{}
	c.store.ClearAwaitingLabel(in.ChatID)

	sent, err := c.tg.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:      s.OwnerChatID,
		FromChatID:  s.OwnerChatID,
		MessageID:   s.SourceMessageID,
		ReplyMarkup: keyboards.Editing(s),
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to re-render session %s: %v", s.ID, err)
		c.reply(ctx, in, fmt.Sprintf("Failed to update message: %v", err))
		return &TransportError{Op: "copyMessage", Err: err}
	}
	s.LastRenderedMessageID = sent.ID

	c.reply(ctx, in, "Button added! Use the '+' buttons to add more or 'Done ✅' to finalize.")
	return nil
}

// splitButtonInput splits on the last whitespace boundary, so labels may
// contain spaces while the URL occupies the final token.
func splitButtonInput(text string) (label, url string, err error) {
	text = strings.TrimSpace(text)
	idx := strings.LastIndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return "", "", ErrInvalidFormat
	}
	label = strings.TrimSpace(text[:idx])
	url = strings.TrimSpace(text[idx+1:])
	if label == "" || url == "" {
		return "", "", ErrInvalidFormat
	}
	return label, url, nil
}

// InlineShare answers an inline query pre-filled by a Share button. Queries
// that do not carry the share prefix, or that reference a session the
// querying user does not own, are left unanswered by contract.
func (c *Composer) InlineShare(ctx context.Context, userID int64, queryID, query string) error {
	if !strings.HasPrefix(query, keyboards.SharePrefix) {
		return nil
	}
	sessionID := strings.TrimPrefix(query, keyboards.SharePrefix)
	s, ok := c.store.Get(userID, sessionID)
	if !ok {
		return nil
	}

	content := s.Content
	if content == "" {
		content = "No text content"
	}
	result := &tgmodels.InlineQueryResultArticle{
		ID:                  uuid.NewString(),
		Title:               "Share Final Message",
		Description:         "Tap to share the final post.",
		InputMessageContent: &tgmodels.InputTextMessageContent{MessageText: content},
		ReplyMarkup:         *keyboards.Final(s),
	}
	_, err := c.tg.AnswerInlineQuery(ctx, &bot.AnswerInlineQueryParams{
		InlineQueryID: queryID,
		Results:       []tgmodels.InlineQueryResult{result},
		CacheTime:     0,
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to answer inline query %s: %v", queryID, err)
		return &TransportError{Op: "answerInlineQuery", Err: err}
	}
	return nil
}

// notify sends a plain text message, logging delivery failures.
func (c *Composer) notify(ctx context.Context, chatID int64, text string) {
	_, err := c.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		log.Printf("[COMPOSER] Failed to notify chat %d: %v", chatID, err)
	}
}

// reply answers the user's own message, logging delivery failures.
func (c *Composer) reply(ctx context.Context, in IncomingMessage, text string) {
	params := &bot.SendMessageParams{
		ChatID: in.ChatID,
		Text:   text,
	}
	if in.MessageID > 0 {
		params.ReplyParameters = &tgmodels.ReplyParameters{MessageID: in.MessageID}
	}
	if _, err := c.tg.SendMessage(ctx, params); err != nil {
		log.Printf("[COMPOSER] Failed to reply in chat %d: %v", in.ChatID, err)
	}
}
