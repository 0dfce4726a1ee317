package services

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// TelegramClient is the slice of the Bot API the composer depends on.
// *bot.Bot satisfies it directly; tests substitute a fake. Every call is
// treated as fallible and slow.
type TelegramClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*tgmodels.MessageID, error)
	CreateChatInviteLink(ctx context.Context, params *bot.CreateChatInviteLinkParams) (*tgmodels.ChatInviteLink, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*tgmodels.ChatFullInfo, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error)
	AnswerInlineQuery(ctx context.Context, params *bot.AnswerInlineQueryParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}
