package keyboards

import (
	"fmt"

	tgmodels "github.com/go-telegram/bot/models"

	"github.com/ad/go-telegram-buttons/internal/models"
)

// Callback data uses the format "session:<session_id>:<action>[:extra...]".
const (
	CallbackPrefix = "session"

	ActionAddToRow    = "add_to_row"
	ActionNewRow      = "new_row"
	ActionDone        = "done"
	ActionPost        = "post"
	ActionPostConfirm = "post_confirm"

	// SharePrefix starts the inline query pre-filled by the Share button.
	SharePrefix = "share_"
)

// Editing builds the editable grid: every existing row with a trailing "+"
// for that row, one row with a "+" that opens a new row, and a "Done" row
// once at least one button exists. Pure function of the session snapshot.
func Editing(s *models.Session) *tgmodels.InlineKeyboardMarkup {
	keyboard := make([][]tgmodels.InlineKeyboardButton, 0, len(s.ButtonRows)+2)
	for i, row := range s.ButtonRows {
		buttons := make([]tgmodels.InlineKeyboardButton, 0, len(row)+1)
		for _, btn := range row {
			buttons = append(buttons, tgmodels.InlineKeyboardButton{Text: btn.Label, URL: btn.URL})
		}
		buttons = append(buttons, tgmodels.InlineKeyboardButton{
			Text:         "+",
			CallbackData: fmt.Sprintf("%s:%s:%s:%d", CallbackPrefix, s.ID, ActionAddToRow, i),
		})
		keyboard = append(keyboard, buttons)
	}
	keyboard = append(keyboard, []tgmodels.InlineKeyboardButton{{
		Text:         "+",
		CallbackData: fmt.Sprintf("%s:%s:%s", CallbackPrefix, s.ID, ActionNewRow),
	}})
	if s.HasButtons() {
		keyboard = append(keyboard, []tgmodels.InlineKeyboardButton{{
			Text:         "Done ✅",
			CallbackData: fmt.Sprintf("%s:%s:%s", CallbackPrefix, s.ID, ActionDone),
		}})
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// Final builds exactly the session's button rows with no editing controls.
func Final(s *models.Session) *tgmodels.InlineKeyboardMarkup {
	keyboard := make([][]tgmodels.InlineKeyboardButton, 0, len(s.ButtonRows))
	for _, row := range s.ButtonRows {
		buttons := make([]tgmodels.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgmodels.InlineKeyboardButton{Text: btn.Label, URL: btn.URL})
		}
		keyboard = append(keyboard, buttons)
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}

// SharePost builds the two-row follow-up keyboard: a Share button that
// pre-fills an inline query with the session's share token, and a post
// trigger.
func SharePost(s *models.Session) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{
				Text:              "Share",
				SwitchInlineQuery: SharePrefix + s.ID,
			}},
			{{
				Text:         "Post To Group/Channel",
				CallbackData: fmt.Sprintf("%s:%s:%s", CallbackPrefix, s.ID, ActionPost),
			}},
		},
	}
}

// Confirm builds the Yes/No keyboard for posting into dest. Yes carries the
// destination id so the confirmation callback is self-contained.
func Confirm(s *models.Session, dest int64) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{
				Text:         "Yes",
				CallbackData: fmt.Sprintf("%s:%s:%s:yes:%d", CallbackPrefix, s.ID, ActionPostConfirm, dest),
			},
			{
				Text:         "No",
				CallbackData: fmt.Sprintf("%s:%s:%s:no", CallbackPrefix, s.ID, ActionPostConfirm),
			},
		}},
	}
}
