package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Button is a single URL button in a composition grid.
type Button struct {
	Label string
	URL   string
}

// PendingInputKind tags what kind of free-text input a session expects next.
type PendingInputKind int

const (
	PendingNone PendingInputKind = iota
	PendingButtonLabel
)

// PendingInput records the expectation that the owner's next free-text
// message carries structured input. TargetRow is meaningful only for
// PendingButtonLabel: an existing row index appends to that row, a value
// equal to the current row count opens a new row.
type PendingInput struct {
	Kind      PendingInputKind
	TargetRow int
}

// PostStateKind tags where a session is in the cross-posting flow.
type PostStateKind int

const (
	PostNone PostStateKind = iota
	PostAwaitingDestination
	PostAwaitingConfirmation
	PostPosted
	PostCancelled
)

// PostState tracks the cross-posting sub-flow. Destination is set once the
// admin check for it has passed.
type PostState struct {
	Kind        PostStateKind
	Destination int64
}

// Session is one in-progress (or finalized) message composition owned by a
// single user. Content is immutable after creation; ButtonRows only grows,
// and never holds a URL outside the scheme whitelist.
type Session struct {
	ID                    string
	OwnerChatID           int64
	Content               string
	IsMedia               bool
	ButtonRows            [][]Button
	Pending               PendingInput
	SourceMessageID       int
	LastRenderedMessageID int
	FinalMessageID        int
	Post                  PostState
}

// NewSession creates a session with a fresh id. rows may carry URL buttons
// extracted from a forwarded message; invalid URLs are the caller's problem
// to filter before this point.
func NewSession(ownerChatID int64, content string, isMedia bool, sourceMessageID int, rows [][]Button) *Session {
	return &Session{
		ID:              newSessionID(sourceMessageID),
		OwnerChatID:     ownerChatID,
		Content:         content,
		IsMedia:         isMedia,
		ButtonRows:      rows,
		SourceMessageID: sourceMessageID,
	}
}

// newSessionID builds an id from the source message id plus a short random
// suffix, so ids stay unique even when Telegram reuses message ids across
// chats.
func newSessionID(messageID int) string {
	u := uuid.New()
	return fmt.Sprintf("%d_%s", messageID, hex.EncodeToString(u[:])[:6])
}

// IsValidButtonURL reports whether url uses one of the allowed schemes.
func IsValidButtonURL(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "tg://")
}

// AddButton appends btn to the row at targetRow, or opens a new row when
// targetRow equals the current row count. The URL whitelist is enforced here
// so an invalid URL can never enter the grid.
func (s *Session) AddButton(targetRow int, btn Button) error {
	if !IsValidButtonURL(btn.URL) {
		return fmt.Errorf("invalid button url %q", btn.URL)
	}
	switch {
	case targetRow == len(s.ButtonRows):
		s.ButtonRows = append(s.ButtonRows, []Button{btn})
	case targetRow >= 0 && targetRow < len(s.ButtonRows):
		s.ButtonRows[targetRow] = append(s.ButtonRows[targetRow], btn)
	default:
		return fmt.Errorf("row index %d out of range", targetRow)
	}
	return nil
}

// HasButtons reports whether at least one button row exists.
func (s *Session) HasButtons() bool {
	return len(s.ButtonRows) > 0
}
