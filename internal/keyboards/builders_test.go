package keyboards

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/ad/go-telegram-buttons/internal/models"
)

func sessionWithRows(rows [][]models.Button) *models.Session {
	s := models.NewSession(100, "hello", false, 1, rows)
	s.ID = "1_abcdef"
	return s
}

func TestEditingLayoutEmptySession(t *testing.T) {
	markup := Editing(sessionWithRows(nil))

	// Only the "add new row" control; no Done row without buttons.
	if len(markup.InlineKeyboard) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(markup.InlineKeyboard))
	}
	btn := markup.InlineKeyboard[0][0]
	if btn.Text != "+" || btn.CallbackData != "session:1_abcdef:new_row" {
		t.Errorf("Unexpected new-row button: %+v", btn)
	}
}

func TestEditingLayoutWithButtons(t *testing.T) {
	markup := Editing(sessionWithRows([][]models.Button{
		{{Label: "Go", URL: "https://go.dev"}, {Label: "Docs", URL: "https://go.dev/doc"}},
		{{Label: "Blog", URL: "https://go.dev/blog"}},
	}))

	// Two button rows + new-row row + Done row.
	if len(markup.InlineKeyboard) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(markup.InlineKeyboard))
	}

	first := markup.InlineKeyboard[0]
	if len(first) != 3 {
		t.Fatalf("Expected 2 buttons + add control in first row, got %d", len(first))
	}
	if first[0].Text != "Go" || first[0].URL != "https://go.dev" {
		t.Errorf("First button wrong: %+v", first[0])
	}
	if first[2].CallbackData != "session:1_abcdef:add_to_row:0" {
		t.Errorf("Add-to-row control wrong: %q", first[2].CallbackData)
	}
	if markup.InlineKeyboard[1][1].CallbackData != "session:1_abcdef:add_to_row:1" {
		t.Errorf("Second row add control wrong: %q", markup.InlineKeyboard[1][1].CallbackData)
	}

	done := markup.InlineKeyboard[3][0]
	if done.CallbackData != "session:1_abcdef:done" {
		t.Errorf("Done control wrong: %q", done.CallbackData)
	}
}

func TestFinalLayoutExactRows(t *testing.T) {
	rows := [][]models.Button{
		{{Label: "A", URL: "https://a.example"}},
		{{Label: "B", URL: "https://b.example"}, {Label: "C", URL: "https://c.example"}},
	}
	markup := Final(sessionWithRows(rows))

	if len(markup.InlineKeyboard) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(markup.InlineKeyboard))
	}
	for i, row := range rows {
		if len(markup.InlineKeyboard[i]) != len(row) {
			t.Fatalf("Row %d: expected %d buttons, got %d", i, len(row), len(markup.InlineKeyboard[i]))
		}
		for j, btn := range row {
			got := markup.InlineKeyboard[i][j]
			if got.Text != btn.Label || got.URL != btn.URL {
				t.Errorf("Row %d button %d = %+v, want %+v", i, j, got, btn)
			}
			if got.CallbackData != "" {
				t.Errorf("Final layout carries callback data: %q", got.CallbackData)
			}
		}
	}
}

func TestSharePostLayout(t *testing.T) {
	markup := SharePost(sessionWithRows(nil))

	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(markup.InlineKeyboard))
	}
	share := markup.InlineKeyboard[0][0]
	if share.SwitchInlineQuery != "share_1_abcdef" {
		t.Errorf("Share token = %q", share.SwitchInlineQuery)
	}
	post := markup.InlineKeyboard[1][0]
	if post.CallbackData != "session:1_abcdef:post" {
		t.Errorf("Post trigger = %q", post.CallbackData)
	}
}

func TestConfirmLayout(t *testing.T) {
	markup := Confirm(sessionWithRows(nil), -1001234567890)

	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("Expected one row with two buttons, got %v", markup.InlineKeyboard)
	}
	yes := markup.InlineKeyboard[0][0]
	want := fmt.Sprintf("session:1_abcdef:post_confirm:yes:%d", int64(-1001234567890))
	if yes.CallbackData != want {
		t.Errorf("Yes payload = %q, want %q", yes.CallbackData, want)
	}
	no := markup.InlineKeyboard[0][1]
	if no.CallbackData != "session:1_abcdef:post_confirm:no" {
		t.Errorf("No payload = %q", no.CallbackData)
	}
}

func TestEditingLayoutIdempotent(t *testing.T) {
	s := sessionWithRows([][]models.Button{
		{{Label: "Go", URL: "https://go.dev"}},
	})

	first := Editing(s)
	second := Editing(s)
	if !reflect.DeepEqual(first, second) {
		t.Error("Editing layout differs across identical snapshots")
	}
}
