package db

import (
	"database/sql"

	"github.com/ad/go-telegram-buttons/internal/models"
)

type InviteLinkRepository struct {
	db *sql.DB
}

func NewInviteLinkRepository(db *sql.DB) *InviteLinkRepository {
	return &InviteLinkRepository{db: db}
}

// Save upserts the invite link for a destination chat. Posting twice into
// the same chat keeps the newest title and link.
func (r *InviteLinkRepository) Save(link *models.InviteLink) error {
	_, err := r.db.Exec(`
		INSERT INTO invite_links (chat_id, title, invite_link)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			title = excluded.title,
			invite_link = excluded.invite_link
	`, link.ChatID, link.Title, link.Link)
	return err
}

func (r *InviteLinkRepository) GetByChatID(chatID int64) (*models.InviteLink, error) {
	row := r.db.QueryRow(`
		SELECT chat_id, COALESCE(title, ''), invite_link, created_at
		FROM invite_links WHERE chat_id = ?
	`, chatID)

	var link models.InviteLink
	err := row.Scan(&link.ChatID, &link.Title, &link.Link, &link.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *InviteLinkRepository) GetAll() ([]*models.InviteLink, error) {
	rows, err := r.db.Query(`
		SELECT chat_id, COALESCE(title, ''), invite_link, created_at
		FROM invite_links
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.InviteLink
	for rows.Next() {
		var link models.InviteLink
		if err := rows.Scan(&link.ChatID, &link.Title, &link.Link, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}
