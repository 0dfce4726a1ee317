package models

import "time"

type InviteLink struct {
	ChatID    int64
	Title     string
	Link      string
	CreatedAt time.Time
}
