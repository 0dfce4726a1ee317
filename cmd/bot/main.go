package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"

	"github.com/ad/go-telegram-buttons/internal/db"
	"github.com/ad/go-telegram-buttons/internal/handlers"
	"github.com/ad/go-telegram-buttons/internal/services"
	"github.com/ad/go-telegram-buttons/internal/session"
)

func main() {
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required")
	}

	var adminID int64
	if adminIDStr := os.Getenv("ADMIN_ID"); adminIDStr != "" {
		id, err := strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			log.Fatalf("Invalid ADMIN_ID: %v", err)
		}
		adminID = id
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "buttons.db"
	}

	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	if err := db.InitSchema(sqlDB); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	inviteLinkRepo := db.NewInviteLinkRepository(sqlDB)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	var b *bot.Bot
	var botUser *tgmodels.User
	const maxAttempts = 5
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			delay := time.Duration(i*3) * time.Second
			log.Printf("Retrying in %v...", delay)
			select {
			case <-ctx.Done():
				log.Fatal("Interrupted during startup")
			case <-time.After(delay):
			}
		}
		log.Printf("Connecting to Telegram API (attempt %d/%d)...", i+1, maxAttempts)
		b, err = bot.New(botToken, bot.WithHTTPClient(15*time.Second, httpClient))
		if err != nil {
			log.Printf("Failed to create bot: %v", err)
			continue
		}
		getMeCtx, getMeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		botUser, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			break
		}
		log.Printf("Failed to get bot info: %v", err)
	}
	if err != nil {
		log.Fatalf("Failed to connect to Telegram API after %d attempts", maxAttempts)
	}

	store := session.NewStore()
	composer := services.NewComposer(b, store, inviteLinkRepo)
	composerHandler := handlers.NewComposerHandler(b, composer, inviteLinkRepo, adminID)

	b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return true
	}, func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil {
			if composerHandler.HandleCommand(ctx, update.Message) {
				return
			}
			composerHandler.HandleMessage(ctx, update.Message)
		}
		if update.CallbackQuery != nil {
			composerHandler.HandleCallback(ctx, update.CallbackQuery)
		}
		if update.InlineQuery != nil {
			composerHandler.HandleInlineQuery(ctx, update.InlineQuery)
		}
	}, logMiddleware)

	log.Printf("Bot started. DB: %s", dbPath)
	if botUser != nil {
		log.Printf("Bot: @%s — https://t.me/%s", botUser.Username, botUser.Username)
	}

	b.Start(ctx)
}

func logMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil {
			log.Printf("[MSG] from=%d text=%q", update.Message.From.ID, update.Message.Text)
		}
		if update.CallbackQuery != nil {
			log.Printf("[CALLBACK] from=%d data=%q", update.CallbackQuery.From.ID, update.CallbackQuery.Data)
		}
		if update.InlineQuery != nil && update.InlineQuery.From != nil {
			log.Printf("[INLINE] from=%d query=%q", update.InlineQuery.From.ID, update.InlineQuery.Query)
		}
		next(ctx, b, update)
	}
}
