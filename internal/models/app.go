package models

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v3"
)

// AppContext groups the long-lived connections opened by the serve command.
type AppContext struct {
	DB    *sql.DB
	Redis *redis.Client
	Bot   *tele.Bot
}

// Close releases the storage connections. The bot is stopped by whoever started polling.
func (a *AppContext) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
