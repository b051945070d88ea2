package datasources

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// NewTelegramBot creates a long-polling bot. Polling and handler errors are logged;
// the poller keeps running after transient failures.
func NewTelegramBot(token string, pollTimeout time.Duration, logger *zap.Logger) (*tele.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Sender() != nil {
				fields = append(fields, zap.Int64("user_id", c.Sender().ID))
			}
			logger.Error("telegram error", fields...)
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return b, nil
}
