package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bbr/taskbot/internal/i18n"
	"github.com/bbr/taskbot/internal/metrics"
	"github.com/bbr/taskbot/internal/models"
	"github.com/bbr/taskbot/internal/ratelimit"
	"github.com/bbr/taskbot/internal/services"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	handlerTimeout = 15 * time.Second
	userKey        = "user"
)

var langBtn = &tele.Btn{Unique: "lang"}

var knownCommands = map[string]bool{
	"/start": true, "/help": true, "/add": true, "/list": true, "/done": true,
	"/delete": true, "/clear_all": true, "/done_all": true, "/export": true,
	"/language": true, "/cancel": true,
}

type TelegramController struct {
	Bot         *tele.Bot
	UserService *services.UserService
	TaskService *services.TaskService
	Dialogs     *services.DialogService
	Limiter     *ratelimit.UserLimiter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	DefaultLang string

	// BaseContext is the parent of every handler context; cancelled on shutdown.
	BaseContext context.Context
}

func NewTelegramController(
	bot *tele.Bot,
	userService *services.UserService,
	taskService *services.TaskService,
	dialogs *services.DialogService,
	limiter *ratelimit.UserLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
	defaultLang string,
) *TelegramController {
	return &TelegramController{
		Bot:         bot,
		UserService: userService,
		TaskService: taskService,
		Dialogs:     dialogs,
		Limiter:     limiter,
		Metrics:     m,
		Logger:      logger,
		DefaultLang: defaultLang,
		BaseContext: context.Background(),
	}
}

func (c *TelegramController) SetupHandlers() {
	c.Bot.Use(c.Observe, c.RateLimit, c.Register)

	c.Bot.Handle("/start", c.StartHandler)
	c.Bot.Handle("/help", c.StartHandler)
	c.Bot.Handle("/add", c.AddHandler)
	c.Bot.Handle("/list", c.ListHandler)
	c.Bot.Handle("/done", c.DoneHandler)
	c.Bot.Handle("/delete", c.DeleteHandler)
	c.Bot.Handle("/clear_all", c.ClearAllHandler)
	c.Bot.Handle("/done_all", c.DoneAllHandler)
	c.Bot.Handle("/export", c.ExportHandler)
	c.Bot.Handle("/language", c.LanguageHandler)
	c.Bot.Handle("/cancel", c.CancelHandler)
	c.Bot.Handle(langBtn, c.LanguageCallback)
	c.Bot.Handle(tele.OnText, c.TextHandler)
}

// Observe logs every update and records its latency and outcome. Handler errors
// are reported here and not propagated to the bot's OnError.
func (c *TelegramController) Observe(next tele.HandlerFunc) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		start := time.Now()
		command := commandName(ctx)

		err := next(ctx)

		elapsed := time.Since(start)
		if c.Metrics != nil {
			c.Metrics.ObserveCommand(command, elapsed, err)
		}

		fields := []zap.Field{zap.String("command", command), zap.Duration("duration", elapsed)}
		if sender := ctx.Sender(); sender != nil {
			fields = append(fields, zap.Int64("user_id", sender.ID))
		}
		if err != nil {
			c.Logger.Error("update failed", append(fields, zap.Error(err))...)
			return nil
		}
		c.Logger.Info("update handled", fields...)
		return nil
	}
}

// RateLimit drops updates from users exceeding their token bucket.
func (c *TelegramController) RateLimit(next tele.HandlerFunc) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		sender := ctx.Sender()
		if sender == nil {
			return nil
		}
		if c.Limiter == nil {
			return next(ctx)
		}

		decision := c.Limiter.Check(sender.ID)
		if decision.Allowed {
			return next(ctx)
		}
		if c.Metrics != nil {
			c.Metrics.IncRateLimited()
		}

		var text string
		if decision.FirstDenial {
			text = i18n.GetMessage(c.limitedLang(sender), "rate_limited")
		}
		if ctx.Callback() != nil {
			return ctx.Respond(&tele.CallbackResponse{Text: text})
		}
		if text != "" {
			return ctx.Send(text)
		}
		return nil
	}
}

// limitedLang resolves the reply language of a rate-limited update, which has
// not been through Register.
func (c *TelegramController) limitedLang(sender *tele.User) string {
	var stored string
	rctx, cancel := c.context()
	defer cancel()
	if user, err := c.UserService.GetUser(rctx, sender.ID); err == nil {
		stored = user.LanguageCode
	}
	return i18n.Resolve(c.DefaultLang, stored, sender.LanguageCode)
}

// Register upserts the sender's profile and stores it in the context. When the
// database is unavailable a transient profile is used so commands still answer.
func (c *TelegramController) Register(next tele.HandlerFunc) tele.HandlerFunc {
	return func(ctx tele.Context) error {
		sender := ctx.Sender()
		if sender == nil {
			return nil
		}

		rctx, cancel := c.context()
		defer cancel()

		user, err := c.UserService.RegisterUser(rctx, sender)
		registered := err == nil
		if err != nil {
			c.Logger.Error("error registering user", zap.Int64("user_id", sender.ID), zap.Error(err))
			user = &models.User{ID: sender.ID, FirstName: sender.FirstName, LanguageCode: sender.LanguageCode}
		}
		ctx.Set(userKey, user)

		handlerErr := next(ctx)

		if registered {
			if err := c.UserService.RecordActivity(rctx, user.ID); err != nil {
				c.Logger.Warn("error recording activity", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
		return handlerErr
	}
}

func (c *TelegramController) StartHandler(ctx tele.Context) error {
	return ctx.Reply(c.msg(ctx, "help"))
}

func (c *TelegramController) AddHandler(ctx tele.Context) error {
	payload := ""
	if m := ctx.Message(); m != nil {
		payload = strings.TrimSpace(m.Payload)
	}
	if payload == "" {
		return ctx.Reply(c.msg(ctx, "add_usage"))
	}

	rctx, cancel := c.context()
	defer cancel()

	task, err := c.TaskService.Add(rctx, ctx.Sender().ID, payload)
	if errors.Is(err, services.ErrEmptyTask) {
		return ctx.Reply(c.msg(ctx, "add_usage"))
	}
	if err != nil {
		c.replyError(ctx, "add_failed")
		return err
	}
	return ctx.Reply(fmt.Sprintf(c.msg(ctx, "task_added"), task.Position, task.Text))
}

func (c *TelegramController) ListHandler(ctx tele.Context) error {
	rctx, cancel := c.context()
	defer cancel()

	tasks, err := c.TaskService.List(rctx, ctx.Sender().ID)
	if err != nil {
		c.replyError(ctx, "list_error")
		return err
	}

	for i, chunk := range SplitMessage(FormatTasks(tasks, c.lang(ctx)), maxMessageLength) {
		send := ctx.Send
		if i == 0 {
			send = ctx.Reply
		}
		if err := send(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramController) DoneHandler(ctx tele.Context) error {
	position, ok, err := c.position(ctx, "done_usage")
	if !ok {
		return err
	}

	rctx, cancel := c.context()
	defer cancel()

	err = c.TaskService.Complete(rctx, ctx.Sender().ID, position)
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return ctx.Reply(c.msg(ctx, "done_not_found"))
	case err != nil:
		c.replyError(ctx, "generic_error")
		return err
	}
	return ctx.Reply(fmt.Sprintf(c.msg(ctx, "task_done"), position))
}

func (c *TelegramController) DeleteHandler(ctx tele.Context) error {
	position, ok, err := c.position(ctx, "delete_usage")
	if !ok {
		return err
	}

	rctx, cancel := c.context()
	defer cancel()

	err = c.TaskService.Delete(rctx, ctx.Sender().ID, position)
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return ctx.Reply(c.msg(ctx, "delete_not_found"))
	case err != nil:
		c.replyError(ctx, "generic_error")
		return err
	}
	return ctx.Reply(fmt.Sprintf(c.msg(ctx, "task_deleted"), position))
}

func (c *TelegramController) ClearAllHandler(ctx tele.Context) error {
	rctx, cancel := c.context()
	defer cancel()

	n, err := c.TaskService.ClearAll(rctx, ctx.Sender().ID)
	if err != nil {
		c.replyError(ctx, "generic_error")
		return err
	}
	if n == 0 {
		return ctx.Reply(c.msg(ctx, "nothing_to_clear"))
	}
	return ctx.Reply(fmt.Sprintf(c.msg(ctx, "cleared"), n))
}

func (c *TelegramController) DoneAllHandler(ctx tele.Context) error {
	rctx, cancel := c.context()
	defer cancel()

	n, err := c.TaskService.CompleteAll(rctx, ctx.Sender().ID)
	if err != nil {
		c.replyError(ctx, "generic_error")
		return err
	}
	if n == 0 {
		return ctx.Reply(c.msg(ctx, "nothing_to_done"))
	}
	return ctx.Reply(fmt.Sprintf(c.msg(ctx, "all_done"), n))
}

func (c *TelegramController) ExportHandler(ctx tele.Context) error {
	rctx, cancel := c.context()
	defer cancel()

	tasks, err := c.TaskService.List(rctx, ctx.Sender().ID)
	if err != nil {
		c.replyError(ctx, "export_error")
		return err
	}
	if len(tasks) == 0 {
		return ctx.Reply(c.msg(ctx, "export_empty"))
	}

	data, err := services.ExportCSV(tasks, c.lang(ctx))
	if err != nil {
		c.replyError(ctx, "export_error")
		return err
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "tasks.csv",
		MIME:     "text/csv",
		Caption:  c.msg(ctx, "export_caption"),
	}
	if err := ctx.Send(doc); err != nil {
		c.replyError(ctx, "export_error")
		return fmt.Errorf("send export: %w", err)
	}
	return nil
}

func (c *TelegramController) LanguageHandler(ctx tele.Context) error {
	menu := &tele.ReplyMarkup{}
	btnRu := menu.Data("🇷🇺 Русский", langBtn.Unique, i18n.LangRU)
	btnEn := menu.Data("🇺🇸 English", langBtn.Unique, i18n.LangEN)
	menu.Inline(
		menu.Row(btnRu),
		menu.Row(btnEn),
	)

	return ctx.Reply(c.msg(ctx, "choose_language"), menu)
}

func (c *TelegramController) LanguageCallback(ctx tele.Context) error {
	args := ctx.Args()
	if len(args) == 0 || !i18n.IsSupported(args[0]) {
		return ctx.Respond()
	}
	langCode := args[0]

	rctx, cancel := c.context()
	defer cancel()

	if err := c.UserService.UpdateLanguage(rctx, ctx.Sender().ID, langCode); err != nil {
		_ = ctx.Respond(&tele.CallbackResponse{Text: i18n.GetMessage(langCode, "generic_error")})
		return err
	}
	if user := c.user(ctx); user != nil {
		user.LanguageCode = langCode
	}

	if err := ctx.Delete(); err != nil {
		c.Logger.Debug("could not delete language menu", zap.Error(err))
	}
	_ = ctx.Respond()
	return ctx.Send(i18n.GetMessage(langCode, "language_set"))
}

func (c *TelegramController) CancelHandler(ctx tele.Context) error {
	if c.Dialogs.Cancel(ctx.Sender().ID) {
		return ctx.Reply(c.msg(ctx, "dialog_cancelled"))
	}
	return ctx.Reply(c.msg(ctx, "nothing_to_cancel"))
}

// TextHandler turns free text into tasks through the add-task dialog.
// Unregistered commands also arrive here.
func (c *TelegramController) TextHandler(ctx tele.Context) error {
	text := ctx.Text()
	if strings.HasPrefix(text, "/") {
		return ctx.Reply(c.msg(ctx, "unknown_command"))
	}

	user := c.user(ctx)
	if user == nil {
		user = &models.User{ID: ctx.Sender().ID}
	}

	rctx, cancel := c.context()
	defer cancel()

	res, err := c.Dialogs.HandleText(rctx, user, text)
	if errors.Is(err, services.ErrEmptyTask) {
		return ctx.Reply(c.msg(ctx, "empty_task"))
	}
	if err != nil {
		c.replyError(ctx, "add_failed")
		return err
	}

	switch res.Step {
	case services.StepAskSurname:
		return ctx.Reply(c.msg(ctx, "ask_surname"))
	case services.StepAskTask:
		return ctx.Reply(c.msg(ctx, "ask_task"))
	default:
		return ctx.Reply(fmt.Sprintf(c.msg(ctx, "task_added"), res.Task.Position, res.Task.Text))
	}
}

// position parses the single numeric argument of /done and /delete. When ok is
// false the user has already been answered and err is the result of that reply.
func (c *TelegramController) position(ctx tele.Context, usageKey string) (int, bool, error) {
	args := ctx.Args()
	if len(args) != 1 {
		return 0, false, ctx.Reply(c.msg(ctx, usageKey))
	}
	n, err := strconv.ParseInt(args[0], 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		// Outside the column range no task can match; 0 is answered as not found.
		return 0, true, nil
	}
	if err != nil {
		return 0, false, ctx.Reply(c.msg(ctx, "not_a_number"))
	}
	return int(n), true, nil
}

func (c *TelegramController) replyError(ctx tele.Context, key string) {
	if err := ctx.Reply(c.msg(ctx, key)); err != nil {
		c.Logger.Warn("could not send error reply", zap.Error(err))
	}
}

func (c *TelegramController) context() (context.Context, context.CancelFunc) {
	base := c.BaseContext
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, handlerTimeout)
}

func (c *TelegramController) user(ctx tele.Context) *models.User {
	user, _ := ctx.Get(userKey).(*models.User)
	return user
}

func (c *TelegramController) lang(ctx tele.Context) string {
	var stored, telegram string
	if user := c.user(ctx); user != nil {
		stored = user.LanguageCode
	}
	if sender := ctx.Sender(); sender != nil {
		telegram = sender.LanguageCode
	}
	return i18n.Resolve(c.DefaultLang, stored, telegram)
}

func (c *TelegramController) msg(ctx tele.Context, key string) string {
	return i18n.GetMessage(c.lang(ctx), key)
}

// commandName labels an update for logs and metrics.
func commandName(ctx tele.Context) string {
	if ctx.Callback() != nil {
		return "callback"
	}
	text := ctx.Text()
	if !strings.HasPrefix(text, "/") {
		return "text"
	}
	name := strings.Fields(text)[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	if !knownCommands[name] {
		return "unknown"
	}
	return name
}
