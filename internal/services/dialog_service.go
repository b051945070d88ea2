package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bbr/taskbot/internal/models"
	"go.uber.org/zap"
)

type TaskAdder interface {
	Add(ctx context.Context, userID int64, text string) (models.Task, error)
}

type SurnameSaver interface {
	SetSurname(ctx context.Context, userID int64, surname string) error
}

type DialogStep int

const (
	StepAskSurname DialogStep = iota
	StepAskTask
	StepTaskAdded
)

// DialogResult tells the caller what to answer.
type DialogResult struct {
	Step DialogStep
	Task models.Task
}

const lockStripes = 64

// DialogService runs the free-text add-task conversation:
// text → surname (asked once per user) → task text.
type DialogService struct {
	Tasks  TaskAdder
	Users  SurnameSaver
	TTL    time.Duration
	Logger *zap.Logger

	mu     sync.Mutex
	drafts map[int64]*models.Draft
	locks  [lockStripes]sync.Mutex
	now    func() time.Time
}

func NewDialogService(tasks TaskAdder, users SurnameSaver, ttl time.Duration, logger *zap.Logger) *DialogService {
	return &DialogService{
		Tasks:  tasks,
		Users:  users,
		TTL:    ttl,
		Logger: logger,
		drafts: make(map[int64]*models.Draft),
		now:    time.Now,
	}
}

// HandleText advances the user's conversation with one message.
func (d *DialogService) HandleText(ctx context.Context, user *models.User, text string) (DialogResult, error) {
	lock := &d.locks[uint64(user.ID)%lockStripes]
	lock.Lock()
	defer lock.Unlock()

	text = strings.TrimSpace(text)
	draft := d.draft(user.ID)

	if draft == nil {
		if text == "" {
			return DialogResult{}, ErrEmptyTask
		}
		if user.HasSurname() {
			return d.addTask(ctx, user.ID, text)
		}
		d.store(user.ID, &models.Draft{Stage: models.StageWaitingSurname, TaskText: text})
		return DialogResult{Step: StepAskSurname}, nil
	}

	switch draft.Stage {
	case models.StageWaitingSurname:
		if text == "" {
			return DialogResult{Step: StepAskSurname}, nil
		}
		if err := d.Users.SetSurname(ctx, user.ID, text); err != nil {
			return DialogResult{}, err
		}
		user.Surname.String, user.Surname.Valid = text, true
		draft.Surname = text
		draft.Stage = models.StageWaitingTask
		d.store(user.ID, draft)
		return DialogResult{Step: StepAskTask}, nil

	default:
		if text == "" {
			return DialogResult{}, ErrEmptyTask
		}
		// The dialog ends whether or not the task could be stored.
		d.Cancel(user.ID)
		draft.TaskText = text
		return d.addTask(ctx, user.ID, draft.TaskText)
	}
}

// Cancel drops the user's draft and reports whether there was one.
func (d *DialogService) Cancel(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.drafts[userID]
	delete(d.drafts, userID)
	return ok
}

// Active reports whether the user is in the middle of a conversation.
func (d *DialogService) Active(userID int64) bool {
	return d.draft(userID) != nil
}

func (d *DialogService) addTask(ctx context.Context, userID int64, text string) (DialogResult, error) {
	task, err := d.Tasks.Add(ctx, userID, text)
	if err != nil {
		return DialogResult{}, err
	}
	return DialogResult{Step: StepTaskAdded, Task: task}, nil
}

func (d *DialogService) draft(userID int64) *models.Draft {
	d.mu.Lock()
	defer d.mu.Unlock()

	draft, ok := d.drafts[userID]
	if !ok {
		return nil
	}
	if d.TTL > 0 && d.now().Sub(draft.UpdatedAt) > d.TTL {
		delete(d.drafts, userID)
		d.Logger.Debug("dialog expired", zap.Int64("user_id", userID))
		return nil
	}
	copied := *draft
	return &copied
}

func (d *DialogService) store(userID int64, draft *models.Draft) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.TTL > 0 {
		for id, old := range d.drafts {
			if now.Sub(old.UpdatedAt) > d.TTL {
				delete(d.drafts, id)
			}
		}
	}
	draft.UpdatedAt = now
	d.drafts[userID] = draft
}

// Len returns the number of open conversations.
func (d *DialogService) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.drafts)
}
