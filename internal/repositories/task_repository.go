package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bbr/taskbot/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

const queryTimeout = 5 * time.Second

type TaskRepository struct {
	DB *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, text, done, created_at, task_id_in_list
		FROM tasks
		WHERE user_id = $1
		ORDER BY task_id_in_list
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Text, &t.Done, &t.CreatedAt, &t.Position); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create appends a task at the end of the user's list. Concurrent creates for the
// same user are serialised by a transaction-scoped advisory lock.
func (r *TaskRepository) Create(ctx context.Context, userID int64, text string) (models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	task := models.Task{UserID: userID, Text: text}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
			return fmt.Errorf("lock user tasks: %w", err)
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(task_id_in_list), 0) + 1 FROM tasks WHERE user_id = $1`,
			userID,
		).Scan(&next); err != nil {
			return fmt.Errorf("next task number: %w", err)
		}

		query := `
			INSERT INTO tasks (user_id, text, task_id_in_list)
			VALUES ($1, $2, $3)
			RETURNING id, done, created_at, task_id_in_list
		`
		if err := tx.QueryRowContext(ctx, query, userID, text, next).Scan(
			&task.ID, &task.Done, &task.CreatedAt, &task.Position,
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) MarkDone(ctx context.Context, userID int64, position int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET done = TRUE WHERE user_id = $1 AND task_id_in_list = $2`,
		userID, position,
	)
	if err != nil {
		return fmt.Errorf("mark task done: %w", err)
	}
	return requireAffected(res)
}

// Delete removes one task and renumbers the rest 1..n by creation order.
func (r *TaskRepository) Delete(ctx context.Context, userID int64, position int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
			return fmt.Errorf("lock user tasks: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM tasks WHERE user_id = $1 AND task_id_in_list = $2`,
			userID, position,
		)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		renumber := `
			UPDATE tasks
			SET task_id_in_list = numbered.new_position
			FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY created_at, id) AS new_position
				FROM tasks
				WHERE user_id = $1
			) AS numbered
			WHERE tasks.id = numbered.id
		`
		if _, err := tx.ExecContext(ctx, renumber, userID); err != nil {
			return fmt.Errorf("renumber tasks: %w", err)
		}
		return nil
	})
}

// DeleteAll removes every task of the user and returns how many were removed.
func (r *TaskRepository) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all tasks: %w", err)
	}
	return res.RowsAffected()
}

// MarkAllDone marks pending tasks as done and returns how many were pending.
func (r *TaskRepository) MarkAllDone(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctx,
		`UPDATE tasks SET done = TRUE WHERE user_id = $1 AND done = FALSE`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all tasks done: %w", err)
	}
	return res.RowsAffected()
}

func (r *TaskRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
