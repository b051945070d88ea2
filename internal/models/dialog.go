package models

import "time"

type DialogStage string

const (
	StageWaitingSurname DialogStage = "waiting_surname"
	StageWaitingTask    DialogStage = "waiting_task"
)

// Draft is the state of an unfinished add-task conversation.
type Draft struct {
	Stage     DialogStage
	TaskText  string
	Surname   string
	UpdatedAt time.Time
}
