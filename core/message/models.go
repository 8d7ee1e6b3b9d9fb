package message

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
)

// Thread selectors accepted by Service.List besides a classroom ID.
const (
	SelectAll     = "all"
	SelectGeneral = "general"
)

// Thread types
const (
	TypeGeneral   = "general"
	TypeClassroom = "classroom"
)

// Thread is a conversation of a school. A thread without classroom is a general school thread.
type Thread struct {
	ID          string      `json:"id"`
	SchoolID    string      `json:"school_id"`
	ClassroomID null.String `json:"classroom_id"`
	Title       string      `json:"title"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	LastMessage *Message    `json:"last_message,omitempty"`
}

func (t Thread) IsGeneral() bool { return !t.ClassroomID.Valid || t.ClassroomID.String == "" }

type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadDetail is a thread, its messages oldest first, and what the caller may do with it.
type ThreadDetail struct {
	Thread
	Messages   []Message         `json:"messages"`
	Visibility access.Visibility `json:"visibility"`
}

type NewThread struct {
	Type        string `json:"type" validate:"required,oneof=general classroom"`
	ClassroomID string `json:"classroom_id"`
	Title       string `json:"title" validate:"required,min=3"`
	Body        string `json:"body" validate:"required,min=5"`
}

func (nt *NewThread) clean() {
	nt.Type = core.CleanString(nt.Type, true /* lower */)
	nt.ClassroomID = core.CleanString(nt.ClassroomID)
	nt.Title = core.CleanString(nt.Title)
	nt.Body = core.CleanString(nt.Body)
	if nt.Type == TypeGeneral {
		nt.ClassroomID = ""
	}
}

func (nt NewThread) validate() error {
	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	if nt.Type == TypeClassroom && nt.ClassroomID == "" {
		return core.NewFieldValidationError("classroom_id", "this field is required")
	}
	return nil
}

type NewMessage struct {
	Body string `json:"body" validate:"required"`
}
