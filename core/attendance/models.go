package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type Status string

// Statuses
const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
	StatusTardy   Status = "R" // retardo
)

func (s Status) IsValid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusTardy
}

// Record is the attendance of a student in a classroom on a date. Unique on (student, classroom, date).
type Record struct {
	ID          string      `json:"id"`
	SchoolID    string      `json:"school_id"`
	ClassroomID string      `json:"classroom_id"`
	StudentID   string      `json:"student_id"`
	Date        time.Time   `json:"date"`
	Status      Status      `json:"status"`
	Note        null.String `json:"note"`
	TakenBy     string      `json:"taken_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Summary struct {
	Present  int `json:"present"`
	Absent   int `json:"absent"`
	Tardy    int `json:"tardy"`
	Unmarked int `json:"unmarked,omitempty"`
}

func (s *Summary) add(status Status) {
	switch status {
	case StatusPresent:
		s.Present++
	case StatusAbsent:
		s.Absent++
	case StatusTardy:
		s.Tardy++
	}
}

type RosterEntry struct {
	Student school.Student `json:"student"`
	Record  *Record        `json:"record"`
}

// Roster is the attendance sheet of a classroom for one day.
type Roster struct {
	ClassroomID string        `json:"classroom_id"`
	Date        string        `json:"date"`
	Entries     []RosterEntry `json:"entries"`
	Summary     Summary       `json:"summary"`
	CanEdit     bool          `json:"can_edit"`
}

// Mark sets or, with an empty Status, clears the attendance of a student.
type Mark struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=P A R"`
	Note      string `json:"note" validate:"max=200"`
}

type SaveInput struct {
	Marks []Mark `json:"marks" validate:"required,min=1,dive"`
}

func (in *SaveInput) clean() {
	for i := range in.Marks {
		in.Marks[i].StudentID = core.CleanString(in.Marks[i].StudentID)
		in.Marks[i].Status = core.CleanString(in.Marks[i].Status)
		in.Marks[i].Note = core.CleanString(in.Marks[i].Note)
	}
}

type DailyCount struct {
	Date string `json:"date"`
	Summary
}

type DailyReport struct {
	ClassroomID string       `json:"classroom_id"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Days        []DailyCount `json:"days"`
	Total       Summary      `json:"total"`
}

type MonthlyReport struct {
	StudentID string   `json:"student_id"`
	Month     string   `json:"month"`
	Summary   Summary  `json:"summary"`
	Records   []Record `json:"records"`
}
