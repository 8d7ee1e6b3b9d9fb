package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
)

const dateLayout = "2006-01-02"

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SchoolID  string    `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Student struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	SchoolID    string    `json:"school_id"`
	DateOfBirth null.Time `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment places a student in a classroom. SchoolID always equals both of theirs.
type Enrollment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassroomID string    `json:"classroom_id"`
	SchoolID    string    `json:"school_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type TeacherAssignment struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	ClassroomID string    `json:"classroom_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type GuardianLink struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	StudentID    string      `json:"student_id"`
	Relationship null.String `json:"relationship"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Counts is the dashboard summary of a caller's scope.
type Counts struct {
	Classrooms int `json:"classrooms"`
	Students   int `json:"students"`
}

type ClassroomInput struct {
	ID   string `json:"-"`
	Name string `json:"name" validate:"required"`
}

func (in *ClassroomInput) clean() {
	in.ID = core.CleanString(in.ID)
	in.Name = core.CleanString(in.Name)
}

type StudentInput struct {
	ID          string `json:"-"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func (in *StudentInput) clean() {
	in.ID = core.CleanString(in.ID)
	in.FirstName = core.CleanString(in.FirstName)
	in.LastName = core.CleanString(in.LastName)
	in.DateOfBirth = core.CleanString(in.DateOfBirth)
}

func (in StudentInput) dateOfBirth() null.Time {
	if in.DateOfBirth == "" {
		return null.Time{}
	}
	t, err := time.Parse(dateLayout, in.DateOfBirth)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}

type EnrollmentInput struct {
	StudentID   string `json:"student_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
}

type AssignmentInput struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	ClassroomID string `json:"classroom_id" validate:"required"`
}

type GuardianLinkInput struct {
	UserID       string `json:"user_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required"`
	Relationship string `json:"relationship" validate:"max=50"`
}
