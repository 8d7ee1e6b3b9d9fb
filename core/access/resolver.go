// Package access resolves what a caller may see and change.
//
// Every route resolves the caller's scope through a Resolver before issuing its data query.
// The Resolver is stateless: scopes are recomputed from the current rows on every call.
// Errors from the RowSource are returned unchanged; callers must deny access when one occurs.
package access

import (
	"context"
	"errors"
)

// ErrForbidden is returned when the caller is authenticated but outside the required scope.
var ErrForbidden = errors.New("permission denied")

// Caller identifies who is asking. An empty SchoolID means the profile has no school.
type Caller struct {
	UserID   string
	Role     Role
	SchoolID string
}

func (c Caller) HasSchool() bool { return c.SchoolID != "" }

// RowSource fetches the rows the access rules are computed from.
type RowSource interface {
	// ClassroomIDsBySchool returns the classrooms of a school.
	ClassroomIDsBySchool(ctx context.Context, schoolID string) ([]string, error)
	// ClassroomIDsByTeacher returns the classrooms a teacher is assigned to.
	ClassroomIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
	// ClassroomIDsByStudents returns the classrooms any of the students is enrolled in.
	ClassroomIDsByStudents(ctx context.Context, studentIDs []string) ([]string, error)
	// StudentIDsBySchool returns the students of a school.
	StudentIDsBySchool(ctx context.Context, schoolID string) ([]string, error)
	// StudentIDsByClassrooms returns the students enrolled in any of the classrooms.
	StudentIDsByClassrooms(ctx context.Context, classroomIDs []string) ([]string, error)
	// StudentIDsByGuardian returns the students linked to a guardian.
	StudentIDsByGuardian(ctx context.Context, userID string) ([]string, error)
}

// Scope is the set of classrooms and students a caller may read.
type Scope struct {
	Classrooms IDSet
	Students   IDSet
}

// Visibility is the decision about a single message thread.
type Visibility struct {
	CanRead bool `json:"can_read"`
	CanPost bool `json:"can_post"`
}

type Resolver struct {
	rows RowSource
}

func NewResolver(rows RowSource) *Resolver {
	if rows == nil {
		panic("access: nil RowSource")
	}
	return &Resolver{rows: rows}
}

// ResolveClassrooms returns the classrooms the caller may read.
func (r *Resolver) ResolveClassrooms(ctx context.Context, c Caller) (IDSet, error) {
	var ids []string
	var err error

	switch c.Role {
	case RoleDirector:
		if !c.HasSchool() {
			return IDSet{}, nil
		}
		ids, err = r.rows.ClassroomIDsBySchool(ctx, c.SchoolID)
	case RoleTeacher:
		ids, err = r.rows.ClassroomIDsByTeacher(ctx, c.UserID)
	case RoleGuardian:
		var studentIDs []string
		studentIDs, err = r.rows.StudentIDsByGuardian(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		if len(studentIDs) == 0 {
			return IDSet{}, nil
		}
		ids, err = r.rows.ClassroomIDsByStudents(ctx, studentIDs)
	default:
		return IDSet{}, nil
	}

	if err != nil {
		return nil, err
	}
	return NewIDSet(ids...), nil
}

// ResolveStudents returns the students the caller may read.
// classroomIDs must be the caller's resolved classroom scope; only teachers depend on it.
func (r *Resolver) ResolveStudents(ctx context.Context, c Caller, classroomIDs IDSet) (IDSet, error) {
	var ids []string
	var err error

	switch c.Role {
	case RoleDirector:
		if !c.HasSchool() {
			return IDSet{}, nil
		}
		ids, err = r.rows.StudentIDsBySchool(ctx, c.SchoolID)
	case RoleTeacher:
		if classroomIDs.IsEmpty() {
			return IDSet{}, nil
		}
		ids, err = r.rows.StudentIDsByClassrooms(ctx, classroomIDs.Slice())
	case RoleGuardian:
		ids, err = r.rows.StudentIDsByGuardian(ctx, c.UserID)
	default:
		return IDSet{}, nil
	}

	if err != nil {
		return nil, err
	}
	return NewIDSet(ids...), nil
}

// ResolveScope resolves classrooms then students.
func (r *Resolver) ResolveScope(ctx context.Context, c Caller) (Scope, error) {
	classrooms, err := r.ResolveClassrooms(ctx, c)
	if err != nil {
		return Scope{}, err
	}
	students, err := r.ResolveStudents(ctx, c, classrooms)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Classrooms: classrooms, Students: students}, nil
}

// ResolveThreadVisibility decides whether the caller may read a thread and post messages in it.
// An empty threadClassroomID denotes a general school thread.
func (r *Resolver) ResolveThreadVisibility(ctx context.Context, c Caller, threadSchoolID, threadClassroomID string) (Visibility, error) {
	if threadClassroomID == "" {
		return r.generalThreadVisibility(ctx, c, threadSchoolID)
	}

	classrooms, err := r.ResolveClassrooms(ctx, c)
	if err != nil {
		return Visibility{}, err
	}
	if !classrooms.Has(threadClassroomID) {
		return Visibility{}, nil
	}
	// a guardian's classroom scope is exactly the classrooms their wards are enrolled in
	return Visibility{CanRead: true, CanPost: true}, nil
}

func (r *Resolver) generalThreadVisibility(ctx context.Context, c Caller, threadSchoolID string) (Visibility, error) {
	if !c.HasSchool() || c.SchoolID != threadSchoolID {
		return Visibility{}, nil
	}

	switch c.Role {
	case RoleDirector, RoleTeacher:
		return Visibility{CanRead: true, CanPost: true}, nil
	case RoleGuardian:
		wardClassrooms, err := r.ResolveClassrooms(ctx, c)
		if err != nil {
			return Visibility{}, err
		}
		if wardClassrooms.IsEmpty() {
			return Visibility{}, nil
		}
		schoolClassrooms, err := r.rows.ClassroomIDsBySchool(ctx, threadSchoolID)
		if err != nil {
			return Visibility{}, err
		}
		readable := !wardClassrooms.Intersect(NewIDSet(schoolClassrooms...)).IsEmpty()
		return Visibility{CanRead: readable}, nil
	default:
		return Visibility{}, nil
	}
}

// CanCreateThread decides whether the caller may open a new thread.
// General threads (empty classroomID) are reserved to the director of a school;
// classroom threads to staff having the classroom in scope.
func (r *Resolver) CanCreateThread(ctx context.Context, c Caller, classroomID string) (bool, error) {
	if !c.Role.IsStaff() || !c.HasSchool() {
		return false, nil
	}
	if classroomID == "" {
		return c.Role.IsDirector(), nil
	}
	return r.CanReadClassroom(ctx, c, classroomID)
}

// CanManageSchool reports whether the caller may run administrative upserts on their school.
func (r *Resolver) CanManageSchool(c Caller) bool {
	return c.Role.IsDirector() && c.HasSchool()
}

// CanReadClassroom reports whether the classroom is in the caller's scope.
func (r *Resolver) CanReadClassroom(ctx context.Context, c Caller, classroomID string) (bool, error) {
	if classroomID == "" {
		return false, nil
	}
	classrooms, err := r.ResolveClassrooms(ctx, c)
	if err != nil {
		return false, err
	}
	return classrooms.Has(classroomID), nil
}

// CanReadStudent reports whether the student is in the caller's scope.
func (r *Resolver) CanReadStudent(ctx context.Context, c Caller, studentID string) (bool, error) {
	if studentID == "" {
		return false, nil
	}
	scope, err := r.ResolveScope(ctx, c)
	if err != nil {
		return false, err
	}
	return scope.Students.Has(studentID), nil
}

// CanTakeAttendance reports whether the caller may record attendance for the classroom.
func (r *Resolver) CanTakeAttendance(ctx context.Context, c Caller, classroomID string) (bool, error) {
	if !c.Role.IsStaff() {
		return false, nil
	}
	return r.CanReadClassroom(ctx, c, classroomID)
}
