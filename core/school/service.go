// Package school manages schools, their classrooms and students, and who is linked to them.
// Every upsert is reserved to the director of the school; listings follow the caller's resolved scope.
package school

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/user"
)

var (
	// errors
	ErrSchoolNotFound    = core.NewNotFoundError("school")
	ErrClassroomNotFound = core.NewNotFoundError("classroom")
	ErrStudentNotFound   = core.NewNotFoundError("student")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		access.RowSource

		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)

		GetClassroom(ctx context.Context, id string) (Classroom, error)
		// SaveClassroom inserts the classroom when its ID is empty and updates it otherwise.
		SaveClassroom(ctx context.Context, cls Classroom) (Classroom, error)
		// ClassroomsByIDs returns the classrooms ordered by name.
		ClassroomsByIDs(ctx context.Context, ids []string) ([]Classroom, error)

		GetStudent(ctx context.Context, id string) (Student, error)
		// SaveStudent inserts the student when its ID is empty and updates it otherwise.
		SaveStudent(ctx context.Context, st Student) (Student, error)
		// StudentsByIDs returns the students ordered by last name then first name.
		StudentsByIDs(ctx context.Context, ids []string) ([]Student, error)

		// SaveEnrollment is a no-op when the student is already in the classroom.
		SaveEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// SaveAssignment is a no-op when the teacher is already assigned to the classroom.
		SaveAssignment(ctx context.Context, asg TeacherAssignment) (TeacherAssignment, error)
		// SaveGuardianLink upserts on (user, student), updating the relationship.
		SaveGuardianLink(ctx context.Context, link GuardianLink) (GuardianLink, error)

		AssignmentsBySchool(ctx context.Context, schoolID string) ([]TeacherAssignment, error)
		GuardianLinksBySchool(ctx context.Context, schoolID string) ([]GuardianLink, error)
	}

	// UserFinder looks up the profiles links are made to.
	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserFinder
		resolver *access.Resolver
	}
)

func NewService(repo Repository, users UserFinder, resolver *access.Resolver) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(resolver, "resolver"),
	).CheckAndPanic()

	return &Service{repo: repo, users: users, resolver: resolver}
}

func (svc *Service) CreateSchool(ctx context.Context, name string) (School, error) {
	name = core.CleanString(name)
	if name == "" {
		return School{}, core.NewFieldValidationError("name", "this field is required")
	}
	return svc.repo.CreateSchool(ctx, School{Name: name, CreatedAt: NowFunc().UTC()})
}

func (svc *Service) GetSchool(ctx context.Context, id string) (School, error) {
	if id == "" {
		return School{}, ErrSchoolNotFound
	}
	return svc.repo.GetSchool(ctx, id)
}

// schoolClassroom returns the classroom only when it belongs to schoolID.
func (svc *Service) schoolClassroom(ctx context.Context, schoolID, id string) (Classroom, error) {
	cls, err := svc.repo.GetClassroom(ctx, id)
	if err != nil {
		return Classroom{}, err
	}
	if cls.SchoolID != schoolID {
		return Classroom{}, ErrClassroomNotFound
	}
	return cls, nil
}

// schoolStudent returns the student only when it belongs to schoolID.
func (svc *Service) schoolStudent(ctx context.Context, schoolID, id string) (Student, error) {
	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st.SchoolID != schoolID {
		return Student{}, ErrStudentNotFound
	}
	return st, nil
}

// schoolMember returns the profile only when it has the role and belongs to schoolID.
func (svc *Service) schoolMember(ctx context.Context, schoolID, id string, role access.Role) (user.User, error) {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if usr.SchoolID != schoolID || usr.Role != role {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (svc *Service) SaveClassroom(ctx context.Context, caller access.Caller, in ClassroomInput) (Classroom, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return Classroom{}, access.ErrForbidden
	}
	in.clean()
	if err := core.Validate.Struct(in); err != nil {
		return Classroom{}, err
	}

	cls := Classroom{SchoolID: caller.SchoolID, CreatedAt: NowFunc().UTC()}
	if in.ID != "" {
		var err error
		if cls, err = svc.schoolClassroom(ctx, caller.SchoolID, in.ID); err != nil {
			return Classroom{}, err
		}
	}
	cls.Name = in.Name
	return svc.repo.SaveClassroom(ctx, cls)
}

func (svc *Service) SaveStudent(ctx context.Context, caller access.Caller, in StudentInput) (Student, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return Student{}, access.ErrForbidden
	}
	in.clean()
	if err := core.Validate.Struct(in); err != nil {
		return Student{}, err
	}

	st := Student{SchoolID: caller.SchoolID, CreatedAt: NowFunc().UTC()}
	if in.ID != "" {
		var err error
		if st, err = svc.schoolStudent(ctx, caller.SchoolID, in.ID); err != nil {
			return Student{}, err
		}
	}
	st.FirstName = in.FirstName
	st.LastName = in.LastName
	st.DateOfBirth = in.dateOfBirth()
	return svc.repo.SaveStudent(ctx, st)
}

// Enroll places a student of the caller's school in one of its classrooms.
func (svc *Service) Enroll(ctx context.Context, caller access.Caller, in EnrollmentInput) (Enrollment, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return Enrollment{}, access.ErrForbidden
	}
	if err := core.Validate.Struct(in); err != nil {
		return Enrollment{}, err
	}

	st, err := svc.schoolStudent(ctx, caller.SchoolID, in.StudentID)
	if err != nil {
		return Enrollment{}, asFieldError(err, "student_id")
	}
	cls, err := svc.schoolClassroom(ctx, caller.SchoolID, in.ClassroomID)
	if err != nil {
		return Enrollment{}, asFieldError(err, "classroom_id")
	}

	return svc.repo.SaveEnrollment(ctx, Enrollment{
		StudentID:   st.ID,
		ClassroomID: cls.ID,
		SchoolID:    caller.SchoolID,
		CreatedAt:   NowFunc().UTC(),
	})
}

// AssignTeacher gives a teacher of the caller's school access to one of its classrooms.
func (svc *Service) AssignTeacher(ctx context.Context, caller access.Caller, in AssignmentInput) (TeacherAssignment, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return TeacherAssignment{}, access.ErrForbidden
	}
	if err := core.Validate.Struct(in); err != nil {
		return TeacherAssignment{}, err
	}

	teacher, err := svc.schoolMember(ctx, caller.SchoolID, in.TeacherID, access.RoleTeacher)
	if err != nil {
		return TeacherAssignment{}, asFieldError(err, "teacher_id")
	}
	cls, err := svc.schoolClassroom(ctx, caller.SchoolID, in.ClassroomID)
	if err != nil {
		return TeacherAssignment{}, asFieldError(err, "classroom_id")
	}

	return svc.repo.SaveAssignment(ctx, TeacherAssignment{
		TeacherID:   teacher.ID,
		ClassroomID: cls.ID,
		CreatedAt:   NowFunc().UTC(),
	})
}

// LinkGuardian makes a guardian of the caller's school responsible for one of its students.
func (svc *Service) LinkGuardian(ctx context.Context, caller access.Caller, in GuardianLinkInput) (GuardianLink, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return GuardianLink{}, access.ErrForbidden
	}
	in.Relationship = core.CleanString(in.Relationship)
	if err := core.Validate.Struct(in); err != nil {
		return GuardianLink{}, err
	}

	guardian, err := svc.schoolMember(ctx, caller.SchoolID, in.UserID, access.RoleGuardian)
	if err != nil {
		return GuardianLink{}, asFieldError(err, "user_id")
	}
	st, err := svc.schoolStudent(ctx, caller.SchoolID, in.StudentID)
	if err != nil {
		return GuardianLink{}, asFieldError(err, "student_id")
	}

	link := GuardianLink{UserID: guardian.ID, StudentID: st.ID, CreatedAt: NowFunc().UTC()}
	if in.Relationship != "" {
		link.Relationship = null.StringFrom(in.Relationship)
	}
	return svc.repo.SaveGuardianLink(ctx, link)
}

// ListClassrooms returns the classrooms in the caller's scope.
func (svc *Service) ListClassrooms(ctx context.Context, caller access.Caller) ([]Classroom, error) {
	ids, err := svc.resolver.ResolveClassrooms(ctx, caller)
	if err != nil {
		return nil, err
	}
	if ids.IsEmpty() {
		return []Classroom{}, nil
	}
	return svc.repo.ClassroomsByIDs(ctx, ids.Slice())
}

// GetClassroom returns a classroom in the caller's scope.
func (svc *Service) GetClassroom(ctx context.Context, caller access.Caller, id string) (Classroom, error) {
	ok, err := svc.resolver.CanReadClassroom(ctx, caller, id)
	if err != nil {
		return Classroom{}, err
	}
	if !ok {
		return Classroom{}, ErrClassroomNotFound
	}
	return svc.repo.GetClassroom(ctx, id)
}

// ListStudents returns the students in the caller's scope,
// narrowed to one classroom of the scope when classroomID is set.
func (svc *Service) ListStudents(ctx context.Context, caller access.Caller, classroomID string) ([]Student, error) {
	scope, err := svc.resolver.ResolveScope(ctx, caller)
	if err != nil {
		return nil, err
	}

	ids := scope.Students
	if classroomID != "" {
		if !scope.Classrooms.Has(classroomID) {
			return []Student{}, nil
		}
		enrolled, err := svc.repo.StudentIDsByClassrooms(ctx, []string{classroomID})
		if err != nil {
			return nil, err
		}
		ids = ids.Intersect(access.NewIDSet(enrolled...))
	}

	if ids.IsEmpty() {
		return []Student{}, nil
	}
	return svc.repo.StudentsByIDs(ctx, ids.Slice())
}

// ListAssignments returns the teacher assignments of the director's school.
func (svc *Service) ListAssignments(ctx context.Context, caller access.Caller) ([]TeacherAssignment, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return nil, access.ErrForbidden
	}
	return svc.repo.AssignmentsBySchool(ctx, caller.SchoolID)
}

// ListGuardianLinks returns the guardian links of the director's school.
func (svc *Service) ListGuardianLinks(ctx context.Context, caller access.Caller) ([]GuardianLink, error) {
	if !svc.resolver.CanManageSchool(caller) {
		return nil, access.ErrForbidden
	}
	return svc.repo.GuardianLinksBySchool(ctx, caller.SchoolID)
}

// Counts sizes the caller's scope.
func (svc *Service) Counts(ctx context.Context, caller access.Caller) (Counts, error) {
	var counts Counts
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ids, err := svc.resolver.ResolveClassrooms(gctx, caller)
		if err != nil {
			return err
		}
		counts.Classrooms = ids.Len()
		return nil
	})
	g.Go(func() error {
		scope, err := svc.resolver.ResolveScope(gctx, caller)
		if err != nil {
			return err
		}
		counts.Students = scope.Students.Len()
		return nil
	})

	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return counts, nil
}

// asFieldError reports a missing related resource as a validation error on field.
func asFieldError(err error, field string) error {
	if core.IsNotFound(err) {
		return core.NewValidationError(errors.Wrap(err, field), core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return err
}
