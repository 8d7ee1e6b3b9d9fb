package school_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	"github.com/trezcool/escuela/testutil"
)

var ctx = context.Background()

type fixture struct {
	env                 *testutil.Env
	s1, s2              school.School
	c1, c2, c3          school.Classroom
	st1, st2, st3       school.Student
	director, director2 access.Caller
	teacher, guardian   user.User
}

func setup(t *testing.T) *fixture {
	env := testutil.NewEnv(t)
	f := &fixture{env: env}

	f.s1 = testutil.CreateSchool(t, env.Schools, "Lycée Wima")
	f.s2 = testutil.CreateSchool(t, env.Schools, "Collège Boboto")
	f.c1 = testutil.CreateClassroom(t, env.Schools, f.s1.ID, "6A")
	f.c2 = testutil.CreateClassroom(t, env.Schools, f.s1.ID, "6B")
	f.c3 = testutil.CreateClassroom(t, env.Schools, f.s2.ID, "1A")
	f.st1 = testutil.CreateStudent(t, env.Schools, f.s1.ID, "Amani", "Kabila")
	f.st2 = testutil.CreateStudent(t, env.Schools, f.s1.ID, "Bijou", "Lumumba")
	f.st3 = testutil.CreateStudent(t, env.Schools, f.s2.ID, "Chance", "Mobutu")
	testutil.Enroll(t, env.Schools, f.st1, f.c1)
	testutil.Enroll(t, env.Schools, f.st3, f.c3)

	f.director = testutil.CreateUser(t, env.Users, "Director", "dir@test.cd", "", access.RoleDirector, f.s1.ID, true).Caller()
	f.director2 = testutil.CreateUser(t, env.Users, "Director 2", "dir2@test.cd", "", access.RoleDirector, f.s2.ID, true).Caller()
	f.teacher = testutil.CreateUser(t, env.Users, "Teacher", "teacher@test.cd", "", access.RoleTeacher, f.s1.ID, true)
	f.guardian = testutil.CreateUser(t, env.Users, "Guardian", "guardian@test.cd", "", access.RoleGuardian, f.s1.ID, true)
	return f
}

func TestService_CreateSchool(t *testing.T) {
	svc := testutil.NewEnv(t).SchoolSvc

	_, err := svc.CreateSchool(ctx, "  ")
	assert.True(t, core.IsValidationError(err))

	sch, err := svc.CreateSchool(ctx, " Lycée Wima ")
	require.NoError(t, err)
	assert.Equal(t, "Lycée Wima", sch.Name)

	got, err := svc.GetSchool(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, sch, got)

	_, err = svc.GetSchool(ctx, "unknown")
	assert.True(t, core.IsNotFound(err))
}

func TestService_directorOnly(t *testing.T) {
	f := setup(t)
	svc := f.env.SchoolSvc

	callers := map[string]access.Caller{
		"teacher":    f.teacher.Caller(),
		"guardian":   f.guardian.Caller(),
		"schoolless": {UserID: "X", Role: access.RoleDirector},
	}
	for name, caller := range callers {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SaveClassroom(ctx, caller, school.ClassroomInput{Name: "6C"})
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.SaveStudent(ctx, caller, school.StudentInput{FirstName: "A", LastName: "B"})
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.Enroll(ctx, caller, school.EnrollmentInput{StudentID: f.st2.ID, ClassroomID: f.c2.ID})
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.AssignTeacher(ctx, caller, school.AssignmentInput{TeacherID: f.teacher.ID, ClassroomID: f.c2.ID})
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.LinkGuardian(ctx, caller, school.GuardianLinkInput{UserID: f.guardian.ID, StudentID: f.st2.ID})
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.ListAssignments(ctx, caller)
			assert.Equal(t, access.ErrForbidden, err)
			_, err = svc.ListGuardianLinks(ctx, caller)
			assert.Equal(t, access.ErrForbidden, err)
		})
	}
}

func TestService_SaveClassroom(t *testing.T) {
	f := setup(t)
	svc := f.env.SchoolSvc

	_, err := svc.SaveClassroom(ctx, f.director, school.ClassroomInput{Name: " "})
	require.Error(t, err)

	_, err = svc.SaveClassroom(ctx, f.director, school.ClassroomInput{ID: f.c3.ID, Name: "Hijack"})
	assert.Equal(t, school.ErrClassroomNotFound, err)

	cls, err := svc.SaveClassroom(ctx, f.director, school.ClassroomInput{ID: f.c1.ID, Name: " 6A bis "})
	require.NoError(t, err)
	assert.Equal(t, f.c1.ID, cls.ID)
	assert.Equal(t, "6A bis", cls.Name)
	assert.Equal(t, f.c1.CreatedAt, cls.CreatedAt)
}

func TestService_SaveStudent(t *testing.T) {
	f := setup(t)
	svc := f.env.SchoolSvc

	_, err := svc.SaveStudent(ctx, f.director, school.StudentInput{FirstName: "Dieu", LastName: "Merci", DateOfBirth: "2010-13-01"})
	require.Error(t, err)

	_, err = svc.SaveStudent(ctx, f.director, school.StudentInput{ID: f.st3.ID, FirstName: "Dieu", LastName: "Merci"})
	assert.Equal(t, school.ErrStudentNotFound, err)

	st, err := svc.SaveStudent(ctx, f.director, school.StudentInput{FirstName: "Dieu", LastName: "Merci", DateOfBirth: "2010-05-01"})
	require.NoError(t, err)
	assert.Equal(t, f.s1.ID, st.SchoolID)
	assert.True(t, st.DateOfBirth.Valid)

	st, err = svc.SaveStudent(ctx, f.director, school.StudentInput{ID: st.ID, FirstName: "Dieu", LastName: "Donné"})
	require.NoError(t, err)
	assert.Equal(t, "Dieu", st.FirstName)
	assert.Equal(t, "Donné", st.LastName)
	assert.False(t, st.DateOfBirth.Valid)
}

func TestService_links(t *testing.T) {
	f := setup(t)
	svc := f.env.SchoolSvc

	t.Run("enroll", func(t *testing.T) {
		_, err := svc.Enroll(ctx, f.director, school.EnrollmentInput{StudentID: f.st3.ID, ClassroomID: f.c2.ID})
		require.True(t, core.IsValidationError(err), "err = %v", err)
		assert.Contains(t, err.Error(), "student_id")

		_, err = svc.Enroll(ctx, f.director, school.EnrollmentInput{StudentID: f.st2.ID, ClassroomID: f.c3.ID})
		require.True(t, core.IsValidationError(err), "err = %v", err)
		assert.Contains(t, err.Error(), "classroom_id")

		enr, err := svc.Enroll(ctx, f.director, school.EnrollmentInput{StudentID: f.st2.ID, ClassroomID: f.c2.ID})
		require.NoError(t, err)
		assert.Equal(t, f.s1.ID, enr.SchoolID)

		again, err := svc.Enroll(ctx, f.director, school.EnrollmentInput{StudentID: f.st2.ID, ClassroomID: f.c2.ID})
		require.NoError(t, err)
		assert.Equal(t, enr.ID, again.ID)
	})

	t.Run("assign", func(t *testing.T) {
		_, err := svc.AssignTeacher(ctx, f.director, school.AssignmentInput{TeacherID: f.guardian.ID, ClassroomID: f.c1.ID})
		assert.True(t, core.IsValidationError(err), "err = %v", err)

		_, err = svc.AssignTeacher(ctx, f.director2, school.AssignmentInput{TeacherID: f.teacher.ID, ClassroomID: f.c3.ID})
		assert.True(t, core.IsValidationError(err), "err = %v", err)

		_, err = svc.AssignTeacher(ctx, f.director, school.AssignmentInput{TeacherID: f.teacher.ID, ClassroomID: f.c1.ID})
		require.NoError(t, err)

		assignments, err := svc.ListAssignments(ctx, f.director)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, f.teacher.ID, assignments[0].TeacherID)

		assignments, err = svc.ListAssignments(ctx, f.director2)
		require.NoError(t, err)
		assert.Empty(t, assignments)
	})

	t.Run("link guardian", func(t *testing.T) {
		_, err := svc.LinkGuardian(ctx, f.director, school.GuardianLinkInput{UserID: f.teacher.ID, StudentID: f.st1.ID})
		assert.True(t, core.IsValidationError(err), "err = %v", err)

		_, err = svc.LinkGuardian(ctx, f.director, school.GuardianLinkInput{UserID: f.guardian.ID, StudentID: f.st3.ID})
		assert.True(t, core.IsValidationError(err), "err = %v", err)

		link, err := svc.LinkGuardian(ctx, f.director, school.GuardianLinkInput{UserID: f.guardian.ID, StudentID: f.st1.ID, Relationship: "mother"})
		require.NoError(t, err)
		assert.Equal(t, "mother", link.Relationship.String)

		link, err = svc.LinkGuardian(ctx, f.director, school.GuardianLinkInput{UserID: f.guardian.ID, StudentID: f.st1.ID, Relationship: "aunt"})
		require.NoError(t, err)
		assert.Equal(t, "aunt", link.Relationship.String)

		links, err := svc.ListGuardianLinks(ctx, f.director)
		require.NoError(t, err)
		require.Len(t, links, 1)
	})
}

func TestService_scopedReads(t *testing.T) {
	f := setup(t)
	svc := f.env.SchoolSvc
	testutil.Assign(t, f.env.Schools, f.teacher, f.c1)
	testutil.LinkGuardian(t, f.env.Schools, f.guardian, f.st1, "")
	testutil.Enroll(t, f.env.Schools, f.st2, f.c1)

	classroomIDs := func(classrooms []school.Classroom) []string {
		ids := make([]string, 0, len(classrooms))
		for _, c := range classrooms {
			ids = append(ids, c.ID)
		}
		return ids
	}
	studentIDs := func(students []school.Student) []string {
		ids := make([]string, 0, len(students))
		for _, s := range students {
			ids = append(ids, s.ID)
		}
		return ids
	}

	tests := []struct {
		name           string
		caller         access.Caller
		wantClassrooms []string
		wantStudents   []string
		wantC1Students []string
		wantCounts     school.Counts
	}{
		{
			name: "director", caller: f.director,
			wantClassrooms: []string{f.c1.ID, f.c2.ID}, wantStudents: []string{f.st1.ID, f.st2.ID},
			wantC1Students: []string{f.st1.ID, f.st2.ID}, wantCounts: school.Counts{Classrooms: 2, Students: 2},
		},
		{
			name: "teacher", caller: f.teacher.Caller(),
			wantClassrooms: []string{f.c1.ID}, wantStudents: []string{f.st1.ID, f.st2.ID},
			wantC1Students: []string{f.st1.ID, f.st2.ID}, wantCounts: school.Counts{Classrooms: 1, Students: 2},
		},
		{
			name: "guardian sees wards only", caller: f.guardian.Caller(),
			wantClassrooms: []string{f.c1.ID}, wantStudents: []string{f.st1.ID},
			wantC1Students: []string{f.st1.ID}, wantCounts: school.Counts{Classrooms: 1, Students: 1},
		},
		{
			name: "other school", caller: f.director2,
			wantClassrooms: []string{f.c3.ID}, wantStudents: []string{f.st3.ID},
			wantC1Students: []string{}, wantCounts: school.Counts{Classrooms: 1, Students: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classrooms, err := svc.ListClassrooms(ctx, tt.caller)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantClassrooms, classroomIDs(classrooms))

			students, err := svc.ListStudents(ctx, tt.caller, "")
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantStudents, studentIDs(students))

			students, err = svc.ListStudents(ctx, tt.caller, f.c1.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantC1Students, studentIDs(students))

			counts, err := svc.Counts(ctx, tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCounts, counts)
		})
	}

	_, err := svc.GetClassroom(ctx, f.teacher.Caller(), f.c2.ID)
	assert.Equal(t, school.ErrClassroomNotFound, err)
	cls, err := svc.GetClassroom(ctx, f.teacher.Caller(), f.c1.ID)
	require.NoError(t, err)
	assert.Equal(t, f.c1, cls)
}
