package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/school"
)

type studentRow struct {
	ID          string    `db:"id"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	SchoolID    string    `db:"school_id"`
	DateOfBirth null.Time `db:"date_of_birth"`
	CreatedAt   null.Time `db:"created_at"`
}

func (row studentRow) toStudent() school.Student {
	return school.Student{
		ID:          row.ID,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		SchoolID:    row.SchoolID,
		DateOfBirth: row.DateOfBirth,
		CreatedAt:   row.CreatedAt.Time,
	}
}

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{exec: db}
}

func (repo schoolRepository) selectIDs(ctx context.Context, msg, q string, args ...interface{}) ([]string, error) {
	var ids []string
	if err := repo.exec.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return ids, nil
}

// access.RowSource

func (repo schoolRepository) ClassroomIDsBySchool(ctx context.Context, schoolID string) ([]string, error) {
	if !isUUID(schoolID) {
		return nil, nil
	}
	return repo.selectIDs(ctx, "querying school classrooms",
		`SELECT id FROM classroom WHERE school_id = $1`, schoolID)
}

func (repo schoolRepository) ClassroomIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	if !isUUID(teacherID) {
		return nil, nil
	}
	return repo.selectIDs(ctx, "querying teacher classrooms",
		`SELECT classroom_id FROM teacher_classroom WHERE teacher_id = $1`, teacherID)
}

func (repo schoolRepository) ClassroomIDsByStudents(ctx context.Context, studentIDs []string) ([]string, error) {
	return repo.selectIDs(ctx, "querying student classrooms",
		`SELECT DISTINCT classroom_id FROM enrollment WHERE student_id = ANY($1::uuid[])`, pq.Array(uuids(studentIDs)))
}

func (repo schoolRepository) StudentIDsBySchool(ctx context.Context, schoolID string) ([]string, error) {
	if !isUUID(schoolID) {
		return nil, nil
	}
	return repo.selectIDs(ctx, "querying school students",
		`SELECT id FROM student WHERE school_id = $1`, schoolID)
}

func (repo schoolRepository) StudentIDsByClassrooms(ctx context.Context, classroomIDs []string) ([]string, error) {
	return repo.selectIDs(ctx, "querying classroom students",
		`SELECT DISTINCT student_id FROM enrollment WHERE classroom_id = ANY($1::uuid[])`, pq.Array(uuids(classroomIDs)))
}

func (repo schoolRepository) StudentIDsByGuardian(ctx context.Context, userID string) ([]string, error) {
	if !isUUID(userID) {
		return nil, nil
	}
	return repo.selectIDs(ctx, "querying guardian students",
		`SELECT student_id FROM guardian WHERE user_id = $1`, userID)
}

// schools

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = newID()
	if _, err := repo.exec.ExecContext(ctx,
		`INSERT INTO school (id, name, created_at) VALUES ($1, $2, $3)`,
		sch.ID, sch.Name, sch.CreatedAt.UTC()); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	if !isUUID(id) {
		return school.School{}, school.ErrSchoolNotFound
	}
	var sch school.School
	if err := repo.exec.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM school WHERE id = $1`, id,
	).Scan(&sch.ID, &sch.Name, &sch.CreatedAt); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrSchoolNotFound, "finding school")
	}
	return sch, nil
}

// classrooms

const classroomColumns = `id, name, school_id, created_at`

func (repo schoolRepository) GetClassroom(ctx context.Context, id string) (school.Classroom, error) {
	if !isUUID(id) {
		return school.Classroom{}, school.ErrClassroomNotFound
	}
	var cls school.Classroom
	if err := repo.exec.QueryRowContext(ctx,
		`SELECT `+classroomColumns+` FROM classroom WHERE id = $1`, id,
	).Scan(&cls.ID, &cls.Name, &cls.SchoolID, &cls.CreatedAt); err != nil {
		return school.Classroom{}, trapNoRowsErr(err, school.ErrClassroomNotFound, "finding classroom")
	}
	return cls, nil
}

func (repo schoolRepository) SaveClassroom(ctx context.Context, cls school.Classroom) (school.Classroom, error) {
	if cls.ID == "" {
		cls.ID = newID()
		if _, err := repo.exec.ExecContext(ctx,
			`INSERT INTO classroom (`+classroomColumns+`) VALUES ($1, $2, $3, $4)`,
			cls.ID, cls.Name, cls.SchoolID, cls.CreatedAt.UTC()); err != nil {
			return school.Classroom{}, errors.Wrap(err, "inserting classroom")
		}
		return cls, nil
	}

	res, err := repo.exec.ExecContext(ctx, `UPDATE classroom SET name = $2 WHERE id = $1`, cls.ID, cls.Name)
	if err != nil {
		return school.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Classroom{}, school.ErrClassroomNotFound
	}
	return cls, nil
}

func (repo schoolRepository) ClassroomsByIDs(ctx context.Context, ids []string) ([]school.Classroom, error) {
	rows, err := repo.exec.QueryContext(ctx,
		`SELECT `+classroomColumns+` FROM classroom WHERE id = ANY($1::uuid[]) ORDER BY lower(name), id`,
		pq.Array(uuids(ids)))
	if err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	defer func() { _ = rows.Close() }()

	classrooms := make([]school.Classroom, 0, len(ids))
	for rows.Next() {
		var cls school.Classroom
		if err = rows.Scan(&cls.ID, &cls.Name, &cls.SchoolID, &cls.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning classroom")
		}
		classrooms = append(classrooms, cls)
	}
	return classrooms, errors.Wrap(rows.Err(), "querying classrooms")
}

// students

const studentColumns = `id, first_name, last_name, school_id, date_of_birth, created_at`

func (repo schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	if !isUUID(id) {
		return school.Student{}, school.ErrStudentNotFound
	}
	var row studentRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrStudentNotFound, "finding student")
	}
	return row.toStudent(), nil
}

func (repo schoolRepository) SaveStudent(ctx context.Context, st school.Student) (school.Student, error) {
	if st.ID == "" {
		st.ID = newID()
		if _, err := repo.exec.ExecContext(ctx,
			`INSERT INTO student (`+studentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			st.ID, st.FirstName, st.LastName, st.SchoolID, st.DateOfBirth, st.CreatedAt.UTC()); err != nil {
			return school.Student{}, errors.Wrap(err, "inserting student")
		}
		return st, nil
	}

	res, err := repo.exec.ExecContext(ctx,
		`UPDATE student SET first_name = $2, last_name = $3, date_of_birth = $4 WHERE id = $1`,
		st.ID, st.FirstName, st.LastName, st.DateOfBirth)
	if err != nil {
		return school.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return st, nil
}

func (repo schoolRepository) StudentsByIDs(ctx context.Context, ids []string) ([]school.Student, error) {
	var rows []studentRow
	if err := repo.exec.SelectContext(ctx, &rows,
		`SELECT `+studentColumns+` FROM student WHERE id = ANY($1::uuid[])
		ORDER BY lower(last_name), lower(first_name), id`,
		pq.Array(uuids(ids))); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

// links

func (repo schoolRepository) SaveEnrollment(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	enr.ID = newID()
	if err := repo.exec.QueryRowContext(ctx,
		`INSERT INTO enrollment (id, student_id, classroom_id, school_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, classroom_id) DO UPDATE SET student_id = EXCLUDED.student_id
		RETURNING id, created_at`,
		enr.ID, enr.StudentID, enr.ClassroomID, enr.SchoolID, enr.CreatedAt.UTC(),
	).Scan(&enr.ID, &enr.CreatedAt); err != nil {
		return school.Enrollment{}, errors.Wrap(err, "saving enrollment")
	}
	return enr, nil
}

func (repo schoolRepository) SaveAssignment(ctx context.Context, asg school.TeacherAssignment) (school.TeacherAssignment, error) {
	asg.ID = newID()
	if err := repo.exec.QueryRowContext(ctx,
		`INSERT INTO teacher_classroom (id, teacher_id, classroom_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (teacher_id, classroom_id) DO UPDATE SET teacher_id = EXCLUDED.teacher_id
		RETURNING id, created_at`,
		asg.ID, asg.TeacherID, asg.ClassroomID, asg.CreatedAt.UTC(),
	).Scan(&asg.ID, &asg.CreatedAt); err != nil {
		return school.TeacherAssignment{}, errors.Wrap(err, "saving teacher assignment")
	}
	return asg, nil
}

func (repo schoolRepository) SaveGuardianLink(ctx context.Context, link school.GuardianLink) (school.GuardianLink, error) {
	link.ID = newID()
	if err := repo.exec.QueryRowContext(ctx,
		`INSERT INTO guardian (id, user_id, student_id, relationship, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, student_id) DO UPDATE SET relationship = EXCLUDED.relationship
		RETURNING id, created_at`,
		link.ID, link.UserID, link.StudentID, link.Relationship, link.CreatedAt.UTC(),
	).Scan(&link.ID, &link.CreatedAt); err != nil {
		return school.GuardianLink{}, errors.Wrap(err, "saving guardian link")
	}
	return link, nil
}

func (repo schoolRepository) AssignmentsBySchool(ctx context.Context, schoolID string) ([]school.TeacherAssignment, error) {
	res := make([]school.TeacherAssignment, 0)
	if !isUUID(schoolID) {
		return res, nil
	}
	rows, err := repo.exec.QueryContext(ctx,
		`SELECT tc.id, tc.teacher_id, tc.classroom_id, tc.created_at
		FROM teacher_classroom tc JOIN classroom c ON c.id = tc.classroom_id
		WHERE c.school_id = $1 ORDER BY tc.created_at`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher assignments")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var asg school.TeacherAssignment
		if err = rows.Scan(&asg.ID, &asg.TeacherID, &asg.ClassroomID, &asg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning teacher assignment")
		}
		res = append(res, asg)
	}
	return res, errors.Wrap(rows.Err(), "querying teacher assignments")
}

func (repo schoolRepository) GuardianLinksBySchool(ctx context.Context, schoolID string) ([]school.GuardianLink, error) {
	res := make([]school.GuardianLink, 0)
	if !isUUID(schoolID) {
		return res, nil
	}
	rows, err := repo.exec.QueryContext(ctx,
		`SELECT g.id, g.user_id, g.student_id, g.relationship, g.created_at
		FROM guardian g JOIN student s ON s.id = g.student_id
		WHERE s.school_id = $1 ORDER BY g.created_at`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardian links")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var link school.GuardianLink
		if err = rows.Scan(&link.ID, &link.UserID, &link.StudentID, &link.Relationship, &link.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning guardian link")
		}
		res = append(res, link)
	}
	return res, errors.Wrap(rows.Err(), "querying guardian links")
}
