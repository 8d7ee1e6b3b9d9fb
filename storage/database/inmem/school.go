package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
)

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// access.RowSource

func (repo *schoolRepository) ClassroomIDsBySchool(_ context.Context, schoolID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, cls := range repo.db.classrooms {
		if cls.SchoolID == schoolID {
			ids = append(ids, cls.ID)
		}
	}
	return ids, nil
}

func (repo *schoolRepository) ClassroomIDsByTeacher(_ context.Context, teacherID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, asg := range repo.db.assignments {
		if asg.TeacherID == teacherID {
			ids = append(ids, asg.ClassroomID)
		}
	}
	return ids, nil
}

func (repo *schoolRepository) ClassroomIDsByStudents(_ context.Context, studentIDs []string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	want := access.NewIDSet(studentIDs...)
	var ids []string
	for _, enr := range repo.db.enrollments {
		if want.Has(enr.StudentID) {
			ids = append(ids, enr.ClassroomID)
		}
	}
	return ids, nil
}

func (repo *schoolRepository) StudentIDsBySchool(_ context.Context, schoolID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, st := range repo.db.students {
		if st.SchoolID == schoolID {
			ids = append(ids, st.ID)
		}
	}
	return ids, nil
}

func (repo *schoolRepository) StudentIDsByClassrooms(_ context.Context, classroomIDs []string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	want := access.NewIDSet(classroomIDs...)
	var ids []string
	for _, enr := range repo.db.enrollments {
		if want.Has(enr.ClassroomID) {
			ids = append(ids, enr.StudentID)
		}
	}
	return ids, nil
}

func (repo *schoolRepository) StudentIDsByGuardian(_ context.Context, userID string) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var ids []string
	for _, link := range repo.db.guardians {
		if link.UserID == userID {
			ids = append(ids, link.StudentID)
		}
	}
	return ids, nil
}

// schools

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	sch.ID = newID()
	repo.db.schools[sch.ID] = sch
	return sch, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return sch, nil
	}
	return school.School{}, school.ErrSchoolNotFound
}

// classrooms

func (repo *schoolRepository) GetClassroom(_ context.Context, id string) (school.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cls, ok := repo.db.classrooms[id]; ok {
		return cls, nil
	}
	return school.Classroom{}, school.ErrClassroomNotFound
}

func (repo *schoolRepository) SaveClassroom(_ context.Context, cls school.Classroom) (school.Classroom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if cls.ID == "" {
		cls.ID = newID()
	} else if _, ok := repo.db.classrooms[cls.ID]; !ok {
		return school.Classroom{}, school.ErrClassroomNotFound
	}
	repo.db.classrooms[cls.ID] = cls
	return cls, nil
}

func (repo *schoolRepository) ClassroomsByIDs(_ context.Context, ids []string) ([]school.Classroom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classrooms := make([]school.Classroom, 0, len(ids))
	for _, id := range access.NewIDSet(ids...).Slice() {
		if cls, ok := repo.db.classrooms[id]; ok {
			classrooms = append(classrooms, cls)
		}
	}
	sort.SliceStable(classrooms, func(i, j int) bool {
		return strings.ToLower(classrooms[i].Name) < strings.ToLower(classrooms[j].Name)
	})
	return classrooms, nil
}

// students

func (repo *schoolRepository) GetStudent(_ context.Context, id string) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return st, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) SaveStudent(_ context.Context, st school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if st.ID == "" {
		st.ID = newID()
	} else if _, ok := repo.db.students[st.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	repo.db.students[st.ID] = st
	return st, nil
}

func (repo *schoolRepository) StudentsByIDs(_ context.Context, ids []string) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.Student, 0, len(ids))
	for _, id := range access.NewIDSet(ids...).Slice() {
		if st, ok := repo.db.students[id]; ok {
			students = append(students, st)
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		li, lj := strings.ToLower(students[i].LastName), strings.ToLower(students[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(students[i].FirstName) < strings.ToLower(students[j].FirstName)
	})
	return students, nil
}

// links

func (repo *schoolRepository) SaveEnrollment(_ context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.ClassroomID == enr.ClassroomID {
			return e, nil
		}
	}
	enr.ID = newID()
	repo.db.enrollments = append(repo.db.enrollments, enr)
	return enr, nil
}

func (repo *schoolRepository) SaveAssignment(_ context.Context, asg school.TeacherAssignment) (school.TeacherAssignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, a := range repo.db.assignments {
		if a.TeacherID == asg.TeacherID && a.ClassroomID == asg.ClassroomID {
			return a, nil
		}
	}
	asg.ID = newID()
	repo.db.assignments = append(repo.db.assignments, asg)
	return asg, nil
}

func (repo *schoolRepository) SaveGuardianLink(_ context.Context, link school.GuardianLink) (school.GuardianLink, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, l := range repo.db.guardians {
		if l.UserID == link.UserID && l.StudentID == link.StudentID {
			repo.db.guardians[i].Relationship = link.Relationship
			return repo.db.guardians[i], nil
		}
	}
	link.ID = newID()
	repo.db.guardians = append(repo.db.guardians, link)
	return link, nil
}

func (repo *schoolRepository) AssignmentsBySchool(_ context.Context, schoolID string) ([]school.TeacherAssignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	res := make([]school.TeacherAssignment, 0)
	for _, asg := range repo.db.assignments {
		if repo.db.classrooms[asg.ClassroomID].SchoolID == schoolID {
			res = append(res, asg)
		}
	}
	return res, nil
}

func (repo *schoolRepository) GuardianLinksBySchool(_ context.Context, schoolID string) ([]school.GuardianLink, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	res := make([]school.GuardianLink, 0)
	for _, link := range repo.db.guardians {
		if repo.db.students[link.StudentID].SchoolID == schoolID {
			res = append(res, link)
		}
	}
	return res, nil
}
