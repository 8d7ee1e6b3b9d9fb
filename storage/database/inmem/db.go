// Package inmemdb is a storage backend keeping every table in memory.
// It backs the tests and the demo mode (DATABASE_ENGINE=memory).
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/message"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
)

// DB holds all tables behind a single lock.
type DB struct {
	mu sync.RWMutex

	schools     map[string]school.School
	users       map[string]user.User
	classrooms  map[string]school.Classroom
	students    map[string]school.Student
	enrollments []school.Enrollment
	assignments []school.TeacherAssignment
	guardians   []school.GuardianLink
	threads     map[string]message.Thread
	messages    []message.Message
	attendance  []attendance.Record
}

func NewDB() *DB {
	return &DB{
		schools:    make(map[string]school.School),
		users:      make(map[string]user.User),
		classrooms: make(map[string]school.Classroom),
		students:   make(map[string]school.Student),
		threads:    make(map[string]message.Thread),
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := NewDB()
	db.mu.Lock()
	defer db.mu.Unlock()

	db.schools = fresh.schools
	db.users = fresh.users
	db.classrooms = fresh.classrooms
	db.students = fresh.students
	db.enrollments = nil
	db.assignments = nil
	db.guardians = nil
	db.threads = fresh.threads
	db.messages = nil
	db.attendance = nil
}

func newID() string {
	return uuid.New().String()
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
