// Package testutil wires the services on the in-memory backend and creates fixtures for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/assets"
	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/attendance"
	"github.com/trezcool/escuela/core/message"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	emailsvc "github.com/trezcool/escuela/services/email"
	logsvc "github.com/trezcool/escuela/services/logger"
	inmemdb "github.com/trezcool/escuela/storage/database/inmem"
)

var parseTemplates sync.Once

// Env holds a fully wired application on a fresh in-memory database.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	Mail   *emailsvc.ConsoleService
	DB     *inmemdb.DB

	Users      user.Repository
	Schools    school.Repository
	Messages   message.Repository
	Attendance attendance.Repository

	Resolver      *access.Resolver
	UserSvc       *user.Service
	SchoolSvc     *school.Service
	MessageSvc    *message.Service
	AttendanceSvc *attendance.Service
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.NotifyOnNewThread = true
	return conf
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	parseTemplates.Do(func() {
		core.ParseEmailTemplates(assets.FS, "templates/email", true, logger)
	})

	db := inmemdb.NewDB()
	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		DB:         db,
		Users:      inmemdb.NewUserRepository(db),
		Schools:    inmemdb.NewSchoolRepository(db),
		Messages:   inmemdb.NewMessageRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
	}
	env.Resolver = access.NewResolver(env.Schools)
	env.UserSvc = user.NewService(env.Users, env.Mail, conf)
	env.SchoolSvc = school.NewService(env.Schools, env.UserSvc, env.Resolver)
	env.MessageSvc = message.NewService(env.Messages, env.SchoolSvc, env.Resolver, env.Mail, conf, logger)
	env.AttendanceSvc = attendance.NewService(env.Attendance, env.SchoolSvc, env.Resolver)
	return env
}

func CreateSchool(t *testing.T, repo school.Repository, name string) school.School {
	sch, err := repo.CreateSchool(context.Background(), school.School{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role access.Role,
	schoolID string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:       email,
		DisplayName: name,
		Role:        role,
		SchoolID:    schoolID,
		IsActive:    isActive,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClassroom(t *testing.T, repo school.Repository, schoolID, name string) school.Classroom {
	cls, err := repo.SaveClassroom(context.Background(), school.Classroom{
		Name:      name,
		SchoolID:  schoolID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClassroom() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo school.Repository, schoolID, firstName, lastName string) school.Student {
	st, err := repo.SaveStudent(context.Background(), school.Student{
		FirstName: firstName,
		LastName:  lastName,
		SchoolID:  schoolID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func Enroll(t *testing.T, repo school.Repository, st school.Student, cls school.Classroom) {
	_, err := repo.SaveEnrollment(context.Background(), school.Enrollment{
		StudentID:   st.ID,
		ClassroomID: cls.ID,
		SchoolID:    cls.SchoolID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
}

func Assign(t *testing.T, repo school.Repository, teacher user.User, cls school.Classroom) {
	_, err := repo.SaveAssignment(context.Background(), school.TeacherAssignment{
		TeacherID:   teacher.ID,
		ClassroomID: cls.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}
}

func LinkGuardian(t *testing.T, repo school.Repository, guardian user.User, st school.Student, relationship string) {
	link := school.GuardianLink{UserID: guardian.ID, StudentID: st.ID, CreatedAt: time.Now().UTC()}
	if relationship != "" {
		link.Relationship = null.StringFrom(relationship)
	}
	if _, err := repo.SaveGuardianLink(context.Background(), link); err != nil {
		t.Fatalf("LinkGuardian() failed: %v", err)
	}
}

func CreateThread(t *testing.T, repo message.Repository, author user.User, schoolID string, cls *school.Classroom, title, body string) message.Thread {
	now := time.Now().UTC()
	thread := message.Thread{SchoolID: schoolID, Title: title, CreatedBy: author.ID, CreatedAt: now}
	if cls != nil {
		thread.ClassroomID = null.StringFrom(cls.ID)
	}
	thread, err := repo.CreateThread(context.Background(), thread, message.Message{SenderID: author.ID, Body: body, CreatedAt: now})
	if err != nil {
		t.Fatalf("CreateThread() failed: %v", err)
	}
	return thread
}
