package message_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/message"
	"github.com/trezcool/escuela/core/school"
	"github.com/trezcool/escuela/core/user"
	"github.com/trezcool/escuela/testutil"
)

var ctx = context.Background()

type fixture struct {
	env                           *testutil.Env
	s1, s2                        school.School
	c1, c2, c3                    school.Classroom
	director, teacher, guardian   user.User
	director2, stranger, orphaned user.User
}

func setup(t *testing.T) *fixture {
	env := testutil.NewEnv(t)
	f := &fixture{env: env}

	f.s1 = testutil.CreateSchool(t, env.Schools, "Lycée Wima")
	f.s2 = testutil.CreateSchool(t, env.Schools, "Collège Boboto")
	f.c1 = testutil.CreateClassroom(t, env.Schools, f.s1.ID, "6A")
	f.c2 = testutil.CreateClassroom(t, env.Schools, f.s1.ID, "6B")
	f.c3 = testutil.CreateClassroom(t, env.Schools, f.s2.ID, "1A")
	st1 := testutil.CreateStudent(t, env.Schools, f.s1.ID, "Amani", "Kabila")
	st2 := testutil.CreateStudent(t, env.Schools, f.s1.ID, "Bijou", "Lumumba")
	testutil.Enroll(t, env.Schools, st1, f.c1)
	testutil.Enroll(t, env.Schools, st2, f.c2)

	f.director = testutil.CreateUser(t, env.Users, "Director", "dir@test.cd", "", access.RoleDirector, f.s1.ID, true)
	f.director2 = testutil.CreateUser(t, env.Users, "Director 2", "dir2@test.cd", "", access.RoleDirector, f.s2.ID, true)
	f.teacher = testutil.CreateUser(t, env.Users, "Teacher", "teacher@test.cd", "", access.RoleTeacher, f.s1.ID, true)
	f.guardian = testutil.CreateUser(t, env.Users, "Guardian", "guardian@test.cd", "", access.RoleGuardian, f.s1.ID, true)
	f.stranger = testutil.CreateUser(t, env.Users, "Other guardian", "stranger@test.cd", "", access.RoleGuardian, f.s1.ID, false)
	f.orphaned = testutil.CreateUser(t, env.Users, "Wardless", "wardless@test.cd", "", access.RoleGuardian, f.s1.ID, true)
	testutil.Assign(t, env.Schools, f.teacher, f.c1)
	testutil.LinkGuardian(t, env.Schools, f.guardian, st1, "")
	testutil.LinkGuardian(t, env.Schools, f.stranger, st2, "") // inactive: never notified
	return f
}

func (f *fixture) thread(t *testing.T, schoolID string, cls *school.Classroom, createdAt time.Time) message.Thread {
	thread := message.Thread{SchoolID: schoolID, Title: "Thread", CreatedBy: f.director.ID, CreatedAt: createdAt}
	if cls != nil {
		thread.ClassroomID = null.StringFrom(cls.ID)
	}
	thread, err := f.env.Messages.CreateThread(ctx, thread, message.Message{SenderID: f.director.ID, Body: "Hello", CreatedAt: createdAt})
	require.NoError(t, err)
	return thread
}

func TestService_List(t *testing.T) {
	f := setup(t)
	svc := f.env.MessageSvc

	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		f.thread(t, f.s1.ID, nil, start.Add(time.Duration(2*i)*time.Minute))
	}
	for i := 0; i < 55; i++ {
		f.thread(t, f.s1.ID, &f.c1, start.Add(time.Duration(2*i+1)*time.Minute))
	}
	c2Thread := f.thread(t, f.s1.ID, &f.c2, start)
	f.thread(t, f.s2.ID, &f.c3, start)
	f.thread(t, f.s2.ID, nil, start)

	isNewestFirst := func(threads []message.Thread) bool {
		return sort.SliceIsSorted(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })
	}

	tests := []struct {
		name     string
		caller   access.Caller
		selector string
		wantLen  int
	}{
		{name: "director all", caller: f.director.Caller(), selector: message.SelectAll, wantLen: 20 + 50}, // the classroom limit spans all classrooms
		{name: "director general", caller: f.director.Caller(), selector: message.SelectGeneral, wantLen: 20},
		{name: "director classroom", caller: f.director.Caller(), selector: f.c1.ID, wantLen: 50},
		{name: "teacher all", caller: f.teacher.Caller(), selector: message.SelectAll, wantLen: 20 + 50},
		{name: "teacher other classroom", caller: f.teacher.Caller(), selector: f.c2.ID, wantLen: 0},
		{name: "guardian all", caller: f.guardian.Caller(), selector: message.SelectAll, wantLen: 20 + 50},
		{name: "wardless guardian", caller: f.orphaned.Caller(), selector: message.SelectAll, wantLen: 0},
		{name: "other school classroom", caller: f.director2.Caller(), selector: f.c1.ID, wantLen: 0},
		{name: "other school all", caller: f.director2.Caller(), selector: message.SelectAll, wantLen: 2},
		{name: "no school", caller: access.Caller{UserID: "X", Role: access.RoleTeacher}, selector: message.SelectAll, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads, err := svc.List(ctx, tt.caller, tt.selector)
			require.NoError(t, err)
			assert.Len(t, threads, tt.wantLen)
			assert.True(t, isNewestFirst(threads))
			for _, thread := range threads {
				require.NotNil(t, thread.LastMessage)
				assert.Equal(t, "Hello", thread.LastMessage.Body)
			}
		})
	}

	threads, err := svc.List(ctx, f.director.Caller(), f.c2.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, c2Thread.ID, threads[0].ID)
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	svc := f.env.MessageSvc

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	message.NowFunc = func() time.Time { return now }
	defer func() { message.NowFunc = time.Now }()

	_, err := svc.Create(ctx, f.teacher.Caller(), message.NewThread{Type: message.TypeClassroom, Title: "Devoirs", Body: "Pages 12 à 14"})
	assert.True(t, core.IsValidationError(err), "err = %v", err)

	_, err = svc.Create(ctx, f.teacher.Caller(), message.NewThread{Type: "memo", Title: "Devoirs", Body: "Pages 12 à 14"})
	assert.Error(t, err)

	_, err = svc.Create(ctx, f.guardian.Caller(), message.NewThread{Type: message.TypeClassroom, ClassroomID: f.c1.ID, Title: "Devoirs", Body: "Pages 12 à 14"})
	assert.Equal(t, access.ErrForbidden, err)

	thread, err := svc.Create(ctx, f.teacher.Caller(), message.NewThread{
		Type: " Classroom ", ClassroomID: f.c1.ID, Title: " Devoirs ", Body: "Pages 12 à 14",
	})
	require.NoError(t, err)
	assert.Equal(t, f.s1.ID, thread.SchoolID)
	assert.Equal(t, f.c1.ID, thread.ClassroomID.String)
	assert.Equal(t, "Devoirs", thread.Title)
	assert.Equal(t, f.teacher.ID, thread.CreatedBy)
	assert.Equal(t, now, thread.CreatedAt)

	// general: every active guardian of the school's students
	general, err := svc.Create(ctx, f.director.Caller(), message.NewThread{
		Type: message.TypeGeneral, ClassroomID: f.c2.ID, Title: "Réunion", Body: "Lundi à 10h",
	})
	require.NoError(t, err)
	assert.True(t, general.IsGeneral())

	sent := f.env.Mail.Sent()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		require.Len(t, msg.Bcc, 1)
		assert.Equal(t, f.guardian.Email, msg.Bcc[0].Address)
		assert.Empty(t, msg.To)
	}
	assert.Contains(t, sent[0].TextContent, "6A")
	assert.Contains(t, sent[1].TextContent, "Lundi à 10h")

	t.Run("notifications disabled", func(t *testing.T) {
		f.env.Conf.NotifyOnNewThread = false
		defer func() { f.env.Conf.NotifyOnNewThread = true }()

		_, err := svc.Create(ctx, f.director.Caller(), message.NewThread{Type: message.TypeGeneral, Title: "Réunion", Body: "Mardi à 10h"})
		require.NoError(t, err)
		assert.Len(t, f.env.Mail.Sent(), 2)
	})
}

func TestService_GetAndPost(t *testing.T) {
	f := setup(t)
	svc := f.env.MessageSvc

	general := f.thread(t, f.s1.ID, nil, time.Now().UTC())
	c1Thread := f.thread(t, f.s1.ID, &f.c1, time.Now().UTC())
	c2Thread := f.thread(t, f.s1.ID, &f.c2, time.Now().UTC())

	detail, err := svc.Get(ctx, f.guardian.Caller(), general.ID)
	require.NoError(t, err)
	assert.Equal(t, access.Visibility{CanRead: true}, detail.Visibility)
	require.Len(t, detail.Messages, 1)

	_, err = svc.Get(ctx, f.orphaned.Caller(), general.ID)
	assert.Equal(t, message.ErrNotFound, err)
	_, err = svc.Get(ctx, f.director2.Caller(), general.ID)
	assert.Equal(t, message.ErrNotFound, err)
	_, err = svc.Get(ctx, f.teacher.Caller(), c2Thread.ID)
	assert.Equal(t, message.ErrNotFound, err)
	_, err = svc.Get(ctx, f.teacher.Caller(), "unknown")
	assert.True(t, core.IsNotFound(err))

	_, err = svc.Post(ctx, f.guardian.Caller(), general.ID, message.NewMessage{Body: "Merci"})
	assert.Equal(t, access.ErrForbidden, err)
	_, err = svc.Post(ctx, f.teacher.Caller(), c2Thread.ID, message.NewMessage{Body: "Merci"})
	assert.Equal(t, message.ErrNotFound, err)
	_, err = svc.Post(ctx, f.teacher.Caller(), c1Thread.ID, message.NewMessage{Body: "  "})
	assert.Error(t, err)

	msg, err := svc.Post(ctx, f.guardian.Caller(), c1Thread.ID, message.NewMessage{Body: " Merci "})
	require.NoError(t, err)
	assert.Equal(t, "Merci", msg.Body)
	assert.Equal(t, f.guardian.ID, msg.SenderID)

	detail, err = svc.Get(ctx, f.teacher.Caller(), c1Thread.ID)
	require.NoError(t, err)
	assert.Equal(t, access.Visibility{CanRead: true, CanPost: true}, detail.Visibility)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, msg.ID, detail.Messages[1].ID)
}
