// Package message implements school and classroom message threads.
package message

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
)

const (
	generalLimit   = 20
	classroomLimit = 50
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("thread")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateThread inserts the thread together with its first message.
		CreateThread(ctx context.Context, thread Thread, first Message) (Thread, error)
		GetThread(ctx context.Context, id string) (Thread, error)
		// GeneralThreads returns the newest general threads of a school with their last message.
		GeneralThreads(ctx context.Context, schoolID string, limit int) ([]Thread, error)
		// ClassroomThreads returns the newest threads of the classrooms with their last message.
		ClassroomThreads(ctx context.Context, classroomIDs []string, limit int) ([]Thread, error)
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// MessagesByThread returns the messages of a thread oldest first.
		MessagesByThread(ctx context.Context, threadID string) ([]Message, error)
		// AudienceAddresses returns the email addresses of the active guardians of the students
		// enrolled in the classroom, or in any classroom of the school when classroomID is empty.
		AudienceAddresses(ctx context.Context, schoolID, classroomID string) ([]mail.Address, error)
	}

	// ClassroomFinder returns a classroom in the caller's scope.
	ClassroomFinder interface {
		GetClassroom(ctx context.Context, caller access.Caller, id string) (school.Classroom, error)
	}

	Service struct {
		repo       Repository
		classrooms ClassroomFinder
		resolver   *access.Resolver
		mailSvc    core.EmailService
		conf       *core.Config
		logger     core.Logger
	}
)

func NewService(
	repo Repository,
	classrooms ClassroomFinder,
	resolver *access.Resolver,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(classrooms, "classrooms"),
		vala.IsNotNil(resolver, "resolver"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		classrooms: classrooms,
		resolver:   resolver,
		mailSvc:    mailSvc,
		conf:       conf,
		logger:     logger,
	}
}

// List returns the threads visible to the caller for the selector: SelectAll, SelectGeneral or a classroom ID.
// Out-of-scope selectors yield an empty list.
func (svc *Service) List(ctx context.Context, caller access.Caller, selector string) ([]Thread, error) {
	threads := make([]Thread, 0)

	if selector == SelectGeneral || selector == SelectAll {
		vis, err := svc.resolver.ResolveThreadVisibility(ctx, caller, caller.SchoolID, "")
		if err != nil {
			return nil, err
		}
		if vis.CanRead {
			general, err := svc.repo.GeneralThreads(ctx, caller.SchoolID, generalLimit)
			if err != nil {
				return nil, err
			}
			threads = append(threads, general...)
		}
		if selector == SelectGeneral {
			return threads, nil
		}
	}

	classrooms, err := svc.resolver.ResolveClassrooms(ctx, caller)
	if err != nil {
		return nil, err
	}
	var ids []string
	if selector == SelectAll {
		ids = classrooms.Slice()
	} else if classrooms.Has(selector) {
		ids = []string{selector}
	}
	if len(ids) > 0 {
		classThreads, err := svc.repo.ClassroomThreads(ctx, ids, classroomLimit)
		if err != nil {
			return nil, err
		}
		threads = append(threads, classThreads...)
	}

	sort.SliceStable(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })
	return threads, nil
}

// visibleThread returns the thread and the caller's visibility; unreadable threads are not found.
func (svc *Service) visibleThread(ctx context.Context, caller access.Caller, id string) (Thread, access.Visibility, error) {
	thread, err := svc.repo.GetThread(ctx, id)
	if err != nil {
		return Thread{}, access.Visibility{}, err
	}
	vis, err := svc.resolver.ResolveThreadVisibility(ctx, caller, thread.SchoolID, thread.ClassroomID.String)
	if err != nil {
		return Thread{}, access.Visibility{}, err
	}
	if !vis.CanRead {
		return Thread{}, access.Visibility{}, ErrNotFound
	}
	return thread, vis, nil
}

func (svc *Service) Get(ctx context.Context, caller access.Caller, id string) (ThreadDetail, error) {
	thread, vis, err := svc.visibleThread(ctx, caller, id)
	if err != nil {
		return ThreadDetail{}, err
	}
	msgs, err := svc.repo.MessagesByThread(ctx, thread.ID)
	if err != nil {
		return ThreadDetail{}, err
	}
	return ThreadDetail{Thread: thread, Messages: msgs, Visibility: vis}, nil
}

// Post adds a message to a thread the caller may post in.
func (svc *Service) Post(ctx context.Context, caller access.Caller, threadID string, nm NewMessage) (Message, error) {
	nm.Body = core.CleanString(nm.Body)
	if err := core.Validate.Struct(nm); err != nil {
		return Message{}, err
	}

	thread, vis, err := svc.visibleThread(ctx, caller, threadID)
	if err != nil {
		return Message{}, err
	}
	if !vis.CanPost {
		return Message{}, access.ErrForbidden
	}

	return svc.repo.CreateMessage(ctx, Message{
		ThreadID:  thread.ID,
		SenderID:  caller.UserID,
		Body:      nm.Body,
		CreatedAt: NowFunc().UTC(),
	})
}

// Create opens a thread with its first message and notifies its audience.
func (svc *Service) Create(ctx context.Context, caller access.Caller, nt NewThread) (Thread, error) {
	nt.clean()
	if err := nt.validate(); err != nil {
		return Thread{}, err
	}

	ok, err := svc.resolver.CanCreateThread(ctx, caller, nt.ClassroomID)
	if err != nil {
		return Thread{}, err
	}
	if !ok {
		return Thread{}, access.ErrForbidden
	}

	thread := Thread{
		SchoolID:  caller.SchoolID,
		Title:     nt.Title,
		CreatedBy: caller.UserID,
		CreatedAt: NowFunc().UTC(),
	}
	var classroomName string
	if nt.ClassroomID != "" {
		cls, err := svc.classrooms.GetClassroom(ctx, caller, nt.ClassroomID)
		if err != nil {
			return Thread{}, err
		}
		thread.SchoolID = cls.SchoolID
		thread.ClassroomID = null.StringFrom(cls.ID)
		classroomName = cls.Name
	}

	first := Message{SenderID: caller.UserID, Body: nt.Body, CreatedAt: thread.CreatedAt}
	thread, err = svc.repo.CreateThread(ctx, thread, first)
	if err != nil {
		return Thread{}, err
	}

	if svc.conf.NotifyOnNewThread {
		svc.notify(ctx, caller, thread, classroomName, nt.Body)
	}
	return thread, nil
}

// notify emails the thread's audience. Failures are logged and never fail the creation.
func (svc *Service) notify(ctx context.Context, caller access.Caller, thread Thread, classroomName, body string) {
	addrs, err := svc.repo.AudienceAddresses(ctx, thread.SchoolID, thread.ClassroomID.String)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("message.notify(%s): %v", thread.ID, err), err, caller)
		return
	}
	if len(addrs) == 0 {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:          addrs,
		Subject:      fmt.Sprintf("%s: %s", svc.conf.AppName, thread.Title),
		TemplateName: "new_thread",
		TemplateData: map[string]interface{}{
			"ThreadID":      thread.ID,
			"ClassroomName": classroomName,
			"Title":         thread.Title,
			"Body":          body,
		},
	})
}
