package inmemdb

import (
	"context"
	"net/mail"
	"sort"

	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/message"
)

type messageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateThread(_ context.Context, thread message.Thread, first message.Message) (message.Thread, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	thread.ID = newID()
	first.ID = newID()
	first.ThreadID = thread.ID
	repo.db.threads[thread.ID] = thread
	repo.db.messages = append(repo.db.messages, first)

	thread.LastMessage = &first
	return thread, nil
}

func (repo *messageRepository) GetThread(_ context.Context, id string) (message.Thread, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if thread, ok := repo.db.threads[id]; ok {
		return thread, nil
	}
	return message.Thread{}, message.ErrNotFound
}

// newest returns the newest threads matching keep, with their last message. Callers hold the lock.
func (repo *messageRepository) newest(limit int, keep func(message.Thread) bool) []message.Thread {
	threads := make([]message.Thread, 0)
	for _, thread := range repo.db.threads {
		if keep(thread) {
			threads = append(threads, thread)
		}
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })
	if len(threads) > limit {
		threads = threads[:limit]
	}

	for i := range threads {
		for _, msg := range repo.db.messages {
			if msg.ThreadID != threads[i].ID {
				continue
			}
			if last := threads[i].LastMessage; last == nil || !msg.CreatedAt.Before(last.CreatedAt) {
				msg := msg
				threads[i].LastMessage = &msg
			}
		}
	}
	return threads
}

func (repo *messageRepository) GeneralThreads(_ context.Context, schoolID string, limit int) ([]message.Thread, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.newest(limit, func(t message.Thread) bool {
		return t.SchoolID == schoolID && t.IsGeneral()
	}), nil
}

func (repo *messageRepository) ClassroomThreads(_ context.Context, classroomIDs []string, limit int) ([]message.Thread, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	want := access.NewIDSet(classroomIDs...)
	return repo.newest(limit, func(t message.Thread) bool {
		return !t.IsGeneral() && want.Has(t.ClassroomID.String)
	}), nil
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.threads[msg.ThreadID]; !ok {
		return message.Message{}, message.ErrNotFound
	}
	msg.ID = newID()
	repo.db.messages = append(repo.db.messages, msg)
	return msg, nil
}

func (repo *messageRepository) MessagesByThread(_ context.Context, threadID string) ([]message.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]message.Message, 0)
	for _, msg := range repo.db.messages {
		if msg.ThreadID == threadID {
			msgs = append(msgs, msg)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (repo *messageRepository) AudienceAddresses(_ context.Context, schoolID, classroomID string) ([]mail.Address, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make(access.IDSet)
	for _, enr := range repo.db.enrollments {
		if classroomID != "" && enr.ClassroomID == classroomID {
			students.Add(enr.StudentID)
		} else if classroomID == "" && enr.SchoolID == schoolID {
			students.Add(enr.StudentID)
		}
	}

	guardians := make(access.IDSet)
	for _, link := range repo.db.guardians {
		if students.Has(link.StudentID) {
			guardians.Add(link.UserID)
		}
	}

	addrs := make([]mail.Address, 0, guardians.Len())
	for _, id := range guardians.Slice() {
		if usr, ok := repo.db.users[id]; ok && usr.IsActive && usr.Email != "" {
			addrs = append(addrs, mail.Address{Name: usr.DisplayName, Address: usr.Email})
		}
	}
	return addrs, nil
}
