package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (repo *attendanceRepository) filter(keep func(attendance.Record) bool) []attendance.Record {
	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return recs
}

func (repo *attendanceRepository) RecordsByClassroomDate(_ context.Context, classroomID string, date time.Time) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.filter(func(rec attendance.Record) bool {
		return rec.ClassroomID == classroomID && sameDay(rec.Date, date)
	}), nil
}

func (repo *attendanceRepository) SaveRecords(_ context.Context, classroomID string, date time.Time, records []attendance.Record, clearedStudentIDs []string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cleared := access.NewIDSet(clearedStudentIDs...)
	kept := repo.db.attendance[:0]
	for _, rec := range repo.db.attendance {
		if rec.ClassroomID == classroomID && sameDay(rec.Date, date) && cleared.Has(rec.StudentID) {
			continue
		}
		kept = append(kept, rec)
	}
	repo.db.attendance = kept

	for _, rec := range records {
		found := false
		for i, existing := range repo.db.attendance {
			if existing.StudentID == rec.StudentID && existing.ClassroomID == rec.ClassroomID && sameDay(existing.Date, rec.Date) {
				rec.ID = existing.ID
				rec.CreatedAt = existing.CreatedAt
				repo.db.attendance[i] = rec
				found = true
				break
			}
		}
		if !found {
			rec.ID = newID()
			repo.db.attendance = append(repo.db.attendance, rec)
		}
	}
	return nil
}

func (repo *attendanceRepository) RecordsByClassroomRange(_ context.Context, classroomID string, from, to time.Time) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.filter(func(rec attendance.Record) bool {
		return rec.ClassroomID == classroomID && !rec.Date.Before(from) && !rec.Date.After(to)
	}), nil
}

func (repo *attendanceRepository) RecordsByStudentRange(_ context.Context, studentID string, from, to time.Time) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.filter(func(rec attendance.Record) bool {
		return rec.StudentID == studentID && !rec.Date.Before(from) && !rec.Date.After(to)
	}), nil
}
