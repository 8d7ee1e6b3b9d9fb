// Package attendance records daily classroom attendance and reports on it.
package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/school"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		RecordsByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]Record, error)
		// SaveRecords upserts records on (student, classroom, date) and deletes the records of
		// clearedStudentIDs for the classroom and date, all or nothing.
		SaveRecords(ctx context.Context, classroomID string, date time.Time, records []Record, clearedStudentIDs []string) error
		// RecordsByClassroomRange returns the records of the classroom between from and to inclusive, by date.
		RecordsByClassroomRange(ctx context.Context, classroomID string, from, to time.Time) ([]Record, error)
		// RecordsByStudentRange returns the records of the student between from and to inclusive, by date.
		RecordsByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]Record, error)
	}

	// StudentLister lists the students of the caller's scope, optionally in one classroom.
	StudentLister interface {
		ListStudents(ctx context.Context, caller access.Caller, classroomID string) ([]school.Student, error)
		GetClassroom(ctx context.Context, caller access.Caller, id string) (school.Classroom, error)
	}

	Service struct {
		repo     Repository
		students StudentLister
		resolver *access.Resolver
	}
)

func NewService(repo Repository, students StudentLister, resolver *access.Resolver) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(resolver, "resolver"),
	).CheckAndPanic()

	return &Service{repo: repo, students: students, resolver: resolver}
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, core.CleanString(value))
	if err != nil {
		return time.Time{}, core.NewFieldValidationError(field, "invalid date format")
	}
	return d, nil
}

// Roster returns the students of a readable classroom with their attendance on date.
// Guardians only see their own wards.
func (svc *Service) Roster(ctx context.Context, caller access.Caller, classroomID, date string) (Roster, error) {
	day, err := parseDate("date", date)
	if err != nil {
		return Roster{}, err
	}
	if _, err = svc.students.GetClassroom(ctx, caller, classroomID); err != nil {
		return Roster{}, err
	}

	students, err := svc.students.ListStudents(ctx, caller, classroomID)
	if err != nil {
		return Roster{}, err
	}
	records, err := svc.repo.RecordsByClassroomDate(ctx, classroomID, day)
	if err != nil {
		return Roster{}, err
	}
	canEdit, err := svc.resolver.CanTakeAttendance(ctx, caller, classroomID)
	if err != nil {
		return Roster{}, err
	}

	byStudent := make(map[string]Record, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	sort.SliceStable(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})

	roster := Roster{
		ClassroomID: classroomID,
		Date:        day.Format(DateLayout),
		Entries:     make([]RosterEntry, 0, len(students)),
		CanEdit:     canEdit,
	}
	for _, st := range students {
		entry := RosterEntry{Student: st}
		if rec, ok := byStudent[st.ID]; ok {
			rec := rec
			entry.Record = &rec
			roster.Summary.add(rec.Status)
		} else {
			roster.Summary.Unmarked++
		}
		roster.Entries = append(roster.Entries, entry)
	}
	return roster, nil
}

// Save records the marks of a classroom for date. Every marked student must be enrolled in the classroom.
func (svc *Service) Save(ctx context.Context, caller access.Caller, classroomID, date string, in SaveInput) error {
	day, err := parseDate("date", date)
	if err != nil {
		return err
	}
	in.clean()
	if err = core.Validate.Struct(in); err != nil {
		return err
	}

	ok, err := svc.resolver.CanTakeAttendance(ctx, caller, classroomID)
	if err != nil {
		return err
	}
	if !ok {
		return access.ErrForbidden
	}

	cls, err := svc.students.GetClassroom(ctx, caller, classroomID)
	if err != nil {
		return err
	}
	students, err := svc.students.ListStudents(ctx, caller, classroomID)
	if err != nil {
		return err
	}
	enrolled := make(access.IDSet, len(students))
	for _, st := range students {
		enrolled.Add(st.ID)
	}

	now := NowFunc().UTC()
	var (
		records []Record
		cleared []string
	)
	for _, mark := range in.Marks {
		if !enrolled.Has(mark.StudentID) {
			return core.NewFieldValidationError("marks", "student "+mark.StudentID+" is not enrolled in this classroom")
		}
		if mark.Status == "" {
			cleared = append(cleared, mark.StudentID)
			continue
		}
		rec := Record{
			SchoolID:    cls.SchoolID,
			ClassroomID: cls.ID,
			StudentID:   mark.StudentID,
			Date:        day,
			Status:      Status(mark.Status),
			TakenBy:     caller.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if mark.Note != "" {
			rec.Note = null.StringFrom(mark.Note)
		}
		records = append(records, rec)
	}
	return svc.repo.SaveRecords(ctx, cls.ID, day, records, cleared)
}

// DailyReport counts the statuses of a readable classroom per day between from and to inclusive.
func (svc *Service) DailyReport(ctx context.Context, caller access.Caller, classroomID, from, to string) (DailyReport, error) {
	fromDay, err := parseDate("from", from)
	if err != nil {
		return DailyReport{}, err
	}
	toDay, err := parseDate("to", to)
	if err != nil {
		return DailyReport{}, err
	}
	if fromDay.After(toDay) {
		return DailyReport{}, core.NewFieldValidationError("from", "must not be after to")
	}
	if _, err = svc.students.GetClassroom(ctx, caller, classroomID); err != nil {
		return DailyReport{}, err
	}

	records, err := svc.repo.RecordsByClassroomRange(ctx, classroomID, fromDay, toDay)
	if err != nil {
		return DailyReport{}, err
	}

	report := DailyReport{
		ClassroomID: classroomID,
		From:        fromDay.Format(DateLayout),
		To:          toDay.Format(DateLayout),
		Days:        make([]DailyCount, 0),
	}
	for _, rec := range records {
		d := rec.Date.Format(DateLayout)
		if n := len(report.Days); n == 0 || report.Days[n-1].Date != d {
			report.Days = append(report.Days, DailyCount{Date: d})
		}
		report.Days[len(report.Days)-1].add(rec.Status)
		report.Total.add(rec.Status)
	}
	return report, nil
}

// MonthlyReport counts the statuses of a student in scope during month (YYYY-MM).
func (svc *Service) MonthlyReport(ctx context.Context, caller access.Caller, studentID, month string) (MonthlyReport, error) {
	start, err := time.Parse(MonthLayout, core.CleanString(month))
	if err != nil {
		return MonthlyReport{}, core.NewFieldValidationError("month", "invalid month format")
	}
	ok, err := svc.resolver.CanReadStudent(ctx, caller, studentID)
	if err != nil {
		return MonthlyReport{}, err
	}
	if !ok {
		return MonthlyReport{}, school.ErrStudentNotFound
	}

	end := start.AddDate(0, 1, -1)
	records, err := svc.repo.RecordsByStudentRange(ctx, studentID, start, end)
	if err != nil {
		return MonthlyReport{}, err
	}

	report := MonthlyReport{StudentID: studentID, Month: start.Format(MonthLayout), Records: records}
	if report.Records == nil {
		report.Records = []Record{}
	}
	for _, rec := range records {
		report.Summary.add(rec.Status)
	}
	return report, nil
}
