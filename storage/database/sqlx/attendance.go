package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core/attendance"
)

const attendanceColumns = `id, school_id, classroom_id, student_id, date, status, note, taken_by, created_at, updated_at`

type attendanceRow struct {
	ID          string      `db:"id"`
	SchoolID    string      `db:"school_id"`
	ClassroomID string      `db:"classroom_id"`
	StudentID   string      `db:"student_id"`
	Date        time.Time   `db:"date"`
	Status      string      `db:"status"`
	Note        null.String `db:"note"`
	TakenBy     string      `db:"taken_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row attendanceRow) toRecord() attendance.Record {
	return attendance.Record{
		ID:          row.ID,
		SchoolID:    row.SchoolID,
		ClassroomID: row.ClassroomID,
		StudentID:   row.StudentID,
		Date:        row.Date.UTC(),
		Status:      attendance.Status(row.Status),
		Note:        row.Note,
		TakenBy:     row.TakenBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) selectRecords(ctx context.Context, q string, args ...interface{}) ([]attendance.Record, error) {
	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+attendanceColumns+` FROM attendance WHERE `+q, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs, nil
}

func (repo attendanceRepository) RecordsByClassroomDate(ctx context.Context, classroomID string, date time.Time) ([]attendance.Record, error) {
	if !isUUID(classroomID) {
		return []attendance.Record{}, nil
	}
	return repo.selectRecords(ctx, `classroom_id = $1 AND date = $2`, classroomID, date)
}

func (repo attendanceRepository) SaveRecords(ctx context.Context, classroomID string, date time.Time, records []attendance.Record, clearedStudentIDs []string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if len(clearedStudentIDs) > 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM attendance WHERE classroom_id = $1 AND date = $2 AND student_id = ANY($3::uuid[])`,
				classroomID, date, pq.Array(uuids(clearedStudentIDs))); err != nil {
				return errors.Wrap(err, "clearing attendance")
			}
		}

		for _, rec := range records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attendance (`+attendanceColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (student_id, classroom_id, date)
				DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note,
					taken_by = EXCLUDED.taken_by, updated_at = EXCLUDED.updated_at`,
				newID(), rec.SchoolID, rec.ClassroomID, rec.StudentID, rec.Date, string(rec.Status),
				rec.Note, rec.TakenBy, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()); err != nil {
				return errors.Wrap(err, "saving attendance")
			}
		}
		return nil
	})
}

func (repo attendanceRepository) RecordsByClassroomRange(ctx context.Context, classroomID string, from, to time.Time) ([]attendance.Record, error) {
	if !isUUID(classroomID) {
		return []attendance.Record{}, nil
	}
	return repo.selectRecords(ctx, `classroom_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`, classroomID, from, to)
}

func (repo attendanceRepository) RecordsByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]attendance.Record, error) {
	if !isUUID(studentID) {
		return []attendance.Record{}, nil
	}
	return repo.selectRecords(ctx, `student_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`, studentID, from, to)
}
