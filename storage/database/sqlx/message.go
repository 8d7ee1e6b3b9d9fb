package sqlxrepos

import (
	"context"
	"net/mail"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core/message"
)

// threadRow is a thread joined with its last message, if any.
type threadRow struct {
	ID          string      `db:"id"`
	SchoolID    string      `db:"school_id"`
	ClassroomID null.String `db:"classroom_id"`
	Title       string      `db:"title"`
	CreatedBy   string      `db:"created_by"`
	CreatedAt   null.Time   `db:"created_at"`

	MsgID        null.String `db:"msg_id"`
	MsgSenderID  null.String `db:"msg_sender_id"`
	MsgBody      null.String `db:"msg_body"`
	MsgCreatedAt null.Time   `db:"msg_created_at"`
}

func (row threadRow) toThread() message.Thread {
	thread := message.Thread{
		ID:          row.ID,
		SchoolID:    row.SchoolID,
		ClassroomID: row.ClassroomID,
		Title:       row.Title,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt.Time,
	}
	if row.MsgID.Valid {
		thread.LastMessage = &message.Message{
			ID:        row.MsgID.String,
			ThreadID:  row.ID,
			SenderID:  row.MsgSenderID.String,
			Body:      row.MsgBody.String,
			CreatedAt: row.MsgCreatedAt.Time,
		}
	}
	return thread
}

const threadSelect = `
SELECT t.id, t.school_id, t.classroom_id, t.title, t.created_by, t.created_at,
	m.id AS msg_id, m.sender_id AS msg_sender_id, m.body AS msg_body, m.created_at AS msg_created_at
FROM message_thread t
LEFT JOIN LATERAL (
	SELECT id, sender_id, body, created_at FROM message
	WHERE thread_id = t.id ORDER BY created_at DESC LIMIT 1
) m ON true`

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) message.Repository {
	return &messageRepository{db: db}
}

func (repo messageRepository) selectThreads(ctx context.Context, q string, args ...interface{}) ([]message.Thread, error) {
	var rows []threadRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying threads")
	}
	threads := make([]message.Thread, 0, len(rows))
	for _, row := range rows {
		threads = append(threads, row.toThread())
	}
	return threads, nil
}

func (repo messageRepository) CreateThread(ctx context.Context, thread message.Thread, first message.Message) (message.Thread, error) {
	thread.ID = newID()
	first.ID = newID()
	first.ThreadID = thread.ID

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message_thread (id, school_id, classroom_id, title, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			thread.ID, thread.SchoolID, thread.ClassroomID, thread.Title, thread.CreatedBy, thread.CreatedAt.UTC()); err != nil {
			return errors.Wrap(err, "inserting thread")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message (id, thread_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
			first.ID, first.ThreadID, first.SenderID, first.Body, first.CreatedAt.UTC()); err != nil {
			return errors.Wrap(err, "inserting message")
		}
		return nil
	})
	if err != nil {
		return message.Thread{}, err
	}

	thread.LastMessage = &first
	return thread, nil
}

func (repo messageRepository) GetThread(ctx context.Context, id string) (message.Thread, error) {
	if !isUUID(id) {
		return message.Thread{}, message.ErrNotFound
	}
	var row threadRow
	if err := repo.db.GetContext(ctx, &row, threadSelect+` WHERE t.id = $1`, id); err != nil {
		return message.Thread{}, trapNoRowsErr(err, message.ErrNotFound, "finding thread")
	}
	return row.toThread(), nil
}

func (repo messageRepository) GeneralThreads(ctx context.Context, schoolID string, limit int) ([]message.Thread, error) {
	if !isUUID(schoolID) {
		return []message.Thread{}, nil
	}
	return repo.selectThreads(ctx,
		threadSelect+` WHERE t.school_id = $1 AND t.classroom_id IS NULL ORDER BY t.created_at DESC LIMIT $2`,
		schoolID, limit)
}

func (repo messageRepository) ClassroomThreads(ctx context.Context, classroomIDs []string, limit int) ([]message.Thread, error) {
	return repo.selectThreads(ctx,
		threadSelect+` WHERE t.classroom_id = ANY($1::uuid[]) ORDER BY t.created_at DESC LIMIT $2`,
		pq.Array(uuids(classroomIDs)), limit)
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	msg.ID = newID()
	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO message (id, thread_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ThreadID, msg.SenderID, msg.Body, msg.CreatedAt.UTC()); err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) MessagesByThread(ctx context.Context, threadID string) ([]message.Message, error) {
	msgs := make([]message.Message, 0)
	if !isUUID(threadID) {
		return msgs, nil
	}
	rows, err := repo.db.QueryContext(ctx,
		`SELECT id, thread_id, sender_id, body, created_at FROM message WHERE thread_id = $1 ORDER BY created_at, id`,
		threadID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var msg message.Message
		if err = rows.Scan(&msg.ID, &msg.ThreadID, &msg.SenderID, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning message")
		}
		msgs = append(msgs, msg)
	}
	return msgs, errors.Wrap(rows.Err(), "querying messages")
}

func (repo messageRepository) AudienceAddresses(ctx context.Context, schoolID, classroomID string) ([]mail.Address, error) {
	q := `SELECT DISTINCT u.display_name, u.email
		FROM guardian g
		JOIN user_profile u ON u.id = g.user_id AND u.is_active
		JOIN enrollment e ON e.student_id = g.student_id
		WHERE `
	var arg string
	if classroomID != "" {
		q += `e.classroom_id = $1`
		arg = classroomID
	} else {
		q += `e.school_id = $1`
		arg = schoolID
	}
	if !isUUID(arg) {
		return []mail.Address{}, nil
	}

	rows, err := repo.db.QueryContext(ctx, q+` ORDER BY u.email`, arg)
	if err != nil {
		return nil, errors.Wrap(err, "querying thread audience")
	}
	defer func() { _ = rows.Close() }()

	addrs := make([]mail.Address, 0)
	for rows.Next() {
		var addr mail.Address
		if err = rows.Scan(&addr.Name, &addr.Address); err != nil {
			return nil, errors.Wrap(err, "scanning thread audience")
		}
		addrs = append(addrs, addr)
	}
	return addrs, errors.Wrap(rows.Err(), "querying thread audience")
}
