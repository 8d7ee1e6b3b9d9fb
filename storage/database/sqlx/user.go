package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/user"
)

const userColumns = `id, email, display_name, role, school_id, is_active, password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	DisplayName  string      `db:"display_name"`
	Role         string      `db:"role"`
	SchoolID     null.String `db:"school_id"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		DisplayName:  usr.DisplayName,
		Role:         usr.Role.String(),
		SchoolID:     null.NewString(usr.SchoolID, usr.SchoolID != ""),
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:           row.ID,
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		Role:         access.ParseRole(row.Role),
		SchoolID:     row.SchoolID.String,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{exec: db}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	row := toUserRow(usr)
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO user_profile (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.Email, row.DisplayName, row.Role, row.SchoolID, row.IsActive, row.PasswordHash,
		row.CreatedAt, row.UpdatedAt, row.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !isUUID(id) {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user_profile WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user_profile WHERE email = $1`, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return row.toUser(), nil
}

func (repo userRepository) EmailExists(ctx context.Context, email string, excludedIDs ...string) (bool, error) {
	if excludedIDs == nil {
		excludedIDs = []string{} // a NULL array would exclude everyone
	}
	var exists bool
	err := repo.exec.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM user_profile WHERE email = $1 AND NOT (id::text = ANY($2)))`,
		email, pq.Array(excludedIDs))
	if err != nil {
		return false, errors.Wrap(err, "checking user uniqueness")
	}
	return exists, nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.SchoolID != "" {
		if !isUUID(filter.SchoolID) {
			return []user.User{}, nil
		}
		where = append(where, "school_id = "+arg(filter.SchoolID))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, r.String())
		}
		where = append(where, "role = ANY("+arg(pq.Array(roles))+")")
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	// users with DisplayName or Email matching the search keyword
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(display_name ILIKE "+p+" OR email ILIKE "+p+")")
	}

	q := `SELECT ` + userColumns + ` FROM user_profile`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + core.DBOrdering{Field: "lower(display_name)", Ascending: true}.String()

	var rows []userRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE user_profile
		SET email = $2, display_name = $3, role = $4, school_id = $5, is_active = $6,
			password_hash = $7, updated_at = $8, last_login = $9
		WHERE id = $1`,
		row.ID, row.Email, row.DisplayName, row.Role, row.SchoolID, row.IsActive,
		row.PasswordHash, row.UpdatedAt, row.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
