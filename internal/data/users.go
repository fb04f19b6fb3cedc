package data

import (
	"context"
	"database/sql"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/models"
)

const selectUser = `
		SELECT u.id, u.email, u.username, u.password_hash, u.is_staff, u.created_at, u.updated_at,
		       p.id, p.bio, p.image
		FROM users u
		JOIN profiles p ON p.user_id = u.id
`

type UserModel struct {
	sqlTemplate *databaseutils.SQLTemplate
}

func (m UserModel) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, is_staff)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
`
	args := []any{user.Email, user.Username, user.PasswordHash, user.IsStaff}
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.User, error) {
		if err := rows.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return user, nil
	}, args...)

	return classify(err)
}

func (m UserModel) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.getOne(ctx, selectUser+" WHERE u.id = $1", id)
}

func (m UserModel) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.getOne(ctx, selectUser+" WHERE u.email = $1", email)
}

func (m UserModel) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.getOne(ctx, selectUser+" WHERE u.username = $1", username)
}

func (m UserModel) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, scanUser, arg)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

func (m UserModel) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $1, username = $2, password_hash = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
`
	args := []any{user.Email, user.Username, user.PasswordHash, user.ID}
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.User, error) {
		if err := rows.Scan(&user.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		return user, nil
	}, args...)

	return classify(err)
}

func scanUser(rows *sql.Rows) (*models.User, error) {
	user := &models.User{}
	if err := rows.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.IsStaff,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.ProfileID,
		&user.Bio,
		&user.Image,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return user, nil
}
