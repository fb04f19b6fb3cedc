package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/internal/utils/stringutils"
	"github.com/siahsang/kiterunner/models"
)

const selectProfile = `
		SELECT p.id, p.user_id, u.username, p.bio, p.image
		FROM profiles p
		JOIN users u ON u.id = p.user_id
`

type ProfileModel struct {
	sqlTemplate *databaseutils.SQLTemplate
}

func (m ProfileModel) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, bio, image)
		VALUES ($1, $2, $3)
		RETURNING id
`
	_, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, query, func(rows *sql.Rows) (*models.Profile, error) {
		if err := rows.Scan(&profile.ID); err != nil {
			return nil, xerrors.New(err)
		}
		return profile, nil
	}, profile.UserID, profile.Bio, profile.Image)

	return classify(err)
}

func (m ProfileModel) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := databaseutils.ExecuteSingleQuery(ctx, m.sqlTemplate, selectProfile+" WHERE u.username = $1", scanProfile, username)
	if err != nil {
		return nil, classify(err)
	}
	return profile, nil
}

func (m ProfileModel) GetByIDs(ctx context.Context, ids []int64) ([]*models.Profile, error) {
	if len(ids) == 0 {
		return []*models.Profile{}, nil
	}

	placeholders, args := stringutils.InClause(1, ids)
	query := fmt.Sprintf("%s WHERE p.id IN (%s)", selectProfile, placeholders)

	profiles, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanProfile, args...)
	if err != nil {
		return nil, classify(err)
	}
	return profiles, nil
}

func (m ProfileModel) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET bio = $1, image = $2
		WHERE id = $3
`
	affected, err := databaseutils.Exec(ctx, m.sqlTemplate, query, profile.Bio, profile.Image, profile.ID)
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return classify(sql.ErrNoRows)
	}
	return nil
}

func (m ProfileModel) Follow(ctx context.Context, followerID, followeeID int64) error {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
`
	_, err := databaseutils.Exec(ctx, m.sqlTemplate, query, followerID, followeeID)
	return classify(err)
}

func (m ProfileModel) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND followee_id = $2
`
	_, err := databaseutils.Exec(ctx, m.sqlTemplate, query, followerID, followeeID)
	return classify(err)
}

func (m ProfileModel) FollowedAmong(ctx context.Context, followerID int64, ids []int64) (map[int64]bool, error) {
	followed := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return followed, nil
	}

	placeholders, args := stringutils.InClause(2, ids)
	query := fmt.Sprintf(`
		SELECT followee_id
		FROM follows
		WHERE follower_id = $1 AND followee_id IN (%s)
`, placeholders)

	followeeIDs, err := databaseutils.ExecuteQuery(ctx, m.sqlTemplate, query, scanID, append([]any{followerID}, args...)...)
	if err != nil {
		return nil, classify(err)
	}

	for _, id := range followeeIDs {
		followed[id] = true
	}
	return followed, nil
}

func scanProfile(rows *sql.Rows) (*models.Profile, error) {
	profile := &models.Profile{}
	if err := rows.Scan(&profile.ID, &profile.UserID, &profile.Username, &profile.Bio, &profile.Image); err != nil {
		return nil, xerrors.New(err)
	}
	return profile, nil
}

func scanID(rows *sql.Rows) (int64, error) {
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, xerrors.New(err)
	}
	return id, nil
}
