package core

import (
	"context"
	"errors"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/utils/collectionutils"
	"github.com/siahsang/kiterunner/models"
)

// GetProfile returns the profile for username; Following is resolved against viewer when one is given.
func (c *Core) GetProfile(ctx context.Context, viewer *models.User, username string) (*models.Profile, error) {
	profile, err := c.lookupProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	if viewer != nil && viewer.ProfileID != profile.ID {
		followed, err := c.repos.Profiles.FollowedAmong(ctx, viewer.ProfileID, []int64{profile.ID})
		if err != nil {
			return nil, err
		}
		profile.Following = followed[profile.ID]
	}
	return profile, nil
}

// Follow makes follower follow the profile named username. Following twice is a no-op.
func (c *Core) Follow(ctx context.Context, follower *models.User, username string) (*models.Profile, error) {
	if follower == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	profile, err := c.lookupProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	if profile.ID == follower.ProfileID {
		return nil, fieldError("profile", "You can not follow yourself.")
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return c.repos.Profiles.Follow(txCtx, follower.ProfileID, profile.ID)
	})
	if err != nil {
		return nil, err
	}

	c.log.DebugContext(ctx, "profile followed", "follower_id", follower.ProfileID, "followee_id", profile.ID)
	profile.Following = true
	return profile, nil
}

// Unfollow removes the follow relation if present.
func (c *Core) Unfollow(ctx context.Context, follower *models.User, username string) (*models.Profile, error) {
	if follower == nil {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	profile, err := c.lookupProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		return c.repos.Profiles.Unfollow(txCtx, follower.ProfileID, profile.ID)
	})
	if err != nil {
		return nil, err
	}

	profile.Following = false
	return profile, nil
}

func (c *Core) lookupProfile(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := c.repos.Profiles.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, profileNotFound(username)
		}
		return nil, err
	}
	return profile, nil
}

// resolveAuthors loads the authoring profiles for ids with Following set relative to viewer.
func (c *Core) resolveAuthors(ctx context.Context, viewer *models.User, ids []int64) (map[int64]*models.Profile, error) {
	profiles, err := c.repos.Profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := collectionutils.Associate(profiles, func(p *models.Profile) (int64, *models.Profile) {
		return p.ID, p
	})

	if viewer == nil || len(byID) == 0 {
		return byID, nil
	}

	followed, err := c.repos.Profiles.FollowedAmong(ctx, viewer.ProfileID, ids)
	if err != nil {
		return nil, err
	}
	for id, p := range byID {
		p.Following = followed[id]
	}
	return byID, nil
}
