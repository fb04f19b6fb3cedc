package core

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/validator"
	"github.com/siahsang/kiterunner/models"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordBytes  = 72
	maxUsernameLength = 50
	maxBioLength      = 500
)

var (
	usernameRX = regexp.MustCompile(`^[\w.@+-]+$`)
	digitsRX   = regexp.MustCompile(`^[0-9]+$`)

	commonPasswords = map[string]struct{}{
		"123456": {}, "1234567": {}, "12345678": {}, "123456789": {}, "password": {},
		"password1": {}, "qwerty": {}, "qwerty123": {}, "abc123": {}, "111111": {},
		"letmein": {}, "iloveyou": {}, "admin": {}, "welcome": {}, "monkey": {},
		"dragon": {}, "football": {}, "baseball": {}, "sunshine": {}, "master": {},
	}
)

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string
	Username *string
	Password *string
	Bio      *string
	Image    *string
}

// Signup registers a user together with its profile and returns it with a fresh token.
func (c *Core) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)

	v := validator.New()
	checkUsername(v, username)
	v.CheckEmail(email, "email")
	checkPassword(v, in.Password, username, email)
	if !v.IsValid() {
		return nil, "", NewValidationError(v)
	}

	if err := c.checkIdentityAvailable(ctx, v, 0, username, email); err != nil {
		return nil, "", err
	}
	if !v.IsValid() {
		return nil, "", NewValidationError(v)
	}

	hash, err := c.passwords.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}

	err = c.inTransaction(ctx, func(txCtx context.Context) error {
		if err := c.repos.Users.Create(txCtx, user); err != nil {
			return err
		}

		profile := &models.Profile{
			UserID:   user.ID,
			Username: user.Username,
			Bio:      "",
			Image:    models.DefaultImage,
		}
		if err := c.repos.Profiles.Create(txCtx, profile); err != nil {
			return err
		}

		user.ProfileID = profile.ID
		user.Bio = profile.Bio
		user.Image = profile.Image
		return nil
	})
	if err != nil {
		return nil, "", identityConflict(err)
	}

	c.log.InfoContext(ctx, "user signed up", "user_id", user.ID, "username", user.Username)

	token, err := c.tokens.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns the user with a newly issued token.
func (c *Core) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	v := validator.New()
	v.CheckNotBlank(email, "email", "must be provided")
	v.CheckNotBlank(password, "password", "must be provided")
	if !v.IsValid() {
		return nil, "", NewValidationError(v)
	}

	user, err := c.repos.Users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, "", xerrors.New(ErrInvalidCredentials)
		}
		return nil, "", err
	}

	match, err := c.passwords.Matches(user.PasswordHash, password)
	if err != nil {
		return nil, "", err
	}
	if !match {
		return nil, "", xerrors.New(ErrInvalidCredentials)
	}

	token, err := c.tokens.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves the user a token was issued for.
func (c *Core) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, xerrors.New(ErrAuthenticationRequired)
	}

	userID, err := c.tokens.VerifyToken(token)
	if err != nil {
		return nil, xerrors.Newf("%w: %v", ErrInvalidToken, err)
	}

	user, err := c.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, xerrors.New(ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

func (c *Core) IssueToken(user *models.User) (string, error) {
	return c.tokens.IssueToken(user)
}

// UpdateUser applies a partial update to the caller's account and profile.
func (c *Core) UpdateUser(ctx context.Context, caller *models.User, in UpdateUserInput) (*models.User, string, error) {
	if caller == nil {
		return nil, "", xerrors.New(ErrAuthenticationRequired)
	}

	updated := *caller
	v := validator.New()
	if in.Username != nil {
		updated.Username = strings.TrimSpace(*in.Username)
		checkUsername(v, updated.Username)
	}
	if in.Email != nil {
		updated.Email = NormalizeEmail(*in.Email)
		v.CheckEmail(updated.Email, "email")
	}
	if in.Password != nil {
		checkPassword(v, *in.Password, updated.Username, updated.Email)
	}
	if in.Bio != nil {
		updated.Bio = *in.Bio
		v.CheckRules(updated.Bio, "bio", validation.RuneLength(0, maxBioLength))
	}
	if in.Image != nil {
		updated.Image = strings.TrimSpace(*in.Image)
		if updated.Image == "" {
			updated.Image = models.DefaultImage
		}
		v.CheckRules(updated.Image, "image", is.URL)
	}
	if !v.IsValid() {
		return nil, "", NewValidationError(v)
	}

	if err := c.checkIdentityAvailable(ctx, v, caller.ID, changed(caller.Username, updated.Username), changed(caller.Email, updated.Email)); err != nil {
		return nil, "", err
	}
	if !v.IsValid() {
		return nil, "", NewValidationError(v)
	}

	if in.Password != nil {
		hash, err := c.passwords.Hash(*in.Password)
		if err != nil {
			return nil, "", err
		}
		updated.PasswordHash = hash
	}

	err := c.inTransaction(ctx, func(txCtx context.Context) error {
		if err := c.repos.Users.Update(txCtx, &updated); err != nil {
			return err
		}
		return c.repos.Profiles.Update(txCtx, &models.Profile{
			ID:       updated.ProfileID,
			UserID:   updated.ID,
			Username: updated.Username,
			Bio:      updated.Bio,
			Image:    updated.Image,
		})
	})
	if err != nil {
		return nil, "", identityConflict(err)
	}

	c.log.InfoContext(ctx, "user updated", "user_id", updated.ID)

	token, err := c.tokens.IssueToken(&updated)
	if err != nil {
		return nil, "", err
	}
	return &updated, token, nil
}

// checkIdentityAvailable records taken usernames/emails on v. Empty values are skipped;
// selfID excludes the caller's own row.
func (c *Core) checkIdentityAvailable(ctx context.Context, v *validator.Validator, selfID int64, username, email string) error {
	if username != "" {
		existing, err := c.repos.Users.GetByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			v.AddError("username", "Username already exists")
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return err
		}
	}

	if email != "" {
		existing, err := c.repos.Users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			v.AddError("email", "User with this email already exists")
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return err
		}
	}

	return nil
}

// identityConflict turns a uniqueness violation lost to a concurrent writer into a field error.
func identityConflict(err error) error {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return fieldError("username", "Username already exists")
	case errors.Is(err, ErrDuplicateEmail):
		return fieldError("email", "User with this email already exists")
	default:
		return err
	}
}

// NormalizeEmail trims the address and lower-cases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

func checkUsername(v *validator.Validator, username string) {
	v.CheckRules(username, "username",
		validation.Required,
		validation.RuneLength(1, maxUsernameLength),
		validation.Match(usernameRX).Error("may contain only letters, digits and @/./+/-/_ characters"),
	)
}

func checkPassword(v *validator.Validator, password, username, email string) {
	v.CheckRules(password, "password",
		validation.Required,
		validation.RuneLength(minPasswordLength, 0),
	)
	v.Check(len(password) <= maxPasswordBytes, "password", "Ensure this field has no more than 72 bytes.")
	if !v.IsValid() {
		if _, failed := v.Errors["password"]; failed {
			return
		}
	}

	lowered := strings.ToLower(password)
	_, common := commonPasswords[lowered]
	v.Check(!digitsRX.MatchString(password), "password", "This password is entirely numeric.")
	v.Check(!common, "password", "This password is too common.")
	v.Check(lowered != strings.ToLower(username) && lowered != strings.ToLower(email),
		"password", "The password is too similar to the username or email.")
}

func changed(old, updated string) string {
	if old == updated {
		return ""
	}
	return updated
}
