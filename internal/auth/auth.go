package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/kiterunner/internal/web"
	"github.com/siahsang/kiterunner/models"
	"golang.org/x/crypto/bcrypt"
)

type userCtxKey struct{}

var (
	ErrInvalidToken = xerrors.Message("invalid token")
	ErrWeakSecret   = xerrors.Message("jwt secret must not be empty")
)

// Auth issues and verifies HS256 access tokens.
type Auth struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func New(secret string, expiry time.Duration) (*Auth, error) {
	if secret == "" {
		return nil, ErrWeakSecret
	}

	return &Auth{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

func (a *Auth) IssueToken(user *models.User) (string, error) {
	now := a.now()
	claim := UserClaim{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)
	signedString, err := token.SignedString(a.secret)
	if err != nil {
		return "", xerrors.New(err)
	}
	return signedString, nil
}

// VerifyToken checks the signature and expiry of tokenString and returns the user id it was issued for.
func (a *Auth) VerifyToken(tokenString string) (int64, error) {
	claim := &UserClaim{}
	parsedToken, err := jwt.ParseWithClaims(tokenString, claim, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))

	if err != nil {
		return 0, xerrors.Newf("%w: %v", ErrInvalidToken, err)
	}

	if !parsedToken.Valid || claim.UserID == 0 {
		return 0, xerrors.New(ErrInvalidToken)
	}

	return claim.UserID, nil
}

// BcryptHasher hashes passwords with a fixed bcrypt cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plainTextPassword string) ([]byte, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), h.Cost)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return hashedPassword, nil
}

func (h BcryptHasher) Matches(hashedPassword []byte, plainTextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hashedPassword, []byte(plainTextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, xerrors.New(err)
	}

	return true, nil
}

func GetAuthenticatedUser(r *http.Request) (*models.User, bool) {
	return web.GetValueFromContext[*models.User](r, userCtxKey{})
}

func SetAuthenticatedUser(r *http.Request, user *models.User) *http.Request {
	return web.AddValueToContext(r, userCtxKey{}, user)
}

func IsUserAuthenticated(r *http.Request) bool {
	_, ok := GetAuthenticatedUser(r)
	return ok
}
