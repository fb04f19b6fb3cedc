package models

import "time"

// DefaultImage is the avatar every profile starts with.
const DefaultImage = "https://www.gravatar.com/avatar/73af357c60e22857eda9a5dbf106e2f0"

// User is an account row joined with the profile it owns.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash []byte
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	ProfileID int64
	Bio       string
	Image     string
}

type Profile struct {
	ID        int64
	UserID    int64
	Username  string
	Bio       string
	Image     string
	Following bool
}

type Tag struct {
	ID    int64
	Label string
	Slug  string
}

type Article struct {
	ID          int64
	Slug        string
	Title       string
	Description string
	Body        string
	AuthorID    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	TagList        []string
	Author         *Profile
	Favorited      bool
	FavoritesCount int64
}

type Comment struct {
	ID        int64
	Body      string
	ArticleID int64
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time

	Author *Profile
}
