package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/siahsang/kiterunner/internal/auth"
	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/internal/core/coretest"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/internal/utils/databaseutils"
	"github.com/siahsang/kiterunner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type CoreSuite struct {
	suite.Suite

	ctx   context.Context
	store *coretest.Store
	cache *memoryTagCache
	core  *core.Core
}

func TestCoreSuite(t *testing.T) {
	suite.Run(t, new(CoreSuite))
}

func (s *CoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = coretest.NewStore()
	s.cache = &memoryTagCache{}
	s.core = newCore(s.T(), s.store, coretest.Session{}, core.WithTagCache(s.cache))
}

func newCore(t *testing.T, store *coretest.Store, session databaseutils.Session, opts ...core.Option) *core.Core {
	t.Helper()

	tokens, err := auth.New("core-test-secret-with-enough-length!!", time.Hour)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return core.NewCore(store.Repositories(), session, tokens, auth.BcryptHasher{Cost: bcrypt.MinCost}, log, opts...)
}

func (s *CoreSuite) signup(username string) *models.User {
	user, token, err := s.core.Signup(s.ctx, core.SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cret-pass",
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(token)
	return user
}

func (s *CoreSuite) article(author *models.User, title string, tags ...string) *models.Article {
	a, err := s.core.CreateArticle(s.ctx, author, core.ArticleInput{
		Title:       title,
		Description: "about " + title,
		Body:        "body of " + title,
		TagList:     tags,
	})
	s.Require().NoError(err)
	return a
}

func validationErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Errors
}

func (s *CoreSuite) TestSignup_CreatesProfileWithDefaults() {
	user, token, err := s.core.Signup(s.ctx, core.SignupInput{
		Username: "u1",
		Email:    "u1@X.COM",
		Password: "abcdef1",
	})
	s.Require().NoError(err)

	s.NotEmpty(token)
	s.Equal("u1", user.Username)
	s.Equal("u1@x.com", user.Email)
	s.Equal("", user.Bio)
	s.Equal(models.DefaultImage, user.Image)
	s.NotZero(user.ProfileID)

	profile, err := s.core.GetProfile(s.ctx, nil, "u1")
	s.Require().NoError(err)
	s.Equal(user.ProfileID, profile.ID)
	s.False(profile.Following)
}

func (s *CoreSuite) TestSignup_TokensAreUnique() {
	_, first, err := s.core.Signup(s.ctx, core.SignupInput{Username: "a1", Email: "a1@x.com", Password: "abcdef1"})
	s.Require().NoError(err)
	_, second, err := s.core.Signup(s.ctx, core.SignupInput{Username: "a2", Email: "a2@x.com", Password: "abcdef1"})
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *CoreSuite) TestSignup_DuplicateUsernameOrEmail() {
	s.signup("taken")

	_, _, err := s.core.Signup(s.ctx, core.SignupInput{Username: "taken", Email: "other@example.com", Password: "s3cret-pass"})
	s.Contains(validationErrors(s.T(), err), "username")

	_, _, err = s.core.Signup(s.ctx, core.SignupInput{Username: "other", Email: "taken@EXAMPLE.com", Password: "s3cret-pass"})
	s.Contains(validationErrors(s.T(), err), "email")
}

func (s *CoreSuite) TestSignup_PasswordPolicy() {
	tests := []struct {
		name     string
		password string
	}{
		{name: "too short", password: "ab1"},
		{name: "entirely numeric", password: "90817263"},
		{name: "common", password: "Password1"},
		{name: "same as username", password: "longusername"},
		{name: "longer than 72 bytes", password: strings.Repeat("a", 72) + "1"},
		{name: "multibyte over 72 bytes", password: strings.Repeat("é", 37) + "1"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, _, err := s.core.Signup(s.ctx, core.SignupInput{
				Username: "longusername",
				Email:    "long@example.com",
				Password: tt.password,
			})
			s.Contains(validationErrors(s.T(), err), "password")
		})
	}
}

func (s *CoreSuite) TestSignup_MissingFields() {
	_, _, err := s.core.Signup(s.ctx, core.SignupInput{})

	errs := validationErrors(s.T(), err)
	s.Contains(errs, "username")
	s.Contains(errs, "email")
	s.Contains(errs, "password")
}

func (s *CoreSuite) TestLogin() {
	s.signup("alice")

	user, token, err := s.core.Login(s.ctx, "alice@example.com", "s3cret-pass")
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
	s.NotEmpty(token)

	_, _, err = s.core.Login(s.ctx, "alice@example.com", "wrong-pass")
	s.ErrorIs(err, core.ErrInvalidCredentials)

	_, _, err = s.core.Login(s.ctx, "nobody@example.com", "s3cret-pass")
	s.ErrorIs(err, core.ErrInvalidCredentials)
}

func (s *CoreSuite) TestAuthenticate() {
	alice := s.signup("alice")
	_, token, err := s.core.Login(s.ctx, "alice@example.com", "s3cret-pass")
	s.Require().NoError(err)

	user, err := s.core.Authenticate(s.ctx, token)
	s.Require().NoError(err)
	s.Equal(alice.ID, user.ID)
	s.Equal(alice.ProfileID, user.ProfileID)

	_, err = s.core.Authenticate(s.ctx, "not-a-token")
	s.ErrorIs(err, core.ErrInvalidToken)

	_, err = s.core.Authenticate(s.ctx, " ")
	s.ErrorIs(err, core.ErrAuthenticationRequired)
}

func (s *CoreSuite) TestUpdateUser_Partial() {
	alice := s.signup("alice")
	bio := "gopher"

	updated, token, err := s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Bio: &bio})
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.Equal("gopher", updated.Bio)
	s.Equal("alice", updated.Username)
	s.Equal(alice.Email, updated.Email)

	profile, err := s.core.GetProfile(s.ctx, nil, "alice")
	s.Require().NoError(err)
	s.Equal("gopher", profile.Bio)
}

func (s *CoreSuite) TestUpdateUser_ChangesUsernameAndPassword() {
	alice := s.signup("alice")
	username, password := "alicia", "n3w-secret"

	_, _, err := s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Username: &username, Password: &password})
	s.Require().NoError(err)

	user, _, err := s.core.Login(s.ctx, "alice@example.com", "n3w-secret")
	s.Require().NoError(err)
	s.Equal("alicia", user.Username)
}

func (s *CoreSuite) TestUpdateUser_PasswordTooLong() {
	alice := s.signup("alice")
	password := strings.Repeat("a", 80) + "1"

	_, _, err := s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Password: &password})
	s.Contains(validationErrors(s.T(), err), "password")

	fits := strings.Repeat("a", 71) + "1"
	_, _, err = s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Password: &fits})
	s.NoError(err)
}

func (s *CoreSuite) TestUpdateUser_TakenUsername() {
	alice := s.signup("alice")
	s.signup("bob")
	taken := "bob"

	_, _, err := s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Username: &taken})
	s.Contains(validationErrors(s.T(), err), "username")

	same := "alice"
	_, _, err = s.core.UpdateUser(s.ctx, alice, core.UpdateUserInput{Username: &same})
	s.NoError(err)
}

func (s *CoreSuite) TestGetProfile_NotFound() {
	_, err := s.core.GetProfile(s.ctx, nil, "ghost")

	var nf *core.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("profile", nf.Resource)
	s.Equal("Profile with username: ghost not found.", nf.Message)
}

func (s *CoreSuite) TestFollow_IsIdempotent() {
	alice := s.signup("alice")
	s.signup("bob")

	for range 2 {
		profile, err := s.core.Follow(s.ctx, alice, "bob")
		s.Require().NoError(err)
		s.True(profile.Following)
	}
	s.Equal(1, s.store.FollowEdges())

	seen, err := s.core.GetProfile(s.ctx, alice, "bob")
	s.Require().NoError(err)
	s.True(seen.Following)

	anonymous, err := s.core.GetProfile(s.ctx, nil, "bob")
	s.Require().NoError(err)
	s.False(anonymous.Following)

	for range 2 {
		profile, err := s.core.Unfollow(s.ctx, alice, "bob")
		s.Require().NoError(err)
		s.False(profile.Following)
	}
	s.Equal(0, s.store.FollowEdges())
}

func (s *CoreSuite) TestFollow_IsDirected() {
	alice := s.signup("alice")
	bob := s.signup("bob")

	_, err := s.core.Follow(s.ctx, alice, "bob")
	s.Require().NoError(err)

	back, err := s.core.GetProfile(s.ctx, bob, "alice")
	s.Require().NoError(err)
	s.False(back.Following)
}

func (s *CoreSuite) TestFollow_Rejections() {
	alice := s.signup("alice")

	_, err := s.core.Follow(s.ctx, alice, "alice")
	s.Contains(validationErrors(s.T(), err), "profile")

	_, err = s.core.Follow(s.ctx, alice, "ghost")
	var nf *core.NotFoundError
	s.ErrorAs(err, &nf)

	_, err = s.core.Follow(s.ctx, nil, "alice")
	s.ErrorIs(err, core.ErrAuthenticationRequired)

	_, err = s.core.Unfollow(s.ctx, nil, "alice")
	s.ErrorIs(err, core.ErrAuthenticationRequired)
}

func (s *CoreSuite) TestCreateArticle_TagOrderAndDedup() {
	alice := s.signup("alice")

	a := s.article(alice, "Hello World", "b", "a", " b ", "A")

	s.Equal("hello-world", a.Slug)
	s.Equal([]string{"b", "a"}, a.TagList)
	s.False(a.Favorited)
	s.Zero(a.FavoritesCount)
	s.Require().NotNil(a.Author)
	s.Equal("alice", a.Author.Username)

	fetched, err := s.core.GetArticle(s.ctx, nil, "hello-world")
	s.Require().NoError(err)
	s.Equal([]string{"b", "a"}, fetched.TagList)
}

func (s *CoreSuite) TestCreateArticle_Validation() {
	alice := s.signup("alice")

	_, err := s.core.CreateArticle(s.ctx, alice, core.ArticleInput{Title: "?!", Body: "x"})
	s.Contains(validationErrors(s.T(), err), "title")

	_, err = s.core.CreateArticle(s.ctx, alice, core.ArticleInput{Title: "ok", Body: " "})
	s.Contains(validationErrors(s.T(), err), "body")

	_, err = s.core.CreateArticle(s.ctx, alice, core.ArticleInput{Title: "ok", Body: "x", TagList: []string{" "}})
	s.Contains(validationErrors(s.T(), err), "tagList")

	_, err = s.core.CreateArticle(s.ctx, nil, core.ArticleInput{Title: "ok", Body: "x"})
	s.ErrorIs(err, core.ErrAuthenticationRequired)
}

func (s *CoreSuite) TestCreateArticle_SlugCollision() {
	alice := s.signup("alice")
	bob := s.signup("bob")

	first := s.article(alice, "Same Title", "x")
	second := s.article(alice, "same title!", "y")

	s.Equal(first.Slug, second.Slug)
	s.Equal(first.ID, second.ID)
	s.Equal([]string{"y"}, second.TagList)

	_, total, err := s.core.ListArticles(s.ctx, nil, core.ArticleFilter{}, filter.NewFilter(20, 0))
	s.Require().NoError(err)
	s.EqualValues(1, total)

	_, err = s.core.CreateArticle(s.ctx, bob, core.ArticleInput{Title: "Same Title", Body: "mine"})
	s.Contains(validationErrors(s.T(), err), "slug")
}

func (s *CoreSuite) TestGetArticle_NotFound() {
	_, err := s.core.GetArticle(s.ctx, nil, "missing")

	var nf *core.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("article", nf.Resource)
	s.Equal("Could not found any article with slug: missing", nf.Message)
}

func (s *CoreSuite) TestFavorite_CountMatchesFavouritedSet() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	carol := s.signup("carol")
	s.article(alice, "Popular")

	for range 2 {
		a, err := s.core.Favorite(s.ctx, bob, "popular")
		s.Require().NoError(err)
		s.True(a.Favorited)
		s.EqualValues(1, a.FavoritesCount)
	}

	a, err := s.core.Favorite(s.ctx, carol, "popular")
	s.Require().NoError(err)
	s.EqualValues(2, a.FavoritesCount)

	viewers := map[*models.User]bool{alice: false, bob: true, carol: true}
	for viewer, favourited := range viewers {
		got, err := s.core.GetArticle(s.ctx, viewer, "popular")
		s.Require().NoError(err)
		s.Equal(favourited, got.Favorited, viewer.Username)
		s.EqualValues(2, got.FavoritesCount)
	}

	anonymous, err := s.core.GetArticle(s.ctx, nil, "popular")
	s.Require().NoError(err)
	s.False(anonymous.Favorited)

	a, err = s.core.Unfavorite(s.ctx, bob, "popular")
	s.Require().NoError(err)
	s.False(a.Favorited)
	s.EqualValues(1, a.FavoritesCount)

	_, err = s.core.Unfavorite(s.ctx, nil, "popular")
	s.ErrorIs(err, core.ErrAuthenticationRequired)

	_, err = s.core.Favorite(s.ctx, bob, "missing")
	var nf *core.NotFoundError
	s.ErrorAs(err, &nf)
}

func (s *CoreSuite) TestListArticles_Filters() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	s.article(alice, "Go Tips", "go")
	s.article(alice, "Rust Tips", "rust")
	s.article(bob, "Go Again", "go")
	_, err := s.core.Favorite(s.ctx, bob, "go-tips")
	s.Require().NoError(err)

	page := filter.NewFilter(20, 0)
	tests := []struct {
		name   string
		filter core.ArticleFilter
		want   []string
	}{
		{name: "all newest first", filter: core.ArticleFilter{}, want: []string{"go-again", "rust-tips", "go-tips"}},
		{name: "by author", filter: core.ArticleFilter{Author: "alice"}, want: []string{"rust-tips", "go-tips"}},
		{name: "by tag", filter: core.ArticleFilter{Tag: "go"}, want: []string{"go-again", "go-tips"}},
		{name: "favorited by", filter: core.ArticleFilter{FavoritedBy: "bob"}, want: []string{"go-tips"}},
		{name: "combined", filter: core.ArticleFilter{Author: "bob", Tag: "go"}, want: []string{"go-again"}},
		{name: "no match", filter: core.ArticleFilter{Tag: "haskell"}, want: []string{}},
		{name: "unknown author", filter: core.ArticleFilter{Author: "ghost"}, want: []string{}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			articles, total, err := s.core.ListArticles(s.ctx, nil, tt.filter, page)
			s.Require().NoError(err)
			s.NotNil(articles)
			s.EqualValues(len(tt.want), total)
			slugs := make([]string, 0, len(articles))
			for _, a := range articles {
				slugs = append(slugs, a.Slug)
			}
			s.Equal(tt.want, slugs)
		})
	}
}

func (s *CoreSuite) TestListArticles_Pagination() {
	alice := s.signup("alice")
	for _, title := range []string{"one", "two", "three"} {
		s.article(alice, title)
	}

	articles, total, err := s.core.ListArticles(s.ctx, nil, core.ArticleFilter{}, filter.NewFilter(2, 1))
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(articles, 2)
	s.Equal("two", articles[0].Slug)
	s.Equal("one", articles[1].Slug)

	_, _, err = s.core.ListArticles(s.ctx, nil, core.ArticleFilter{}, filter.NewFilter(0, 0))
	s.Contains(validationErrors(s.T(), err), "limit")
}

func (s *CoreSuite) TestFeed() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	carol := s.signup("carol")
	s.article(alice, "Alice Post")
	s.article(bob, "Bob Post")
	s.article(carol, "Carol Post")

	_, err := s.core.Follow(s.ctx, alice, "bob")
	s.Require().NoError(err)

	articles, total, err := s.core.Feed(s.ctx, alice, filter.NewFilter(20, 0))
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Require().Len(articles, 2)
	s.Equal("bob-post", articles[0].Slug)
	s.True(articles[0].Author.Following)
	s.Equal("alice-post", articles[1].Slug)
	s.False(articles[1].Author.Following)

	_, _, err = s.core.Feed(s.ctx, nil, filter.NewFilter(20, 0))
	s.ErrorIs(err, core.ErrAuthenticationRequired)
}

func (s *CoreSuite) TestUpdateArticle() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	s.article(alice, "Original Title", "a", "b")

	title := "Brand New Title"
	updated, err := s.core.UpdateArticle(s.ctx, alice, "original-title", core.ArticleUpdate{Title: &title})
	s.Require().NoError(err)
	s.Equal("Brand New Title", updated.Title)
	s.Equal("original-title", updated.Slug)
	s.Equal("body of Original Title", updated.Body)
	s.Equal([]string{"a", "b"}, updated.TagList)

	tags := []string{"c"}
	updated, err = s.core.UpdateArticle(s.ctx, alice, "original-title", core.ArticleUpdate{TagList: &tags})
	s.Require().NoError(err)
	s.Equal([]string{"c"}, updated.TagList)

	_, err = s.core.UpdateArticle(s.ctx, bob, "original-title", core.ArticleUpdate{Title: &title})
	s.ErrorIs(err, core.ErrPermissionDenied)

	s.store.MakeStaff(bob.ID)
	bob.IsStaff = true
	_, err = s.core.UpdateArticle(s.ctx, bob, "original-title", core.ArticleUpdate{Title: &title})
	s.NoError(err)

	blank := ""
	_, err = s.core.UpdateArticle(s.ctx, alice, "original-title", core.ArticleUpdate{Body: &blank})
	s.Contains(validationErrors(s.T(), err), "body")
}

func (s *CoreSuite) TestDeleteArticle() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	s.article(alice, "Doomed")

	s.ErrorIs(s.core.DeleteArticle(s.ctx, bob, "doomed"), core.ErrPermissionDenied)
	s.Require().NoError(s.core.DeleteArticle(s.ctx, alice, "doomed"))

	_, err := s.core.GetArticle(s.ctx, nil, "doomed")
	var nf *core.NotFoundError
	s.ErrorAs(err, &nf)
}

func (s *CoreSuite) TestComments() {
	alice := s.signup("alice")
	bob := s.signup("bob")
	carol := s.signup("carol")
	s.article(alice, "Discussed")

	first, err := s.core.CreateComment(s.ctx, bob, "discussed", "first!")
	s.Require().NoError(err)
	s.Equal("bob", first.Author.Username)
	second, err := s.core.CreateComment(s.ctx, carol, "discussed", "second")
	s.Require().NoError(err)

	comments, total, err := s.core.ListComments(s.ctx, nil, "discussed", filter.NewFilter(20, 0))
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Require().Len(comments, 2)
	s.Equal(first.ID, comments[0].ID)
	s.Equal("carol", comments[1].Author.Username)

	s.ErrorIs(s.core.DeleteComment(s.ctx, carol, "discussed", first.ID), core.ErrPermissionDenied)
	s.NoError(s.core.DeleteComment(s.ctx, bob, "discussed", first.ID))
	s.NoError(s.core.DeleteComment(s.ctx, alice, "discussed", second.ID))

	err = s.core.DeleteComment(s.ctx, alice, "discussed", second.ID)
	var nf *core.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("comment", nf.Resource)
}

func (s *CoreSuite) TestComments_UnknownArticle() {
	bob := s.signup("bob")

	comments, total, err := s.core.ListComments(s.ctx, nil, "missing", filter.NewFilter(20, 0))
	s.Require().NoError(err)
	s.NotNil(comments)
	s.Empty(comments)
	s.Zero(total)

	_, err = s.core.CreateComment(s.ctx, bob, "missing", "hello")
	var nf *core.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("article", nf.Resource)

	_, err = s.core.CreateComment(s.ctx, nil, "missing", "hello")
	s.ErrorIs(err, core.ErrAuthenticationRequired)
}

func (s *CoreSuite) TestDeleteComment_WrongArticle() {
	alice := s.signup("alice")
	s.article(alice, "One")
	s.article(alice, "Two")

	comment, err := s.core.CreateComment(s.ctx, alice, "one", "hi")
	s.Require().NoError(err)

	err = s.core.DeleteComment(s.ctx, alice, "two", comment.ID)
	var nf *core.NotFoundError
	s.ErrorAs(err, &nf)
}

func (s *CoreSuite) TestListTags_UsesCache() {
	alice := s.signup("alice")
	s.article(alice, "Tagged", "zeta", "alpha")

	tags, err := s.core.ListTags(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"alpha", "zeta"}, tags)
	s.Equal([]string{"alpha", "zeta"}, s.cache.labels)

	s.cache.labels = []string{"cached"}
	tags, err = s.core.ListTags(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"cached"}, tags)

	s.article(alice, "More", "beta")
	s.Nil(s.cache.labels)

	tags, err = s.core.ListTags(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"alpha", "beta", "zeta"}, tags)
}

func (s *CoreSuite) TestListTags_WriteDuringReadIsNotCachedStale() {
	alice := s.signup("alice")
	s.article(alice, "First", "go")

	s.cache.afterRead = func() {
		s.cache.afterRead = nil
		s.article(alice, "Second", "rust")
	}

	_, err := s.core.ListTags(s.ctx)
	s.Require().NoError(err)
	s.Nil(s.cache.labels)

	tags, err := s.core.ListTags(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"go", "rust"}, tags)
	s.Equal([]string{"go", "rust"}, s.cache.labels)
}

func (s *CoreSuite) TestAnonymousCallerIsRejected() {
	alice := s.signup("alice")
	s.article(alice, "Owned")
	page := filter.NewFilter(20, 0)

	calls := map[string]func() error{
		"create article": func() error { _, err := s.core.CreateArticle(s.ctx, nil, core.ArticleInput{Title: "t", Body: "b"}); return err },
		"feed":           func() error { _, _, err := s.core.Feed(s.ctx, nil, page); return err },
		"update article": func() error { _, err := s.core.UpdateArticle(s.ctx, nil, "owned", core.ArticleUpdate{}); return err },
		"delete article": func() error { return s.core.DeleteArticle(s.ctx, nil, "owned") },
		"favorite":       func() error { _, err := s.core.Favorite(s.ctx, nil, "owned"); return err },
		"create comment": func() error { _, err := s.core.CreateComment(s.ctx, nil, "owned", "hi"); return err },
		"delete comment": func() error { return s.core.DeleteComment(s.ctx, nil, "owned", 1) },
		"follow":         func() error { _, err := s.core.Follow(s.ctx, nil, "alice"); return err },
		"unfollow":       func() error { _, err := s.core.Unfollow(s.ctx, nil, "alice"); return err },
		"update user":    func() error { _, _, err := s.core.UpdateUser(s.ctx, nil, core.UpdateUserInput{}); return err },
	}

	for name, call := range calls {
		s.Run(name, func() {
			s.ErrorIs(call(), core.ErrAuthenticationRequired)
		})
	}
}

func TestListTags_CacheFailureFallsThrough(t *testing.T) {
	store := coretest.NewStore()
	c := newCore(t, store, coretest.Session{}, core.WithTagCache(brokenTagCache{}))

	tags, err := c.ListTags(context.Background())

	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestInTransaction_RetriesConflicts(t *testing.T) {
	store := coretest.NewStore()
	session := &conflictingSession{failures: 2}
	c := newCore(t, store, session)
	ctx := context.Background()

	alice, _, err := c.Signup(ctx, core.SignupInput{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	_, _, err = c.Signup(ctx, core.SignupInput{Username: "bob", Email: "bob@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	session.failures = 2
	_, err = c.Follow(ctx, alice, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, store.FollowEdges())

	session.failures = 3
	_, err = c.Unfollow(ctx, alice, "bob")
	assert.ErrorIs(t, err, core.ErrConflict)
}

type memoryTagCache struct {
	labels     []string
	generation int64
	// afterRead runs once the generation was observed, before the catalog is listed.
	afterRead func()
}

func (m *memoryTagCache) Get(context.Context) ([]string, int64, bool, error) {
	labels, generation := m.labels, m.generation
	if m.afterRead != nil {
		m.afterRead()
	}
	return labels, generation, labels != nil, nil
}

func (m *memoryTagCache) Set(_ context.Context, generation int64, labels []string) error {
	if generation == m.generation {
		m.labels = labels
	}
	return nil
}

func (m *memoryTagCache) Invalidate(context.Context) error {
	m.generation++
	m.labels = nil
	return nil
}

type brokenTagCache struct{}

func (brokenTagCache) Get(context.Context) ([]string, int64, bool, error) {
	return nil, 0, false, errors.New("cache down")
}
func (brokenTagCache) Set(context.Context, int64, []string) error { return errors.New("cache down") }
func (brokenTagCache) Invalidate(context.Context) error           { return errors.New("cache down") }

// conflictingSession fails the next `failures` units of work with ErrConflict.
type conflictingSession struct {
	failures int
}

func (s *conflictingSession) DoTransactionally(ctx context.Context, fn func(txCtx context.Context) error) error {
	if s.failures > 0 {
		s.failures--
		return core.ErrConflict
	}
	return fn(ctx)
}
