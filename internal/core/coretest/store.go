// Package coretest provides in-memory implementations of the core
// repositories for tests.
package coretest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/siahsang/kiterunner/internal/core"
	"github.com/siahsang/kiterunner/internal/filter"
	"github.com/siahsang/kiterunner/models"
)

// Store keeps every entity in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	now    func() time.Time
	nextID int64

	users     map[int64]*models.User
	profiles  map[int64]*models.Profile
	follows   map[[2]int64]struct{}
	tags      map[int64]*models.Tag
	articles  map[int64]*models.Article
	tagLinks  map[int64][]int64
	favs      map[[2]int64]struct{}
	comments  map[int64]*models.Comment
	sequencer int64
}

func NewStore() *Store {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Store{
		users:    map[int64]*models.User{},
		profiles: map[int64]*models.Profile{},
		follows:  map[[2]int64]struct{}{},
		tags:     map[int64]*models.Tag{},
		articles: map[int64]*models.Article{},
		tagLinks: map[int64][]int64{},
		favs:     map[[2]int64]struct{}{},
		comments: map[int64]*models.Comment{},
	}
	// Every write observes a strictly later instant so ordering by time is deterministic.
	s.now = func() time.Time {
		s.sequencer++
		return start.Add(time.Duration(s.sequencer) * time.Second)
	}
	return s
}

// Repositories exposes the store through the core repository contracts.
func (s *Store) Repositories() core.Repositories {
	return core.Repositories{
		Users:    userRepo{s},
		Profiles: profileRepo{s},
		Articles: articleRepo{s},
		Tags:     tagRepo{s},
		Comments: commentRepo{s},
	}
}

// MakeStaff flags the user as staff.
func (s *Store) MakeStaff(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.IsStaff = true
	}
}

// FollowEdges counts the stored follow relations.
func (s *Store) FollowEdges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.follows)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Session runs the unit of work directly; the in-memory store has no rollback.
type Session struct{}

func (Session) DoTransactionally(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return core.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return core.ErrDuplicateEmail
		}
	}

	user.ID = r.s.id()
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return r.s.joinProfile(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r userRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return r.s.joinProfile(u), nil
		}
	}
	return nil, core.ErrRecordNotFound
}

func (r userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return core.ErrRecordNotFound
	}
	for _, u := range r.s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Username == user.Username {
			return core.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return core.ErrDuplicateEmail
		}
	}

	user.UpdatedAt = r.s.now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// joinProfile copies u and fills the profile columns. Callers hold the lock.
func (s *Store) joinProfile(u *models.User) *models.User {
	out := *u
	for _, p := range s.profiles {
		if p.UserID == u.ID {
			out.ProfileID = p.ID
			out.Bio = p.Bio
			out.Image = p.Image
			break
		}
	}
	return &out
}

type profileRepo struct{ s *Store }

func (r profileRepo) Create(_ context.Context, profile *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profile.ID = r.s.id()
	stored := *profile
	r.s.profiles[profile.ID] = &stored
	return nil
}

func (r profileRepo) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.profiles {
		if r.s.usernameOf(p) == username {
			return r.s.profileView(p), nil
		}
	}
	return nil, core.ErrRecordNotFound
}

func (r profileRepo) GetByIDs(_ context.Context, ids []int64) ([]*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, r.s.profileView(p))
		}
	}
	return out, nil
}

func (r profileRepo) Update(_ context.Context, profile *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[profile.ID]
	if !ok {
		return core.ErrRecordNotFound
	}
	p.Bio = profile.Bio
	p.Image = profile.Image
	return nil
}

func (r profileRepo) Follow(_ context.Context, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.follows[[2]int64{followerID, followeeID}] = struct{}{}
	return nil
}

func (r profileRepo) Unfollow(_ context.Context, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.follows, [2]int64{followerID, followeeID})
	return nil
}

func (r profileRepo) FollowedAmong(_ context.Context, followerID int64, ids []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.s.follows[[2]int64{followerID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *Store) usernameOf(p *models.Profile) string {
	if u, ok := s.users[p.UserID]; ok {
		return u.Username
	}
	return p.Username
}

func (s *Store) profileView(p *models.Profile) *models.Profile {
	out := *p
	out.Username = s.usernameOf(p)
	out.Following = false
	return &out
}

type articleRepo struct{ s *Store }

func (r articleRepo) Save(_ context.Context, article *models.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, existing := range r.s.articles {
		if existing.Slug != article.Slug {
			continue
		}
		if existing.AuthorID != article.AuthorID {
			return core.ErrDuplicatedSlug
		}
		existing.Title = article.Title
		existing.Description = article.Description
		existing.Body = article.Body
		existing.UpdatedAt = now
		article.ID = existing.ID
		article.CreatedAt = existing.CreatedAt
		article.UpdatedAt = now
		return nil
	}

	article.ID = r.s.id()
	article.CreatedAt = now
	article.UpdatedAt = now
	stored := *article
	r.s.articles[article.ID] = &stored
	return nil
}

func (r articleRepo) GetBySlug(_ context.Context, slug string) (*models.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.articles {
		if a.Slug == slug {
			out := *a
			return &out, nil
		}
	}
	return nil, core.ErrRecordNotFound
}

func (r articleRepo) List(_ context.Context, articleFilter core.ArticleFilter, page filter.Filter) ([]*models.Article, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.page(func(a *models.Article) bool {
		return r.s.matches(a, articleFilter)
	}, page)
}

func (r articleRepo) Feed(_ context.Context, profileID int64, page filter.Filter) ([]*models.Article, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.page(func(a *models.Article) bool {
		if a.AuthorID == profileID {
			return true
		}
		_, followed := r.s.follows[[2]int64{profileID, a.AuthorID}]
		return followed
	}, page)
}

func (r articleRepo) Update(_ context.Context, article *models.Article) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.articles[article.ID]
	if !ok {
		return core.ErrRecordNotFound
	}
	existing.Title = article.Title
	existing.Description = article.Description
	existing.Body = article.Body
	existing.UpdatedAt = r.s.now()
	article.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r articleRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.articles[id]; !ok {
		return core.ErrRecordNotFound
	}
	delete(r.s.articles, id)
	delete(r.s.tagLinks, id)
	for key := range r.s.favs {
		if key[1] == id {
			delete(r.s.favs, key)
		}
	}
	for cid, c := range r.s.comments {
		if c.ArticleID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

func (r articleRepo) SetTags(_ context.Context, articleID int64, tagIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tagLinks[articleID] = append([]int64(nil), tagIDs...)
	return nil
}

func (r articleRepo) AddFavourite(_ context.Context, profileID, articleID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.favs[[2]int64{profileID, articleID}] = struct{}{}
	return nil
}

func (r articleRepo) RemoveFavourite(_ context.Context, profileID, articleID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.favs, [2]int64{profileID, articleID})
	return nil
}

func (r articleRepo) FavouriteCounts(_ context.Context, articleIDs []int64) (map[int64]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[int64]bool, len(articleIDs))
	for _, id := range articleIDs {
		wanted[id] = true
	}
	out := make(map[int64]int64, len(articleIDs))
	for key := range r.s.favs {
		if wanted[key[1]] {
			out[key[1]]++
		}
	}
	return out, nil
}

func (r articleRepo) FavouritedAmong(_ context.Context, profileID int64, articleIDs []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64]bool, len(articleIDs))
	for _, id := range articleIDs {
		if _, ok := r.s.favs[[2]int64{profileID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *Store) matches(a *models.Article, f core.ArticleFilter) bool {
	if f.Author != "" {
		p, ok := s.profiles[a.AuthorID]
		if !ok || s.usernameOf(p) != f.Author {
			return false
		}
	}
	if f.Tag != "" {
		found := false
		for _, tagID := range s.tagLinks[a.ID] {
			if t, ok := s.tags[tagID]; ok && t.Label == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.FavoritedBy != "" {
		found := false
		for key := range s.favs {
			if key[1] != a.ID {
				continue
			}
			if p, ok := s.profiles[key[0]]; ok && s.usernameOf(p) == f.FavoritedBy {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Store) page(keep func(*models.Article) bool, page filter.Filter) ([]*models.Article, int64, error) {
	matched := make([]*models.Article, 0)
	for _, a := range s.articles {
		if keep(a) {
			out := *a
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return window(matched, page), int64(len(matched)), nil
}

func window[T any](items []T, page filter.Filter) []T {
	start := min(page.Offset, int64(len(items)))
	end := min(start+page.Limit, int64(len(items)))
	return items[start:end]
}

type tagRepo struct{ s *Store }

func (r tagRepo) GetOrCreate(_ context.Context, tags []*models.Tag) ([]*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Tag, 0, len(tags))
	for _, t := range tags {
		var found *models.Tag
		for _, existing := range r.s.tags {
			if existing.Slug == t.Slug {
				found = existing
				break
			}
		}
		if found == nil {
			found = &models.Tag{ID: r.s.id(), Label: t.Label, Slug: t.Slug}
			r.s.tags[found.ID] = found
		}
		copied := *found
		out = append(out, &copied)
	}
	return out, nil
}

func (r tagRepo) ListByArticleIDs(_ context.Context, articleIDs []int64) (map[int64][]*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64][]*models.Tag, len(articleIDs))
	for _, id := range articleIDs {
		for _, tagID := range r.s.tagLinks[id] {
			if t, ok := r.s.tags[tagID]; ok {
				copied := *t
				out[id] = append(out[id], &copied)
			}
		}
	}
	return out, nil
}

func (r tagRepo) List(_ context.Context) ([]*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*models.Tag, 0, len(r.s.tags))
	for _, t := range r.s.tags {
		copied := *t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.articles[comment.ArticleID]; !ok {
		return core.ErrRecordNotFound
	}
	comment.ID = r.s.id()
	comment.CreatedAt = r.s.now()
	comment.UpdatedAt = comment.CreatedAt
	stored := *comment
	r.s.comments[comment.ID] = &stored
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	out := *c
	return &out, nil
}

func (r commentRepo) ListByArticleSlug(_ context.Context, slug string, page filter.Filter) ([]*models.Comment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var articleID int64
	for _, a := range r.s.articles {
		if a.Slug == slug {
			articleID = a.ID
			break
		}
	}

	matched := make([]*models.Comment, 0)
	for _, c := range r.s.comments {
		if articleID != 0 && c.ArticleID == articleID {
			out := *c
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return window(matched, page), int64(len(matched)), nil
}

func (r commentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return core.ErrRecordNotFound
	}
	delete(r.s.comments, id)
	return nil
}
