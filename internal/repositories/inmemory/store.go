package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/internal/repositories"
)

// dataset holds every table. It is cloned at the start of a transaction and
// restored when the transaction fails.
type dataset struct {
	seq           uint
	users         map[uint]models.User
	posts         map[uint]models.Post
	comments      map[uint]models.Comment
	follows       map[uint]models.Follow
	likes         map[uint]models.Like
	bookmarks     map[uint]models.Bookmark
	notifications map[uint]models.Notification
	updates       map[uint]models.UpdateRequest
}

func newDataset() *dataset {
	return &dataset{
		users:         make(map[uint]models.User),
		posts:         make(map[uint]models.Post),
		comments:      make(map[uint]models.Comment),
		follows:       make(map[uint]models.Follow),
		likes:         make(map[uint]models.Like),
		bookmarks:     make(map[uint]models.Bookmark),
		notifications: make(map[uint]models.Notification),
		updates:       make(map[uint]models.UpdateRequest),
	}
}

func cloneMap[T any](m map[uint]T) map[uint]T {
	out := make(map[uint]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *dataset) clone() *dataset {
	return &dataset{
		seq:           d.seq,
		users:         cloneMap(d.users),
		posts:         cloneMap(d.posts),
		comments:      cloneMap(d.comments),
		follows:       cloneMap(d.follows),
		likes:         cloneMap(d.likes),
		bookmarks:     cloneMap(d.bookmarks),
		notifications: cloneMap(d.notifications),
		updates:       cloneMap(d.updates),
	}
}

func (d *dataset) nextID() uint {
	d.seq++
	return d.seq
}

// Store implements repositories.Store in memory. Transactions are serialized
// and every operation outside a transaction waits for the running one.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	data   *dataset
	faults map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newDataset(), faults: make(map[string]error)}
}

// InjectFault makes every later call of the named repository method fail
// with err. A nil err clears the fault.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

func (s *Store) root() *view { return &view{s: s} }

func (s *Store) Users() repositories.UserRepository                   { return s.root() }
func (s *Store) Posts() repositories.PostRepository                   { return s.root() }
func (s *Store) Comments() repositories.CommentRepository             { return s.root() }
func (s *Store) Follows() repositories.FollowRepository               { return s.root() }
func (s *Store) Likes() repositories.LikeRepository                   { return s.root() }
func (s *Store) Bookmarks() repositories.BookmarkRepository           { return s.root() }
func (s *Store) Notifications() repositories.NotificationRepository   { return s.root() }
func (s *Store) UpdateRequests() repositories.UpdateRequestRepository { return s.root() }

// Transaction runs fn against the live dataset while holding the transaction
// lock. When fn returns an error or panics the dataset is restored.
func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
	}()

	if err = fn(&txStore{s: s}); err != nil {
		return err
	}
	committed = true
	return nil
}

// txStore is the Store handed to a transaction body. Nested transactions
// join the outer one.
type txStore struct {
	s *Store
}

func (t *txStore) tx() *view { return &view{s: t.s, inTx: true} }

func (t *txStore) Users() repositories.UserRepository                   { return t.tx() }
func (t *txStore) Posts() repositories.PostRepository                   { return t.tx() }
func (t *txStore) Comments() repositories.CommentRepository             { return t.tx() }
func (t *txStore) Follows() repositories.FollowRepository               { return t.tx() }
func (t *txStore) Likes() repositories.LikeRepository                   { return t.tx() }
func (t *txStore) Bookmarks() repositories.BookmarkRepository           { return t.tx() }
func (t *txStore) Notifications() repositories.NotificationRepository   { return t.tx() }
func (t *txStore) UpdateRequests() repositories.UpdateRequestRepository { return t.tx() }

func (t *txStore) Transaction(_ context.Context, fn func(tx repositories.Store) error) error {
	return fn(t)
}

// view implements every repository interface over the shared dataset.
type view struct {
	s    *Store
	inTx bool
}

func (v *view) lock(ctx context.Context) (*dataset, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if !v.inTx {
		v.s.txMu.Lock()
	}
	v.s.mu.Lock()
	return v.s.data, func() {
		v.s.mu.Unlock()
		if !v.inTx {
			v.s.txMu.Unlock()
		}
	}, nil
}

// write is lock plus fault lookup for method.
func (v *view) write(ctx context.Context, method string) (*dataset, func(), error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := v.s.faults[method]; err != nil {
		unlock()
		return nil, nil, err
	}
	return d, unlock, nil
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// newer orders by created_at desc then id desc.
func newer(a, b time.Time, aID, bID uint) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

// === Users ===

func userConflict(d *dataset, u *models.User) bool {
	for id, other := range d.users {
		if id == u.ID {
			continue
		}
		switch {
		case other.Slug == u.Slug, other.Email == u.Email, other.Username == u.Username:
			return true
		case u.Phone != nil && other.Phone != nil && *u.Phone == *other.Phone:
			return true
		case u.FirebaseUID != nil && other.FirebaseUID != nil && *u.FirebaseUID == *other.FirebaseUID:
			return true
		}
	}
	return false
}

func (v *view) CreateUser(ctx context.Context, user *models.User) error {
	d, unlock, err := v.write(ctx, "CreateUser")
	if err != nil {
		return err
	}
	defer unlock()

	user.ID = 0
	if userConflict(d, user) {
		return repositories.ErrDuplicate
	}
	user.ID = d.nextID()
	stamp(&user.CreatedAt)
	stamp(&user.UpdatedAt)
	if user.Color == "" {
		user.Color = "blue"
	}
	d.users[user.ID] = *user
	return nil
}

func (v *view) findUser(ctx context.Context, match func(models.User) bool) (*models.User, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, u := range d.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (v *view) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return v.findUser(ctx, func(u models.User) bool { return u.ID == id })
}

func (v *view) GetUserBySlug(ctx context.Context, slug string) (*models.User, error) {
	return v.findUser(ctx, func(u models.User) bool { return u.Slug == slug })
}

func (v *view) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return v.findUser(ctx, func(u models.User) bool { return u.Email == email })
}

func (v *view) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	username = strings.ToLower(username)
	return v.findUser(ctx, func(u models.User) bool { return u.Username == username })
}

func (v *view) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return v.findUser(ctx, func(u models.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (v *view) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	return v.findUser(ctx, func(u models.User) bool {
		return u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID
	})
}

func (v *view) GetUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	users := []models.User{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (v *view) GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	want := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		want[name] = true
	}
	users := []models.User{}
	for _, u := range d.users {
		if want[u.Username] {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// LockUser only checks existence; transactions are already exclusive.
func (v *view) LockUser(ctx context.Context, id uint) error {
	_, err := v.GetUserByID(ctx, id)
	return err
}

func (v *view) UpdateUser(ctx context.Context, user *models.User) error {
	d, unlock, err := v.write(ctx, "UpdateUser")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := d.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	if userConflict(d, user) {
		return repositories.ErrDuplicate
	}
	user.UpdatedAt = time.Now().UTC()
	d.users[user.ID] = *user
	return nil
}

func (v *view) userQuery(filter func(d *dataset) []models.User) pagination.Query[models.User] {
	return pagination.QueryFunc[models.User](func(ctx context.Context, offset, limit int) ([]models.User, error) {
		d, unlock, err := v.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
		return page(filter(d), offset, limit), nil
	})
}

func (v *view) ListUsers() pagination.Query[models.User] {
	return v.userQuery(func(d *dataset) []models.User {
		users := make([]models.User, 0, len(d.users))
		for _, u := range d.users {
			users = append(users, u)
		}
		sort.Slice(users, func(i, j int) bool {
			return newer(users[i].CreatedAt, users[j].CreatedAt, users[i].ID, users[j].ID)
		})
		return users
	})
}

func (v *view) SearchUsers(query string) pagination.Query[models.User] {
	query = strings.ToLower(query)
	return v.userQuery(func(d *dataset) []models.User {
		users := []models.User{}
		for _, u := range d.users {
			if strings.Contains(strings.ToLower(u.Name), query) ||
				strings.Contains(u.Username, query) ||
				strings.Contains(u.Email, query) {
				users = append(users, u)
			}
		}
		sort.Slice(users, func(i, j int) bool {
			if users[i].Username != users[j].Username {
				return users[i].Username < users[j].Username
			}
			return users[i].ID < users[j].ID
		})
		return users
	})
}

func (v *view) SuggestUsers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	following := make(map[uint]bool)
	for _, f := range d.follows {
		if f.FollowerID == userID {
			following[f.FollowingID] = true
		}
	}
	users := []models.User{}
	for _, u := range d.users {
		if u.ID != userID && !following[u.ID] {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return newer(users[i].CreatedAt, users[j].CreatedAt, users[i].ID, users[j].ID)
	})
	return page(users, 0, limit), nil
}

// === Posts ===

func withPostCounts(d *dataset, p models.Post) models.Post {
	p.LikesCount, p.CommentsCount = 0, 0
	for _, l := range d.likes {
		if l.LikableType == models.LikablePost && l.LikableID == p.ID {
			p.LikesCount++
		}
	}
	for _, c := range d.comments {
		if c.PostID == p.ID {
			p.CommentsCount++
		}
	}
	return p
}

func (v *view) CreatePost(ctx context.Context, post *models.Post) error {
	d, unlock, err := v.write(ctx, "CreatePost")
	if err != nil {
		return err
	}
	defer unlock()
	for _, other := range d.posts {
		if other.Slug == post.Slug {
			return repositories.ErrDuplicate
		}
	}
	post.ID = d.nextID()
	stamp(&post.CreatedAt)
	stamp(&post.UpdatedAt)
	stored := *post
	stored.Author = nil
	d.posts[post.ID] = stored
	return nil
}

func (v *view) findPost(ctx context.Context, match func(models.Post) bool) (*models.Post, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, p := range d.posts {
		if match(p) {
			p = withPostCounts(d, p)
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (v *view) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	return v.findPost(ctx, func(p models.Post) bool { return p.ID == id })
}

func (v *view) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return v.findPost(ctx, func(p models.Post) bool { return p.Slug == slug })
}

func (v *view) UpdatePost(ctx context.Context, post *models.Post) error {
	d, unlock, err := v.write(ctx, "UpdatePost")
	if err != nil {
		return err
	}
	defer unlock()
	stored, ok := d.posts[post.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Body = post.Body
	stored.UpdatedAt = time.Now().UTC()
	post.UpdatedAt = stored.UpdatedAt
	d.posts[post.ID] = stored
	return nil
}

func (v *view) DeletePost(ctx context.Context, id uint) error {
	d, unlock, err := v.write(ctx, "DeletePost")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := d.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(d.posts, id)
	return nil
}

func sortPosts(posts []models.Post, order models.PostOrder) {
	sort.Slice(posts, func(i, j int) bool {
		if order == models.PostOrderPopular {
			if posts[i].LikesCount != posts[j].LikesCount {
				return posts[i].LikesCount > posts[j].LikesCount
			}
			return posts[i].ID > posts[j].ID
		}
		return newer(posts[i].CreatedAt, posts[j].CreatedAt, posts[i].ID, posts[j].ID)
	})
}

func (v *view) ListPosts(filter models.PostFilter) pagination.Query[models.Post] {
	return pagination.QueryFunc[models.Post](func(ctx context.Context, offset, limit int) ([]models.Post, error) {
		d, unlock, err := v.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()

		var authors map[uint]bool
		if filter.AuthorIDs != nil {
			authors = make(map[uint]bool, len(filter.AuthorIDs))
			for _, id := range filter.AuthorIDs {
				authors[id] = true
			}
		}
		posts := []models.Post{}
		for _, p := range d.posts {
			if authors != nil && !authors[p.UserID] {
				continue
			}
			posts = append(posts, withPostCounts(d, p))
		}
		sortPosts(posts, filter.Order)
		return page(posts, offset, limit), nil
	})
}

// === Comments ===

func withCommentCounts(d *dataset, c models.Comment) models.Comment {
	c.LikesCount = 0
	for _, l := range d.likes {
		if l.LikableType == models.LikableComment && l.LikableID == c.ID {
			c.LikesCount++
		}
	}
	return c
}

func (v *view) CreateComment(ctx context.Context, comment *models.Comment) error {
	d, unlock, err := v.write(ctx, "CreateComment")
	if err != nil {
		return err
	}
	defer unlock()
	comment.ID = d.nextID()
	stamp(&comment.CreatedAt)
	stamp(&comment.UpdatedAt)
	stored := *comment
	stored.Author = nil
	d.comments[comment.ID] = stored
	return nil
}

func (v *view) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	c, ok := d.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c = withCommentCounts(d, c)
	return &c, nil
}

func (v *view) GetCommentIDsByPostID(ctx context.Context, postID uint) ([]uint, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ids := []uint{}
	for _, c := range d.comments {
		if c.PostID == postID {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (v *view) CountCommentsByPostID(ctx context.Context, postID uint) (int64, error) {
	ids, err := v.GetCommentIDsByPostID(ctx, postID)
	return int64(len(ids)), err
}

func (v *view) UpdateComment(ctx context.Context, comment *models.Comment) error {
	d, unlock, err := v.write(ctx, "UpdateComment")
	if err != nil {
		return err
	}
	defer unlock()
	stored, ok := d.comments[comment.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Body = comment.Body
	stored.UpdatedAt = time.Now().UTC()
	comment.UpdatedAt = stored.UpdatedAt
	d.comments[comment.ID] = stored
	return nil
}

func (v *view) DeleteComment(ctx context.Context, id uint) error {
	d, unlock, err := v.write(ctx, "DeleteComment")
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := d.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(d.comments, id)
	return nil
}

func (v *view) DeleteCommentsByPostID(ctx context.Context, postID uint) error {
	d, unlock, err := v.write(ctx, "DeleteCommentsByPostID")
	if err != nil {
		return err
	}
	defer unlock()
	for id, c := range d.comments {
		if c.PostID == postID {
			delete(d.comments, id)
		}
	}
	return nil
}

func (v *view) ListCommentsByPostID(postID uint) pagination.Query[models.Comment] {
	return pagination.QueryFunc[models.Comment](func(ctx context.Context, offset, limit int) ([]models.Comment, error) {
		d, unlock, err := v.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
		comments := []models.Comment{}
		for _, c := range d.comments {
			if c.PostID == postID {
				comments = append(comments, withCommentCounts(d, c))
			}
		}
		sort.Slice(comments, func(i, j int) bool {
			if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
				return comments[i].CreatedAt.Before(comments[j].CreatedAt)
			}
			return comments[i].ID < comments[j].ID
		})
		return page(comments, offset, limit), nil
	})
}

// === Follows ===

func (v *view) CreateFollow(ctx context.Context, follow *models.Follow) error {
	d, unlock, err := v.write(ctx, "CreateFollow")
	if err != nil {
		return err
	}
	defer unlock()
	for _, f := range d.follows {
		if f.FollowerID == follow.FollowerID && f.FollowingID == follow.FollowingID {
			return repositories.ErrDuplicate
		}
	}
	follow.ID = d.nextID()
	stamp(&follow.CreatedAt)
	d.follows[follow.ID] = *follow
	return nil
}

func (v *view) DeleteFollow(ctx context.Context, followerID, followingID uint) error {
	d, unlock, err := v.write(ctx, "DeleteFollow")
	if err != nil {
		return err
	}
	defer unlock()
	for id, f := range d.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			delete(d.follows, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (v *view) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, f := range d.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	ids := []uint{}
	for _, f := range d.follows {
		if f.FollowerID == userID {
			ids = append(ids, f.FollowingID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// followEdges pages over the users on the far side of matching edges, most
// recent edge first.
func (v *view) followEdges(match func(models.Follow) bool, other func(models.Follow) uint) pagination.Query[models.User] {
	return v.userQuery(func(d *dataset) []models.User {
		edges := []models.Follow{}
		for _, f := range d.follows {
			if match(f) {
				edges = append(edges, f)
			}
		}
		sort.Slice(edges, func(i, j int) bool {
			return newer(edges[i].CreatedAt, edges[j].CreatedAt, edges[i].ID, edges[j].ID)
		})
		users := make([]models.User, 0, len(edges))
		for _, f := range edges {
			if u, ok := d.users[other(f)]; ok {
				users = append(users, u)
			}
		}
		return users
	})
}

func (v *view) ListFollowers(userID uint) pagination.Query[models.User] {
	return v.followEdges(
		func(f models.Follow) bool { return f.FollowingID == userID },
		func(f models.Follow) uint { return f.FollowerID },
	)
}

func (v *view) ListFollowing(userID uint) pagination.Query[models.User] {
	return v.followEdges(
		func(f models.Follow) bool { return f.FollowerID == userID },
		func(f models.Follow) uint { return f.FollowingID },
	)
}

// === Likes ===

func (v *view) CreateLike(ctx context.Context, like *models.Like) error {
	d, unlock, err := v.write(ctx, "CreateLike")
	if err != nil {
		return err
	}
	defer unlock()
	for _, l := range d.likes {
		if l.UserID == like.UserID && l.Target() == like.Target() {
			return repositories.ErrDuplicate
		}
	}
	like.ID = d.nextID()
	stamp(&like.CreatedAt)
	d.likes[like.ID] = *like
	return nil
}

func (v *view) DeleteLike(ctx context.Context, userID uint, target models.Likable) error {
	d, unlock, err := v.write(ctx, "DeleteLike")
	if err != nil {
		return err
	}
	defer unlock()
	for id, l := range d.likes {
		if l.UserID == userID && l.Target() == target {
			delete(d.likes, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (v *view) HasLiked(ctx context.Context, userID uint, target models.Likable) (bool, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, l := range d.likes {
		if l.UserID == userID && l.Target() == target {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) CountLikes(ctx context.Context, target models.Likable) (int64, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for _, l := range d.likes {
		if l.Target() == target {
			n++
		}
	}
	return n, nil
}

func (v *view) DeleteLikesByTargets(ctx context.Context, kind models.LikableKind, ids []uint) error {
	d, unlock, err := v.write(ctx, "DeleteLikesByTargets")
	if err != nil {
		return err
	}
	defer unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for id, l := range d.likes {
		if l.LikableType == kind && want[l.LikableID] {
			delete(d.likes, id)
		}
	}
	return nil
}

// === Bookmarks ===

func (v *view) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	d, unlock, err := v.write(ctx, "CreateBookmark")
	if err != nil {
		return err
	}
	defer unlock()
	for _, b := range d.bookmarks {
		if b.UserID == bookmark.UserID && b.PostID == bookmark.PostID {
			return repositories.ErrDuplicate
		}
	}
	bookmark.ID = d.nextID()
	stamp(&bookmark.CreatedAt)
	d.bookmarks[bookmark.ID] = *bookmark
	return nil
}

func (v *view) DeleteBookmark(ctx context.Context, userID, postID uint) error {
	d, unlock, err := v.write(ctx, "DeleteBookmark")
	if err != nil {
		return err
	}
	defer unlock()
	for id, b := range d.bookmarks {
		if b.UserID == userID && b.PostID == postID {
			delete(d.bookmarks, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (v *view) IsBookmarked(ctx context.Context, userID, postID uint) (bool, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, b := range d.bookmarks {
		if b.UserID == userID && b.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) DeleteBookmarksByPostID(ctx context.Context, postID uint) error {
	d, unlock, err := v.write(ctx, "DeleteBookmarksByPostID")
	if err != nil {
		return err
	}
	defer unlock()
	for id, b := range d.bookmarks {
		if b.PostID == postID {
			delete(d.bookmarks, id)
		}
	}
	return nil
}

func (v *view) ListBookmarkedPosts(userID uint) pagination.Query[models.Post] {
	return pagination.QueryFunc[models.Post](func(ctx context.Context, offset, limit int) ([]models.Post, error) {
		d, unlock, err := v.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
		marks := []models.Bookmark{}
		for _, b := range d.bookmarks {
			if b.UserID == userID {
				marks = append(marks, b)
			}
		}
		sort.Slice(marks, func(i, j int) bool {
			return newer(marks[i].CreatedAt, marks[j].CreatedAt, marks[i].ID, marks[j].ID)
		})
		posts := make([]models.Post, 0, len(marks))
		for _, b := range marks {
			if p, ok := d.posts[b.PostID]; ok {
				posts = append(posts, withPostCounts(d, p))
			}
		}
		return page(posts, offset, limit), nil
	})
}

// === Notifications ===

func (v *view) CreateNotification(ctx context.Context, n *models.Notification) error {
	d, unlock, err := v.write(ctx, "CreateNotification")
	if err != nil {
		return err
	}
	defer unlock()
	n.ID = d.nextID()
	stamp(&n.CreatedAt)
	d.notifications[n.ID] = *n
	return nil
}

func (v *view) GetNotificationByID(ctx context.Context, id uint) (*models.Notification, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	n, ok := d.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &n, nil
}

func (v *view) ListNotifications(recipientID uint) pagination.Query[models.Notification] {
	return pagination.QueryFunc[models.Notification](func(ctx context.Context, offset, limit int) ([]models.Notification, error) {
		d, unlock, err := v.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
		items := []models.Notification{}
		for _, n := range d.notifications {
			if n.RecipientID == recipientID {
				items = append(items, n)
			}
		}
		sort.Slice(items, func(i, j int) bool {
			return newer(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID)
		})
		return page(items, offset, limit), nil
	})
}

func (v *view) MarkNotificationsPeeked(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	d, unlock, err := v.write(ctx, "MarkNotificationsPeeked")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, item := range d.notifications {
		if item.RecipientID == recipientID && item.PeekedAt == nil {
			t := at
			item.PeekedAt = &t
			d.notifications[id] = item
			n++
		}
	}
	return n, nil
}

func (v *view) MarkNotificationRead(ctx context.Context, id uint, at time.Time) error {
	d, unlock, err := v.write(ctx, "MarkNotificationRead")
	if err != nil {
		return err
	}
	defer unlock()
	item, ok := d.notifications[id]
	if ok && item.ReadAt == nil {
		t := at
		item.ReadAt = &t
		d.notifications[id] = item
	}
	return nil
}

func (v *view) MarkAllNotificationsRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	d, unlock, err := v.write(ctx, "MarkAllNotificationsRead")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, item := range d.notifications {
		if item.RecipientID == recipientID && item.ReadAt == nil {
			t := at
			item.ReadAt = &t
			d.notifications[id] = item
			n++
		}
	}
	return n, nil
}

func (v *view) CountUnpeeked(ctx context.Context, recipientID uint) (int64, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for _, item := range d.notifications {
		if item.RecipientID == recipientID && item.PeekedAt == nil {
			n++
		}
	}
	return n, nil
}

// === Update requests ===

func (v *view) CreateUpdateRequest(ctx context.Context, req *models.UpdateRequest) error {
	d, unlock, err := v.write(ctx, "CreateUpdateRequest")
	if err != nil {
		return err
	}
	defer unlock()
	req.ID = d.nextID()
	stamp(&req.CreatedAt)
	d.updates[req.ID] = *req
	return nil
}

func (v *view) CountCompletedSince(ctx context.Context, userID uint, kind models.UpdateRequestKind, since time.Time) (int64, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for _, r := range d.updates {
		if r.UserID == userID && r.Kind == kind && r.CompletedAt != nil && !r.CompletedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (v *view) GetLatestUpdateRequest(ctx context.Context, userID uint, kind models.UpdateRequestKind) (*models.UpdateRequest, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var latest *models.UpdateRequest
	for _, r := range d.updates {
		if r.UserID != userID || r.Kind != kind {
			continue
		}
		if latest == nil || newer(r.CreatedAt, latest.CreatedAt, r.ID, latest.ID) {
			r := r
			latest = &r
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return latest, nil
}

func (v *view) GetUpdateRequestByToken(ctx context.Context, kind models.UpdateRequestKind, token string) (*models.UpdateRequest, error) {
	d, unlock, err := v.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, r := range d.updates {
		if r.Kind == kind && r.Token == token {
			return &r, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (v *view) CompleteUpdateRequest(ctx context.Context, id uint, now time.Time) error {
	d, unlock, err := v.write(ctx, "CompleteUpdateRequest")
	if err != nil {
		return err
	}
	defer unlock()
	r, ok := d.updates[id]
	if !ok || !r.Usable(now) {
		return repositories.ErrNotFound
	}
	t := now
	r.CompletedAt = &t
	d.updates[id] = r
	return nil
}

func (v *view) RecordFailedAttempt(ctx context.Context, id uint, limit int, now time.Time) error {
	d, unlock, err := v.write(ctx, "RecordFailedAttempt")
	if err != nil {
		return err
	}
	defer unlock()
	r, ok := d.updates[id]
	if !ok || r.CompletedAt != nil {
		return nil
	}
	r.Attempts++
	if limit > 0 && r.Attempts >= limit {
		r.Expiration = now
	}
	d.updates[id] = r
	return nil
}
