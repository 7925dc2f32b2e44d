package services

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"go.uber.org/zap"
)

// SuggestionInvalidator is told whenever a user's follows change.
type SuggestionInvalidator interface {
	ForgetSuggestions(ctx context.Context, userIDs ...uint)
}

// GraphService mutates posts, comments and the follow/like/bookmark edges.
// Each mutation is one transaction; the notifications it implies are written
// in that transaction and dispatched only after commit.
type GraphService struct {
	store         repositories.Store
	notifications *NotificationService
	suggestions   SuggestionInvalidator
	cfg           Config
	logger        *zap.Logger
}

func NewGraphService(store repositories.Store, notifications *NotificationService, suggestions SuggestionInvalidator, cfg Config, logger *zap.Logger) *GraphService {
	return &GraphService{
		store:         store,
		notifications: notifications,
		suggestions:   suggestions,
		cfg:           cfg,
		logger:        logger,
	}
}

func postPath(postSlug string) string { return "/posts/" + postSlug }

func commentPath(postSlug, commentSlug string) string {
	return fmt.Sprintf("/posts/%s/comments/%s", postSlug, commentSlug)
}

func userPath(userSlug string) string { return "/users/" + userSlug }

// mutate runs fn in a transaction and dispatches the notifications it
// collected once the transaction has committed.
func (s *GraphService) mutate(ctx context.Context, fn func(ctx context.Context, tx repositories.Store, notes *[]models.Notification) error) error {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var notes []models.Notification
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		notes = notes[:0]
		return fn(ctx, tx, &notes)
	})
	if err != nil {
		return apperrors.Classify(err)
	}
	s.notifications.Dispatch(notes...)
	return nil
}

func (s *GraphService) notify(ctx context.Context, tx repositories.Store, notes *[]models.Notification, recipientID uint, action models.NotificationAction, actor *models.User, path string) error {
	n, err := s.notifications.Notify(ctx, tx, recipientID, action, actor.Snapshot(), path)
	if err != nil {
		return err
	}
	*notes = append(*notes, *n)
	return nil
}

// notifyMentions sends action to every user mentioned in body except the
// actor. It returns the ids it notified.
func (s *GraphService) notifyMentions(ctx context.Context, tx repositories.Store, notes *[]models.Notification, body string, action models.NotificationAction, actor *models.User, path string) (map[uint]bool, error) {
	notified := make(map[uint]bool)
	names := ExtractMentions(body)
	if len(names) == 0 {
		return notified, nil
	}
	users, err := tx.Users().GetUsersByUsernames(ctx, names)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == actor.ID || notified[users[i].ID] {
			continue
		}
		if err := s.notify(ctx, tx, notes, users[i].ID, action, actor, path); err != nil {
			return nil, err
		}
		notified[users[i].ID] = true
	}
	return notified, nil
}

func actingUser(ctx context.Context, tx repositories.Store, userID uint) (*models.User, error) {
	u, err := tx.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "user not found")
	}
	return u, nil
}

// ownedPost loads a post and collapses "absent" and "not yours" into one
// NotFound so other users' posts cannot be probed.
func ownedPost(ctx context.Context, tx repositories.Store, userID uint, slug string) (*models.Post, error) {
	post, err := tx.Posts().GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, missing(err, "post not found")
	}
	if post.UserID != userID {
		return nil, apperrors.NotFound("post not found")
	}
	return post, nil
}

func ownedComment(ctx context.Context, tx repositories.Store, userID, commentID uint) (*models.Comment, error) {
	comment, err := tx.Comments().GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, missing(err, "comment not found")
	}
	if comment.UserID != userID {
		return nil, apperrors.NotFound("comment not found")
	}
	return comment, nil
}

// === Posts ===

func (s *GraphService) CreatePost(ctx context.Context, userID uint, req models.CreatePostRequest) (*models.Post, error) {
	body, err := checkBody("body", req.Body, s.cfg.PostMaxLength)
	if err != nil {
		return nil, err
	}
	var post *models.Post
	err = s.mutate(ctx, func(ctx context.Context, tx repositories.Store, notes *[]models.Notification) error {
		author, err := actingUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		p := &models.Post{Slug: newSlug(), UserID: author.ID, Body: body}
		if err := tx.Posts().CreatePost(ctx, p); err != nil {
			return err
		}
		if _, err := s.notifyMentions(ctx, tx, notes, body, models.ActionMentionedOnPost, author, postPath(p.Slug)); err != nil {
			return err
		}
		compact := author.ToCompact()
		p.Author = &compact
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *GraphService) UpdatePost(ctx context.Context, userID uint, slug string, req models.UpdatePostRequest) (*models.Post, error) {
	body, err := checkBody("body", req.Body, s.cfg.PostMaxLength)
	if err != nil {
		return nil, err
	}
	var post *models.Post
	err = s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		p, err := ownedPost(ctx, tx, userID, slug)
		if err != nil {
			return err
		}
		p.Body = body
		if err := tx.Posts().UpdatePost(ctx, p); err != nil {
			return missing(err, "post not found")
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post with its comments, the likes on both and its
// bookmarks.
func (s *GraphService) DeletePost(ctx context.Context, userID uint, slug string) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		post, err := ownedPost(ctx, tx, userID, slug)
		if err != nil {
			return err
		}
		commentIDs, err := tx.Comments().GetCommentIDsByPostID(ctx, post.ID)
		if err != nil {
			return err
		}
		if err := tx.Likes().DeleteLikesByTargets(ctx, models.LikableComment, commentIDs); err != nil {
			return err
		}
		if err := tx.Likes().DeleteLikesByTargets(ctx, models.LikablePost, []uint{post.ID}); err != nil {
			return err
		}
		if err := tx.Comments().DeleteCommentsByPostID(ctx, post.ID); err != nil {
			return err
		}
		if err := tx.Bookmarks().DeleteBookmarksByPostID(ctx, post.ID); err != nil {
			return err
		}
		return missing(tx.Posts().DeletePost(ctx, post.ID), "post not found")
	})
}

// === Comments ===

// CreateComment adds a comment and notifies mentioned users. The post owner
// gets CommentedOnPost only when the comment does not already mention them.
func (s *GraphService) CreateComment(ctx context.Context, userID uint, postSlug string, req models.CreateCommentRequest) (*models.Comment, error) {
	body, err := checkBody("body", req.Body, s.cfg.CommentMaxLength)
	if err != nil {
		return nil, err
	}
	var comment *models.Comment
	err = s.mutate(ctx, func(ctx context.Context, tx repositories.Store, notes *[]models.Notification) error {
		author, err := actingUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		post, err := tx.Posts().GetPostBySlug(ctx, postSlug)
		if err != nil {
			return missing(err, "post not found")
		}
		c := &models.Comment{Slug: newOrderedSlug(), UserID: author.ID, PostID: post.ID, Body: body}
		if err := tx.Comments().CreateComment(ctx, c); err != nil {
			return err
		}

		path := commentPath(post.Slug, c.Slug)
		mentioned, err := s.notifyMentions(ctx, tx, notes, body, models.ActionMentionedOnComment, author, path)
		if err != nil {
			return err
		}
		if post.UserID != author.ID && !mentioned[post.UserID] {
			if err := s.notify(ctx, tx, notes, post.UserID, models.ActionCommentedOnPost, author, path); err != nil {
				return err
			}
		}

		compact := author.ToCompact()
		c.Author = &compact
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *GraphService) UpdateComment(ctx context.Context, userID, commentID uint, req models.UpdateCommentRequest) (*models.Comment, error) {
	body, err := checkBody("body", req.Body, s.cfg.CommentMaxLength)
	if err != nil {
		return nil, err
	}
	var comment *models.Comment
	err = s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		c, err := ownedComment(ctx, tx, userID, commentID)
		if err != nil {
			return err
		}
		c.Body = body
		if err := tx.Comments().UpdateComment(ctx, c); err != nil {
			return missing(err, "comment not found")
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *GraphService) DeleteComment(ctx context.Context, userID, commentID uint) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		c, err := ownedComment(ctx, tx, userID, commentID)
		if err != nil {
			return err
		}
		if err := tx.Likes().DeleteLikesByTargets(ctx, models.LikableComment, []uint{c.ID}); err != nil {
			return err
		}
		return missing(tx.Comments().DeleteComment(ctx, c.ID), "comment not found")
	})
}

// === Follows ===

func (s *GraphService) Follow(ctx context.Context, followerID uint, targetSlug string) error {
	err := s.mutate(ctx, func(ctx context.Context, tx repositories.Store, notes *[]models.Notification) error {
		follower, err := actingUser(ctx, tx, followerID)
		if err != nil {
			return err
		}
		target, err := tx.Users().GetUserBySlug(ctx, targetSlug)
		if err != nil {
			return missing(err, "user not found")
		}
		if target.ID == follower.ID {
			return apperrors.Conflict("you cannot follow yourself")
		}
		exists, err := tx.Follows().IsFollowing(ctx, follower.ID, target.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Conflict("you already follow %s", target.Username)
		}
		if err := tx.Follows().CreateFollow(ctx, &models.Follow{FollowerID: follower.ID, FollowingID: target.ID}); err != nil {
			return edgeConflict(err, "you already follow %s", target.Username)
		}
		return s.notify(ctx, tx, notes, target.ID, models.ActionFollowed, follower, userPath(follower.Slug))
	})
	if err == nil {
		s.suggestions.ForgetSuggestions(ctx, followerID)
	}
	return err
}

func (s *GraphService) Unfollow(ctx context.Context, followerID uint, targetSlug string) error {
	err := s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		target, err := tx.Users().GetUserBySlug(ctx, targetSlug)
		if err != nil {
			return missing(err, "user not found")
		}
		exists, err := tx.Follows().IsFollowing(ctx, followerID, target.ID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.Conflict("you do not follow %s", target.Username)
		}
		return edgeConflict(tx.Follows().DeleteFollow(ctx, followerID, target.ID), "you do not follow %s", target.Username)
	})
	if err == nil {
		s.suggestions.ForgetSuggestions(ctx, followerID)
	}
	return err
}

// === Likes ===

// likable is a resolved like target: who owns it and where it lives.
type likable struct {
	target  models.Likable
	ownerID uint
	path    string
	action  models.NotificationAction
}

func resolvePost(ctx context.Context, tx repositories.Store, slug string) (likable, error) {
	post, err := tx.Posts().GetPostBySlug(ctx, slug)
	if err != nil {
		return likable{}, missing(err, "post not found")
	}
	return likable{
		target:  models.PostTarget(post.ID),
		ownerID: post.UserID,
		path:    postPath(post.Slug),
		action:  models.ActionLikedPost,
	}, nil
}

func resolveComment(ctx context.Context, tx repositories.Store, commentID uint) (likable, error) {
	comment, err := tx.Comments().GetCommentByID(ctx, commentID)
	if err != nil {
		return likable{}, missing(err, "comment not found")
	}
	post, err := tx.Posts().GetPostByID(ctx, comment.PostID)
	if err != nil {
		return likable{}, missing(err, "comment not found")
	}
	return likable{
		target:  models.CommentTarget(comment.ID),
		ownerID: comment.UserID,
		path:    commentPath(post.Slug, comment.Slug),
		action:  models.ActionLikedComment,
	}, nil
}

func (s *GraphService) like(ctx context.Context, userID uint, resolve func(context.Context, repositories.Store) (likable, error)) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, notes *[]models.Notification) error {
		liker, err := actingUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		l, err := resolve(ctx, tx)
		if err != nil {
			return err
		}
		exists, err := tx.Likes().HasLiked(ctx, liker.ID, l.target)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Conflict("you already liked this %s", l.target.Kind)
		}
		like := &models.Like{UserID: liker.ID, LikableType: l.target.Kind, LikableID: l.target.ID}
		if err := tx.Likes().CreateLike(ctx, like); err != nil {
			return edgeConflict(err, "you already liked this %s", l.target.Kind)
		}
		if l.ownerID == liker.ID {
			return nil
		}
		return s.notify(ctx, tx, notes, l.ownerID, l.action, liker, l.path)
	})
}

func (s *GraphService) dislike(ctx context.Context, userID uint, resolve func(context.Context, repositories.Store) (likable, error)) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		l, err := resolve(ctx, tx)
		if err != nil {
			return err
		}
		exists, err := tx.Likes().HasLiked(ctx, userID, l.target)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.Conflict("you have not liked this %s", l.target.Kind)
		}
		return edgeConflict(tx.Likes().DeleteLike(ctx, userID, l.target), "you have not liked this %s", l.target.Kind)
	})
}

func (s *GraphService) LikePost(ctx context.Context, userID uint, postSlug string) error {
	return s.like(ctx, userID, func(ctx context.Context, tx repositories.Store) (likable, error) {
		return resolvePost(ctx, tx, postSlug)
	})
}

func (s *GraphService) DislikePost(ctx context.Context, userID uint, postSlug string) error {
	return s.dislike(ctx, userID, func(ctx context.Context, tx repositories.Store) (likable, error) {
		return resolvePost(ctx, tx, postSlug)
	})
}

func (s *GraphService) LikeComment(ctx context.Context, userID, commentID uint) error {
	return s.like(ctx, userID, func(ctx context.Context, tx repositories.Store) (likable, error) {
		return resolveComment(ctx, tx, commentID)
	})
}

func (s *GraphService) DislikeComment(ctx context.Context, userID, commentID uint) error {
	return s.dislike(ctx, userID, func(ctx context.Context, tx repositories.Store) (likable, error) {
		return resolveComment(ctx, tx, commentID)
	})
}

// === Bookmarks ===

func (s *GraphService) BookmarkPost(ctx context.Context, userID uint, postSlug string) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		post, err := tx.Posts().GetPostBySlug(ctx, postSlug)
		if err != nil {
			return missing(err, "post not found")
		}
		exists, err := tx.Bookmarks().IsBookmarked(ctx, userID, post.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Conflict("post is already bookmarked")
		}
		err = tx.Bookmarks().CreateBookmark(ctx, &models.Bookmark{UserID: userID, PostID: post.ID})
		return edgeConflict(err, "post is already bookmarked")
	})
}

func (s *GraphService) UnbookmarkPost(ctx context.Context, userID uint, postSlug string) error {
	return s.mutate(ctx, func(ctx context.Context, tx repositories.Store, _ *[]models.Notification) error {
		post, err := tx.Posts().GetPostBySlug(ctx, postSlug)
		if err != nil {
			return missing(err, "post not found")
		}
		exists, err := tx.Bookmarks().IsBookmarked(ctx, userID, post.ID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.Conflict("post is not bookmarked")
		}
		return edgeConflict(tx.Bookmarks().DeleteBookmark(ctx, userID, post.ID), "post is not bookmarked")
	})
}

// === Reads ===

// withAuthors fills Author on every post.
func (s *GraphService) withAuthors(ctx context.Context, posts []models.Post) error {
	authors, err := s.compactUsers(ctx, len(posts), func(i int) uint { return posts[i].UserID })
	if err != nil {
		return err
	}
	for i := range posts {
		if a, ok := authors[posts[i].UserID]; ok {
			posts[i].Author = &a
		}
	}
	return nil
}

func (s *GraphService) compactUsers(ctx context.Context, n int, id func(int) uint) (map[uint]models.UserCompact, error) {
	ids := make([]uint, 0, n)
	seen := make(map[uint]bool, n)
	for i := 0; i < n; i++ {
		if !seen[id(i)] {
			seen[id(i)] = true
			ids = append(ids, id(i))
		}
	}
	users, err := s.store.Users().GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]models.UserCompact, len(users))
	for i := range users {
		out[users[i].ID] = users[i].ToCompact()
	}
	return out, nil
}

func (s *GraphService) postPage(ctx context.Context, q pagination.Query[models.Post], pageSize, page int) (pagination.Page[models.Post], error) {
	p, err := pagination.Paginate(ctx, q, pageSize, page)
	if err != nil {
		return p, apperrors.Classify(err)
	}
	if err := s.withAuthors(ctx, p.Items); err != nil {
		return p, apperrors.Classify(err)
	}
	return p, nil
}

func (s *GraphService) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	post, err := s.store.Posts().GetPostBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.Classify(missing(err, "post not found"))
	}
	posts := []models.Post{*post}
	if err := s.withAuthors(ctx, posts); err != nil {
		return nil, apperrors.Classify(err)
	}
	return &posts[0], nil
}

// ListPosts lists every post in the given order.
func (s *GraphService) ListPosts(ctx context.Context, order models.PostOrder, pageSize, page int) (pagination.Page[models.Post], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if order != models.PostOrderPopular {
		order = models.PostOrderNewest
	}
	return s.postPage(ctx, s.store.Posts().ListPosts(models.PostFilter{Order: order}), pageSize, page)
}

func (s *GraphService) ListUserPosts(ctx context.Context, userSlug string, pageSize, page int) (pagination.Page[models.Post], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	user, err := s.store.Users().GetUserBySlug(ctx, userSlug)
	if err != nil {
		return pagination.Page[models.Post]{}, apperrors.Classify(missing(err, "user not found"))
	}
	filter := models.PostFilter{AuthorIDs: []uint{user.ID}, Order: models.PostOrderNewest}
	return s.postPage(ctx, s.store.Posts().ListPosts(filter), pageSize, page)
}

// Feed lists the posts of userID and everyone they follow, newest first.
func (s *GraphService) Feed(ctx context.Context, userID uint, pageSize, page int) (pagination.Page[models.Post], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	ids, err := s.store.Follows().GetFollowingIDs(ctx, userID)
	if err != nil {
		return pagination.Page[models.Post]{}, apperrors.Classify(err)
	}
	filter := models.PostFilter{AuthorIDs: append(ids, userID), Order: models.PostOrderNewest}
	return s.postPage(ctx, s.store.Posts().ListPosts(filter), pageSize, page)
}

func (s *GraphService) ListBookmarks(ctx context.Context, userID uint, pageSize, page int) (pagination.Page[models.Post], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.postPage(ctx, s.store.Bookmarks().ListBookmarkedPosts(userID), pageSize, page)
}

// ListComments lists a post's comments oldest first.
func (s *GraphService) ListComments(ctx context.Context, postSlug string, pageSize, page int) (pagination.Page[models.Comment], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	post, err := s.store.Posts().GetPostBySlug(ctx, postSlug)
	if err != nil {
		return pagination.Page[models.Comment]{}, apperrors.Classify(missing(err, "post not found"))
	}
	p, err := pagination.Paginate(ctx, s.store.Comments().ListCommentsByPostID(post.ID), pageSize, page)
	if err != nil {
		return p, apperrors.Classify(err)
	}
	authors, err := s.compactUsers(ctx, len(p.Items), func(i int) uint { return p.Items[i].UserID })
	if err != nil {
		return p, apperrors.Classify(err)
	}
	for i := range p.Items {
		if a, ok := authors[p.Items[i].UserID]; ok {
			p.Items[i].Author = &a
		}
	}
	return p, nil
}

func (s *GraphService) followPage(ctx context.Context, userSlug string, list func(userID uint) pagination.Query[models.User], pageSize, page int) (pagination.Page[models.UserCompact], error) {
	ctx, cancel := scope(ctx, s.cfg.StoreTimeout)
	defer cancel()
	user, err := s.store.Users().GetUserBySlug(ctx, userSlug)
	if err != nil {
		return pagination.Page[models.UserCompact]{}, apperrors.Classify(missing(err, "user not found"))
	}
	p, err := pagination.Paginate(ctx, list(user.ID), pageSize, page)
	if err != nil {
		return pagination.Page[models.UserCompact]{}, apperrors.Classify(err)
	}
	return compactPage(p), nil
}

func (s *GraphService) ListFollowers(ctx context.Context, userSlug string, pageSize, page int) (pagination.Page[models.UserCompact], error) {
	return s.followPage(ctx, userSlug, s.store.Follows().ListFollowers, pageSize, page)
}

func (s *GraphService) ListFollowing(ctx context.Context, userSlug string, pageSize, page int) (pagination.Page[models.UserCompact], error) {
	return s.followPage(ctx, userSlug, s.store.Follows().ListFollowing, pageSize, page)
}
