package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/pagination"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a row (or an edge) does not exist, or when a
	// conditional update matched nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the entity repositories and opens transactions over them.
// Repositories obtained from the Store passed to fn share fn's transaction.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Comments() CommentRepository
	Follows() FollowRepository
	Likes() LikeRepository
	Bookmarks() BookmarkRepository
	Notifications() NotificationRepository
	UpdateRequests() UpdateRequestRepository

	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// PostgresStore implements Store on top of gorm.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AutoMigrate creates or updates every table the store uses.
func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.Like{},
		&models.Bookmark{},
		&models.Notification{},
		&models.UpdateRequest{},
	)
}

func (s *PostgresStore) Users() UserRepository       { return NewPostgresUserRepository(s.db) }
func (s *PostgresStore) Posts() PostRepository       { return NewPostgresPostRepository(s.db) }
func (s *PostgresStore) Comments() CommentRepository { return NewPostgresCommentRepository(s.db) }
func (s *PostgresStore) Follows() FollowRepository   { return NewPostgresFollowRepository(s.db) }
func (s *PostgresStore) Likes() LikeRepository       { return NewPostgresLikeRepository(s.db) }
func (s *PostgresStore) Bookmarks() BookmarkRepository {
	return NewPostgresBookmarkRepository(s.db)
}
func (s *PostgresStore) Notifications() NotificationRepository {
	return NewPostgresNotificationRepository(s.db)
}
func (s *PostgresStore) UpdateRequests() UpdateRequestRepository {
	return NewPostgresUpdateRequestRepository(s.db)
}

// Transaction runs fn inside a database transaction. fn's error rolls back.
func (s *PostgresStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresStore{db: tx})
	})
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// pageQuery adapts a gorm query builder to pagination.Query. build must
// apply a total order.
func pageQuery[T any](db *gorm.DB, build func(db *gorm.DB) *gorm.DB) pagination.Query[T] {
	return pagination.QueryFunc[T](func(ctx context.Context, offset, limit int) ([]T, error) {
		var rows []T
		err := build(db.WithContext(ctx)).Offset(offset).Limit(limit).Find(&rows).Error
		return rows, translate(err)
	})
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserBySlug(ctx context.Context, slug string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetUsersByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	// LockUser takes a row lock on the user for the rest of the transaction.
	LockUser(ctx context.Context, id uint) error
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers() pagination.Query[models.User]
	SearchUsers(query string) pagination.Query[models.User]
	SuggestUsers(ctx context.Context, userID uint, limit int) ([]models.User, error)
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
	ListPosts(filter models.PostFilter) pagination.Query[models.Post]
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentIDsByPostID(ctx context.Context, postID uint) ([]uint, error)
	CountCommentsByPostID(ctx context.Context, postID uint) (int64, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id uint) error
	DeleteCommentsByPostID(ctx context.Context, postID uint) error
	ListCommentsByPostID(postID uint) pagination.Query[models.Comment]
}

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *models.Follow) error
	DeleteFollow(ctx context.Context, followerID, followingID uint) error
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	ListFollowers(userID uint) pagination.Query[models.User]
	ListFollowing(userID uint) pagination.Query[models.User]
}

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID uint, target models.Likable) error
	HasLiked(ctx context.Context, userID uint, target models.Likable) (bool, error)
	CountLikes(ctx context.Context, target models.Likable) (int64, error)
	DeleteLikesByTargets(ctx context.Context, kind models.LikableKind, ids []uint) error
}

// BookmarkRepository defines the interface for bookmark data operations
type BookmarkRepository interface {
	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error
	DeleteBookmark(ctx context.Context, userID, postID uint) error
	IsBookmarked(ctx context.Context, userID, postID uint) (bool, error)
	DeleteBookmarksByPostID(ctx context.Context, postID uint) error
	ListBookmarkedPosts(userID uint) pagination.Query[models.Post]
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetNotificationByID(ctx context.Context, id uint) (*models.Notification, error)
	ListNotifications(recipientID uint) pagination.Query[models.Notification]
	MarkNotificationsPeeked(ctx context.Context, recipientID uint, at time.Time) (int64, error)
	MarkNotificationRead(ctx context.Context, id uint, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, recipientID uint, at time.Time) (int64, error)
	CountUnpeeked(ctx context.Context, recipientID uint) (int64, error)
}

// UpdateRequestRepository stores verification records.
type UpdateRequestRepository interface {
	CreateUpdateRequest(ctx context.Context, req *models.UpdateRequest) error
	CountCompletedSince(ctx context.Context, userID uint, kind models.UpdateRequestKind, since time.Time) (int64, error)
	GetLatestUpdateRequest(ctx context.Context, userID uint, kind models.UpdateRequestKind) (*models.UpdateRequest, error)
	GetUpdateRequestByToken(ctx context.Context, kind models.UpdateRequestKind, token string) (*models.UpdateRequest, error)
	// CompleteUpdateRequest sets completed_at only while the request is
	// unconsumed and unexpired; otherwise it returns ErrNotFound.
	CompleteUpdateRequest(ctx context.Context, id uint, now time.Time) error
	// RecordFailedAttempt counts a wrong code. Once limit attempts have
	// failed the request expires at now. A limit of zero never expires it.
	RecordFailedAttempt(ctx context.Context, id uint, limit int, now time.Time) error
}
