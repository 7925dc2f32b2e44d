package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bucketName = "photos"

// GridFSStore keeps photos in a MongoDB GridFS bucket.
type GridFSStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewGridFSStore(db *mongo.Database, baseURL string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket, baseURL: baseURL}, nil
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Time{}
}

// Upload validates the image and streams it into the bucket.
func (s *GridFSStore) Upload(ctx context.Context, name string, r io.Reader, c Constraints) (string, error) {
	body, format, err := Inspect(r, c)
	if err != nil {
		return "", err
	}
	if err := s.bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", err
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": ContentType(format)})
	id, err := s.bucket.UploadFromStream(name, body, opts)
	if err != nil {
		return "", fmt.Errorf("gridfs upload: %w", err)
	}
	return publicURL(s.baseURL, id.Hex()), nil
}

// Open streams a stored photo back. The caller closes the reader.
func (s *GridFSStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrNotFound
	}
	if err := s.bucket.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, "", err
	}
	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	var meta struct {
		ContentType string `bson:"content_type"`
	}
	if raw := stream.GetFile().Metadata; raw != nil {
		if err := bson.Unmarshal(raw, &meta); err == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return stream, contentType, nil
}
