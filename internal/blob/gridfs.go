package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS stores objects in a MongoDB GridFS bucket, keyed by filename.
// Download URLs point at an external media server that streams bucket
// contents by object id.
type GridFS struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewGridFS creates a GridFS store. baseURL is the public prefix of the
// media server, e.g. "https://media.example.com".
func NewGridFS(db *mongo.Database, baseURL string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (g *GridFS) Put(ctx context.Context, key string, data []byte) error {
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"uploaded_at": time.Now().UTC(),
	})
	if _, err := g.bucket.UploadFromStream(key, bytes.NewReader(data), uploadOpts); err != nil {
		return wrapMongoErr(fmt.Errorf("gridfs upload %q: %w", key, err))
	}
	return nil
}

func (g *GridFS) ResolveURL(ctx context.Context, key string) (string, error) {
	cursor, err := g.bucket.Find(bson.M{"filename": key}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return "", wrapMongoErr(fmt.Errorf("gridfs find %q: %w", key, err))
	}
	defer func() { _ = cursor.Close(ctx) }()

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", wrapMongoErr(err)
		}
		return "", ErrNotFound
	}
	var file struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.Decode(&file); err != nil {
		return "", fmt.Errorf("gridfs decode: %w", err)
	}
	return fmt.Sprintf("%s/media/%s", g.baseURL, file.ID.Hex()), nil
}

// wrapMongoErr tags network-level failures as transient so the upload
// pipeline's single retry applies to them.
func wrapMongoErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
