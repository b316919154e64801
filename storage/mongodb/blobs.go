package mongodb

import (
	"bytes"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"

	"photogram/storage"
)

// BlobStore keeps image payloads in a GridFS bucket, addressed by name.
// The bucket API carries its own deadlines, so the contexts are unused.
type BlobStore struct {
	bucket *gridfs.Bucket
}

func NewBlobStore(db *mongo.Database) (*BlobStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, err
	}
	return &BlobStore{bucket: bucket}, nil
}

func (b *BlobStore) PutBlob(_ context.Context, name string, data []byte) error {
	return b.bucket.UploadFromStreamWithID(name, name, bytes.NewReader(data))
}

func (b *BlobStore) GetBlob(_ context.Context, name string) ([]byte, error) {
	var buffer bytes.Buffer
	_, err := b.bucket.DownloadToStreamByName(name, &buffer)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
