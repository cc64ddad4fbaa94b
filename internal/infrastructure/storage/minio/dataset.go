package minio

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/pkg/errors"
)

var ErrInvalidRunID = errors.New(errors.ErrCodeValidation, "invalid run id")

// DatasetObject describes one exported dataset.
type DatasetObject struct {
	Bucket        string    `json:"bucket"`
	Key           string    `json:"key"`
	SchemaVersion string    `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Size          int64     `json:"size"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  time.Time `json:"last_modified,omitempty"`
}

// DatasetStore writes featurized batches to <prefix>/<schema>/<run-id>.json.
type DatasetStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewDatasetStore(client *MinIOClient, log logging.Logger) *DatasetStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DatasetStore{client: client, logger: log}
}

// ObjectKey returns the object name of a dataset.
func (s *DatasetStore) ObjectKey(schemaVersion, runID string) string {
	return path.Join(s.client.config.Prefix, schemaVersion, runID+".json")
}

// PutDataset uploads payload as the dataset of runID.
func (s *DatasetStore) PutDataset(ctx context.Context, schemaVersion, runID string, payload []byte) (*DatasetObject, error) {
	if runID == "" || strings.ContainsAny(runID, "/\\") {
		return nil, ErrInvalidRunID.WithDetail(runID)
	}
	api, err := s.client.api()
	if err != nil {
		return nil, err
	}

	key := s.ObjectKey(schemaVersion, runID)
	info, err := api.PutObject(ctx, s.client.config.Bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"schema-version": schemaVersion,
			"run-id":         runID,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetExportFailed, "dataset upload failed").WithDetail(key)
	}

	s.logger.Info("dataset exported",
		logging.String("bucket", s.client.config.Bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size),
	)
	return &DatasetObject{
		Bucket:        s.client.config.Bucket,
		Key:           key,
		SchemaVersion: schemaVersion,
		RunID:         runID,
		Size:          info.Size,
		ETag:          info.ETag,
		LastModified:  info.LastModified,
	}, nil
}

// ListDatasets returns the exported datasets of one schema version.
func (s *DatasetStore) ListDatasets(ctx context.Context, schemaVersion string) ([]DatasetObject, error) {
	api, err := s.client.api()
	if err != nil {
		return nil, err
	}
	prefix := path.Join(s.client.config.Prefix, schemaVersion) + "/"

	var out []DatasetObject
	for obj := range api.ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "failed to list datasets")
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if !strings.HasSuffix(name, ".json") || strings.Contains(name, "/") {
			continue
		}
		out = append(out, DatasetObject{
			Bucket:        s.client.config.Bucket,
			Key:           obj.Key,
			SchemaVersion: schemaVersion,
			RunID:         strings.TrimSuffix(name, ".json"),
			Size:          obj.Size,
			ETag:          obj.ETag,
			LastModified:  obj.LastModified,
		})
	}
	return out, nil
}

// DatasetURL returns a presigned download URL for key.
func (s *DatasetStore) DatasetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	api, err := s.client.api()
	if err != nil {
		return "", err
	}
	if expiry == 0 {
		expiry = s.client.config.PresignExpiry
	}
	u, err := api.PresignedGetObject(ctx, s.client.config.Bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign dataset url")
	}
	return u.String(), nil
}

func (s *DatasetStore) DeleteDataset(ctx context.Context, key string) error {
	api, err := s.client.api()
	if err != nil {
		return err
	}
	if err := api.RemoveObject(ctx, s.client.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete dataset")
	}
	return nil
}
