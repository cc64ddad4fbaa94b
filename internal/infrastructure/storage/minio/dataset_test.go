package minio

import (
	"context"
	stderrors "errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgraph/pkg/errors"
)

func newTestStore(t *testing.T, api *MockMinIOAPI, cfg *MinIOConfig) *DatasetStore {
	t.Helper()
	api.On("BucketExists", mock.Anything, "molgraph").Return(true, nil).Once()
	client, err := newClientWithAPI(context.Background(), api, cfg, nil)
	require.NoError(t, err)
	return NewDatasetStore(client, nil)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "molgraph", cfg.Bucket)
	assert.Equal(t, "datasets", cfg.Prefix)
	assert.Equal(t, time.Hour, cfg.PresignExpiry)
}

func TestNewClient_CreatesMissingBucketAndLifecycle(t *testing.T) {
	api := &MockMinIOAPI{}
	api.On("BucketExists", mock.Anything, "graphs").Return(false, nil)
	api.On("MakeBucket", mock.Anything, "graphs", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
	api.On("SetBucketLifecycle", mock.Anything, "graphs", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 && c.Rules[0].RuleFilter.Prefix == "datasets/" && c.Rules[0].Expiration.Days == 30
	})).Return(stderrors.New("not supported"))

	client, err := newClientWithAPI(context.Background(), api, &MinIOConfig{Bucket: "graphs", ExpiryDays: 30}, nil)
	require.NoError(t, err, "lifecycle failure is not fatal")
	assert.Equal(t, "graphs", client.Bucket())
	api.AssertExpectations(t)
}

func TestNewClient_BucketCheckFails(t *testing.T) {
	api := &MockMinIOAPI{}
	api.On("BucketExists", mock.Anything, "molgraph").Return(false, stderrors.New("dial tcp: refused"))

	_, err := newClientWithAPI(context.Background(), api, &MinIOConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestDatasetStore_PutDataset(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})
	payload := []byte(`{"graphs":[],"skipped":[]}`)

	api.On("PutObject", mock.Anything, "molgraph", "datasets/v1/run-1.json", payload, mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/json" && o.UserMetadata["run-id"] == "run-1"
	})).Return(minio.UploadInfo{Size: int64(len(payload)), ETag: "abc"}, nil)

	obj, err := store.PutDataset(context.Background(), "v1", "run-1", payload)
	require.NoError(t, err)
	assert.Equal(t, "datasets/v1/run-1.json", obj.Key)
	assert.Equal(t, "molgraph", obj.Bucket)
	assert.Equal(t, int64(len(payload)), obj.Size)
	assert.Equal(t, "abc", obj.ETag)
	api.AssertExpectations(t)
}

func TestDatasetStore_PutDatasetErrors(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})

	_, err := store.PutDataset(context.Background(), "v1", "", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = store.PutDataset(context.Background(), "v1", "../escape", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	api.On("PutObject", mock.Anything, "molgraph", "datasets/v1/run-2.json", mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, stderrors.New("access denied"))
	_, err = store.PutDataset(context.Background(), "v1", "run-2", []byte("{}"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetExportFailed))
	assert.Equal(t, "datasets/v1/run-2.json", errors.Reason(err))
}

func TestDatasetStore_ClosedClient(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})
	require.NoError(t, store.client.Close())

	_, err := store.PutDataset(context.Background(), "v1", "run", []byte("{}"))
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}

func TestDatasetStore_ListDatasets(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})

	api.On("ListObjects", mock.Anything, "molgraph", minio.ListObjectsOptions{Prefix: "datasets/v1/", Recursive: true}).
		Return(objectChan(
			minio.ObjectInfo{Key: "datasets/v1/a.json", Size: 10},
			minio.ObjectInfo{Key: "datasets/v1/notes.txt", Size: 1},
			minio.ObjectInfo{Key: "datasets/v1/nested/b.json", Size: 2},
			minio.ObjectInfo{Key: "datasets/v1/c.json", Size: 30},
		))

	got, err := store.ListDatasets(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RunID)
	assert.Equal(t, "c", got[1].RunID)
	assert.Equal(t, int64(30), got[1].Size)
}

func TestDatasetStore_ListDatasetsError(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})
	api.On("ListObjects", mock.Anything, "molgraph", mock.Anything).
		Return(objectChan(minio.ObjectInfo{Err: stderrors.New("boom")}))

	_, err := store.ListDatasets(context.Background(), "v1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestDatasetStore_DatasetURLAndDelete(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{PresignExpiry: 5 * time.Minute})
	u, _ := url.Parse("http://minio.local/molgraph/datasets/v1/a.json?sig=x")

	api.On("PresignedGetObject", mock.Anything, "molgraph", "datasets/v1/a.json", 5*time.Minute, url.Values(nil)).Return(u, nil)
	got, err := store.DatasetURL(context.Background(), "datasets/v1/a.json", 0)
	require.NoError(t, err)
	assert.Equal(t, u.String(), got)

	api.On("RemoveObject", mock.Anything, "molgraph", "datasets/v1/a.json", minio.RemoveObjectOptions{}).Return(nil)
	assert.NoError(t, store.DeleteDataset(context.Background(), "datasets/v1/a.json"))
	api.AssertExpectations(t)
}

func TestMinIOClient_HealthCheck(t *testing.T) {
	api := &MockMinIOAPI{}
	store := newTestStore(t, api, &MinIOConfig{})

	api.On("BucketExists", mock.Anything, "molgraph").Return(false, nil).Once()
	err := store.client.HealthCheck(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))

	api.On("BucketExists", mock.Anything, "molgraph").Return(true, nil).Once()
	assert.NoError(t, store.client.HealthCheck(context.Background()))
}
