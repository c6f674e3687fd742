package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
)

// StorageClient talks to the Supabase Storage service. All operations use
// the service role key because resume files live in a private bucket.
type StorageClient struct {
	client *Client
}

// Upload stores an object, overwriting any existing one at the same path.
func (s *StorageClient) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Type": contentType,
		"x-upsert":     "true",
	}

	respBody, status, err := s.client.requestWithServiceKey(ctx, http.MethodPost, s.objectURL(bucket, objectPath), data, headers)
	if err != nil {
		return errors.Wrap(err, "upload object")
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return parseError(respBody, status)
	}
	return nil
}

// Download fetches an object's contents.
func (s *StorageClient) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	respBody, status, err := s.client.requestWithServiceKey(ctx, http.MethodGet, s.objectURL(bucket, objectPath), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "download object")
	}
	if status != http.StatusOK {
		return nil, parseError(respBody, status)
	}
	return respBody, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *StorageClient) Delete(ctx context.Context, bucket, objectPath string) error {
	respBody, status, err := s.client.requestWithServiceKey(ctx, http.MethodDelete, s.objectURL(bucket, objectPath), nil, nil)
	if err != nil {
		return errors.Wrap(err, "delete object")
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return parseError(respBody, status)
	}
	return nil
}

// CreateBucket creates a private bucket. An already existing bucket is not
// an error, so startup can call this unconditionally.
func (s *StorageClient) CreateBucket(ctx context.Context, bucket string) error {
	body, err := json.Marshal(map[string]any{
		"id":     bucket,
		"name":   bucket,
		"public": false,
	})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	respBody, status, err := s.client.requestWithServiceKey(ctx, http.MethodPost, s.client.storageURL+"/bucket", body, nil)
	if err != nil {
		return errors.Wrap(err, "create bucket")
	}
	if status == http.StatusOK || status == http.StatusCreated {
		return nil
	}
	if status == http.StatusConflict {
		return nil
	}
	perr := parseError(respBody, status)
	// Storage reports duplicates as a 400 with a Duplicate code.
	if status == http.StatusBadRequest && perr.Code == "Duplicate" {
		return nil
	}
	return perr
}

func (s *StorageClient) objectURL(bucket, objectPath string) string {
	return s.client.storageURL + "/object/" + url.PathEscape(bucket) + "/" + escapePath(objectPath)
}

// escapePath escapes each segment of an object path, keeping the slashes.
func escapePath(p string) string {
	u := url.URL{Path: p}
	return u.EscapedPath()
}
