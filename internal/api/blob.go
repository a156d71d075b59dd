package api

import (
	"context"

	"github.com/onscale/onscale-go/internal/models"
)

// BlobUpload uploads a file as a new blob attached to a portal object.
func (c *Client) BlobUpload(ctx context.Context, filePath string, blob *models.Blob) (*models.Blob, error) {
	var uploaded models.Blob
	if err := c.postFile(ctx, "/blob/upload", filePath, blob, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

// BlobChildUpload uploads a file as a child of an existing blob.
func (c *Client) BlobChildUpload(ctx context.Context, filePath string, blob *models.Blob) (*models.Blob, error) {
	var uploaded models.Blob
	if err := c.postFile(ctx, "/blob/upload/child", filePath, blob, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

// BlobList returns the blobs attached to a portal object.
func (c *Client) BlobList(ctx context.Context, objectID string) ([]models.Blob, error) {
	var blobs []models.Blob
	if err := c.get(ctx, "/blob/list/"+objectID, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}

// BlobListObject returns the blobs of one type attached to a portal object.
func (c *Client) BlobListObject(ctx context.Context, req *models.BlobRequest) ([]models.Blob, error) {
	var blobs []models.Blob
	if err := c.post(ctx, "/blob/list/object", req, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}

// BlobChildList returns the children of a blob.
func (c *Client) BlobChildList(ctx context.Context, blobID string) ([]models.Blob, error) {
	var blobs []models.Blob
	if err := c.post(ctx, "/blob/list/children", models.BlobIDRequest{BlobID: blobID}, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}
