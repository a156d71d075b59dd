package api

import (
	"context"

	"github.com/onscale/onscale-go/internal/models"
)

// TagJob attaches a tag to a job and returns the job's tag list.
func (c *Client) TagJob(ctx context.Context, jobID, tag string) ([]models.Tag, error) {
	var tags []models.Tag
	payload := models.Tag{ItemID: jobID, Tag: tag, Type: "JOB"}
	if err := c.post(ctx, "/tag/job", payload, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// UntagJob removes a tag from a job and returns the remaining tag list.
func (c *Client) UntagJob(ctx context.Context, jobID, tag string) ([]models.Tag, error) {
	var tags []models.Tag
	payload := models.Tag{ItemID: jobID, Tag: tag, Type: "JOB"}
	if err := c.delete(ctx, "/tag/job", payload, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// TagList returns the tags attached to a portal item.
func (c *Client) TagList(ctx context.Context, itemID string) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.post(ctx, "/tag/list", models.ItemIDRequest{ItemID: itemID}, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
