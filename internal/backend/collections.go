package backend

import (
	"context"
	"net/url"

	"github.com/paydesk/server/internal/model"
)

func rangeQuery(r model.DateRange) url.Values {
	q := url.Values{}
	if r.StartDate != "" {
		q.Set("startDate", r.StartDate)
	}
	if r.EndDate != "" {
		q.Set("endDate", r.EndDate)
	}
	if r.Interval != "" {
		q.Set("interval", r.Interval)
	}
	return q
}

// ListCollections lists collections in the range
func (c *Client) ListCollections(ctx context.Context, r model.DateRange) ([]model.Collection, error) {
	var res []model.Collection
	if err := c.get(ctx, "/api/v1/collections", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateCollection starts a collection request
func (c *Client) CreateCollection(ctx context.Context, col model.Collection) (*model.Collection, error) {
	mobile, err := NormalizeMobile(col.MobileNumber)
	if err != nil {
		return nil, err
	}
	col.MobileNumber = mobile

	var res model.Collection
	if err := c.post(ctx, "/api/v1/collections", col, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CollectionStatusSummary returns counts and values by status
func (c *Client) CollectionStatusSummary(ctx context.Context, r model.DateRange) (*model.StatusSummary, error) {
	var res model.StatusSummary
	if err := c.get(ctx, "/api/v1/collections/status-summary", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CollectionTrends returns the collection series bucketed by r.Interval
func (c *Client) CollectionTrends(ctx context.Context, r model.DateRange) ([]model.TrendPoint, error) {
	var res []model.TrendPoint
	if err := c.get(ctx, "/api/v1/collections/trends", rangeQuery(r), &res); err != nil {
		return nil, err
	}
	return res, nil
}
