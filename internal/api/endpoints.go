package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/etijucas/offline/internal/model"
)

// ListReports fetches citizen reports. The query carries the server-side
// filters (bairro_id, status, search, page, per_page).
func (c *Client) ListReports(ctx context.Context, query url.Values) ([]model.Report, model.Meta, error) {
	return getList[model.Report](ctx, c, "/api/v1/reports", query)
}

// GetReport fetches a single report by id.
func (c *Client) GetReport(ctx context.Context, id string) (model.Report, error) {
	return getItem[model.Report](ctx, c, "/api/v1/reports/"+url.PathEscape(id), nil)
}

// CreateReport submits a new report. The idempotency key makes retried
// submissions safe against duplicate server-side resources.
func (c *Client) CreateReport(ctx context.Context, draft model.ReportDraft, idempotencyKey string) (model.Report, error) {
	return postItem[model.Report](ctx, c, "/api/v1/reports", draft, idempotencyKey)
}

// ListTopics fetches forum topics.
func (c *Client) ListTopics(ctx context.Context, query url.Values) ([]model.Topic, model.Meta, error) {
	return getList[model.Topic](ctx, c, "/api/v1/forum/topics", query)
}

// GetTopic fetches a single topic by id.
func (c *Client) GetTopic(ctx context.Context, id string) (model.Topic, error) {
	return getItem[model.Topic](ctx, c, "/api/v1/forum/topics/"+url.PathEscape(id), nil)
}

// ListComments fetches the comments of one topic.
func (c *Client) ListComments(ctx context.Context, topicID string) ([]model.Comment, model.Meta, error) {
	return getList[model.Comment](ctx, c, "/api/v1/forum/topics/"+url.PathEscape(topicID)+"/comments", nil)
}

// CreateComment posts a comment on a topic.
func (c *Client) CreateComment(ctx context.Context, topicID string, body any, idempotencyKey string) (model.Comment, error) {
	return postItem[model.Comment](ctx, c, "/api/v1/forum/topics/"+url.PathEscape(topicID)+"/comments", body, idempotencyKey)
}

// ListEvents fetches municipal events, optionally bounded by from/to.
func (c *Client) ListEvents(ctx context.Context, query url.Values) ([]model.Event, model.Meta, error) {
	return getList[model.Event](ctx, c, "/api/v1/events", query)
}

// ListAlerts fetches civil-defense alerts.
func (c *Client) ListAlerts(ctx context.Context) ([]model.Alert, model.Meta, error) {
	return getList[model.Alert](ctx, c, "/api/v1/alerts", nil)
}

// ListBairros fetches the neighborhood catalog.
func (c *Client) ListBairros(ctx context.Context) ([]model.Bairro, model.Meta, error) {
	return getList[model.Bairro](ctx, c, "/api/v1/bairros", nil)
}

// ListMassSchedules fetches church service times.
func (c *Client) ListMassSchedules(ctx context.Context) ([]model.MassSchedule, model.Meta, error) {
	return getList[model.MassSchedule](ctx, c, "/api/v1/mass-schedules", nil)
}

// ListUsefulPhones fetches public-utility phone numbers.
func (c *Client) ListUsefulPhones(ctx context.Context) ([]model.UsefulPhone, model.Meta, error) {
	return getList[model.UsefulPhone](ctx, c, "/api/v1/useful-phones", nil)
}

// ListTourismSpots fetches tourism points of interest.
func (c *Client) ListTourismSpots(ctx context.Context) ([]model.TourismSpot, model.Meta, error) {
	return getList[model.TourismSpot](ctx, c, "/api/v1/tourism", nil)
}

// WeatherBundle fetches the aggregated weather payload for the home screen.
// sections selects which blocks the server includes.
func (c *Client) WeatherBundle(ctx context.Context, days int, units string, sections []string) (model.WeatherBundle, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("units", units)
	if len(sections) > 0 {
		q.Set("sections", strings.Join(sections, ","))
	}
	return getItem[model.WeatherBundle](ctx, c, "/api/v1/weather/bundle", q)
}

// Forecast fetches the daily forecast block alone.
func (c *Client) Forecast(ctx context.Context, days int, units string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("units", units)
	return getItem[json.RawMessage](ctx, c, "/api/v1/weather/forecast", q)
}

// Marine fetches the marine (tide/swell) block alone.
func (c *Client) Marine(ctx context.Context, days int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	return getItem[json.RawMessage](ctx, c, "/api/v1/weather/marine", q)
}
