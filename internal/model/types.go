// Package model holds the domain entities mirrored from the eTijucas API.
package model

import (
	"encoding/json"
	"time"
)

// Report is a citizen report (pothole, broken light, illegal dumping...).
type Report struct {
	ID          string    `json:"id"`
	Protocol    string    `json:"protocol"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	BairroID    string    `json:"bairro_id"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Local marks a record synthesized offline; its id and protocol are
	// provisional until the queued write syncs.
	Local bool `json:"local,omitempty"`
}

// ReportDraft is the user-supplied portion of a new report.
type ReportDraft struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BairroID    string  `json:"bairro_id"`
	PhotoURL    string  `json:"photo_url,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Topic is a forum thread.
type Topic struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment belongs to a forum topic.
type Comment struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Local     bool      `json:"local,omitempty"`
}

// Event is a municipal event. Older API versions expose the start under
// "date" instead of "starts_at"; StartTime tolerates both.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StartTime returns the event start, preferring starts_at over date.
func (e Event) StartTime() time.Time {
	if e.StartsAt != nil {
		return *e.StartsAt
	}
	if e.Date != nil {
		return *e.Date
	}
	return time.Time{}
}

// Alert is a civil-defense or city-hall notice.
type Alert struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Bairro is a city neighborhood.
type Bairro struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Zone string `json:"zone,omitempty"`
}

// MassSchedule is a church service time.
type MassSchedule struct {
	ID      string `json:"id"`
	Church  string `json:"church"`
	Address string `json:"address"`
	Weekday string `json:"weekday"`
	Time    string `json:"time"`
}

// UsefulPhone is a public-utility phone number.
type UsefulPhone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   string `json:"number"`
	Category string `json:"category"`
}

// TourismSpot is a point of interest.
type TourismSpot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	ImageURL    string `json:"image_url,omitempty"`
	Category    string `json:"category"`
}

// WeatherBundle aggregates the weather sections the home screen requests.
// Sections the caller did not ask for come back empty. The payloads stay
// raw: the data layer caches and relays them, the UI interprets them.
type WeatherBundle struct {
	Current  json.RawMessage `json:"current,omitempty"`
	Daily    json.RawMessage `json:"daily,omitempty"`
	Marine   json.RawMessage `json:"marine,omitempty"`
	Insights json.RawMessage `json:"insights,omitempty"`
}

// Meta is the pagination block of a list envelope.
type Meta struct {
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

// Page is a list result. The shape is identical whether it came from the
// network or from the local mirror, so UI code never branches.
type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
	// FromMirror marks a degraded read served from local data.
	FromMirror bool `json:"-"`
}
