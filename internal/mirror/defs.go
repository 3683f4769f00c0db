package mirror

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/store"
)

// Listing orders per entity: reports, topics and alerts newest first;
// bairros alphabetical under pt-BR collation; events soonest first;
// comments, masses, phones and tourism spots keep insertion order.

// Reports builds the citizen-report collection.
func Reports(db *store.DB, log *zap.Logger) *Collection[model.Report] {
	return NewCollection(db, Def[model.Report]{
		Entity: "reports",
		ID:     func(r model.Report) string { return r.ID },
		Sort: func(recs []model.Report) {
			sort.SliceStable(recs, func(i, j int) bool {
				return recs[i].CreatedAt.After(recs[j].CreatedAt)
			})
		},
	}, log)
}

// Topics builds the forum-topic collection.
func Topics(db *store.DB, log *zap.Logger) *Collection[model.Topic] {
	return NewCollection(db, Def[model.Topic]{
		Entity: "topics",
		ID:     func(t model.Topic) string { return t.ID },
		Sort: func(recs []model.Topic) {
			sort.SliceStable(recs, func(i, j int) bool {
				return recs[i].CreatedAt.After(recs[j].CreatedAt)
			})
		},
	}, log)
}

// Comments builds the topic-comment collection, insertion order.
func Comments(db *store.DB, log *zap.Logger) *Collection[model.Comment] {
	return NewCollection(db, Def[model.Comment]{
		Entity: "comments",
		ID:     func(c model.Comment) string { return c.ID },
	}, log)
}

// CommentsByTopic lists one topic's comments. Comments of every topic share
// a single namespace; the mirror holds a bounded working set, so a scan is
// fine.
func CommentsByTopic(c *Collection[model.Comment], topicID string) []model.Comment {
	return c.Filter(func(cm model.Comment) bool { return cm.TopicID == topicID })
}

// Events builds the municipal-event collection, soonest start first.
func Events(db *store.DB, log *zap.Logger) *Collection[model.Event] {
	return NewCollection(db, Def[model.Event]{
		Entity: "events",
		ID:     func(e model.Event) string { return e.ID },
		Sort: func(recs []model.Event) {
			sort.SliceStable(recs, func(i, j int) bool {
				return recs[i].StartTime().Before(recs[j].StartTime())
			})
		},
	}, log)
}

// Alerts builds the civil-defense alert collection, newest first.
func Alerts(db *store.DB, log *zap.Logger) *Collection[model.Alert] {
	return NewCollection(db, Def[model.Alert]{
		Entity: "alerts",
		ID:     func(a model.Alert) string { return a.ID },
		Sort: func(recs []model.Alert) {
			sort.SliceStable(recs, func(i, j int) bool {
				return recs[i].CreatedAt.After(recs[j].CreatedAt)
			})
		},
	}, log)
}

// Bairros builds the neighborhood collection, name ascending. Byte order
// would misplace accented names like "Água Clara", so sorting goes through
// a pt-BR collator.
func Bairros(db *store.DB, log *zap.Logger) *Collection[model.Bairro] {
	return NewCollection(db, Def[model.Bairro]{
		Entity: "bairros",
		ID:     func(b model.Bairro) string { return b.ID },
		Sort: func(recs []model.Bairro) {
			cl := collate.New(language.BrazilianPortuguese)
			sort.SliceStable(recs, func(i, j int) bool {
				return cl.CompareString(recs[i].Name, recs[j].Name) < 0
			})
		},
	}, log)
}

// MassSchedules builds the mass-schedule collection, insertion order.
func MassSchedules(db *store.DB, log *zap.Logger) *Collection[model.MassSchedule] {
	return NewCollection(db, Def[model.MassSchedule]{
		Entity: "mass_schedules",
		ID:     func(m model.MassSchedule) string { return m.ID },
	}, log)
}

// UsefulPhones builds the useful-phone collection, insertion order.
func UsefulPhones(db *store.DB, log *zap.Logger) *Collection[model.UsefulPhone] {
	return NewCollection(db, Def[model.UsefulPhone]{
		Entity: "useful_phones",
		ID:     func(p model.UsefulPhone) string { return p.ID },
	}, log)
}

// TourismSpots builds the tourism-spot collection, insertion order.
func TourismSpots(db *store.DB, log *zap.Logger) *Collection[model.TourismSpot] {
	return NewCollection(db, Def[model.TourismSpot]{
		Entity: "tourism_spots",
		ID:     func(s model.TourismSpot) string { return s.ID },
	}, log)
}
