package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/mirror"
	"github.com/etijucas/offline/internal/model"
	"github.com/etijucas/offline/internal/outbox"
	"github.com/etijucas/offline/internal/store"
)

// ReportFilter are the listing filters the backend accepts. The mirror
// fallback applies the same semantics locally.
type ReportFilter struct {
	BairroID string
	Status   string
	Search   string
	Page     int
	PerPage  int
}

func (f ReportFilter) query() url.Values {
	q := url.Values{}
	if f.BairroID != "" {
		q.Set("bairro_id", f.BairroID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return q
}

// unfiltered reports whether the server response is the authoritative full
// first page, safe to treat as a mirror baseline.
func (f ReportFilter) unfiltered() bool {
	return f.BairroID == "" && f.Status == "" && f.Search == "" && f.Page <= 1
}

// ReportService serves citizen reports: network-first lists and gets backed
// by the mirror, optimistic creates backed by the outbox.
type ReportService struct {
	base
	coll *mirror.Collection[model.Report]
}

// NewReports wires the report service.
func NewReports(db *store.DB, client *api.Client, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *ReportService {
	return &ReportService{
		base: base{db: db, client: client, monitor: monitor, bus: b, log: log},
		coll: mirror.Reports(db, log),
	}
}

// List fetches reports, refreshing the mirror on success. When the backend
// is unreachable it serves the mirror instead, applying the same filters,
// order and pagination, and marks the page FromMirror.
func (s *ReportService) List(ctx context.Context, f ReportFilter) (model.Page[model.Report], error) {
	if s.online() {
		recs, meta, err := s.client.ListReports(ctx, f.query())
		if err == nil {
			s.refreshMirror(recs, f)
			return model.Page[model.Report]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[model.Report]{}, err
		}
		s.log.Warn("report list degraded to mirror", zap.Error(err))
	}

	recs := s.coll.Filter(func(r model.Report) bool { return f.matches(r) })
	page := paginate(recs, f.Page, f.PerPage)
	page.FromMirror = true
	return page, nil
}

func (f ReportFilter) matches(r model.Report) bool {
	if f.BairroID != "" && r.BairroID != f.BairroID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	return true
}

// refreshMirror folds a fresh server page in. An unfiltered first page is
// authoritative, so it replaces the mirror outright; local optimistic
// records survive the replace since the server does not know them yet.
func (s *ReportService) refreshMirror(recs []model.Report, f ReportFilter) {
	if f.unfiltered() {
		locals := s.coll.Filter(func(r model.Report) bool { return r.Local })
		s.coll.Replace(recs)
		s.coll.SaveMany(locals)
	} else {
		s.coll.SaveMany(recs)
	}
	s.checkpoint(s.coll.Entity())
	s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.coll.Entity(), "count": len(recs)})
}

// Get fetches one report, falling back to the mirror when unreachable.
// Returns nil when the report is unknown both remotely and locally.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	if s.online() {
		rec, err := s.client.GetReport(ctx, id)
		if err == nil {
			s.coll.Save(rec)
			return &rec, nil
		}
		if apiErr, ok := err.(*api.Error); ok && apiErr.Status == 404 {
			return nil, nil
		}
		if !fallback(err) {
			return nil, err
		}
	}
	return s.coll.GetByID(id), nil
}

// createReportPayload is the outbox payload for a queued report. LocalID
// names the provisional mirror record so the sync handler can swap it for
// the server's copy.
type createReportPayload struct {
	LocalID string            `json:"local_id"`
	Draft   model.ReportDraft `json:"draft"`
}

// Create submits a report, network first. When the backend is unreachable
// the draft is queued durably and an optimistic local record written so the
// user sees it immediately; the returned flag reports that queued path.
// A false flag with a nil record means an identical draft was already
// queued. The idempotency key derives from the draft alone, so retrying the
// same content dedupes regardless of the provisional identifiers.
func (s *ReportService) Create(ctx context.Context, draft model.ReportDraft) (*model.Report, bool, error) {
	key, err := outbox.IdempotencyKey(outbox.OpCreateReport, draft)
	if err != nil {
		return nil, false, err
	}

	if s.online() {
		rec, err := s.client.CreateReport(ctx, draft, key)
		if err == nil {
			s.coll.Save(rec)
			s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.coll.Entity(), "id": rec.ID})
			return &rec, false, nil
		}
		if !fallback(err) {
			return nil, false, err
		}
		s.log.Warn("report create queued for later sync", zap.Error(err))
	}

	localID := "local-" + uuid.NewString()
	payload := createReportPayload{LocalID: localID, Draft: draft}
	_, queued, err := outbox.Enqueue(s.db, s.bus, outbox.OpCreateReport, payload, key)
	if err != nil {
		return nil, false, err
	}
	if !queued {
		return nil, false, nil
	}

	rec := model.Report{
		ID:          localID,
		Protocol:    localProtocol(),
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Status:      "pending",
		BairroID:    draft.BairroID,
		PhotoURL:    draft.PhotoURL,
		Latitude:    draft.Latitude,
		Longitude:   draft.Longitude,
		CreatedAt:   time.Now().UTC(),
		Local:       true,
	}
	s.coll.Save(rec)
	s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.coll.Entity(), "id": localID})
	return &rec, true, nil
}

// localProtocol synthesizes a provisional protocol number. The server
// assigns the real one on sync.
func localProtocol() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:4]
	return fmt.Sprintf("LOC-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// HandleCreate is the outbox handler for queued reports: it submits the
// draft and swaps the provisional mirror record for the server's copy.
func (s *ReportService) HandleCreate(ctx context.Context, raw []byte, idempotencyKey string) error {
	var payload createReportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &api.Error{Status: 400, Code: "bad_payload", Message: err.Error()}
	}

	rec, err := s.client.CreateReport(ctx, payload.Draft, idempotencyKey)
	if err != nil {
		return err
	}

	s.coll.Delete(payload.LocalID)
	s.coll.Save(rec)
	s.publish(bus.KindMirrorUpdated, map[string]any{
		"entity": s.coll.Entity(), "id": rec.ID, "replaced": payload.LocalID,
	})
	return nil
}

// RegisterHandlers attaches this service's outbox handlers to a drainer.
func (s *ReportService) RegisterHandlers(d *outbox.Drainer) {
	d.Register(outbox.OpCreateReport, s.HandleCreate)
}
