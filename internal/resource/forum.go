package resource

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
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

// CommentDraft is the user-supplied portion of a new forum comment.
type CommentDraft struct {
	TopicID string `json:"topic_id"`
	Author  string `json:"author"`
	Body    string `json:"body"`
}

// ForumService serves forum topics and comments with the same degradation
// contract as reports: network first, mirror on unreachable, outbox writes.
type ForumService struct {
	base
	topics   *mirror.Collection[model.Topic]
	comments *mirror.Collection[model.Comment]
}

// NewForum wires the forum service.
func NewForum(db *store.DB, client *api.Client, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *ForumService {
	return &ForumService{
		base:     base{db: db, client: client, monitor: monitor, bus: b, log: log},
		topics:   mirror.Topics(db, log),
		comments: mirror.Comments(db, log),
	}
}

// Topics lists forum threads, newest first.
func (s *ForumService) Topics(ctx context.Context, page, perPage int) (model.Page[model.Topic], error) {
	if s.online() {
		q := url.Values{}
		if page > 0 {
			q.Set("page", strconv.Itoa(page))
		}
		if perPage > 0 {
			q.Set("per_page", strconv.Itoa(perPage))
		}
		recs, meta, err := s.client.ListTopics(ctx, q)
		if err == nil {
			if page <= 1 {
				s.topics.Replace(recs)
			} else {
				s.topics.SaveMany(recs)
			}
			s.checkpoint(s.topics.Entity())
			s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.topics.Entity(), "count": len(recs)})
			return model.Page[model.Topic]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[model.Topic]{}, err
		}
		s.log.Warn("topic list degraded to mirror", zap.Error(err))
	}

	result := paginate(s.topics.GetAll(), page, perPage)
	result.FromMirror = true
	return result, nil
}

// Topic fetches one thread, nil when unknown everywhere.
func (s *ForumService) Topic(ctx context.Context, id string) (*model.Topic, error) {
	if s.online() {
		rec, err := s.client.GetTopic(ctx, id)
		if err == nil {
			s.topics.Save(rec)
			return &rec, nil
		}
		if apiErr, ok := err.(*api.Error); ok && apiErr.Status == 404 {
			return nil, nil
		}
		if !fallback(err) {
			return nil, err
		}
	}
	return s.topics.GetByID(id), nil
}

// Comments lists one topic's comments, oldest first. Comments of every
// topic share one mirror namespace; the fallback filters by topic.
func (s *ForumService) Comments(ctx context.Context, topicID string) (model.Page[model.Comment], error) {
	if s.online() {
		recs, meta, err := s.client.ListComments(ctx, topicID)
		if err == nil {
			locals := s.comments.Filter(func(c model.Comment) bool {
				return c.Local && c.TopicID == topicID
			})
			s.comments.SaveMany(recs)
			s.comments.SaveMany(locals)
			s.checkpoint(s.comments.Entity())
			return model.Page[model.Comment]{Data: recs, Meta: meta}, nil
		}
		if !fallback(err) {
			return model.Page[model.Comment]{}, err
		}
		s.log.Warn("comment list degraded to mirror", zap.Error(err))
	}

	return pageAll(mirror.CommentsByTopic(s.comments, topicID)), nil
}

type createCommentPayload struct {
	LocalID string       `json:"local_id"`
	Draft   CommentDraft `json:"draft"`
}

// CreateComment posts a comment, network first, queueing it with an
// optimistic local record when the backend is unreachable. The flag reports
// the queued path; false with a nil record means an identical draft is
// already queued.
func (s *ForumService) CreateComment(ctx context.Context, draft CommentDraft) (*model.Comment, bool, error) {
	key, err := outbox.IdempotencyKey(outbox.OpCreateComment, draft)
	if err != nil {
		return nil, false, err
	}

	if s.online() {
		body := map[string]string{"author": draft.Author, "body": draft.Body}
		rec, err := s.client.CreateComment(ctx, draft.TopicID, body, key)
		if err == nil {
			s.comments.Save(rec)
			s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.comments.Entity(), "id": rec.ID})
			return &rec, false, nil
		}
		if !fallback(err) {
			return nil, false, err
		}
		s.log.Warn("comment create queued for later sync", zap.Error(err))
	}

	localID := "local-" + uuid.NewString()
	payload := createCommentPayload{LocalID: localID, Draft: draft}
	_, queued, err := outbox.Enqueue(s.db, s.bus, outbox.OpCreateComment, payload, key)
	if err != nil {
		return nil, false, err
	}
	if !queued {
		return nil, false, nil
	}

	rec := model.Comment{
		ID:        localID,
		TopicID:   draft.TopicID,
		Author:    draft.Author,
		Body:      draft.Body,
		CreatedAt: time.Now().UTC(),
		Local:     true,
	}
	s.comments.Save(rec)
	s.publish(bus.KindMirrorUpdated, map[string]any{"entity": s.comments.Entity(), "id": localID})
	return &rec, true, nil
}

// HandleCreateComment is the outbox handler for queued comments.
func (s *ForumService) HandleCreateComment(ctx context.Context, raw []byte, idempotencyKey string) error {
	var payload createCommentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &api.Error{Status: 400, Code: "bad_payload", Message: err.Error()}
	}

	body := map[string]string{"author": payload.Draft.Author, "body": payload.Draft.Body}
	rec, err := s.client.CreateComment(ctx, payload.Draft.TopicID, body, idempotencyKey)
	if err != nil {
		return err
	}

	s.comments.Delete(payload.LocalID)
	s.comments.Save(rec)
	s.publish(bus.KindMirrorUpdated, map[string]any{
		"entity": s.comments.Entity(), "id": rec.ID, "replaced": payload.LocalID,
	})
	return nil
}

// RegisterHandlers attaches this service's outbox handlers to a drainer.
func (s *ForumService) RegisterHandlers(d *outbox.Drainer) {
	d.Register(outbox.OpCreateComment, s.HandleCreateComment)
}
