package service

import (
	"context"
	"log"
	"strings"

	"konnekt/internal/cache"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/notification"
	"konnekt/internal/repository"
)

// MaxTagLength bounds tag and interest names.
const MaxTagLength = 64

// EngagementService keeps view and comment counters and post tags in sync.
// Comment rows themselves are written elsewhere; this service is told about them.
type EngagementService struct {
	viewRepo    repository.ViewRepository
	contentRepo repository.ContentRepository
	counter     cache.Counter
	mirror      MirrorApplier
	notifier    notification.Sink
}

func NewEngagementService(
	viewRepo repository.ViewRepository,
	contentRepo repository.ContentRepository,
	counter cache.Counter,
	mirror MirrorApplier,
	notifier notification.Sink,
) *EngagementService {
	return &EngagementService{
		viewRepo:    viewRepo,
		contentRepo: contentRepo,
		counter:     counter,
		mirror:      mirror,
		notifier:    notifier,
	}
}

// RecordView stores the first view of a post by a user. Repeat views are no-ops.
func (s *EngagementService) RecordView(ctx context.Context, userID, postID int64) (*model.ViewResult, error) {
	if !model.ValidID(userID) || !model.ValidID(postID) {
		return nil, model.ErrInvalidID
	}
	if _, err := s.contentRepo.AuthorOf(ctx, model.SubjectPost, postID); err != nil {
		return nil, err
	}

	inserted, err := s.viewRepo.Insert(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		count, err := s.ViewCount(ctx, postID)
		if err != nil {
			return nil, err
		}
		return &model.ViewResult{Recorded: false, Count: count}, nil
	}

	ctx = context.WithoutCancel(ctx)
	var w warnings
	count := adjust(ctx, s.counter, &w, cache.CounterKey(model.SubjectPost, postID, model.CounterViews), 1, func(ctx context.Context) (int64, error) {
		return s.viewRepo.Count(ctx, postID)
	})
	mirrorAll(ctx, s.mirror, &w, mirror.ViewOp(userID, postID))

	return &model.ViewResult{Recorded: true, Count: count, Warnings: w.list()}, nil
}

func (s *EngagementService) ViewCount(ctx context.Context, postID int64) (int64, error) {
	if !model.ValidID(postID) {
		return 0, model.ErrInvalidID
	}
	return s.counter.Get(ctx, cache.CounterKey(model.SubjectPost, postID, model.CounterViews), func(ctx context.Context) (int64, error) {
		return s.viewRepo.Count(ctx, postID)
	})
}

// TagPost attaches a tag to a post. Tags feed shared-interest suggestions.
func (s *EngagementService) TagPost(ctx context.Context, postID int64, tag string) (*model.CountResult, error) {
	if !model.ValidID(postID) {
		return nil, model.ErrInvalidID
	}
	tag, err := normalizeName(tag)
	if err != nil {
		return nil, err
	}
	if _, err := s.contentRepo.AuthorOf(ctx, model.SubjectPost, postID); err != nil {
		return nil, err
	}

	added, err := s.contentRepo.AddTag(ctx, postID, tag)
	if err != nil {
		return nil, err
	}
	log.Printf("[EngagementService] TagPost OK: post=%d tag=%s added=%t", postID, tag, added)

	var w warnings
	mirrorAll(context.WithoutCancel(ctx), s.mirror, &w, mirror.TagOp(postID, tag))
	return &model.CountResult{Warnings: w.list()}, nil
}

// normalizeName lowercases and trims tag and interest names.
func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", model.NewError(model.KindBadRequest, "name is required")
	}
	if len(name) > MaxTagLength {
		return "", model.NewError(model.KindBadRequest, "name too long")
	}
	return name, nil
}
