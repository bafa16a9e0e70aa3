package service

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"

	"konnekt/internal/cache"
	"konnekt/internal/metrics"
	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/notification"
	"konnekt/internal/repository"
)

type ReactionService struct {
	reactionRepo repository.ReactionRepository
	contentRepo  repository.ContentRepository
	tx           repository.Transactor
	counter      cache.Counter
	status       cache.StatusCache
	mirror       MirrorApplier
	notifier     notification.Sink
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	contentRepo repository.ContentRepository,
	tx repository.Transactor,
	counter cache.Counter,
	status cache.StatusCache,
	mirror MirrorApplier,
	notifier notification.Sink,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		contentRepo:  contentRepo,
		tx:           tx,
		counter:      counter,
		status:       status,
		mirror:       mirror,
		notifier:     notifier,
	}
}

func validateSubject(subject model.SubjectType, subjectID int64) error {
	if !subject.Reactable() {
		return model.ErrInvalidSubject
	}
	if !model.ValidID(subjectID) {
		return model.ErrInvalidID
	}
	return nil
}

// React sets the user's reaction, replacing the opposite one in the same transaction.
func (s *ReactionService) React(ctx context.Context, userID int64, subject model.SubjectType, subjectID int64, rt model.ReactionType) (*model.ReactionResult, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	if err := validateSubject(subject, subjectID); err != nil {
		return nil, err
	}
	if !rt.Valid() {
		return nil, model.ErrInvalidReactionType
	}

	authorID, err := s.contentRepo.AuthorOf(ctx, subject, subjectID)
	if err != nil {
		return nil, err
	}

	swapped := false
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.reactionRepo.GetForUpdate(ctx, tx, subject, subjectID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Type == rt {
				return model.ErrAlreadyReacted
			}
			if err := s.reactionRepo.Delete(ctx, tx, subject, subjectID, userID); err != nil {
				return err
			}
			swapped = true
		}
		return s.reactionRepo.Insert(ctx, tx, &model.Reaction{
			SubjectType: subject,
			SubjectID:   subjectID,
			UserID:      userID,
			Type:        rt,
		})
	})
	if err != nil {
		metrics.Transition("react", string(model.KindOf(err)))
		return nil, err
	}
	metrics.Transition("react", "ok")
	log.Printf("[ReactionService] React OK: user=%d subject=%s:%d type=%s swapped=%t", userID, subject, subjectID, rt, swapped)

	ctx = context.WithoutCancel(ctx)
	var w warnings
	result := &model.ReactionResult{Type: rt, Swapped: swapped}
	result.Count = s.adjustReaction(ctx, &w, subject, subjectID, rt, 1)
	if swapped {
		result.OppositeCount = s.adjustReaction(ctx, &w, subject, subjectID, rt.Opposite(), -1)
	}
	s.cacheStatus(ctx, subject, subjectID, userID, rt)

	mirrorAll(ctx, s.mirror, &w, mirror.ReactionOp(userID, subject, subjectID, rt))

	kind := model.NotificationLike
	if rt == model.ReactionDislike {
		kind = model.NotificationDislike
	}
	id := subjectID
	w.add(s.notifier.Notify(ctx, model.Notification{
		UserID:      authorID,
		ActorID:     userID,
		Type:        kind,
		SubjectType: subject,
		SubjectID:   &id,
	}))

	result.Warnings = w.list()
	return result, nil
}

// Unreact removes the user's reaction of type rt. A reaction of the other type
// is left in place and reported as ErrNotReacted.
func (s *ReactionService) Unreact(ctx context.Context, userID int64, subject model.SubjectType, subjectID int64, rt model.ReactionType) (*model.ReactionResult, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	if err := validateSubject(subject, subjectID); err != nil {
		return nil, err
	}
	if !rt.Valid() {
		return nil, model.ErrInvalidReactionType
	}

	var removed model.ReactionType
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.reactionRepo.GetForUpdate(ctx, tx, subject, subjectID, userID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Type != rt {
			return model.ErrNotReacted
		}
		removed = existing.Type
		return s.reactionRepo.Delete(ctx, tx, subject, subjectID, userID)
	})
	if err != nil {
		metrics.Transition("unreact", string(model.KindOf(err)))
		return nil, err
	}
	metrics.Transition("unreact", "ok")
	log.Printf("[ReactionService] Unreact OK: user=%d subject=%s:%d type=%s", userID, subject, subjectID, removed)

	ctx = context.WithoutCancel(ctx)
	var w warnings
	result := &model.ReactionResult{Type: removed}
	result.Count = s.adjustReaction(ctx, &w, subject, subjectID, removed, -1)
	s.cacheStatus(ctx, subject, subjectID, userID, "")
	mirrorAll(ctx, s.mirror, &w, mirror.UnreactOp(userID, subject, subjectID, removed))

	result.Warnings = w.list()
	return result, nil
}

func (s *ReactionService) adjustReaction(ctx context.Context, w *warnings, subject model.SubjectType, subjectID int64, rt model.ReactionType, delta int64) int64 {
	return adjust(ctx, s.counter, w, cache.CounterKey(subject, subjectID, model.ReactionCounter(rt)), delta, func(ctx context.Context) (int64, error) {
		return s.reactionRepo.Count(ctx, subject, subjectID, rt)
	})
}

func (s *ReactionService) cacheStatus(ctx context.Context, subject model.SubjectType, subjectID, userID int64, rt model.ReactionType) {
	key := cache.StatusKey(subject, subjectID, userID)
	if err := s.status.SetReactionStatus(ctx, key, rt); err != nil {
		log.Printf("[ReactionService] Status cache FAILED: key=%s err=%v", key, err)
	}
}

func (s *ReactionService) ReactionCounts(ctx context.Context, subject model.SubjectType, subjectID int64) (model.ReactionCounts, error) {
	if err := validateSubject(subject, subjectID); err != nil {
		return model.ReactionCounts{}, err
	}
	likes, err := s.count(ctx, subject, subjectID, model.ReactionLike)
	if err != nil {
		return model.ReactionCounts{}, err
	}
	dislikes, err := s.count(ctx, subject, subjectID, model.ReactionDislike)
	if err != nil {
		return model.ReactionCounts{}, err
	}
	return model.ReactionCounts{Likes: likes, Dislikes: dislikes}, nil
}

func (s *ReactionService) count(ctx context.Context, subject model.SubjectType, subjectID int64, rt model.ReactionType) (int64, error) {
	return s.counter.Get(ctx, cache.CounterKey(subject, subjectID, model.ReactionCounter(rt)), func(ctx context.Context) (int64, error) {
		return s.reactionRepo.Count(ctx, subject, subjectID, rt)
	})
}

// ReactionStatus returns the user's reaction to a subject, or "" for none.
func (s *ReactionService) ReactionStatus(ctx context.Context, userID int64, subject model.SubjectType, subjectID int64) (model.ReactionType, error) {
	if !model.ValidID(userID) {
		return "", model.ErrInvalidID
	}
	if err := validateSubject(subject, subjectID); err != nil {
		return "", err
	}

	key := cache.StatusKey(subject, subjectID, userID)
	if rt, found, err := s.status.ReactionStatus(ctx, key); err == nil && found {
		return rt, nil
	} else if err != nil {
		log.Printf("[ReactionService] Status cache FAILED: key=%s err=%v (falling back to store)", key, err)
	}

	r, err := s.reactionRepo.Get(ctx, subject, subjectID, userID)
	if err != nil {
		return "", err
	}
	var rt model.ReactionType
	if r != nil {
		rt = r.Type
	}
	s.cacheStatus(ctx, subject, subjectID, userID, rt)
	return rt, nil
}
