package service

import (
	"context"
	"errors"
	"log"

	"konnekt/internal/cache"
	"konnekt/internal/model"
)

// CommentAdded counts a new comment and notifies the post author, or the parent
// comment's author for a reply.
func (s *EngagementService) CommentAdded(ctx context.Context, postID, commentID, commenterID int64, parentCommentID *int64) (*model.CountResult, error) {
	if !model.ValidID(postID) || !model.ValidID(commentID) || !model.ValidID(commenterID) {
		return nil, model.ErrInvalidID
	}

	postAuthor, err := s.contentRepo.AuthorOf(ctx, model.SubjectPost, postID)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	var w warnings
	count := s.adjustComments(ctx, &w, postID, 1)

	n := model.Notification{
		UserID:      postAuthor,
		ActorID:     commenterID,
		Type:        model.NotificationComment,
		SubjectType: model.SubjectPost,
		SubjectID:   &postID,
	}
	if parentCommentID != nil {
		parentAuthor, err := s.contentRepo.AuthorOf(ctx, model.SubjectComment, *parentCommentID)
		switch {
		case err == nil:
			n.UserID = parentAuthor
			n.Type = model.NotificationReply
			n.SubjectType = model.SubjectComment
			n.SubjectID = parentCommentID
		case errors.Is(err, model.ErrSubjectNotFound):
			// Parent deleted meanwhile: fall back to notifying the post author.
		default:
			w.add(err)
		}
	}
	w.add(s.notifier.Notify(ctx, n))

	log.Printf("[EngagementService] CommentAdded OK: post=%d comment=%d count=%d", postID, commentID, count)
	return &model.CountResult{Count: count, Warnings: w.list()}, nil
}

// CommentDeleted uncounts a comment and drops every cached key of the comment.
func (s *EngagementService) CommentDeleted(ctx context.Context, postID, commentID int64) (*model.CountResult, error) {
	if !model.ValidID(postID) || !model.ValidID(commentID) {
		return nil, model.ErrInvalidID
	}

	ctx = context.WithoutCancel(ctx)
	var w warnings
	count := s.adjustComments(ctx, &w, postID, -1)
	w.add(s.counter.Invalidate(ctx, cache.SubjectPrefix(model.SubjectComment, commentID)))

	log.Printf("[EngagementService] CommentDeleted OK: post=%d comment=%d count=%d", postID, commentID, count)
	return &model.CountResult{Count: count, Warnings: w.list()}, nil
}

func (s *EngagementService) CommentCount(ctx context.Context, postID int64) (int64, error) {
	if !model.ValidID(postID) {
		return 0, model.ErrInvalidID
	}
	return s.counter.Get(ctx, cache.CounterKey(model.SubjectPost, postID, model.CounterComments), func(ctx context.Context) (int64, error) {
		return s.contentRepo.CountComments(ctx, postID)
	})
}

func (s *EngagementService) adjustComments(ctx context.Context, w *warnings, postID, delta int64) int64 {
	return adjust(ctx, s.counter, w, cache.CounterKey(model.SubjectPost, postID, model.CounterComments), delta, func(ctx context.Context) (int64, error) {
		return s.contentRepo.CountComments(ctx, postID)
	})
}
