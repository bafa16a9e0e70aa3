package service

import (
	"context"
	"log"

	"konnekt/internal/mirror"
	"konnekt/internal/model"
	"konnekt/internal/repository"
)

// DefaultCandidateCap bounds how many candidates are ranked per suggestion request.
const DefaultCandidateCap = 500

// DiscoveryService answers multi-hop queries from the graph mirror.
type DiscoveryService struct {
	reader       mirror.Reader
	ranker       mirror.Ranker
	userRepo     repository.UserRepository
	mirror       MirrorApplier
	candidateCap int
}

func NewDiscoveryService(reader mirror.Reader, ranker mirror.Ranker, userRepo repository.UserRepository, mirror MirrorApplier) *DiscoveryService {
	return &DiscoveryService{
		reader:       reader,
		ranker:       ranker,
		userRepo:     userRepo,
		mirror:       mirror,
		candidateCap: DefaultCandidateCap,
	}
}

// Mutual returns the users related to both a and b by kind. page is 1-based.
func (s *DiscoveryService) Mutual(ctx context.Context, kind model.MutualKind, a, b int64, page, limit int) (*model.Page, error) {
	if !kind.Valid() {
		return nil, model.ErrInvalidMutualKind
	}
	if err := requirePair(a, b); err != nil {
		return nil, err
	}
	page, limit = model.NormalizePage(page, limit)

	ids, err := s.reader.Mutual(ctx, kind, a, b, (page-1)*limit, limit)
	if err != nil {
		log.Printf("[DiscoveryService] Mutual FAILED: kind=%s a=%d b=%d err=%v", kind, a, b, err)
		return nil, err
	}
	total, err := s.reader.MutualCount(ctx, kind, a, b)
	if err != nil {
		log.Printf("[DiscoveryService] MutualCount FAILED: kind=%s a=%d b=%d err=%v", kind, a, b, err)
		return nil, err
	}

	p := model.NewPage(ids, page, limit, total)
	return &p, nil
}

// Suggestions ranks "people you may know" candidates and returns one page of them.
func (s *DiscoveryService) Suggestions(ctx context.Context, userID int64, page, limit int) (*model.SuggestionPage, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	page, limit = model.NormalizePage(page, limit)

	candidates, err := s.reader.SuggestionCandidates(ctx, userID, s.candidateCap)
	if err != nil {
		log.Printf("[DiscoveryService] Suggestions FAILED: user=%d err=%v", userID, err)
		return nil, err
	}
	ranked := s.ranker.Rank(candidates)

	total := int64(len(ranked))
	start := (page - 1) * limit
	if start > len(ranked) {
		start = len(ranked)
	}
	end := start + limit
	if end > len(ranked) {
		end = len(ranked)
	}

	p := model.NewPage(nil, page, limit, total)
	return &model.SuggestionPage{
		Suggestions: append([]model.Suggestion{}, ranked[start:end]...),
		Page:        p.Page,
		Limit:       p.Limit,
		Total:       p.Total,
		TotalPages:  p.TotalPages,
	}, nil
}

// AddInterest records a user interest used by shared-interest suggestions.
func (s *DiscoveryService) AddInterest(ctx context.Context, userID int64, interest string) (*model.CountResult, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	interest, err := normalizeName(interest)
	if err != nil {
		return nil, err
	}

	added, err := s.userRepo.AddInterest(ctx, userID, interest)
	if err != nil {
		return nil, err
	}
	log.Printf("[DiscoveryService] AddInterest OK: user=%d interest=%s added=%t", userID, interest, added)

	var w warnings
	mirrorAll(context.WithoutCancel(ctx), s.mirror, &w, mirror.InterestOp(userID, interest))
	return &model.CountResult{Warnings: w.list()}, nil
}

// SyncUser re-mirrors a user's node, e.g. after the graph was restored from a backup.
func (s *DiscoveryService) SyncUser(ctx context.Context, userID int64) (*model.CountResult, error) {
	if !model.ValidID(userID) {
		return nil, model.ErrInvalidID
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	var w warnings
	mirrorAll(context.WithoutCancel(ctx), s.mirror, &w, mirror.UpsertUserOp(userID))
	return &model.CountResult{Warnings: w.list()}, nil
}
