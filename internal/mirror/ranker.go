package mirror

import (
	"sort"

	"konnekt/internal/model"
)

// Ranker scores and orders suggestion candidates.
type Ranker interface {
	Rank(candidates []model.Suggestion) []model.Suggestion
}

// WeightedRanker scores a candidate as the weighted sum of its signals.
// Ties are broken by user id so pages are stable.
type WeightedRanker struct {
	FriendOfFriend   float64
	FollowOfFollow   float64
	SharedInterest   float64
	SharedEngagement float64
}

// DefaultRanker favors friend-of-friend paths over weaker signals.
func DefaultRanker() WeightedRanker {
	return WeightedRanker{
		FriendOfFriend:   3,
		FollowOfFollow:   2,
		SharedInterest:   1.5,
		SharedEngagement: 1,
	}
}

func (w WeightedRanker) Score(s model.Signals) float64 {
	return w.FriendOfFriend*float64(s.FriendOfFriend) +
		w.FollowOfFollow*float64(s.FollowOfFollow) +
		w.SharedInterest*float64(s.SharedInterest) +
		w.SharedEngagement*float64(s.SharedEngagement)
}

func (w WeightedRanker) Rank(candidates []model.Suggestion) []model.Suggestion {
	ranked := make([]model.Suggestion, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = w.Score(ranked[i].Reasons)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}
