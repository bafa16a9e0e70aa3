package mirror

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"konnekt/internal/model"
)

// Reader runs the multi-hop queries only the graph store can answer efficiently.
type Reader interface {
	// Mutual returns one page of users related to both a and b, ordered by id.
	Mutual(ctx context.Context, kind model.MutualKind, a, b int64, skip, limit int) ([]int64, error)
	// MutualCount applies the same predicate as Mutual and counts distinct users.
	MutualCount(ctx context.Context, kind model.MutualKind, a, b int64) (int64, error)
	// SuggestionCandidates returns up to limit unranked candidates per signal, merged by id.
	SuggestionCandidates(ctx context.Context, userID int64, limit int) ([]model.Suggestion, error)
}

type Neo4jReader struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jReader(driver neo4j.DriverWithContext) *Neo4jReader {
	return &Neo4jReader{driver: driver}
}

// mutualPattern binds m to users related to both a and b.
func mutualPattern(kind model.MutualKind) (string, error) {
	switch kind {
	case model.MutualFriends:
		return `MATCH (a:User {id: $a})-[:FRIENDS]-(m:User)-[:FRIENDS]-(b:User {id: $b})`, nil
	case model.MutualFollowers:
		return `MATCH (a:User {id: $a})<-[:FOLLOWS]-(m:User)-[:FOLLOWS]->(b:User {id: $b})`, nil
	case model.MutualFollowing:
		return `MATCH (a:User {id: $a})-[:FOLLOWS]->(m:User)<-[:FOLLOWS]-(b:User {id: $b})`, nil
	}
	return "", model.ErrInvalidMutualKind
}

func (r *Neo4jReader) Mutual(ctx context.Context, kind model.MutualKind, a, b int64, skip, limit int) ([]int64, error) {
	pattern, err := mutualPattern(kind)
	if err != nil {
		return nil, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := pattern + `
			RETURN DISTINCT m.id AS id
			ORDER BY id
			SKIP $skip LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]any{"a": a, "b": b, "skip": skip, "limit": limit})
		if err != nil {
			return nil, err
		}

		ids := make([]int64, 0, limit)
		for res.Next(ctx) {
			id, _ := res.Record().Get("id")
			ids = append(ids, id.(int64))
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("mutual %s: %w", kind, err)
	}
	return result.([]int64), nil
}

func (r *Neo4jReader) MutualCount(ctx context.Context, kind model.MutualKind, a, b int64) (int64, error) {
	pattern, err := mutualPattern(kind)
	if err != nil {
		return 0, err
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, pattern+` RETURN count(DISTINCT m) AS total`, map[string]any{"a": a, "b": b})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		total, _ := rec.Get("total")
		return total.(int64), nil
	})
	if err != nil {
		return 0, fmt.Errorf("mutual count %s: %w", kind, err)
	}
	return result.(int64), nil
}

// candidateFilter excludes the user, current friends, followees, pending requests and
// blocks in either direction.
const candidateFilter = `
	WHERE c.id <> $id
	  AND NOT EXISTS { (u)-[:FRIENDS]-(c) }
	  AND NOT EXISTS { (u)-[:FOLLOWS]->(c) }
	  AND NOT EXISTS { (u)-[:REQUESTED]-(c) }
	  AND NOT EXISTS { (u)-[:BLOCKED]-(c) }
`

type signalQuery struct {
	name  string
	match string
	set   func(*model.Signals, int64)
}

var signalQueries = []signalQuery{
	{
		name:  "friend_of_friend",
		match: `MATCH (u:User {id: $id})-[:FRIENDS]-(via:User)-[:FRIENDS]-(c:User)`,
		set:   func(s *model.Signals, n int64) { s.FriendOfFriend = n },
	},
	{
		name:  "follow_of_follow",
		match: `MATCH (u:User {id: $id})-[:FOLLOWS]->(via:User)-[:FOLLOWS]->(c:User)`,
		set:   func(s *model.Signals, n int64) { s.FollowOfFollow = n },
	},
	{
		name:  "shared_interest",
		match: `MATCH (u:User {id: $id})-[:INTERESTED]->(via:Interest)<-[:INTERESTED]-(c:User)`,
		set:   func(s *model.Signals, n int64) { s.SharedInterest = n },
	},
	{
		name:  "shared_engagement",
		match: `MATCH (u:User {id: $id})-[:LIKES|VIEWED]->(via)<-[:LIKES|VIEWED]-(c:User)`,
		set:   func(s *model.Signals, n int64) { s.SharedEngagement = n },
	},
}

func (r *Neo4jReader) SuggestionCandidates(ctx context.Context, userID int64, limit int) ([]model.Suggestion, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		byID := make(map[int64]*model.Suggestion)
		var order []int64

		for _, sq := range signalQueries {
			query := sq.match + candidateFilter + `
				RETURN c.id AS id, count(DISTINCT via) AS n
				ORDER BY n DESC, id
				LIMIT $limit
			`
			res, err := tx.Run(ctx, query, map[string]any{"id": userID, "limit": limit})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sq.name, err)
			}
			for res.Next(ctx) {
				rec := res.Record()
				idVal, _ := rec.Get("id")
				nVal, _ := rec.Get("n")
				id := idVal.(int64)

				s, ok := byID[id]
				if !ok {
					s = &model.Suggestion{UserID: id}
					byID[id] = s
					order = append(order, id)
				}
				sq.set(&s.Reasons, nVal.(int64))
			}
			if err := res.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", sq.name, err)
			}
		}

		out := make([]model.Suggestion, 0, len(order))
		for _, id := range order {
			out = append(out, *byID[id])
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion candidates: %w", err)
	}
	return result.([]model.Suggestion), nil
}
