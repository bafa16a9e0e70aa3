package mirror

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"konnekt/internal/model"
)

// Writer applies ops to the graph store.
type Writer interface {
	Apply(ctx context.Context, op Op) error
}

// statement is one Cypher query with its parameters.
type statement struct {
	query  string
	params map[string]any
}

// Neo4jWriter implements Writer. All statements of an op run in one write transaction.
type Neo4jWriter struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jWriter(driver neo4j.DriverWithContext) *Neo4jWriter {
	return &Neo4jWriter{driver: driver}
}

// EnsureSchema creates the uniqueness constraints used by every MERGE lookup. Idempotent.
func (w *Neo4jWriter) EnsureSchema(ctx context.Context) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT post_id_unique IF NOT EXISTS FOR (p:Post) REQUIRE p.id IS UNIQUE`,
		`CREATE CONSTRAINT comment_id_unique IF NOT EXISTS FOR (c:Comment) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT tag_name_unique IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
		`CREATE CONSTRAINT interest_name_unique IF NOT EXISTS FOR (i:Interest) REQUIRE i.name IS UNIQUE`,
	}
	for _, query := range constraints {
		// Schema commands cannot share a transaction with each other.
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, query, nil)
			return nil, err
		})
		if err != nil {
			log.Printf("[Mirror] EnsureSchema FAILED: err=%v", err)
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	log.Printf("[Mirror] EnsureSchema OK: constraints=%d", len(constraints))
	return nil
}

// Apply runs the statements of op in a single managed write transaction.
func (w *Neo4jWriter) Apply(ctx context.Context, op Op) error {
	stmts, err := statementsFor(op)
	if err != nil {
		return err
	}

	session := w.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, s := range stmts {
			res, err := tx.Run(ctx, s.query, s.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", op, err)
	}
	return nil
}

// subjectLabel maps a reactable subject to its node label.
// Labels cannot be query parameters, so only known values are accepted.
func subjectLabel(t model.SubjectType) (string, error) {
	switch t {
	case model.SubjectPost:
		return "Post", nil
	case model.SubjectComment:
		return "Comment", nil
	}
	return "", model.ErrInvalidSubject
}

func reactionRel(t model.ReactionType) (string, error) {
	switch t {
	case model.ReactionLike:
		return "LIKES", nil
	case model.ReactionDislike:
		return "DISLIKES", nil
	}
	return "", model.ErrInvalidReactionType
}

// orderedPair returns the ids low first. FRIENDS edges are stored low -> high and matched undirected.
func orderedPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

const mergeUsers = `
	MERGE (a:User {id: $actorId})
	MERGE (b:User {id: $targetId})
`

func statementsFor(op Op) ([]statement, error) {
	pair := map[string]any{"actorId": op.ActorID, "targetId": op.TargetID}

	switch op.Kind {
	case KindUpsertUser:
		return []statement{{
			query:  `MERGE (u:User {id: $actorId})`,
			params: map[string]any{"actorId": op.ActorID},
		}}, nil

	case KindFollow:
		return []statement{{
			query: mergeUsers + `
				MERGE (a)-[r:FOLLOWS]->(b)
				ON CREATE SET r.created_at = datetime()
			`,
			params: pair,
		}}, nil

	case KindUnfollow:
		return []statement{{
			query:  `MATCH (:User {id: $actorId})-[r:FOLLOWS]->(:User {id: $targetId}) DELETE r`,
			params: pair,
		}}, nil

	case KindFriendRequest:
		return []statement{
			{
				query:  `MATCH (:User {id: $actorId})-[r:REJECTED]-(:User {id: $targetId}) DELETE r`,
				params: pair,
			},
			{
				query: mergeUsers + `
					MERGE (a)-[r:REQUESTED]->(b)
					ON CREATE SET r.created_at = datetime()
				`,
				params: pair,
			},
		}, nil

	case KindAccept:
		low, high := orderedPair(op.ActorID, op.TargetID)
		return []statement{
			{
				query:  `MATCH (:User {id: $targetId})-[r:REQUESTED]->(:User {id: $actorId}) DELETE r`,
				params: pair,
			},
			{
				query: `
					MERGE (l:User {id: $low})
					MERGE (h:User {id: $high})
					MERGE (l)-[r:FRIENDS]->(h)
					ON CREATE SET r.created_at = datetime()
				`,
				params: map[string]any{"low": low, "high": high},
			},
		}, nil

	case KindReject:
		return []statement{
			{
				query:  `MATCH (:User {id: $targetId})-[r:REQUESTED]->(:User {id: $actorId}) DELETE r`,
				params: pair,
			},
			{
				query:  mergeUsers + `MERGE (a)-[:REJECTED]->(b)`,
				params: pair,
			},
		}, nil

	case KindBlock:
		return []statement{
			{
				query: `
					MATCH (:User {id: $actorId})-[r:FRIENDS|REQUESTED|REJECTED|FOLLOWS]-(:User {id: $targetId})
					DELETE r
				`,
				params: pair,
			},
			{
				query: mergeUsers + `
					MERGE (a)-[r:BLOCKED]->(b)
					ON CREATE SET r.created_at = datetime()
				`,
				params: pair,
			},
		}, nil

	case KindUnblock:
		return []statement{{
			query:  `MATCH (:User {id: $actorId})-[r:BLOCKED]->(:User {id: $targetId}) DELETE r`,
			params: pair,
		}}, nil

	case KindUnfriend:
		return []statement{{
			query:  `MATCH (:User {id: $actorId})-[r:FRIENDS]-(:User {id: $targetId}) DELETE r`,
			params: pair,
		}}, nil

	case KindClearPair:
		return []statement{{
			query:  `MATCH (:User {id: $actorId})-[r:FRIENDS|REQUESTED|REJECTED|BLOCKED]-(:User {id: $targetId}) DELETE r`,
			params: pair,
		}}, nil

	case KindReaction:
		label, err := subjectLabel(op.SubjectType)
		if err != nil {
			return nil, err
		}
		rel, err := reactionRel(op.Reaction)
		if err != nil {
			return nil, err
		}
		opposite, _ := reactionRel(op.Reaction.Opposite())
		return []statement{
			{
				query:  fmt.Sprintf(`MATCH (:User {id: $actorId})-[r:%s]->(:%s {id: $targetId}) DELETE r`, opposite, label),
				params: pair,
			},
			{
				query: fmt.Sprintf(`
					MERGE (u:User {id: $actorId})
					MERGE (s:%s {id: $targetId})
					MERGE (u)-[r:%s]->(s)
					ON CREATE SET r.created_at = datetime()
				`, label, rel),
				params: pair,
			},
		}, nil

	case KindUnreact:
		label, err := subjectLabel(op.SubjectType)
		if err != nil {
			return nil, err
		}
		rel, err := reactionRel(op.Reaction)
		if err != nil {
			return nil, err
		}
		return []statement{{
			query:  fmt.Sprintf(`MATCH (:User {id: $actorId})-[r:%s]->(:%s {id: $targetId}) DELETE r`, rel, label),
			params: pair,
		}}, nil

	case KindView:
		return []statement{{
			query: `
				MERGE (u:User {id: $actorId})
				MERGE (p:Post {id: $targetId})
				MERGE (u)-[r:VIEWED]->(p)
				ON CREATE SET r.created_at = datetime()
			`,
			params: pair,
		}}, nil

	case KindTag:
		return []statement{{
			query: `
				MERGE (p:Post {id: $actorId})
				MERGE (t:Tag {name: $name})
				MERGE (p)-[:TAGGED]->(t)
			`,
			params: map[string]any{"actorId": op.ActorID, "name": op.Name},
		}}, nil

	case KindInterest:
		return []statement{{
			query: `
				MERGE (u:User {id: $actorId})
				MERGE (i:Interest {name: $name})
				MERGE (u)-[:INTERESTED]->(i)
			`,
			params: map[string]any{"actorId": op.ActorID, "name": op.Name},
		}}, nil
	}

	return nil, model.NewError(model.KindBadRequest, fmt.Sprintf("unknown mirror op kind %q", op.Kind))
}
