package services

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

const similarityBatchSize = 500

// Neo4jSimilarityGraph mirrors snapshot neighbor lists as SIMILAR_TO edges
// between User nodes so they can be explored with graph tooling.
type Neo4jSimilarityGraph struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewNeo4jSimilarityGraph(driver neo4j.DriverWithContext, logger *logrus.Logger) *Neo4jSimilarityGraph {
	return &Neo4jSimilarityGraph{driver: driver, logger: logger}
}

// PublishNeighbors upserts every edge of the snapshot tagged with its
// version, then removes edges left over from older versions.
func (g *Neo4jSimilarityGraph) PublishNeighbors(ctx context.Context, snapshot *SimilaritySnapshot) error {
	rows := similarityRows(snapshot)
	version := snapshot.Version()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	upsert := `
		UNWIND $rows AS row
		MERGE (a:User {user_id: row.source})
		MERGE (b:User {user_id: row.target})
		MERGE (a)-[r:SIMILAR_TO]->(b)
		SET r.similarity = row.similarity, r.rank = row.rank, r.version = $version`

	for start := 0; start < len(rows); start += similarityBatchSize {
		end := start + similarityBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			result, err := tx.Run(ctx, upsert, map[string]interface{}{
				"rows":    batch,
				"version": version,
			})
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to upsert similarity edges: %w", err)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx,
			`MATCH (:User)-[r:SIMILAR_TO]->(:User) WHERE r.version < $version DELETE r`,
			map[string]interface{}{"version": version})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to prune similarity edges: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"version": version,
		"edges":   len(rows),
	}).Debug("Published similarity graph")

	return nil
}

// similarityRows flattens neighbor lists into Cypher parameters.
func similarityRows(snapshot *SimilaritySnapshot) []interface{} {
	var rows []interface{}
	for u, ns := range snapshot.neighbors {
		for rank, n := range ns {
			rows = append(rows, map[string]interface{}{
				"source":     snapshot.userIDs[u],
				"target":     snapshot.userIDs[n.user],
				"similarity": n.sim,
				"rank":       rank + 1,
			})
		}
	}
	return rows
}
