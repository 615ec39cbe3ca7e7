package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/neo4jdb"
)

// Mirror keeps a traversal-friendly copy of the concept graph in Neo4j.
// Postgres stays the system of record; every write here is a re-derivable
// batch upsert, so a lost mirror rebuilds from relational state.
type Mirror struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewMirror(client *neo4jdb.Client, log *logger.Logger) *Mirror {
	return &Mirror{client: client, log: log.With("service", "GraphMirror")}
}

func (m *Mirror) enabled() bool {
	return m != nil && m.client != nil && m.client.Driver != nil
}

// UpsertConceptGraph mirrors concepts and their typed relationships for one
// ontology. All queries are label- and ontology-scoped so unrelated data in
// the same Neo4j instance is never touched.
func (m *Mirror) UpsertConceptGraph(ctx context.Context, ontology *types.Ontology, concepts []*types.Concept, rels []*types.Relationship) error {
	if !m.enabled() {
		return nil
	}
	if ontology == nil || ontology.ID == uuid.Nil {
		return fmt.Errorf("graph mirror: missing ontology")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(concepts))
	for _, c := range concepts {
		if c == nil || c.ID == uuid.Nil {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":          c.ID.String(),
			"ontology_id": c.OntologyID.String(),
			"ontology":    ontology.Name,
			"label":       c.Label,
			"embed_model": c.EmbedModel,
			"synced_at":   now,
		})
	}

	edges := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		if r == nil || r.FromConceptID == uuid.Nil || r.ToConceptID == uuid.Nil || r.TypeName == "" {
			continue
		}
		edges = append(edges, map[string]any{
			"id":          r.ID.String(),
			"from_id":     r.FromConceptID.String(),
			"to_id":       r.ToConceptID.String(),
			"type_name":   r.TypeName,
			"raw_type":    r.RawType,
			"confidence":  r.Confidence,
			"ontology_id": r.OntologyID.String(),
			"synced_at":   now,
		})
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	// Schema helpers are best-effort; restricted users may not hold the
	// privilege and the MERGE statements still work without them.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT concept_id_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE`, nil); err != nil {
		m.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}
	if res, err := session.Run(ctx, `CREATE INDEX concept_ontology_idx IF NOT EXISTS FOR (c:Concept) ON (c.ontology_id)`, nil); err != nil {
		m.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(nodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (c:Concept {id: n.id})
SET c += n
`, map[string]any{"nodes": nodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(edges) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MATCH (a:Concept {id: r.from_id})
MATCH (b:Concept {id: r.to_id})
MERGE (a)-[e:RELATION {id: r.id}]->(b)
SET e.type_name = r.type_name,
    e.raw_type = r.raw_type,
    e.confidence = r.confidence,
    e.ontology_id = r.ontology_id,
    e.synced_at = r.synced_at
`, map[string]any{"rels": edges})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

// UpsertEvidence mirrors instances and their sources so provenance can be
// walked next to the concept graph.
func (m *Mirror) UpsertEvidence(ctx context.Context, instances []*types.ConceptInstance, sources []*types.Source) error {
	if !m.enabled() || len(instances) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	srcRows := make([]map[string]any, 0, len(sources))
	for _, s := range sources {
		if s == nil || s.ID == uuid.Nil {
			continue
		}
		srcRows = append(srcRows, map[string]any{
			"id":            s.ID.String(),
			"document_ref":  s.DocumentRef,
			"paragraph_ref": s.ParagraphRef,
			"ontology_id":   s.OntologyID.String(),
			"synced_at":     now,
		})
	}

	instRows := make([]map[string]any, 0, len(instances))
	for _, in := range instances {
		if in == nil || in.ID == uuid.Nil || in.ConceptID == uuid.Nil {
			continue
		}
		sourceID := ""
		if in.SourceID != nil && *in.SourceID != uuid.Nil {
			sourceID = in.SourceID.String()
		}
		instRows = append(instRows, map[string]any{
			"id":         in.ID.String(),
			"concept_id": in.ConceptID.String(),
			"source_id":  sourceID,
			"quote":      in.Quote,
			"synced_at":  now,
		})
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(srcRows) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $sources AS s
MERGE (n:Source {id: s.id})
SET n += s
`, map[string]any{"sources": srcRows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		res, err := tx.Run(ctx, `
UNWIND $instances AS i
MATCH (c:Concept {id: i.concept_id})
MERGE (n:Instance {id: i.id})
SET n.quote = i.quote, n.synced_at = i.synced_at
MERGE (n)-[:EVIDENCES]->(c)
WITH n, i
WHERE i.source_id <> ''
MATCH (s:Source {id: i.source_id})
MERGE (n)-[:FROM_SOURCE]->(s)
`, map[string]any{"instances": instRows})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// NeighborhoodIDs walks the undirected N-hop neighborhood of a concept.
// Cypher cannot parameterize the hop bound, so it is formatted in after
// clamping to a sane range.
func (m *Mirror) NeighborhoodIDs(ctx context.Context, conceptID uuid.UUID, maxHops, limit int) ([]uuid.UUID, error) {
	if !m.enabled() {
		return nil, fmt.Errorf("graph mirror disabled")
	}
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 5 {
		maxHops = 5
	}
	if limit <= 0 {
		limit = 50
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
MATCH (c:Concept {id: $id})-[:RELATION*1..%d]-(n:Concept)
WHERE n.id <> $id
RETURN DISTINCT n.id AS id
LIMIT $limit
`, maxHops)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": conceptID.String(), "limit": limit})
		if err != nil {
			return nil, err
		}
		var ids []uuid.UUID
		for res.Next(ctx) {
			rec := res.Record()
			raw, ok := rec.Get("id")
			if !ok {
				continue
			}
			str, _ := raw.(string)
			id, err := uuid.Parse(strings.TrimSpace(str))
			if err != nil || id == uuid.Nil {
				continue
			}
			ids = append(ids, id)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids, _ := out.([]uuid.UUID)
	return ids, nil
}
