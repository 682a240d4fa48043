// Package neo4jsource implements the graph.Source collaborator on top of a
// Neo4j (or Bolt-compatible, e.g. Memgraph) database that stores RDF-style
// statements as (:Resource {uri})-[:PREDICATE {iri}]->(:Resource|:Literal)
// nodes, one named graph per `graph_id` property.
package neo4jsource

import (
	"context"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
)

const (
	subjectsQuery = `
		MATCH (s:Resource {graph_id: $graph_id})
		WHERE NOT s.uri STARTS WITH '_:'
		RETURN DISTINCT s.uri AS uri`

	predicateObjectsQuery = `
		MATCH (s:Resource {graph_id: $graph_id, uri: $subject})-[p:PREDICATE]->(o)
		RETURN p.iri AS predicate,
		       CASE WHEN o:Literal THEN o.value ELSE o.uri END AS value,
		       NOT o:Literal AS is_iri,
		       coalesce(o.lang, '') AS lang
		ORDER BY p.position`
)

// Source reads entity neighborhoods from Neo4j. It satisfies graph.Source.
type Source struct {
	driver neo4j.DriverWithContext
}

// New connects to the database and verifies connectivity.
func New(ctx context.Context, uri, username, password string) (*Source, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Neo4jSource", "New", "create driver")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.WrapTransient(err, "Neo4jSource", "New", "verify connectivity")
	}

	return &Source{driver: driver}, nil
}

// Close releases the underlying driver.
func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Subjects returns all non-blank subject URIs of the named graph, ascending.
func (s *Source) Subjects(ctx context.Context, graphID string) ([]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, subjectsQuery,
		map[string]any{"graph_id": graphID}, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, errors.WrapTransient(err, "Neo4jSource", "Subjects", "execute query")
	}

	subjects := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		uri, ok := record.Get("uri")
		if !ok {
			continue
		}
		if str, ok := uri.(string); ok {
			subjects = append(subjects, str)
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// PredicateObjects returns the outgoing pairs of a subject in stored order.
func (s *Source) PredicateObjects(ctx context.Context, graphID, subject string) ([]graph.PredicateObject, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, predicateObjectsQuery,
		map[string]any{"graph_id": graphID, "subject": subject}, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, errors.WrapTransient(err, "Neo4jSource", "PredicateObjects", "execute query")
	}

	pairs := make([]graph.PredicateObject, 0, len(result.Records))
	for _, record := range result.Records {
		predicate, _ := record.Get("predicate")
		value, _ := record.Get("value")
		isIRI, _ := record.Get("is_iri")
		lang, _ := record.Get("lang")

		predStr, ok := predicate.(string)
		if !ok {
			continue
		}
		valStr, ok := value.(string)
		if !ok {
			continue
		}

		term := graph.Literal(valStr)
		if iri, ok := isIRI.(bool); ok && iri {
			term = graph.IRI(valStr)
		} else if langStr, ok := lang.(string); ok && langStr != "" {
			term = graph.LangLiteral(valStr, langStr)
		}

		pairs = append(pairs, graph.PredicateObject{Predicate: predStr, Object: term})
	}
	return pairs, nil
}
