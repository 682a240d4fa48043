package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semdedup/errors"
	"github.com/c360/semdedup/graph"
	"github.com/c360/semdedup/vocabulary"
)

const (
	schemaName     = "http://schema.org/name"
	schemaStreet   = "http://schema.org/streetAddress"
	schemaAddress  = "http://schema.org/address"
	schemaIdent    = "http://schema.org/identifier"
	schemaPersonT  = "http://schema.org/Person"
	schemaTelework = "http://schema.org/telephone"
)

func fixtureSource(t *testing.T) *graph.MemorySource {
	t.Helper()
	src := graph.NewMemorySource()

	// Person with a name, two phone numbers, a weak identifier and an
	// address hanging off a blank node.
	person := "http://a.example/person/1"
	src.Add("source", person, vocabulary.RDFType, graph.IRI(schemaPersonT))
	src.Add("source", person, schemaName, graph.Literal("John Doe"))
	src.Add("source", person, schemaTelework, graph.Literal("+1 555 0100"))
	src.Add("source", person, schemaTelework, graph.Literal("+1 555 0101"))
	src.Add("source", person, schemaIdent, graph.Literal("row-42"))
	src.Add("source", person, schemaAddress, graph.IRI("_:addr1"))
	src.Add("source", "_:addr1", schemaStreet, graph.Literal("1 Main St"))

	// Entity with no literals at all.
	src.Add("source", "http://a.example/empty/1", vocabulary.RDFType, graph.IRI(schemaPersonT))

	return src
}

func TestExtractBuildsBagsAndSurfaceText(t *testing.T) {
	ex := New(fixtureSource(t), nil)

	result, err := ex.Extract(context.Background(), "source")
	require.NoError(t, err)
	require.Len(t, result.Entities, 2)

	var person *graph.Entity
	for _, e := range result.Entities {
		if e.URI == "http://a.example/person/1" {
			person = e
		}
	}
	require.NotNil(t, person)

	assert.Equal(t, "schema:Person", person.Type)

	// Direct literals land in the bag; weak identifier is excluded;
	// multivalued telephone keeps both values in order.
	assert.Equal(t, []string{"John Doe"}, person.Attributes.Values("schema:name"))
	assert.Equal(t, []string{"+1 555 0100", "+1 555 0101"}, person.Attributes.Values("schema:telephone"))
	assert.False(t, person.Attributes.Has("schema:identifier"))

	// Blank node literals reach the surface text but not the bag.
	assert.False(t, person.Attributes.Has("schema:streetAddress"))
	assert.Contains(t, person.SurfaceText, "Street Address: 1 Main St.")

	assert.Contains(t, person.SurfaceText, "Type: Person.")
	assert.Contains(t, person.SurfaceText, "Name: John Doe.")
	assert.NotContains(t, person.SurfaceText, "row-42")
	assert.True(t, len(person.SurfaceText) > 0 && person.SurfaceText[:5] == "Type:")
}

func TestExtractEmitsEmptyEntities(t *testing.T) {
	ex := New(fixtureSource(t), nil)

	result, err := ex.Extract(context.Background(), "source")
	require.NoError(t, err)

	var empty *graph.Entity
	for _, e := range result.Entities {
		if e.URI == "http://a.example/empty/1" {
			empty = e
		}
	}
	require.NotNil(t, empty, "literal-free entities are still emitted")
	assert.Equal(t, 0, empty.Attributes.Len())
	assert.Equal(t, "Type: Person.", empty.SurfaceText)
}

func TestExtractGroupsByType(t *testing.T) {
	src := fixtureSource(t)
	src.Add("source", "http://a.example/org/1", vocabulary.RDFType,
		graph.IRI("http://schema.org/Organization"))
	src.Add("source", "http://a.example/org/1", schemaName, graph.Literal("Acme"))

	result, err := New(src, nil).Extract(context.Background(), "source")
	require.NoError(t, err)

	assert.Len(t, result.ByType["schema:Person"], 2)
	assert.Len(t, result.ByType["schema:Organization"], 1)
}

func TestExtractRecordsMalformedLiterals(t *testing.T) {
	src := graph.NewMemorySource()
	subj := "http://a.example/person/2"
	src.Add("source", subj, vocabulary.RDFType, graph.IRI(schemaPersonT))
	src.Add("source", subj, schemaName, graph.Literal("   "))
	src.Add("source", subj, schemaTelework, graph.Literal("+1 555 0102"))

	result, err := New(src, nil).Extract(context.Background(), "source")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)

	entity := result.Entities[0]
	assert.False(t, entity.Attributes.Has("schema:name"), "blank literal is skipped")
	assert.True(t, entity.Attributes.Has("schema:telephone"))

	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, "extractor", result.Diagnostics[0].Stage)
	assert.Contains(t, result.Diagnostics[0].Reason, "schema:name")
	assert.Contains(t, result.Diagnostics[0].Reason, errors.ErrMalformedLiteral.Error())
}

func TestExtractHandlesReferenceCycles(t *testing.T) {
	src := graph.NewMemorySource()
	a := "http://a.example/node/a"
	b := "http://a.example/node/b"
	knows := "http://xmlns.com/foaf/0.1/knows"
	src.Add("source", a, vocabulary.RDFType, graph.IRI(schemaPersonT))
	src.Add("source", a, knows, graph.IRI(b))
	src.Add("source", b, knows, graph.IRI(a))
	src.Add("source", b, schemaName, graph.Literal("Beta"))

	result, err := New(src, nil).Extract(context.Background(), "source")
	require.NoError(t, err)

	for _, e := range result.Entities {
		if e.URI == a {
			assert.Contains(t, e.SurfaceText, "Name: Beta.")
		}
	}
}
