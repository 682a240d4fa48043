// Package vocabulary provides semantic vocabulary handling for predicate
// and type IRIs: CURIE compaction, human-readable labels, and the weak
// predicate set excluded from matching.
package vocabulary

import (
	"net/url"
	"strings"
	"unicode"
)

// Known namespace prefixes for CURIE compaction. Predicates outside these
// namespaces fall back to their fragment or last path segment.
var knownPrefixes = []struct {
	prefix string
	base   string
}{
	{"schema", "http://schema.org/"},
	{"schema", "https://schema.org/"},
	{"foaf", "http://xmlns.com/foaf/0.1/"},
	{"rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{"rdfs", "http://www.w3.org/2000/01/rdf-schema#"},
	{"xsd", "http://www.w3.org/2001/XMLSchema#"},
}

// RDFType is the IRI identifying an entity's declared type.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// weakPredicates carry identity information that is graph-local and must not
// contribute to surface text or literal comparison. Matching on them would
// reward entities for sharing synthetic identifiers.
var weakPredicates = map[string]bool{
	"schema:identifier": true,
}

// IsWeak reports whether a compacted predicate is excluded from matching.
func IsWeak(curie string) bool {
	return weakPredicates[curie]
}

// CompactPredicate converts a predicate IRI into CURIE form for a known
// namespace, otherwise returns the IRI fragment or last path segment.
//
// Examples:
//   - "http://schema.org/givenName" -> "schema:givenName"
//   - "http://example.org/ns#hasName" -> "hasName"
//   - "http://example.org/vocab/street" -> "street"
func CompactPredicate(iri string) string {
	for _, ns := range knownPrefixes {
		if strings.HasPrefix(iri, ns.base) {
			return ns.prefix + ":" + strings.TrimPrefix(iri, ns.base)
		}
	}

	if u, err := url.Parse(iri); err == nil && u.Fragment != "" {
		return u.Fragment
	}

	if idx := strings.LastIndex(iri, "/"); idx >= 0 && idx < len(iri)-1 {
		return iri[idx+1:]
	}
	return iri
}

// HumanLabel derives a human-readable label from a CURIE or local name.
// The prefix is dropped, surrounding brackets are stripped, and camelCase
// local names are split into Title Case words. Used when building entity
// surface text for the sentence encoder.
//
// Examples:
//   - "schema:addressLocality" -> "Address Locality"
//   - "[schema:Person]" -> "Person"
func HumanLabel(curie string) string {
	local := curie
	if idx := strings.Index(local, ":"); idx >= 0 {
		local = local[idx+1:]
	}
	local = strings.TrimPrefix(local, "[")
	local = strings.TrimSuffix(local, "]")
	return camelToTitle(local)
}

// camelToTitle splits camelCase into space-separated Title Case words.
func camelToTitle(s string) string {
	if s == "" {
		return ""
	}

	var words []string
	runes := []rune(s)
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))

	for i, w := range words {
		wr := []rune(w)
		wr[0] = unicode.ToUpper(wr[0])
		words[i] = string(wr)
	}
	return strings.Join(words, " ")
}
