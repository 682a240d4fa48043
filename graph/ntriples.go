package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/c360/semdedup/errors"
)

// LoadNTriples reads a simplified N-Triples serialization into a named graph
// of the source. Supported forms, one statement per line:
//
//	<subject> <predicate> <object> .
//	<subject> <predicate> "literal" .
//	<subject> <predicate> "literal"@lang .
//	_:b0 <predicate> "literal" .
//
// Lines that cannot be decoded are skipped and reported in the returned
// warning list; only an unreadable stream is an error.
func LoadNTriples(src *MemorySource, graphID string, r io.Reader) ([]string, error) {
	var warnings []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, p, o, err := parseTripleLine(line)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		src.Add(graphID, s, p, o)
	}

	if err := scanner.Err(); err != nil {
		return warnings, errors.WrapTransient(err, "NTriples", "Load", "read stream")
	}
	return warnings, nil
}

// LoadNTriplesFile loads a triple file from disk into a named graph.
func LoadNTriplesFile(src *MemorySource, graphID, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NTriples", "LoadFile", "open "+path)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	return LoadNTriples(src, graphID, f)
}

func parseTripleLine(line string) (subject, predicate string, object Term, err error) {
	rest := strings.TrimSuffix(line, ".")
	rest = strings.TrimSpace(rest)

	subject, rest, err = parseResource(rest)
	if err != nil {
		return "", "", Term{}, fmt.Errorf("subject: %w", errors.ErrParsingFailed)
	}

	predicate, rest, err = parseResource(rest)
	if err != nil {
		return "", "", Term{}, fmt.Errorf("predicate: %w", errors.ErrParsingFailed)
	}

	object, err = parseObject(rest)
	if err != nil {
		return "", "", Term{}, err
	}
	return subject, predicate, object, nil
}

// parseResource consumes an IRI ref (<...>) or blank node label (_:x) from
// the front of s and returns it with the remaining text.
func parseResource(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.Index(s, ">")
		if end < 0 {
			return "", "", errors.ErrParsingFailed
		}
		return s[1:end], s[end+1:], nil
	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			return s, "", nil
		}
		return s[:end], s[end:], nil
	default:
		return "", "", errors.ErrParsingFailed
	}
}

func parseObject(s string) (Term, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "<"), strings.HasPrefix(s, "_:"):
		res, _, err := parseResource(s)
		if err != nil {
			return Term{}, fmt.Errorf("object: %w", errors.ErrParsingFailed)
		}
		return IRI(res), nil
	case strings.HasPrefix(s, `"`):
		end := strings.LastIndex(s, `"`)
		if end == 0 {
			return Term{}, fmt.Errorf("object: %w", errors.ErrParsingFailed)
		}
		value := s[1:end]
		tail := s[end+1:]
		if strings.HasPrefix(tail, "@") {
			return LangLiteral(value, strings.TrimSpace(tail[1:])), nil
		}
		// Datatype suffixes (^^<...>) are dropped; the pipeline treats all
		// literals as strings.
		return Literal(value), nil
	default:
		return Term{}, fmt.Errorf("object: %w", errors.ErrParsingFailed)
	}
}
