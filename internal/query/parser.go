// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns raw user text into a structured SearchQuery and
// renders that structure back into engine-facing search strings. The
// orchestration core never re-parses text; it consumes the structure this
// package produces.
//
// Supported syntax: bare terms (required), "exact phrases", -excluded,
// (a OR b) groups, infix OR, and the field operators site:, filetype:,
// intitle:, inurl:, after:, before:.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

const dateLayout = "2006-01-02"

// Parse builds a SearchQuery from raw text.
func Parse(raw string) (types.SearchQuery, error) {
	q := types.SearchQuery{Original: strings.TrimSpace(raw)}
	if q.Original == "" {
		return q, fmt.Errorf("query is empty")
	}

	tokens := tokenize(q.Original)

	var pendingOr []string // accumulating infix OR chain
	flushOr := func() {
		if len(pendingOr) > 1 {
			q.OrGroups = append(q.OrGroups, pendingOr)
		} else if len(pendingOr) == 1 {
			q.RequiredTerms = append(q.RequiredTerms, pendingOr[0])
		}
		pendingOr = nil
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		switch {
		case tok.kind == tokenPhrase:
			flushOr()
			q.Phrases = append(q.Phrases, tok.value)

		case tok.kind == tokenGroup:
			flushOr()
			group := splitOrGroup(tok.value)
			if len(group) > 1 {
				q.OrGroups = append(q.OrGroups, group)
			} else if len(group) == 1 {
				q.RequiredTerms = append(q.RequiredTerms, group[0])
			}

		case strings.EqualFold(tok.value, "OR"):
			// Joins the previous and next plain terms into one group; the
			// chain keeps growing while ORs alternate with terms.
			if len(pendingOr) == 0 && len(q.RequiredTerms) > 0 {
				last := q.RequiredTerms[len(q.RequiredTerms)-1]
				q.RequiredTerms = q.RequiredTerms[:len(q.RequiredTerms)-1]
				pendingOr = append(pendingOr, last)
			}

		case strings.HasPrefix(tok.value, "-") && len(tok.value) > 1:
			flushOr()
			q.ExcludedTerms = append(q.ExcludedTerms, strings.ToLower(tok.value[1:]))

		case hasOperator(tok.value):
			flushOr()
			if err := applyOperator(&q, tok.value); err != nil {
				return q, err
			}

		default:
			term := strings.ToLower(strings.TrimPrefix(tok.value, "+"))
			if term == "" {
				continue
			}
			if len(pendingOr) > 0 {
				pendingOr = append(pendingOr, term)
				// A term closes the chain unless another OR follows.
				if i+1 >= len(tokens) || !strings.EqualFold(tokens[i+1].value, "OR") {
					flushOr()
				}
			} else {
				q.RequiredTerms = append(q.RequiredTerms, term)
			}
		}
	}
	flushOr()

	return q, nil
}

type tokenKind int

const (
	tokenTerm tokenKind = iota
	tokenPhrase
	tokenGroup
)

type token struct {
	kind  tokenKind
	value string
}

// tokenize splits the query into terms, quoted phrases, and parenthesized
// groups. Unbalanced quotes and parentheses close at end of input.
func tokenize(raw string) []token {
	var tokens []token
	var b strings.Builder
	inQuote, inGroup := false, false

	flush := func(kind tokenKind) {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s != "" {
			tokens = append(tokens, token{kind: kind, value: s})
		}
	}

	for _, r := range raw {
		switch {
		case inQuote:
			if r == '"' {
				flush(tokenPhrase)
				inQuote = false
			} else {
				b.WriteRune(r)
			}
		case inGroup:
			if r == ')' {
				flush(tokenGroup)
				inGroup = false
			} else {
				b.WriteRune(r)
			}
		case r == '"':
			flush(tokenTerm)
			inQuote = true
		case r == '(':
			flush(tokenTerm)
			inGroup = true
		case r == ' ' || r == '\t':
			flush(tokenTerm)
		default:
			b.WriteRune(r)
		}
	}
	if inQuote {
		flush(tokenPhrase)
	} else if inGroup {
		flush(tokenGroup)
	} else {
		flush(tokenTerm)
	}

	return tokens
}

// splitOrGroup breaks "a OR b OR c" into its lowercased alternatives.
func splitOrGroup(inner string) []string {
	var group []string
	for _, part := range strings.Fields(inner) {
		if strings.EqualFold(part, "OR") {
			continue
		}
		group = append(group, strings.ToLower(part))
	}
	return group
}

var operators = []string{"site:", "filetype:", "intitle:", "inurl:", "after:", "before:"}

func hasOperator(tok string) bool {
	lower := strings.ToLower(tok)
	for _, op := range operators {
		if strings.HasPrefix(lower, op) && len(tok) > len(op) {
			return true
		}
	}
	return false
}

func applyOperator(q *types.SearchQuery, tok string) error {
	colon := strings.Index(tok, ":")
	op := strings.ToLower(tok[:colon])
	value := tok[colon+1:]

	switch op {
	case "site":
		q.SiteFilter = strings.ToLower(value)
	case "filetype":
		q.FiletypeFilter = strings.ToLower(value)
	case "intitle":
		q.InTitle = append(q.InTitle, strings.ToLower(value))
	case "inurl":
		q.InURL = append(q.InURL, strings.ToLower(value))
	case "after":
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return fmt.Errorf("invalid after: date %q (want YYYY-MM-DD)", value)
		}
		q.DateAfter = t
	case "before":
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return fmt.Errorf("invalid before: date %q (want YYYY-MM-DD)", value)
		}
		q.DateBefore = t
	}
	return nil
}

// Render converts a structured query back into a plain search string for an
// engine that understands the common web-search syntax.
func Render(q types.SearchQuery) string {
	var parts []string

	parts = append(parts, q.RequiredTerms...)
	for _, phrase := range q.Phrases {
		parts = append(parts, `"`+phrase+`"`)
	}
	for _, group := range q.OrGroups {
		if len(group) > 1 {
			parts = append(parts, "("+strings.Join(group, " OR ")+")")
		} else if len(group) == 1 {
			parts = append(parts, group[0])
		}
	}
	parts = append(parts, q.OptionalTerms...)
	for _, term := range q.ExcludedTerms {
		parts = append(parts, "-"+term)
	}
	if q.SiteFilter != "" {
		parts = append(parts, "site:"+q.SiteFilter)
	}
	if q.FiletypeFilter != "" {
		parts = append(parts, "filetype:"+q.FiletypeFilter)
	}
	for _, term := range q.InTitle {
		parts = append(parts, "intitle:"+term)
	}
	for _, term := range q.InURL {
		parts = append(parts, "inurl:"+term)
	}
	if !q.DateAfter.IsZero() {
		parts = append(parts, "after:"+q.DateAfter.Format(dateLayout))
	}
	if !q.DateBefore.IsZero() {
		parts = append(parts, "before:"+q.DateBefore.Format(dateLayout))
	}

	return strings.Join(parts, " ")
}

// RenderBare renders only the terms and phrases, for engines whose APIs do
// not understand web-search operators.
func RenderBare(q types.SearchQuery) string {
	var parts []string
	parts = append(parts, q.RequiredTerms...)
	parts = append(parts, q.Phrases...)
	for _, group := range q.OrGroups {
		parts = append(parts, group...)
	}
	parts = append(parts, q.OptionalTerms...)
	return strings.Join(parts, " ")
}
