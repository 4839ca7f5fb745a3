// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ident canonicalizes paper identifiers so hits from different
// providers reconcile to a single record. All functions are pure: same input,
// same key, no network, no state.
package ident

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/litreport/pkg/types"
)

var (
	// doiPattern matches bare DOIs: "10.1145/1234567.1234568".
	doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

	// arxivNewPattern matches modern arXiv IDs with optional version:
	// "2301.07041", "2301.07041v2".
	arxivNewPattern = regexp.MustCompile(`^(\d{4}\.\d{4,5})(v\d+)?$`)

	// arxivOldPattern matches pre-2007 IDs: "cs.LG/0701234", "hep-th/9901001".
	arxivOldPattern = regexp.MustCompile(`^([a-z-]+(?:\.[a-z]{2})?/\d{7})(v\d+)?$`)

	doiURLPrefix   = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)
	doiLabelPrefix = regexp.MustCompile(`(?i)^doi:\s*`)

	arxivURLPrefix   = regexp.MustCompile(`(?i)^https?://(www\.)?arxiv\.org/(abs|pdf)/`)
	arxivLabelPrefix = regexp.MustCompile(`(?i)^arxiv:\s*`)

	// arxivDOIPattern matches DataCite DOIs that wrap an arXiv id.
	arxivDOIPattern = regexp.MustCompile(`^10\.48550/arxiv\.(.+)$`)
)

// NormalizeDOI strips URL and "doi:" prefixes, trailing punctuation, and
// case variance. It returns "" when the remainder is not a valid DOI.
func NormalizeDOI(raw string) string {
	doi := strings.TrimSpace(raw)
	if doi == "" {
		return ""
	}
	doi = doiURLPrefix.ReplaceAllString(doi, "")
	doi = doiLabelPrefix.ReplaceAllString(doi, "")
	doi = strings.TrimRight(strings.TrimSpace(doi), ".,;")
	doi = strings.ToLower(doi)
	if !doiPattern.MatchString(doi) {
		return ""
	}
	return doi
}

// NormalizeArxiv strips URL, "arXiv:" and ".pdf" decorations plus any
// version suffix, and lowercases. It returns "" when the remainder is not a
// recognizable arXiv id. Both modern and pre-2007 forms are accepted.
func NormalizeArxiv(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	v = arxivURLPrefix.ReplaceAllString(v, "")
	v = arxivLabelPrefix.ReplaceAllString(v, "")
	v = strings.TrimSuffix(v, ".pdf")
	v = strings.ToLower(strings.TrimSpace(v))

	if m := arxivNewPattern.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if m := arxivOldPattern.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return ""
}

// ArxivFromDOI extracts the arXiv id from a DataCite arXiv DOI
// ("10.48550/arxiv.2301.07041"), or "" when the DOI is not one.
func ArxivFromDOI(doi string) string {
	m := arxivDOIPattern.FindStringSubmatch(strings.ToLower(doi))
	if m == nil {
		return ""
	}
	return NormalizeArxiv(m[1])
}

// stopWords are dropped from titles before hashing so trivial phrasing
// differences between providers do not split one paper into two keys.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "der": true, "die": true, "das": true,
	"for": true, "from": true, "in": true, "into": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "with": true,
}

// TitleKey derives a canonical key from a title and first-author surname.
// The title is lowercased, accent-stripped, punctuation-stripped, and
// stop-word-filtered before hashing.
func TitleKey(title, firstAuthor string) string {
	norm := normalizeText(title)
	if norm == "" {
		return ""
	}
	surname := authorSurname(firstAuthor)
	h := sha256.Sum256([]byte(norm + "|" + surname))
	return fmt.Sprintf("title-%x", h[:8])
}

// normalizeText lowercases, strips accents and punctuation, and removes
// stop words, collapsing the remainder into single-spaced tokens.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		r = stripAccent(r)
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	var kept []string
	for _, tok := range strings.Fields(b.String()) {
		if !stopWords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// stripAccent folds common accented Latin letters to their base form.
// Full Unicode decomposition is overkill for author and title matching.
func stripAccent(r rune) rune {
	switch r {
	case 'à', 'á', 'â', 'ã', 'ä', 'å':
		return 'a'
	case 'è', 'é', 'ê', 'ë':
		return 'e'
	case 'ì', 'í', 'î', 'ï':
		return 'i'
	case 'ò', 'ó', 'ô', 'õ', 'ö', 'ø':
		return 'o'
	case 'ù', 'ú', 'û', 'ü':
		return 'u'
	case 'ý', 'ÿ':
		return 'y'
	case 'ñ':
		return 'n'
	case 'ç':
		return 'c'
	case 'ß':
		return 's'
	}
	return r
}

// authorSurname returns the normalized last token of an author name.
func authorSurname(author string) string {
	fields := strings.Fields(normalizeText(author))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// CanonicalID computes the stable canonical key for a raw hit: normalized
// DOI first, then normalized arXiv id, then a title+first-author hash. A DOI
// that merely wraps an arXiv id resolves to the arXiv key so preprint and
// DataCite hits merge.
func CanonicalID(hit types.RawHit) string {
	if doi := NormalizeDOI(hit.DOI); doi != "" {
		if ax := ArxivFromDOI(doi); ax != "" {
			return "arxiv:" + ax
		}
		return "doi:" + doi
	}
	if ax := NormalizeArxiv(hit.ArxivID); ax != "" {
		return "arxiv:" + ax
	}
	first := ""
	if len(hit.Authors) > 0 {
		first = hit.Authors[0]
	}
	return TitleKey(hit.Title, first)
}
