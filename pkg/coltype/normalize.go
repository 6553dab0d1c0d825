// SPDX-License-Identifier: Apache-2.0

package coltype

import (
	"regexp"
	"strings"
)

var (
	pgVarcharRE    = regexp.MustCompile(`(?i)^CHARACTER VARYING(\(\d+\))?$`)
	pgCharRE       = regexp.MustCompile(`(?i)^CHARACTER(\(\d+\))?$`)
	pgTimestampTZ  = regexp.MustCompile(`(?i)^TIMESTAMP(\(\d+\))? WITH TIME ZONE$`)
	pgTimestampRE  = regexp.MustCompile(`(?i)^TIMESTAMP(\(\d+\))? WITHOUT TIME ZONE$`)
	pgDoublePrecRE = regexp.MustCompile(`(?i)^DOUBLE PRECISION$`)
	sqliteIntRE    = regexp.MustCompile(`(?i)^INT$`)
)

// Normalize transforms a catalog-returned (or hand-authored) type string
// into a canonical form suitable for equality comparison across dialects
// and sources. This never changes the SQL emitted for DDL, only the form
// used when diffing.
func Normalize(raw string, d Dialect) string {
	t := strings.TrimSpace(raw)
	upper := strings.ToUpper(t)

	switch d {
	case Postgres:
		switch {
		case pgVarcharRE.MatchString(upper):
			return pgVarcharRE.ReplaceAllStringFunc(upper, func(m string) string {
				paren := pgVarcharRE.FindStringSubmatch(m)[1]
				return "VARCHAR" + paren
			})
		case pgCharRE.MatchString(upper):
			return pgCharRE.ReplaceAllStringFunc(upper, func(m string) string {
				paren := pgCharRE.FindStringSubmatch(m)[1]
				return "CHAR" + paren
			})
		case pgTimestampTZ.MatchString(upper):
			return "TIMESTAMPTZ"
		case pgTimestampRE.MatchString(upper):
			return "TIMESTAMP"
		case pgDoublePrecRE.MatchString(upper):
			return "DOUBLE PRECISION"
		default:
			return upper
		}
	case SQLite:
		if sqliteIntRE.MatchString(upper) {
			return "INTEGER"
		}
		return upper
	default:
		return upper
	}
}

// typeFamily buckets a normalized type into a coarse family used by the
// danger detector to decide whether two columns are "the same kind of
// data" even when their exact type differs.
type typeFamily int

const (
	familyText typeFamily = iota
	familyNumeric
	familyBoolean
	familyTimestamp
	familyJSON
	familyOther
)

func family(normalized string, d Dialect) typeFamily {
	switch {
	case strings.HasPrefix(normalized, "VARCHAR"), strings.HasPrefix(normalized, "CHAR"),
		normalized == "TEXT":
		return familyText
	case strings.HasPrefix(normalized, "NUMERIC"), strings.HasPrefix(normalized, "DECIMAL"),
		strings.HasPrefix(normalized, "INT"), normalized == "BIGINT", normalized == "SMALLINT",
		normalized == "REAL", normalized == "DOUBLE PRECISION", normalized == "FLOAT":
		return familyNumeric
	case normalized == "BOOLEAN", normalized == "BOOL":
		return familyBoolean
	case normalized == "TIMESTAMPTZ", normalized == "TIMESTAMP", normalized == "DATE":
		return familyTimestamp
	case normalized == "JSONB", normalized == "JSON":
		return familyJSON
	default:
		return familyOther
	}
}

// AreTypesCompatible holds iff the normalized forms of a and b are
// identical. It is reflexive and symmetric by construction (equality of a
// pure function's output).
func AreTypesCompatible(a, b string, d Dialect) bool {
	return Normalize(a, d) == Normalize(b, d)
}

// SameFamily reports whether a and b belong to the same coarse type family,
// used by the danger detector (pkg/danger) to classify a type change
// within one family (e.g. VARCHAR(255) to VARCHAR(100)) apart from one
// across families. The rename heuristic (pkg/diff) does not use it; it
// requires AreTypesCompatible.
func SameFamily(a, b string, d Dialect) bool {
	return family(Normalize(a, d), d) == family(Normalize(b, d), d)
}

// IsLossyConversion reports whether converting a column from `from` to `to`
// can discard data, for the danger detector (SPEC_FULL §4.7).
func IsLossyConversion(from, to string, d Dialect) bool {
	nf, nt := Normalize(from, d), Normalize(to, d)
	if nf == nt {
		return false
	}
	ff, ft := family(nf, d), family(nt, d)

	switch {
	case ff == familyText && ft == familyNumeric:
		return true
	case ff == familyNumeric && ft == familyNumeric:
		return numericNarrows(nf, nt)
	case ff == familyText && ft == familyText:
		return varcharShrinks(nf, nt)
	case ff == familyTimestamp && nt == "DATE":
		return true
	default:
		return false
	}
}

var numericWidth = map[string]int{
	"SMALLINT": 1,
	"INTEGER":  2,
	"INT":      2,
	"BIGINT":   3,
	"REAL":     2,
	"NUMERIC":  4,
	"DECIMAL":  4,
}

func numericNarrows(from, to string) bool {
	wf, okf := numericWidth[stripParen(from)]
	wt, okt := numericWidth[stripParen(to)]
	if !okf || !okt {
		return false
	}
	return wt < wf
}

func varcharShrinks(from, to string) bool {
	fn, fok := varcharLen(from)
	tn, tok := varcharLen(to)
	if !fok || !tok {
		return false
	}
	return tn < fn
}

var varcharLenRE = regexp.MustCompile(`^(?:VARCHAR|CHAR)\((\d+)\)$`)

func varcharLen(t string) (int, bool) {
	m := varcharLenRE.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n, true
}

func stripParen(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		return t[:i]
	}
	return t
}
