// Package matchingrules models the matching rules attached to a contract.
//
// Rules are grouped into categories (body, header, path, query, status and
// metadata). Each category maps a path, or a header/query/metadata name, to
// an ordered RuleList combined with AND or OR logic.
//
// Two document shapes are supported. Contracts before V3 use a flat form
// keyed by scoped paths:
//
//	{"$.body.id": {"match": "type"}, "$.headers.Accept": {"match": "regex", "regex": "json"}}
//
// V3 and later use a nested form keyed by category:
//
//	{"body": {"$.id": {"matchers": [{"match": "type"}], "combine": "AND"}}}
//
// Converting between the two is lossy. The flat form holds a single rule per
// path, and multi-token header or query names are joined with dots when read
// back. ValidateForVersion reports what a target version cannot represent.
//
// Body paths are JSONPath-like patterns parsed with ojg. PathMatcher selects
// the best pattern for a concrete path by weight: exact tokens score higher
// than wildcards, and longer patterns win over their ancestors.
package matchingrules
