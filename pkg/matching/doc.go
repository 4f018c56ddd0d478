// Package matching compares actual requests, responses and messages with
// the expectations recorded in a contract.
//
// Bodies are compared by a ContentMatcher chosen from an immutable Registry
// by content type. The built-in matchers cover JSON, XML, form and plain
// text bodies; plugins add more. Within a body, matching rules resolved for
// a path take precedence over structural equality:
//
//	reg := matching.DefaultRegistryBuilder().Build()
//	engine := matching.NewEngine(reg, matching.WithLogger(logger))
//	mismatches, err := engine.MatchResponse(ctx, expected, actual)
//
// Mismatches are returned as data. An error is only returned when a
// comparison could not be carried out, e.g. a plugin failed.
package matching
