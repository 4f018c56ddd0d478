// Package comparison compares provider output with the interactions of a
// contract and assembles the results reported by a verifier.
//
// Results group mismatches by status, header, body path and metadata key.
// Body results carry a line diff of the two bodies when the diff policy,
// resolved from the "pact.verifier.generateDiff" key, allows it. The policy
// is "true", "false" or a size such as "512KB" above which no diff is
// generated. An invalid size is logged and treated as "false".
package comparison
