// Package fetchcore holds the strategy-shared emission plumbing: item
// normalization, stable ID derivation, within-fetch title dedup, and the
// multi-format date extraction helper.
package fetchcore
