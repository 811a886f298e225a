// Package preflight provides readiness checks for the directories and
// external helpers ischool depends on.
//
// The workflow manager runs RunAll at start and reports the results in its
// status summary; the CLI status command renders the same list.
package preflight
