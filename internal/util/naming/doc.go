// Package naming provides consistent naming functions for supervised workers
// and the provider resource paths derived from them.
//
// Worker IDs follow the pattern {prefix}-{index}, where the prefix defaults
// to tn-{acceleratorType}. The index keeps IDs unique within a zone and makes
// a recreated worker reuse the name of the one it replaces.
package naming
