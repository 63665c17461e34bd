package forest

import "errors"

// ErrRecursionLimit is returned by Analyze when expression or statement
// nesting exceeds the configured depth. The partial forest is discarded.
var ErrRecursionLimit = errors.New("forest: recursion limit exceeded")

// ErrNegativeCount is returned when a caller tries to lower a node's count.
var ErrNegativeCount = errors.New("forest: count never decreases")

// bailout carries a fatal error from deep inside the traversal back to
// Analyze, the way go/parser abandons a file.
type bailout struct {
	err error
}
