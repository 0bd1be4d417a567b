package extraction

import (
	"errors"
	"fmt"

	"github.com/deckgen/deckgen/internal/document"
)

// ErrNoCandidates marks the distinguishable empty outcome: the
// container parsed fine but zero images survived filtering. Callers
// roll back any speculative deck creation on it.
var ErrNoCandidates = errors.New("no candidate images survived filtering")

// ParseError wraps an unreadable or corrupt container. Fatal to the
// whole extraction call; nothing partial is returned.
type ParseError struct {
	Kind document.Kind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s container: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ProgressFunc reports progress at least once per page processed;
// current is monotonically non-decreasing.
type ProgressFunc func(current, total int)
