package tree

import "fmt"

// SpecError reports a single defect in a tree document.
type SpecError struct {
	Node   string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("node %q: %s", e.Node, e.Reason)
}

// AggregateError collects every defect found in one validation pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d specification errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}
