package tree

import (
	"fmt"
	"sort"
)

// validate runs the load-time schema pass: every next reference must
// resolve, validator kinds must be known, and the reserved start and
// finish nodes must exist. The graph may contain cycles; termination at
// runtime is guaranteed by the traversal turn budget.
func validate(spec *Spec) error {
	var errs []error

	fail := func(node, reason string, args ...any) {
		errs = append(errs, &SpecError{Node: node, Reason: fmt.Sprintf(reason, args...)})
	}

	if _, ok := spec.Nodes[StartNodeID]; !ok {
		fail(StartNodeID, "missing start node")
	}
	if _, ok := spec.Nodes[FinishNodeID]; !ok {
		fail(FinishNodeID, "missing finish node")
	}

	resolve := func(node, ref string) {
		if ref == "" {
			return
		}
		if _, ok := spec.Nodes[ref]; !ok {
			fail(node, "next references undefined node %q", ref)
		}
	}

	ids := make([]string, 0, len(spec.Nodes))
	for id := range spec.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := spec.Nodes[id]

		switch {
		case node.Display != "" && node.Question != "":
			fail(id, "has both display and question")
		case node.Display == "" && node.Question == "":
			fail(id, "has neither display nor question")
		}

		if node.Display != "" {
			if node.Next == "" && id != FinishNodeID {
				fail(id, "display node without next")
			}
			if len(node.Options) > 0 || node.OptionsFrom != "" || node.Validate != "" {
				fail(id, "display node carries question fields")
			}
		}

		if node.Question != "" {
			if len(node.Options) > 0 && node.OptionsFrom != "" {
				fail(id, "has both static and data-bound options")
			}
			switch {
			case len(node.Options) > 0:
				for i, opt := range node.Options {
					if opt.Display == "" {
						fail(id, "option %d has no display label", i+1)
					}
					if opt.Next == "" {
						fail(id, "option %d has no next", i+1)
					} else {
						resolve(id, opt.Next)
					}
				}
			default:
				if node.Next == "" {
					fail(id, "question node without next")
				}
			}
			if node.Validate != "" {
				if _, ok := validatorFor(node.Validate); !ok {
					fail(id, "unknown validator kind %q", node.Validate)
				}
			}
		}

		resolve(id, node.Next)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
