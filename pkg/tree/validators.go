package tree

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayout accepts day/month/year with or without leading zeros.
const dateLayout = "2/1/2006"

// Validator parses raw subscriber input into the value recorded in the
// answer set. A non-nil error rejects the input and leaves the
// traversal unchanged.
type Validator func(raw string) (any, error)

// validatorFor maps a validator kind from the spec document to its
// implementation. Unknown kinds are a load-time error.
func validatorFor(kind string) (Validator, bool) {
	switch kind {
	case "":
		return func(raw string) (any, error) {
			return strings.TrimSpace(raw), nil
		}, true
	case ValidateInteger:
		return func(raw string) (any, error) {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("not a whole number: %q", raw)
			}
			return n, nil
		}, true
	case ValidateDate:
		return func(raw string) (any, error) {
			day, err := time.Parse(dateLayout, strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("not a dd/mm/yyyy date: %q", raw)
			}
			return day.Format("02/01/2006"), nil
		}, true
	}
	return nil, false
}
