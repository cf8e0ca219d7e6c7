package email

import "fmt"

// Priority is the delivery priority of a message. The zero value is
// PriorityNormal.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
)

// ParsePriority converts a configuration string into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q (want low, normal or high)", s)
	}
}

// String returns the configuration spelling of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// HeaderValue maps the priority to its X-Priority header value. A priority
// outside the three defined constants is a programming error, not user
// input, and yields an UnsupportedPriorityError.
func (p Priority) HeaderValue() (string, error) {
	switch p {
	case PriorityLow:
		return "5 (Lowest)", nil
	case PriorityNormal:
		return "3 (Normal)", nil
	case PriorityHigh:
		return "1 (Highest)", nil
	default:
		return "", &UnsupportedPriorityError{Priority: p}
	}
}

// UnsupportedPriorityError reports a Priority value outside the defined
// constants reaching the assembler.
type UnsupportedPriorityError struct {
	Priority Priority
}

func (e *UnsupportedPriorityError) Error() string {
	return fmt.Sprintf("unsupported priority value %d", int(e.Priority))
}
