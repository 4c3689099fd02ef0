package streaming

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies how a request's Range header is answered.
type Kind int

const (
	// Full means no Range header: serve the whole entity with 200.
	Full Kind = iota
	// Partial means a valid single range: serve [Start, End] with 206.
	Partial
	// Unsatisfiable means a present but unusable header: answer 416.
	Unsatisfiable
)

func (k Kind) String() string {
	switch k {
	case Full:
		return "full"
	case Partial:
		return "partial"
	case Unsatisfiable:
		return "unsatisfiable"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Decision is the outcome of Resolve. Start and End are inclusive byte
// offsets and are only meaningful for Partial.
type Decision struct {
	Kind  Kind
	Start int64
	End   int64
}

// Length returns the number of bytes a Partial decision covers.
func (d Decision) Length() int64 {
	if d.Kind != Partial {
		return 0
	}
	return d.End - d.Start + 1
}

// Resolve interprets a Range header value against an entity of size bytes.
// An empty header means the client sent none.
//
// Only the single-range form "bytes=start-end" is accepted. start is
// required; a missing end means the last byte, and an end past the last
// byte is clamped to it. A start at or beyond size, an end before start,
// suffix ranges ("bytes=-500"), other units, multiple ranges and anything
// unparsable are Unsatisfiable.
func Resolve(header string, size int64) Decision {
	header = strings.TrimSpace(header)
	if header == "" {
		return Decision{Kind: Full}
	}
	unsatisfiable := Decision{Kind: Unsatisfiable}

	unit, spec, ok := strings.Cut(header, "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return unsatisfiable
	}
	if strings.Contains(spec, ",") {
		return unsatisfiable
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return unsatisfiable
	}

	start, ok := parseOffset(strings.TrimSpace(first))
	if !ok || start >= size {
		return unsatisfiable
	}

	end := size - 1
	if last = strings.TrimSpace(last); last != "" {
		e, ok := parseOffset(last)
		if !ok || e < start {
			return unsatisfiable
		}
		if e < end {
			end = e
		}
	}

	return Decision{Kind: Partial, Start: start, End: end}
}

// parseOffset accepts a non-empty run of ASCII digits. Values that overflow
// int64 saturate, which Resolve then treats as past the end of the entity.
func parseOffset(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return math.MaxInt64, true
	}
	return n, true
}
