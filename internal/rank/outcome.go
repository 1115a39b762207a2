// Package rank resolves where a domain sits in a keyword's search results
// and collects the per-keyword outcomes into a table.
package rank

import (
	"strconv"
	"strings"
)

// NotFoundLabel is the rank cell for a domain absent from the result page.
const NotFoundLabel = "Not in top 100"

// errorPrefix starts every failed rank cell.
const errorPrefix = "Error: "

// Kind discriminates an Outcome.
type Kind int

const (
	KindFound Kind = iota + 1
	KindNotFound
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindFailed:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the result of resolving one keyword: a 1-based position, the
// not-found sentinel, or a failure message. The zero value is not valid.
type Outcome struct {
	Kind     Kind
	Position int
	Message  string
}

// Found returns an outcome for a match at position (1-based).
func Found(position int) Outcome {
	return Outcome{Kind: KindFound, Position: position}
}

// NotFound returns the not-found sentinel outcome.
func NotFound() Outcome {
	return Outcome{Kind: KindNotFound}
}

// Failed returns an outcome carrying a failure description. Runs of
// whitespace, line breaks included, collapse to one space so the cell stays
// on a single line; an empty message is replaced so the cell never reads as
// blank.
func Failed(message string) Outcome {
	message = strings.Join(strings.Fields(message), " ")
	if message == "" {
		message = "unknown error"
	}
	return Outcome{Kind: KindFailed, Message: message}
}

// String renders the rank cell: "7", "Not in top 100" or "Error: ...".
func (o Outcome) String() string {
	switch o.Kind {
	case KindFound:
		return strconv.Itoa(o.Position)
	case KindNotFound:
		return NotFoundLabel
	case KindFailed:
		return errorPrefix + o.Message
	default:
		return ""
	}
}

// ParseOutcome is the inverse of Outcome.String. Cells that are neither a
// positive integer nor the sentinel are treated as failures; a leading
// "Error: " is stripped.
func ParseOutcome(cell string) Outcome {
	cell = strings.TrimSpace(cell)
	if cell == NotFoundLabel {
		return NotFound()
	}
	if n, err := strconv.Atoi(cell); err == nil && n > 0 {
		return Found(n)
	}
	return Failed(strings.TrimPrefix(cell, errorPrefix))
}
