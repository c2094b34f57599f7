package inference

import "strings"

// Accumulator collects streamed fragments for one call. It is not safe for
// concurrent use; the stream loop owns it.
type Accumulator struct {
	fragments []string
	count     int
	done      bool
}

// Add appends a fragment and returns the running fragment count. Empty
// fragments are legal in the protocol and are not counted.
func (a *Accumulator) Add(fragment string) int {
	if fragment == "" {
		return a.count
	}
	a.fragments = append(a.fragments, fragment)
	a.count++
	return a.count
}

// MarkDone records the daemon's done marker.
func (a *Accumulator) MarkDone() { a.done = true }

func (a *Accumulator) Done() bool { return a.done }
func (a *Accumulator) Count() int { return a.count }

// Text joins the fragments in arrival order.
func (a *Accumulator) Text() string { return strings.Join(a.fragments, "") }
