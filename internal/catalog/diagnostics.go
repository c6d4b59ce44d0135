package catalog

// Diagnostic is one recoverable (or fatal) condition met during a run.
type Diagnostic struct {
	Code    string `json:"code"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Diagnostics collects the conditions reported during a run, in order.
// The zero value is ready to use.
type Diagnostics struct {
	entries []Diagnostic
	counts  map[string]int
}

// Record stores err against source and line and returns the stored entry.
// A nil error is ignored and returns the zero Diagnostic.
func (d *Diagnostics) Record(source string, line int, err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	msg := MapError(err)
	entry := Diagnostic{
		Code:    msg.Code,
		Source:  source,
		Line:    line,
		Message: msg.Message,
		Detail:  err.Error(),
	}
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	d.entries = append(d.entries, entry)
	d.counts[entry.Code]++
	return entry
}

// Count returns how many entries carry code.
func (d *Diagnostics) Count(code string) int {
	return d.counts[code]
}

// Len returns the number of recorded entries.
func (d *Diagnostics) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the recorded entries.
func (d *Diagnostics) Entries() []Diagnostic {
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Counts returns a copy of the per-code totals.
func (d *Diagnostics) Counts() map[string]int {
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
