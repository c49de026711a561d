// Package classedvalues implements a small sorted mapping from an integer
// class (typically an age) to a float value, used throughout the disease
// and population models for age-indexed curves (severity probabilities,
// average contacts per day, and so on).
package classedvalues

// Entry is one (class, value) pair, preserved in the order supplied to New.
type Entry struct {
	Class int
	Value float64
}

// Values is a small sorted-by-class mapping. Sizes are tens of entries, so
// a linear scan is the right tool — no point building a map or a binary
// search index for this.
type Values struct {
	entries []Entry
}

// New builds a Values from pairs preserved in input order.
func New(pairs []Entry) *Values {
	v := &Values{entries: make([]Entry, len(pairs))}
	copy(v.entries, pairs)
	return v
}

// Get returns the value of the first entry whose class equals k, or def if
// no such entry exists.
func (v *Values) Get(k int, def float64) float64 {
	for _, e := range v.entries {
		if e.Class == k {
			return e.Value
		}
	}
	return def
}

// GetGreatestLTE returns the value associated with the greatest class that
// is <= k. Entries are scanned in the order supplied to New; the scan stops
// at the first class that exceeds k and returns the value at the index
// just before that break, or the last entry if no class exceeds k.
//
// Documented quirk: if k is smaller than every class in the table, this
// returns the value at index 0 rather than a caller-supplied default. This
// mirrors the original model and is preserved for behavioral parity — see
// SPEC_FULL.md / DESIGN.md.
func (v *Values) GetGreatestLTE(k int) float64 {
	if len(v.entries) == 0 {
		return 0
	}
	last := v.entries[0].Value
	for _, e := range v.entries {
		if e.Class > k {
			break
		}
		last = e.Value
	}
	return last
}

// Len reports the number of entries, mostly useful for tests.
func (v *Values) Len() int {
	return len(v.entries)
}
