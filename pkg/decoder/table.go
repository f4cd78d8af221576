package decoder

// NoCallReason explains why a spot received no identity. No-call outcomes
// are valid recorded results, not errors; one spot's pathological
// measurement never aborts the batch.
type NoCallReason string

const (
	// NoCallNone marks a called record.
	NoCallNone NoCallReason = ""

	// NoCallBelowThreshold: no activation cleared the configured threshold,
	// or the best candidate distance exceeded the assignment threshold.
	NoCallBelowThreshold NoCallReason = "below-threshold"

	// NoCallAmbiguousRound: a round had more than one plausible activation.
	NoCallAmbiguousRound NoCallReason = "ambiguous-round"

	// NoCallAmbiguous: two codebook entries were equidistant within
	// floating-point tolerance; determinism over guessing.
	NoCallAmbiguous NoCallReason = "ambiguous"

	// NoCallNoMatch: a fully formed barcode had no codebook entry.
	NoCallNoMatch NoCallReason = "no-match"

	// NoCallConflict: multiple sub-decoders assigned different identities.
	NoCallConflict NoCallReason = "conflict"

	// NoCallExceedsCostBound: no barcode interpretation stayed within the
	// configured maximum cost.
	NoCallExceedsCostBound NoCallReason = "exceeds-cost-bound"

	// NoCallMissingRound: the spot had unmeasured cells the algorithm
	// cannot interpret.
	NoCallMissingRound NoCallReason = "missing-round"

	// NoCallInvalidIntensity: the spot carried NaN or infinite
	// measurements.
	NoCallInvalidIntensity NoCallReason = "invalid-intensity"
)

// Record is the decoded outcome for a single spot.
type Record struct {
	// SpotID back-references the intensity table record.
	SpotID string

	// Target is the assigned identity, empty for a no-call.
	Target string

	// Quality is the confidence score in [0, 1].
	Quality float64

	// Distance is the distance or cost that drove the assignment. For
	// no-calls it holds the best candidate distance when one was computed,
	// otherwise zero.
	Distance float64

	// RoundPass flags, per round, whether the round's measurement was
	// accepted as-is. Corrected, masked or failed rounds are false.
	RoundPass []bool

	// Reason is NoCallNone for calls and a diagnostic reason otherwise.
	Reason NoCallReason
}

// Called reports whether the record carries an assigned identity.
func (r Record) Called() bool { return r.Target != "" }

// Table is the immutable result of one decoding run: exactly one record per
// input spot, in input order. Downstream consumers filter by deriving new
// tables; records are never edited in place.
type Table struct {
	records []Record
}

// NewResultTable wraps a complete record set. It is intended for decoders;
// consumers receive tables from Decode.
func NewResultTable(records []Record) *Table {
	return &Table{records: records}
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Record returns the record at index i.
func (t *Table) Record(i int) Record { return t.records[i] }

// Records returns the records in input-spot order. The returned slice is
// shared; callers must treat it as read-only.
func (t *Table) Records() []Record { return t.records }

// Called returns a new table holding only called records.
func (t *Table) Called() *Table {
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if r.Called() {
			out = append(out, r)
		}
	}
	return &Table{records: out}
}

// FilterByQuality returns a new table holding only called records with
// Quality >= min.
func (t *Table) FilterByQuality(min float64) *Table {
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if r.Called() && r.Quality >= min {
			out = append(out, r)
		}
	}
	return &Table{records: out}
}
