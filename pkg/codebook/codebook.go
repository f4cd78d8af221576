// Package codebook provides the static mapping from valid barcodes to target
// identities used by every decoding algorithm. A barcode is the ordered
// sequence of per-round channel activations; the codebook is built once per
// experiment design, validated at construction and immutable afterwards.
package codebook

import (
	"fmt"
	"strconv"
	"strings"
)

// Wildcard marks a round whose channel activation is unconstrained.
// An entry carrying a wildcard round matches any channel in that position.
const Wildcard = -1

// Entry is a single (barcode -> target) mapping.
type Entry struct {
	// Target is the identity assigned when this barcode is called,
	// typically a gene name.
	Target string

	// Channels holds the activated channel for each round, in round order.
	// A value of Wildcard leaves that round unconstrained.
	Channels []int
}

// ErrInvalidCodebook is returned when a codebook cannot be constructed,
// for example because two entries share an identical barcode.
type ErrInvalidCodebook struct {
	Reason string
}

func (e *ErrInvalidCodebook) Error() string {
	return fmt.Sprintf("invalid codebook: %s", e.Reason)
}

// Codebook is an immutable, validated set of barcode entries sharing fixed
// round and channel dimensions. Entry order is preserved from construction;
// decoders rely on it for deterministic tie-breaking.
type Codebook struct {
	rounds   int
	channels int
	entries  []Entry
	exact    map[string]int // barcode key -> entry index, wildcard-free entries only
	hasWild  bool
}

// New builds and validates a codebook with the given dimensions.
//
// Validation rules:
//   - rounds and channels must be positive
//   - every entry must declare exactly one channel value per round
//   - channel values must be in [0, channels) or Wildcard
//   - targets must be non-empty
//   - no two entries may share an identical barcode
func New(rounds, channels int, entries []Entry) (*Codebook, error) {
	if rounds <= 0 {
		return nil, &ErrInvalidCodebook{Reason: fmt.Sprintf("rounds must be positive, got %d", rounds)}
	}
	if channels <= 0 {
		return nil, &ErrInvalidCodebook{Reason: fmt.Sprintf("channels must be positive, got %d", channels)}
	}
	if len(entries) == 0 {
		return nil, &ErrInvalidCodebook{Reason: "codebook has no entries"}
	}

	cb := &Codebook{
		rounds:   rounds,
		channels: channels,
		entries:  make([]Entry, 0, len(entries)),
		exact:    make(map[string]int, len(entries)),
	}

	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Target == "" {
			return nil, &ErrInvalidCodebook{Reason: "entry with empty target"}
		}
		if len(e.Channels) != rounds {
			return nil, &ErrInvalidCodebook{Reason: fmt.Sprintf(
				"entry %q has %d rounds, codebook declares %d", e.Target, len(e.Channels), rounds)}
		}
		wild := false
		for r, ch := range e.Channels {
			if ch == Wildcard {
				wild = true
				continue
			}
			if ch < 0 || ch >= channels {
				return nil, &ErrInvalidCodebook{Reason: fmt.Sprintf(
					"entry %q round %d: channel %d out of range [0,%d)", e.Target, r, ch, channels)}
			}
		}

		key := barcodeKey(e.Channels)
		if prev, dup := seen[key]; dup {
			return nil, &ErrInvalidCodebook{Reason: fmt.Sprintf(
				"entries %q and %q share barcode %s", prev, e.Target, key)}
		}
		seen[key] = e.Target

		idx := len(cb.entries)
		stored := Entry{Target: e.Target, Channels: append([]int(nil), e.Channels...)}
		cb.entries = append(cb.entries, stored)
		if wild {
			cb.hasWild = true
		} else {
			cb.exact[key] = idx
		}
	}

	return cb, nil
}

// Rounds returns the number of imaging rounds every barcode spans.
func (cb *Codebook) Rounds() int { return cb.rounds }

// Channels returns the number of detection channels per round.
func (cb *Codebook) Channels() int { return cb.channels }

// Len returns the number of entries.
func (cb *Codebook) Len() int { return len(cb.entries) }

// Entry returns the entry at index i in construction order.
func (cb *Codebook) Entry(i int) Entry { return cb.entries[i] }

// Target returns the target identity of entry i.
func (cb *Codebook) Target(i int) string { return cb.entries[i].Target }

// Lookup performs an exact-match lookup of a fully specified barcode.
// Wildcard-free entries are matched directly; wildcard entries match when
// every constrained round agrees. The lookup fails when no entry matches or
// when more than one wildcard entry matches.
func (cb *Codebook) Lookup(barcode []int) (string, bool) {
	if len(barcode) != cb.rounds {
		return "", false
	}
	if idx, ok := cb.exact[barcodeKey(barcode)]; ok {
		return cb.entries[idx].Target, true
	}
	if !cb.hasWild {
		return "", false
	}
	matches := cb.LookupMasked(barcode, nil)
	if len(matches) != 1 {
		return "", false
	}
	return cb.entries[matches[0]].Target, true
}

// LookupMasked returns the indices of all entries consistent with the given
// per-round calls, ignoring rounds where mask is true. A nil mask means no
// round is masked. Entry wildcard rounds match any call. Results are in
// entry order.
func (cb *Codebook) LookupMasked(calls []int, mask []bool) []int {
	if len(calls) != cb.rounds {
		return nil
	}
	var matches []int
	for i, e := range cb.entries {
		ok := true
		for r := 0; r < cb.rounds; r++ {
			if mask != nil && mask[r] {
				continue
			}
			if e.Channels[r] == Wildcard {
				continue
			}
			if e.Channels[r] != calls[r] {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, i)
		}
	}
	return matches
}

// Vector returns the one-hot-per-round vector encoding of entry i, flattened
// in round-major order to length Rounds*Channels. Wildcard rounds are encoded
// uniformly as 1/Channels across the round so that no channel is preferred.
func (cb *Codebook) Vector(i int) []float64 {
	v := make([]float64, cb.rounds*cb.channels)
	for r, ch := range cb.entries[i].Channels {
		if ch == Wildcard {
			u := 1.0 / float64(cb.channels)
			for c := 0; c < cb.channels; c++ {
				v[r*cb.channels+c] = u
			}
			continue
		}
		v[r*cb.channels+ch] = 1.0
	}
	return v
}

// barcodeKey renders a barcode as a compact map key, e.g. "2.0.1".
func barcodeKey(channels []int) string {
	var sb strings.Builder
	for i, ch := range channels {
		if i > 0 {
			sb.WriteByte('.')
		}
		if ch == Wildcard {
			sb.WriteByte('*')
			continue
		}
		sb.WriteString(strconv.Itoa(ch))
	}
	return sb.String()
}
