package deck

import (
	"math/rand/v2"
)

// RandomSource draws uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }

// Outcome reports how a command resolved. None of them are errors.
type Outcome int

const (
	// OutcomeOK means the command changed the deck.
	OutcomeOK Outcome = iota
	// OutcomeNoop means there was nothing to act on (empty deck).
	OutcomeNoop
	// OutcomeNothingToRemove is returned by RemoveUnfound when every card is found.
	OutcomeNothingToRemove
	// OutcomeDeckComplete is returned by MarkKnown when the last card was removed.
	OutcomeDeckComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoop:
		return "noop"
	case OutcomeNothingToRemove:
		return "nothing_to_remove"
	case OutcomeDeckComplete:
		return "deck_complete"
	default:
		return "unknown"
	}
}

// MarshalText lets outcomes travel as strings in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Deck owns the cards of one session.
type Deck struct {
	original []MedicationRecord
	active   []MedicationRecord
	position int
	flipped  bool
	viewed   map[int]struct{}
	known    map[Key]struct{}
	rnd      RandomSource
}

// Option configures a Deck.
type Option func(*Deck)

// WithRandomSource replaces the source used by Shuffle.
func WithRandomSource(src RandomSource) Option {
	return func(d *Deck) {
		if src != nil {
			d.rnd = src
		}
	}
}

// New creates a deck loaded with records. A nil or empty slice gives an empty deck.
func New(records []MedicationRecord, opts ...Option) *Deck {
	d := &Deck{rnd: defaultSource{}}
	for _, opt := range opts {
		opt(d)
	}
	d.Load(records)
	return d
}

// Load replaces the whole deck state with records.
// The caller's slice is kept as the original snapshot and never written to.
func (d *Deck) Load(records []MedicationRecord) {
	d.original = records
	d.active = make([]MedicationRecord, len(records))
	copy(d.active, records)
	d.position = 0
	d.flipped = false
	d.viewed = make(map[int]struct{})
	d.known = make(map[Key]struct{})
	if d.rnd == nil {
		d.rnd = defaultSource{}
	}
}

// Advance moves delta cards forward (positive) or backward (negative), wrapping at
// both ends. Any delta is accepted; the HTTP layer restricts it to +1/-1.
func (d *Deck) Advance(delta int) Outcome {
	n := len(d.active)
	if n == 0 {
		return OutcomeNoop
	}
	d.position = ((d.position+delta)%n + n) % n
	d.flipped = false
	return OutcomeOK
}

// Next is Advance(+1).
func (d *Deck) Next() Outcome { return d.Advance(1) }

// Previous is Advance(-1).
func (d *Deck) Previous() Outcome { return d.Advance(-1) }

// Flip toggles the flipped flag and records the current position as viewed.
func (d *Deck) Flip() Outcome {
	if len(d.active) == 0 {
		return OutcomeNoop
	}
	d.flipped = !d.flipped
	d.viewed[d.position] = struct{}{}
	return OutcomeOK
}

// Shuffle permutes the active cards with Fisher-Yates and returns to the first card.
// Viewed and known sets are left as they are.
func (d *Deck) Shuffle() Outcome {
	if len(d.active) == 0 {
		return OutcomeNoop
	}
	for i := len(d.active) - 1; i > 0; i-- {
		j := d.rnd.IntN(i + 1)
		d.active[i], d.active[j] = d.active[j], d.active[i]
	}
	d.position = 0
	d.flipped = false
	return OutcomeOK
}

// RemoveUnfound drops every card without data, keeping relative order, and returns
// how many were removed. A position past the end is clamped to the last card.
func (d *Deck) RemoveUnfound() (int, Outcome) {
	kept := make([]MedicationRecord, 0, len(d.active))
	for _, r := range d.active {
		if r.Found {
			kept = append(kept, r)
		}
	}

	removed := len(d.active) - len(kept)
	if removed == 0 {
		return 0, OutcomeNothingToRemove
	}

	d.active = kept
	if d.position >= len(d.active) {
		d.position = max(0, len(d.active)-1)
	}
	d.flipped = false
	return removed, OutcomeOK
}

// MarkKnown records the current card as known and removes it from the deck.
// When the removed card was the last one in order, the position wraps to the first
// card instead of clamping (unlike RemoveUnfound).
func (d *Deck) MarkKnown() (Key, Outcome) {
	if len(d.active) == 0 {
		return Key{}, OutcomeNoop
	}

	key := d.active[d.position].Key()
	d.known[key] = struct{}{}

	d.active = append(d.active[:d.position:d.position], d.active[d.position+1:]...)
	d.flipped = false

	if len(d.active) == 0 {
		d.position = 0
		return key, OutcomeDeckComplete
	}
	if d.position >= len(d.active) {
		d.position = 0
	}
	return key, OutcomeOK
}

// Len returns the number of active cards.
func (d *Deck) Len() int { return len(d.active) }

// OriginalLen returns the number of cards loaded.
func (d *Deck) OriginalLen() int { return len(d.original) }

// Position returns the zero-based index of the current card (0 when empty).
func (d *Deck) Position() int { return d.position }

// Flipped reports whether the current card shows its back face.
func (d *Deck) Flipped() bool { return d.flipped }

// Active returns a copy of the active cards in deck order.
func (d *Deck) Active() []MedicationRecord {
	out := make([]MedicationRecord, len(d.active))
	copy(out, d.active)
	return out
}

// IsKnown reports whether key has been marked known.
func (d *Deck) IsKnown(key Key) bool {
	_, ok := d.known[key]
	return ok
}

// KnownCount returns the number of distinct keys marked known.
func (d *Deck) KnownCount() int { return len(d.known) }

// IsViewed reports whether index was flipped at least once.
// Indices refer to positions at flip time and are not remapped by Shuffle or removals.
func (d *Deck) IsViewed(index int) bool {
	_, ok := d.viewed[index]
	return ok
}

// ViewedCount returns the number of viewed indices.
func (d *Deck) ViewedCount() int { return len(d.viewed) }
