// Package deck implements the flash card deck engine: an in-memory state machine
// owning the ordered cards, the current position, and the viewed/known tracking.
//
// A Deck is not safe for concurrent use. Callers serialise access (see package session).
package deck

// MedicationRecord describes one veterinary medication as handed over by the loader.
// Records are treated as immutable once loaded.
type MedicationRecord struct {
	InputName        string   `json:"input_name"`
	Found            bool     `json:"found"`
	Varenr           string   `json:"varenr,omitempty"`
	ExactMatch       bool     `json:"exact_match"`
	VariantName      string   `json:"variant_name,omitempty"`
	ActiveSubstances []string `json:"aktivt_stof,omitempty"`
	Indications      []string `json:"indikationer,omitempty"`
	SourceURL        string   `json:"spc_url,omitempty"`
}

// Key identifies a record for known-card tracking.
//
// The pair (InputName, Varenr) is assumed unique across a dataset. Two records sharing
// it collapse into a single known entry; validation.ReportDataQuality reports such
// duplicates instead of rewriting them. An absent varenr is the empty string.
type Key struct {
	InputName string
	Varenr    string
}

// String renders the key as "inputName-varenr".
func (k Key) String() string {
	return k.InputName + "-" + k.Varenr
}

// MarshalText renders the key as its string form in JSON.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Key returns the composite key of the record.
func (r MedicationRecord) Key() Key {
	return Key{InputName: r.InputName, Varenr: r.Varenr}
}
