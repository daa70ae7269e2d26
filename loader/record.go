package loader

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/giygas/vetflash-api/deck"
	"golang.org/x/text/unicode/norm"
)

// rawRecord is one dataset entry as written by the scraper's transform step.
// Pointers distinguish absent fields from zero values.
type rawRecord struct {
	InputName        *string     `json:"input_name" validate:"required,min=1"`
	Found            *bool       `json:"found" validate:"required"`
	Varenr           *flexString `json:"varenr"`
	ExactMatch       *bool       `json:"exact_match"`
	VariantName      *string     `json:"variant_name"`
	ActiveSubstances []string    `json:"aktivt_stof"`
	Indications      []string    `json:"indikationer"`
	SourceURL        *string     `json:"spc_url"`
}

// flexString accepts a JSON string or number; some exports write varenr as a number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("varenr must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// toRecord converts a checked entry. An absent exact_match counts as exact for
// found records. Text is normalised to NFC so composite keys compare reliably.
func (r *rawRecord) toRecord() deck.MedicationRecord {
	rec := deck.MedicationRecord{
		InputName:        norm.NFC.String(*r.InputName),
		Found:            *r.Found,
		ActiveSubstances: normalizeAll(r.ActiveSubstances),
		Indications:      normalizeAll(r.Indications),
	}

	if r.Varenr != nil {
		rec.Varenr = norm.NFC.String(string(*r.Varenr))
	}
	if r.VariantName != nil {
		rec.VariantName = norm.NFC.String(*r.VariantName)
	}
	if r.SourceURL != nil {
		rec.SourceURL = *r.SourceURL
	}

	if rec.Found {
		rec.ExactMatch = r.ExactMatch == nil || *r.ExactMatch
	}

	return rec
}

func normalizeAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = norm.NFC.String(v)
	}
	return out
}
