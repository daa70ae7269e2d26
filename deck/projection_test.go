package deck

import (
	"slices"
	"testing"
)

func TestProjectNotFound(t *testing.T) {
	tests := []struct {
		name         string
		record       MedicationRecord
		expectVarenr string
	}{
		{
			name:         "with varenr",
			record:       MedicationRecord{InputName: "Baytril vet", Varenr: "551234"},
			expectVarenr: "551234",
		},
		{
			name:         "without varenr",
			record:       MedicationRecord{InputName: "Baytril vet"},
			expectVarenr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.record)

			if p.Question != "Baytril vet" {
				t.Errorf("Expected question from input name, got %q", p.Question)
			}
			if p.UnavailableNotice != UnavailableText {
				t.Errorf("Expected unavailable notice, got %q", p.UnavailableNotice)
			}
			if p.Varenr != tt.expectVarenr {
				t.Errorf("Expected varenr %q, got %q", tt.expectVarenr, p.Varenr)
			}
			if p.ActiveSubstances != nil || p.Indications != nil || p.SourceURL != "" {
				t.Error("Unfound cards must not carry back-face content")
			}
			if p.MismatchNotice != "" {
				t.Error("Unfound cards must not carry a mismatch notice")
			}
		})
	}
}

func TestProjectFound(t *testing.T) {
	r := MedicationRecord{
		InputName:        "Metacam 5 mg/ml inj",
		Found:            true,
		Varenr:           "012345",
		ExactMatch:       true,
		ActiveSubstances: []string{"Meloxicam : 5 mg/ml"},
		Indications:      []string{"Kvæg: Akut mastitis i kombination med antibiotikabehandling."},
		SourceURL:        "https://vetisearch.dk/spcs/1-metacam",
	}

	p := Project(r)

	if p.Varenr != "012345" {
		t.Errorf("Expected varenr, got %q", p.Varenr)
	}
	if p.UnavailableNotice != "" || p.MismatchNotice != "" {
		t.Errorf("Expected no notices, got %q / %q", p.UnavailableNotice, p.MismatchNotice)
	}
	if p.ActiveSubstances == nil || !slices.Equal(p.ActiveSubstances.Items, r.ActiveSubstances) {
		t.Errorf("Unexpected active substances %+v", p.ActiveSubstances)
	}
	if p.ActiveSubstances.Placeholder != "" {
		t.Error("Placeholder should be empty when items exist")
	}
	if p.Indications == nil || !slices.Equal(p.Indications.Items, r.Indications) {
		t.Errorf("Unexpected indications %+v", p.Indications)
	}
	if p.SourceURL != r.SourceURL {
		t.Errorf("Expected source url %q, got %q", r.SourceURL, p.SourceURL)
	}

	p.ActiveSubstances.Items[0] = "changed"
	if r.ActiveSubstances[0] != "Meloxicam : 5 mg/ml" {
		t.Error("Projection must not share list storage with the record")
	}
}

func TestProjectFoundPlaceholders(t *testing.T) {
	p := Project(MedicationRecord{
		InputName:   "Rimadyl",
		Found:       true,
		ExactMatch:  false,
		VariantName: "Rimadyl Vet. 50 mg tabletter",
	})

	if p.Varenr != VarenrPlaceholder {
		t.Errorf("Expected varenr placeholder, got %q", p.Varenr)
	}
	if p.MismatchNotice != "Viser: Rimadyl Vet. 50 mg tabletter" {
		t.Errorf("Unexpected mismatch notice %q", p.MismatchNotice)
	}
	if p.VariantName != "Rimadyl Vet. 50 mg tabletter" {
		t.Errorf("Expected variant name, got %q", p.VariantName)
	}
	if p.ActiveSubstances.Placeholder != NoSubstancesText || len(p.ActiveSubstances.Items) != 0 {
		t.Errorf("Unexpected active substances %+v", p.ActiveSubstances)
	}
	if p.Indications.Placeholder != NoIndicationsText || len(p.Indications.Items) != 0 {
		t.Errorf("Unexpected indications %+v", p.Indications)
	}
	if p.SourceURL != "" {
		t.Errorf("Expected no source url, got %q", p.SourceURL)
	}
}

func TestCurrentProjectionCarriesFlip(t *testing.T) {
	d := New([]MedicationRecord{{InputName: "A", Found: true, ExactMatch: true}})

	if d.CurrentProjection().Flipped {
		t.Error("Fresh card should show its front")
	}
	d.Flip()
	if !d.CurrentProjection().Flipped {
		t.Error("Projection should reflect the flip")
	}
}

func TestProgress(t *testing.T) {
	d := New([]MedicationRecord{
		{InputName: "A", Found: true},
		{InputName: "B", Found: true},
		{InputName: "C", Found: true},
		{InputName: "D", Found: true},
	})

	p := d.Progress()
	if p.Current != 1 || p.Total != 4 || p.Percent != 25 {
		t.Errorf("Unexpected initial progress %+v", p)
	}

	d.Previous()
	d.Flip()
	p = d.Progress()
	if p.Current != 4 || p.Percent != 100 || p.Viewed != 1 {
		t.Errorf("Unexpected progress at last card %+v", p)
	}

	d.MarkKnown()
	p = d.Progress()
	if p.Current != 1 || p.Total != 3 || p.Known != 1 {
		t.Errorf("Unexpected progress after mark known %+v", p)
	}
}
