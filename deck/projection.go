package deck

// Texts used in projections. They are plain text; escaping is left to the renderer.
const (
	NoCardsText          = "Ingen kort tilbage"
	UnavailableText      = "Data ikke tilgængelig på vetisearch.dk"
	VarenrPlaceholder    = "N/A"
	NoSubstancesText     = "Ingen data"
	NoIndicationsText    = "Ingen indikationer fundet"
	mismatchNoticePrefix = "Viser: "
)

// Section is a list on the back face of a card. Placeholder is set when Items is empty.
type Section struct {
	Items       []string `json:"items"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Projection is the read-only view of the current card handed to the presentation layer.
type Projection struct {
	Empty             bool     `json:"empty"`
	Question          string   `json:"question"`
	Found             bool     `json:"found"`
	Flipped           bool     `json:"flipped"`
	Varenr            string   `json:"varenr,omitempty"`
	UnavailableNotice string   `json:"unavailable_notice,omitempty"`
	MismatchNotice    string   `json:"mismatch_notice,omitempty"`
	VariantName       string   `json:"variant_name,omitempty"`
	ActiveSubstances  *Section `json:"active_substances,omitempty"`
	Indications       *Section `json:"indications,omitempty"`
	SourceURL         string   `json:"source_url,omitempty"`
}

// CurrentProjection builds the view of the current card, or the no-cards sentinel.
func (d *Deck) CurrentProjection() Projection {
	if len(d.active) == 0 {
		return Projection{Empty: true, Question: NoCardsText}
	}
	p := Project(d.active[d.position])
	p.Flipped = d.flipped
	return p
}

// Project builds the view of a single record.
func Project(r MedicationRecord) Projection {
	p := Projection{
		Question: r.InputName,
		Found:    r.Found,
	}

	if !r.Found {
		p.UnavailableNotice = UnavailableText
		p.Varenr = r.Varenr
		return p
	}

	p.Varenr = r.Varenr
	if p.Varenr == "" {
		p.Varenr = VarenrPlaceholder
	}

	if !r.ExactMatch {
		p.MismatchNotice = mismatchNoticePrefix + r.VariantName
		p.VariantName = r.VariantName
	}

	p.ActiveSubstances = newSection(r.ActiveSubstances, NoSubstancesText)
	p.Indications = newSection(r.Indications, NoIndicationsText)
	p.SourceURL = r.SourceURL

	return p
}

func newSection(items []string, placeholder string) *Section {
	s := &Section{Items: make([]string, len(items))}
	copy(s.Items, items)
	if len(items) == 0 {
		s.Placeholder = placeholder
	}
	return s
}

// Progress summarises the position within the active deck.
type Progress struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Known   int     `json:"known"`
	Viewed  int     `json:"viewed"`
	Percent float64 `json:"percent"`
}

// Progress reports the one-based position and completion percentage.
// An empty deck reports zero for the positional fields.
func (d *Deck) Progress() Progress {
	p := Progress{
		Known:  len(d.known),
		Viewed: len(d.viewed),
	}
	if len(d.active) == 0 {
		return p
	}
	p.Current = d.position + 1
	p.Total = len(d.active)
	p.Percent = float64(p.Current) / float64(p.Total) * 100
	return p
}
