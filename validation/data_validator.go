// Package validation inspects loaded datasets and request input for the flash card API.
package validation

import (
	"fmt"
	"strings"

	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxReportedURLs bounds the invalid URL samples kept in a report
const maxReportedURLs = 10

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	validate *validator.Validate
}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ReportDataQuality counts the dataset and lists what a maintainer should fix.
// Nothing here rejects the dataset; the loader already enforced the input contract.
func (v *DataValidatorImpl) ReportDataQuality(records []deck.MedicationRecord) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		Total:             len(records),
		InvalidSourceURLs: []string{},
		DuplicateKeys:     []deck.Key{},
	}

	// Check 1: found / missing / inexact
	for _, r := range records {
		if !r.Found {
			report.Missing++
			continue
		}
		report.Found++
		if !r.ExactMatch {
			report.InexactMatches++
		}
		if len(r.ActiveSubstances) == 0 {
			report.WithoutSubstances++
		}
		if len(r.Indications) == 0 {
			report.WithoutIndications++
		}
	}

	// Check 2: duplicate composite keys. They collapse into one known entry.
	seen := make(map[deck.Key]int, len(records))
	for _, r := range records {
		key := r.Key()
		seen[key]++
		if seen[key] == 2 {
			report.DuplicateKeys = append(report.DuplicateKeys, key)
		}
	}

	// Check 3: source links that would not open (store first 10)
	for _, r := range records {
		if r.SourceURL == "" {
			continue
		}
		if err := v.validate.Var(r.SourceURL, "http_url"); err != nil {
			if len(report.InvalidSourceURLs) < maxReportedURLs {
				report.InvalidSourceURLs = append(report.InvalidSourceURLs, r.SourceURL)
			}
		}
	}

	if len(report.DuplicateKeys) > 0 {
		keys := make([]string, len(report.DuplicateKeys))
		for i, k := range report.DuplicateKeys {
			keys[i] = k.String()
		}
		logging.Warn("Duplicate medication keys detected",
			"count", len(report.DuplicateKeys),
			"keys", keys,
		)
	}

	if len(report.InvalidSourceURLs) > 0 {
		logging.Warn("Invalid source URLs in dataset", "samples", report.InvalidSourceURLs)
	}

	return report
}

// ValidateSessionID parses a session identifier from a URL path segment.
// Only the canonical 36 character form is accepted.
func (v *DataValidatorImpl) ValidateSessionID(input string) (uuid.UUID, error) {
	if strings.TrimSpace(input) == "" {
		return uuid.Nil, fmt.Errorf("session id cannot be empty")
	}

	if len(input) != 36 {
		return uuid.Nil, fmt.Errorf("session id should have 36 characters")
	}

	id, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil, fmt.Errorf("session id is not a valid UUID")
	}

	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("session id cannot be the nil UUID")
	}

	return id, nil
}
