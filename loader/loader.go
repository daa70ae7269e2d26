// Package loader fetches the medication dataset from a file or an HTTP(S) URL and
// turns it into deck records. A load either fully succeeds or returns a *LoadError.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/giygas/vetflash-api/config"
	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/logging"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/charmap"
)

// FallbackMessage is shown to users when the dataset cannot be loaded
const FallbackMessage = "Kunne ikke indlæse medicin data. Prøv at genindlæse siden."

// maxDatasetSize bounds how much of a response or file is read
const maxDatasetSize = 64 * 1024 * 1024

// ErrEmptyResponse is wrapped by LoadError when the source returned nothing
var ErrEmptyResponse = errors.New("empty response")

// LoadError reports a failed dataset load
type LoadError struct {
	Source  string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Compile-time check to ensure Loader implements the Loader interface
var _ interfaces.Loader = (*Loader)(nil)

// Loader reads the dataset from its configured source
type Loader struct {
	source   string
	client   *http.Client
	validate *validator.Validate
}

// NewLoader creates a loader for a file path or http(s) URL
func NewLoader(source string) *Loader {
	return &Loader{
		source: source,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithHTTPClient replaces the client used for remote sources
func (l *Loader) WithHTTPClient(client *http.Client) *Loader {
	l.client = client
	return l
}

// Source returns the configured source
func (l *Loader) Source() string {
	return l.source
}

// Load fetches, decodes and checks the dataset
func (l *Loader) Load(ctx context.Context) ([]deck.MedicationRecord, error) {
	start := time.Now()

	body, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &LoadError{Source: l.source, Message: "dataset is empty", Err: ErrEmptyResponse}
	}

	records, err := l.parse(body)
	if err != nil {
		return nil, err
	}

	logging.Debug("Dataset loaded", "source", l.source, "records", len(records), "duration", time.Since(start).String())
	return records, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if config.IsRemoteSource(l.source) {
		return l.fetchRemote(ctx)
	}
	return l.readFile()
}

func (l *Loader) readFile() ([]byte, error) {
	path := filepath.Clean(l.source)

	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: l.source, Message: "cannot open dataset file", Err: err}
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close dataset file", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(file, maxDatasetSize))
	if err != nil {
		return nil, &LoadError{Source: l.source, Message: "cannot read dataset file", Err: err}
	}
	return body, nil
}

func (l *Loader) fetchRemote(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, &LoadError{Source: l.source, Message: "invalid dataset request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	response, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: l.source, Message: "failed to download dataset", Err: err}
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &LoadError{Source: l.source, Message: fmt.Sprintf("HTTP error! status: %d", response.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDatasetSize))
	if err != nil {
		return nil, &LoadError{Source: l.source, Message: "failed to read response body", Err: err}
	}
	return body, nil
}

// parse decodes the JSON array, accepting ISO-8859-1 input
func (l *Loader) parse(body []byte) ([]deck.MedicationRecord, error) {
	if !utf8.Valid(body) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return nil, &LoadError{Source: l.source, Message: "dataset is neither UTF-8 nor ISO-8859-1", Err: err}
		}
		body = decoded
	}

	var raw []rawRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &LoadError{Source: l.source, Message: "invalid dataset JSON", Err: err}
	}
	if raw == nil {
		return nil, &LoadError{Source: l.source, Message: "dataset is not a list", Err: ErrEmptyResponse}
	}

	records := make([]deck.MedicationRecord, 0, len(raw))
	for i := range raw {
		if err := l.validate.Struct(&raw[i]); err != nil {
			return nil, &LoadError{Source: l.source, Message: fmt.Sprintf("record %d breaks the input contract", i), Err: err}
		}
		records = append(records, raw[i].toRecord())
	}

	return records, nil
}
