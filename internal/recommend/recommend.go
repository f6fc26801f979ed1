// Package recommend suggests trip destinations near a source city within a
// budget.  It builds a prompt, sends it to a text generator and parses the
// JSON array out of the free-text reply.  It keeps no state.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/iliyamo/tripmate/internal/service"
)

// ErrNoPlaces is returned when a reply holds no JSON array.
var ErrNoPlaces = errors.New("reply contains no JSON array")

// Budget is an amount in rupees.  Clients send it as a number or a string.
type Budget string

func (b *Budget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Budget(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("budget must be a number or a string: %w", err)
	}
	*b = Budget(n.String())
	return nil
}

// Missing reports whether no usable budget was given.  Zero counts as
// missing.
func (b Budget) Missing() bool {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == 0 {
		return true
	}
	return false
}

// Request is the body of a recommendation call.
type Request struct {
	Source string `json:"source"`
	Budget Budget `json:"budget"`
}

// Place is one suggested destination.
type Place struct {
	Place          string `json:"place"`
	Description    string `json:"description"`
	Transportation string `json:"transportation"`
}

// Generator turns a prompt into free text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service answers recommendation requests.
type Service struct {
	gen Generator
	log *slog.Logger
}

func NewService(gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, log: logger.With("component", "recommend")}
}

// Recommend returns the places suggested for req.  A missing source or
// budget is a validation error; any generator or parse failure is an
// internal error.
func (s *Service) Recommend(ctx context.Context, req Request) ([]Place, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" || req.Budget.Missing() {
		return nil, service.Validation("Source and budget are required")
	}

	reply, err := s.gen.Generate(ctx, BuildPrompt(source, string(req.Budget)))
	if err != nil {
		s.log.ErrorContext(ctx, "generation failed", "source", source, "error", err)
		return nil, service.Internal("Something went wrong while recommending places", err)
	}
	places, err := ExtractPlaces(reply)
	if err != nil {
		s.log.ErrorContext(ctx, "unparseable reply", "source", source, "error", err)
		return nil, service.Internal("Something went wrong while recommending places", err)
	}
	return places, nil
}

// ExtractPlaces parses the text between the first '[' and the last ']' of
// reply.
func ExtractPlaces(reply string) ([]Place, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, ErrNoPlaces
	}
	var places []Place
	if err := json.Unmarshal([]byte(reply[start:end+1]), &places); err != nil {
		return nil, fmt.Errorf("decode places: %w", err)
	}
	if places == nil {
		places = []Place{}
	}
	return places, nil
}
