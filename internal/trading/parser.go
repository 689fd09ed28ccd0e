package trading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dyike/ValueArena/models"
)

// FallbackNotes is stored as research notes when a payload cannot be read.
const FallbackNotes = "Failed to parse model response."

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON picks the candidate text out of a model reply: a ```json
// fenced block, else the outermost brace span, else the raw text.
func extractJSON(payload string) string {
	if m := fencedJSON.FindStringSubmatch(payload); m != nil {
		return m[1]
	}
	if m := braceSpan.FindString(payload); m != "" {
		return m
	}
	return payload
}

// ParseDecision reads a decision payload. It never fails: an unreadable
// payload yields an empty trade list with FallbackNotes and ParseError set.
// Trades are normalized; shape problems within a single trade are left to
// the caller through TradeIntent.Validate.
func ParseDecision(payload string) *models.Decision {
	d, err := decodeDecision(extractJSON(payload))
	if err != nil {
		return &models.Decision{
			ResearchNotes: FallbackNotes,
			Trades:        []models.TradeIntent{},
			ParseError:    err.Error(),
		}
	}
	for i := range d.Trades {
		d.Trades[i].Normalize()
	}
	return d
}

func decodeDecision(text string) (*models.Decision, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty payload")
	}

	// shape check first: trades must be a list when present
	var shape map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &shape); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if raw, ok := shape["trades"]; ok {
		raw = bytes.TrimSpace(raw)
		if !bytes.Equal(raw, []byte("null")) && (len(raw) == 0 || raw[0] != '[') {
			return nil, errors.New("trades is not a list")
		}
	}

	var d models.Decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		// one malformed trade should not cost the notes
		trades, notes := decodeLenient(shape)
		d = models.Decision{ResearchNotes: notes, Trades: trades}
	}
	if d.Trades == nil {
		d.Trades = []models.TradeIntent{}
	}
	return &d, nil
}

// decodeLenient decodes trades one by one, dropping the ones that do not
// fit the TradeIntent shape.
func decodeLenient(shape map[string]json.RawMessage) ([]models.TradeIntent, string) {
	var notes string
	if raw, ok := shape["research_notes"]; ok {
		_ = json.Unmarshal(raw, &notes)
	}

	var raws []json.RawMessage
	_ = json.Unmarshal(shape["trades"], &raws)
	trades := make([]models.TradeIntent, 0, len(raws))
	for _, raw := range raws {
		var t models.TradeIntent
		if err := json.Unmarshal(raw, &t); err == nil {
			trades = append(trades, t)
		}
	}
	return trades, notes
}
