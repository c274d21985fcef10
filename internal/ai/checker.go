package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CheckerRetryDirective is appended to the user prompt when the first
// checker reply did not parse. One retry, then the turn commits without
// deltas.
const CheckerRetryDirective = "\n\nYour previous reply was not valid JSON. Reply with the JSON object only, no prose and no code fences."

// CheckerResult is the state-delta document the Checker model emits after
// reading the Writer's prose. Unknown keys are discarded at parse time;
// the engine validates every delta again before applying it.
type CheckerResult struct {
	Safety            Safety                       `json:"safety"`
	Meters            map[string]map[string]string `json:"meters"`
	Flags             map[string]any               `json:"flags"`
	Inventory         map[string]map[string]string `json:"inventory"`
	Clothing          map[string]map[string]string `json:"clothing"`
	Modifiers         map[string][]ModifierOp      `json:"modifiers"`
	Location          *LocationRef                 `json:"location"`
	EventsFired       []string                     `json:"events_fired"`
	NodeTransition    string                       `json:"node_transition"`
	CharacterMemories map[string]string            `json:"character_memories"`
	NarrativeSummary  string                       `json:"narrative_summary"`
}

type Safety struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations"`
}

// ModifierOp applies or removes one modifier on a character.
type ModifierOp struct {
	Apply       string `json:"apply,omitempty"`
	Remove      string `json:"remove,omitempty"`
	DurationMin int    `json:"duration_min,omitempty"`
}

type LocationRef struct {
	Zone string `json:"zone"`
	ID   string `json:"id"`
}

// checkerKeys names the schema fields the parser keeps. Anything else the
// model invents is dropped silently.
var checkerKeys = map[string]bool{
	"safety": true, "meters": true, "flags": true, "inventory": true,
	"clothing": true, "modifiers": true, "location": true,
	"events_fired": true, "node_transition": true,
	"character_memories": true, "narrative_summary": true,
}

// ParseChecker parses a checker reply. It tolerates prose or code fences
// around the JSON object but is strict about the object itself: a known key
// with the wrong shape fails the whole parse so the caller can retry.
// A missing safety block means no violations.
func ParseChecker(raw string) (*CheckerResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		extracted := extractJSON(raw)
		if extracted == "" {
			return nil, fmt.Errorf("checker: no JSON object in reply")
		}
		if err := json.Unmarshal([]byte(extracted), &fields); err != nil {
			return nil, fmt.Errorf("checker: parse reply: %w", err)
		}
	}

	out := &CheckerResult{Safety: Safety{OK: true}}
	for key, val := range fields {
		if !checkerKeys[key] {
			continue
		}
		var err error
		switch key {
		case "safety":
			err = json.Unmarshal(val, &out.Safety)
		case "meters":
			err = json.Unmarshal(val, &out.Meters)
		case "flags":
			err = json.Unmarshal(val, &out.Flags)
		case "inventory":
			err = json.Unmarshal(val, &out.Inventory)
		case "clothing":
			err = json.Unmarshal(val, &out.Clothing)
		case "modifiers":
			err = json.Unmarshal(val, &out.Modifiers)
		case "location":
			err = json.Unmarshal(val, &out.Location)
		case "events_fired":
			err = json.Unmarshal(val, &out.EventsFired)
		case "node_transition":
			err = json.Unmarshal(val, &out.NodeTransition)
		case "character_memories":
			err = json.Unmarshal(val, &out.CharacterMemories)
		case "narrative_summary":
			err = json.Unmarshal(val, &out.NarrativeSummary)
		}
		if err != nil {
			return nil, fmt.Errorf("checker: field %s: %w", key, err)
		}
	}
	return out, nil
}

// ParseDelta parses the checker numeric grammar: "+5" and "-3" are relative,
// "=40" is absolute. Plain numbers are rejected so the model cannot be
// ambiguous about intent.
func ParseDelta(s string) (set bool, n float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, 0, fmt.Errorf("empty delta")
	}
	switch s[0] {
	case '+', '-':
		n, err = strconv.ParseFloat(s, 64)
		return false, n, err
	case '=':
		n, err = strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
		return true, n, err
	default:
		return false, 0, fmt.Errorf("delta %q must start with +, - or =", s)
	}
}

// extractJSON finds the first balanced JSON object in a reply, skipping
// markdown fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
