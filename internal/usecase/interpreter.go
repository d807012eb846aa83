package usecase

import (
	"encoding/json"
	"strconv"
	"strings"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
)

const bookingKeyword = "забронировал"

// ParseOracleOutput turns raw oracle text into a closed Command. The oracle
// is untrusted free text: markers can be missing, the JSON malformed, the
// type unknown. Untagged text degrades to CommandReply; output that carries
// no usable command at all comes back as CommandUnknown with
// domain.ErrMalformedOracleOutput.
func ParseOracleOutput(raw string) (model.Command, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.Contains(trimmed, "client") {
		text := strings.TrimSpace(strings.ReplaceAll(trimmed, " client", ""))
		text = strings.TrimSpace(strings.TrimSuffix(text, "client"))
		return model.Command{Kind: model.CommandReply, Text: text, Raw: raw}, nil
	}

	if !strings.Contains(trimmed, "admin") {
		// Untagged output still reads as a customer reply when non-empty.
		if trimmed != "" {
			return model.Command{Kind: model.CommandReply, Text: trimmed, Raw: raw}, nil
		}
		return model.Command{Kind: model.CommandUnknown, Raw: raw}, domain.ErrMalformedOracleOutput
	}

	if obj, ok := firstJSONObject(trimmed); ok {
		if cmd, ok := commandFromJSON(obj, raw); ok {
			return cmd, nil
		}
	}

	if strings.Contains(trimmed, bookingKeyword) {
		return model.Command{Kind: model.CommandExternalLookup, Raw: raw}, nil
	}

	return model.Command{Kind: model.CommandUnknown, Raw: raw}, domain.ErrMalformedOracleOutput
}

// firstJSONObject extracts the first balanced brace-delimited object.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// flexNumber accepts both number and string encodings, because the oracle
// is not consistent about them.
type flexNumber string

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = flexNumber(s)
	return nil
}

// oracleCommand mirrors the JSON shape the system prompt asks for.
type oracleCommand struct {
	Type     flexNumber `json:"type"`
	CheckIn  string     `json:"checkin"`
	CheckOut string     `json:"checkout"`
	Guests   flexNumber `json:"guests"`
	Price    flexNumber `json:"price"`
	Choice   flexNumber `json:"choice"`
}

func commandFromJSON(obj, raw string) (model.Command, bool) {
	var oc oracleCommand
	if err := json.Unmarshal([]byte(obj), &oc); err != nil {
		return model.Command{}, false
	}

	switch asInt(oc.Type) {
	case 1:
		guests := asInt(oc.Guests)
		if guests <= 0 {
			guests = 1
		}
		return model.Command{
			Kind:     model.CommandSearch,
			CheckIn:  oc.CheckIn,
			CheckOut: oc.CheckOut,
			Guests:   guests,
			Raw:      raw,
		}, true
	case 3:
		return model.Command{
			Kind:   model.CommandSelect,
			Price:  asInt64(oc.Price),
			Choice: asInt(oc.Choice),
			Raw:    raw,
		}, true
	case 4:
		return model.Command{Kind: model.CommandConfirmPayment, Raw: raw}, true
	case 5:
		return model.Command{Kind: model.CommandInstructions, Raw: raw}, true
	case 7:
		return model.Command{Kind: model.CommandInstructionLookup, Raw: raw}, true
	default:
		return model.Command{Kind: model.CommandUnknown, Raw: raw}, true
	}
}

func asInt(n flexNumber) int {
	v, err := strconv.Atoi(string(n))
	if err != nil {
		return 0
	}
	return v
}

func asInt64(n flexNumber) int64 {
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// digitSequence collapses text to its digits, the shared phone normalization.
func digitSequence(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
