//go:build !integration

package usecase

import (
	"errors"
	"testing"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
)

func TestParseOracleOutput(t *testing.T) {
	t.Run("client tag is stripped from the reply", func(t *testing.T) {
		cmd, _ := ParseOracleOutput("Здравствуйте! Напишите даты заезда. client")
		if cmd.Kind != model.CommandReply {
			t.Fatalf("expected reply, got %v", cmd.Kind)
		}
		if cmd.Text != "Здравствуйте! Напишите даты заезда." {
			t.Fatalf("unexpected text %q", cmd.Text)
		}
	})

	t.Run("untagged text reads as a reply", func(t *testing.T) {
		cmd, _ := ParseOracleOutput("Уточните, пожалуйста, даты")
		if cmd.Kind != model.CommandReply || cmd.Text != "Уточните, пожалуйста, даты" {
			t.Fatalf("unexpected command %+v", cmd)
		}
	})

	t.Run("empty output is unknown and malformed", func(t *testing.T) {
		cmd, err := ParseOracleOutput("   ")
		if cmd.Kind != model.CommandUnknown {
			t.Fatalf("expected unknown, got %v", cmd.Kind)
		}
		if !errors.Is(err, domain.ErrMalformedOracleOutput) {
			t.Fatalf("expected ErrMalformedOracleOutput, got %v", err)
		}
	})

	t.Run("search command with numbers", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`admin {"type": 1, "checkin": "2026-09-10", "checkout": "2026-09-15", "guests": 2}`)
		if cmd.Kind != model.CommandSearch {
			t.Fatalf("expected search, got %v", cmd.Kind)
		}
		if cmd.CheckIn != "2026-09-10" || cmd.CheckOut != "2026-09-15" || cmd.Guests != 2 {
			t.Fatalf("unexpected fields %+v", cmd)
		}
	})

	t.Run("search defaults to one guest", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`admin {"type": 1, "checkin": "2026-09-10", "checkout": "2026-09-15"}`)
		if cmd.Guests != 1 {
			t.Fatalf("expected 1 guest, got %d", cmd.Guests)
		}
	})

	t.Run("string-encoded numbers are accepted", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`admin {"type": "3", "price": "18000"}`)
		if cmd.Kind != model.CommandSelect || cmd.Price != 18000 {
			t.Fatalf("unexpected command %+v", cmd)
		}
	})

	t.Run("select by list index", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`admin {"type": 3, "choice": 2}`)
		if cmd.Kind != model.CommandSelect || cmd.Choice != 2 || cmd.Price != 0 {
			t.Fatalf("unexpected command %+v", cmd)
		}
	})

	t.Run("payment, instruction and lookup types", func(t *testing.T) {
		cases := map[string]model.CommandKind{
			`admin {"type": 4}`: model.CommandConfirmPayment,
			`admin {"type": 5}`: model.CommandInstructions,
			`admin {"type": 7}`: model.CommandInstructionLookup,
		}
		for raw, want := range cases {
			if cmd, _ := ParseOracleOutput(raw); cmd.Kind != want {
				t.Fatalf("%s: expected %v, got %v", raw, want, cmd.Kind)
			}
		}
	})

	t.Run("unknown type is preserved as unknown", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`admin {"type": 9}`)
		if cmd.Kind != model.CommandUnknown || cmd.Raw == "" {
			t.Fatalf("unexpected command %+v", cmd)
		}
	})

	t.Run("json embedded in prose is extracted", func(t *testing.T) {
		cmd, _ := ParseOracleOutput(`Вот команда: admin {"type": 1, "checkin": "2026-09-10", "checkout": "2026-09-11"} спасибо`)
		if cmd.Kind != model.CommandSearch {
			t.Fatalf("expected search, got %v", cmd.Kind)
		}
	})

	t.Run("admin without json but with booking keyword", func(t *testing.T) {
		cmd, _ := ParseOracleOutput("забронировал admin")
		if cmd.Kind != model.CommandExternalLookup {
			t.Fatalf("expected external lookup, got %v", cmd.Kind)
		}
	})

	t.Run("admin with broken json and no keyword is malformed", func(t *testing.T) {
		cmd, err := ParseOracleOutput(`admin {"type": `)
		if cmd.Kind != model.CommandUnknown {
			t.Fatalf("expected unknown, got %v", cmd.Kind)
		}
		if !errors.Is(err, domain.ErrMalformedOracleOutput) {
			t.Fatalf("expected ErrMalformedOracleOutput, got %v", err)
		}
	})
}

func TestFirstJSONObject(t *testing.T) {
	t.Run("braces inside strings do not unbalance", func(t *testing.T) {
		obj, ok := firstJSONObject(`admin {"type": 1, "note": "скобка } внутри"} tail`)
		if !ok {
			t.Fatal("expected an object")
		}
		if obj != `{"type": 1, "note": "скобка } внутри"}` {
			t.Fatalf("unexpected object %q", obj)
		}
	})

	t.Run("nested objects close at the outer brace", func(t *testing.T) {
		obj, ok := firstJSONObject(`{"a": {"b": 1}}`)
		if !ok || obj != `{"a": {"b": 1}}` {
			t.Fatalf("unexpected result %q %v", obj, ok)
		}
	})

	t.Run("unterminated object is rejected", func(t *testing.T) {
		if _, ok := firstJSONObject(`{"a": 1`); ok {
			t.Fatal("expected no object")
		}
	})
}

func TestDigitSequence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"+7 701 123 45 67", "77011234567"},
		{"77011234567@c.us", "77011234567"},
		{"без цифр", ""},
	}
	for _, tc := range cases {
		if got := digitSequence(tc.in); got != tc.want {
			t.Fatalf("digitSequence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
