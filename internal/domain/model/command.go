package model

// CommandKind discriminates oracle commands. The oracle tags its output with
// an audience marker; "admin" output carries a JSON object whose numeric
// "type" field maps onto one of these variants.
type CommandKind int

const (
	// CommandUnknown covers unrecognized or missing type discriminators.
	CommandUnknown CommandKind = iota
	// CommandReply is a verbatim customer-facing reply ("client" tag).
	CommandReply
	// CommandSearch is a date-ranged availability search (type 1).
	CommandSearch
	// CommandSelect picks a candidate by price or list index (type 3).
	CommandSelect
	// CommandConfirmPayment verifies payment for the pending booking (type 4).
	CommandConfirmPayment
	// CommandInstructions fetches move-in instructions (type 5).
	CommandInstructions
	// CommandInstructionLookup finds a booking made on another channel and
	// returns its move-in instructions (type 7).
	CommandInstructionLookup
	// CommandExternalLookup quotes a booking made on another channel and
	// continues to payment; recognized by keyword, not a numeric type.
	CommandExternalLookup
)

// Command is the closed result of interpreting one oracle response. Only the
// fields relevant to its Kind are populated.
type Command struct {
	Kind CommandKind

	// CommandReply
	Text string

	// CommandSearch
	CheckIn  string
	CheckOut string
	Guests   int

	// CommandSelect: either a quoted price or a 1-based list index.
	Price  int64
	Choice int

	// CommandUnknown keeps the raw oracle output for logging.
	Raw string
}
