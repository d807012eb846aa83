package model

// Apartment is read-mostly reference data keyed by the external apartment id.
// Records are managed out-of-band by the operations team.
type Apartment struct {
	ID               string
	Address          string
	Title            string
	InstructionLinks []string
	InstructionText  string
}
