package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAccountID checks parsing never panics and valid ids round-trip.
func FuzzParseAccountID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAccountID(input)
		if err == nil {
			roundTrip, err2 := ParseAccountID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

func FuzzParseGrievanceID(f *testing.F) {
	f.Add("GRV-2025-000001")
	f.Add("grv-2025-123456")
	f.Add("GRV-2025-1234567")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseGrievanceID(input)
		if err != nil {
			return
		}
		again, err := ParseGrievanceID(id.String())
		if err != nil || again != id {
			t.Errorf("parsed id %q is not stable", id)
		}
	})
}
