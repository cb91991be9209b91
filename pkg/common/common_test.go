package common

import "testing"

func TestContactName(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		want    string
	}{
		{name: "both parts", contact: Contact{FirstName: "Ada", LastName: "Lovelace"}, want: "Ada Lovelace"},
		{name: "first only", contact: Contact{FirstName: "Ada"}, want: "Ada"},
		{name: "last only", contact: Contact{LastName: "Lovelace"}, want: "Lovelace"},
		{name: "empty", contact: Contact{}, want: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contact.Name(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
