package command

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"whatsapp: 15551234567", "whatsapp:+15551234567"},
		{"whatsapp:+15551234567", "whatsapp:+15551234567"},
		{"whatsapp: 1 555 123", "whatsapp:+1 555 123"},
		{"whatsapp: +1 555", "whatsapp:+1 555"},
		{"whatsapp: +15551234567", "whatsapp:+15551234567"},
		{"whatsapp: 1 whatsapp: 2", "whatsapp:+1 whatsapp: 2"},
		{"+15551234567", "+15551234567"},
		{"12345 678", "12345 678"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
