package constants

import "testing"

func TestParseOS(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"22", Ventura},
		{"Ventura", Ventura},
		{"big sur", BigSur},
		{"BigSur", BigSur},
		{" El Capitan ", ElCapitan},
	}
	for _, tt := range tests {
		got, err := ParseOS(tt.in)
		if err != nil {
			t.Fatalf("ParseOS(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseOS(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseOS("Sonoma Beta"); err == nil {
		t.Error("expected error for unknown release")
	}
}

func TestOSName(t *testing.T) {
	if name := OSName(Monterey); name != "Monterey" {
		t.Errorf("got %q", name)
	}
	if name := OSName(30); name != "Darwin 30" {
		t.Errorf("got %q", name)
	}
}
