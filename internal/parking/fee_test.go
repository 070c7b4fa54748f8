package parking

import "testing"

func TestCalculateFee(t *testing.T) {
	pricing := testPricing()

	tests := []struct {
		name    string
		minutes int
		want    float64
	}{
		{"zero minutes", 0, 0},
		{"within grace", 10, 0},
		{"exactly grace", 15, 0},
		{"one past grace bills first hour", 16, 5.00},
		{"full first hour", 60, 5.00},
		{"one past an hour bills the next", 65, 10.00},
		{"two full hours", 120, 10.00},
		{"long stay hits daily cap", 700, 50.00},
		{"negative duration is free", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateFee(pricing, tt.minutes); got != tt.want {
				t.Errorf("CalculateFee(%d) = %.2f, want %.2f", tt.minutes, got, tt.want)
			}
		})
	}
}

func TestCalculateFee_ZeroGrace(t *testing.T) {
	pricing := Pricing{HourlyRate: 2.5, DailyMaxRate: 20.0, GracePeriodMinutes: 0}

	if got := CalculateFee(pricing, 1); got != 2.50 {
		t.Errorf("CalculateFee(1) with zero grace = %.2f, want 2.50", got)
	}
	if got := CalculateFee(pricing, 0); got != 0 {
		t.Errorf("CalculateFee(0) = %.2f, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h"},
		{125, "2h 5m"},
		{-3, "0m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestNormalizeCardUID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"lowercase hex", "a1b2c3d4", "A1B2C3D4", false},
		{"already normalised", "A1B2C3D4", "A1B2C3D4", false},
		{"surrounding whitespace", "  a1b2c3d4 ", "A1B2C3D4", false},
		{"7-byte DESFire UID", "04a1b2c3d4e5f6", "04A1B2C3D4E5F6", false},
		{"too short", "A1B2C3", "", true},
		{"too long", "A1B2C3D4E5F6A1B2C3D4E5", "", true},
		{"non-hex", "NOTAHEX1", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCardUID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeCardUID(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeCardUID(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeCardUID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
