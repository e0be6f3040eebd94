package units

import "testing"

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	if IsValid("furlong") {
		t.Error("IsValid(furlong) = true, want false")
	}
	if IsValid("") {
		t.Error("IsValid(\"\") = true, want false")
	}
}

func TestToAngstrom(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  float64
	}{
		{1, Angstrom, 1},
		{1, Nanometer, 10},
		{1, Micrometer, 1e4},
		{7.84, Angstrom, 7.84},
		{0.784, Nanometer, 7.84},
		{3, "unknown", 3},
	}
	for _, tt := range tests {
		if got := ToAngstrom(tt.value, tt.unit); !almostEqual(got, tt.want) {
			t.Errorf("ToAngstrom(%v, %q) = %v, want %v", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestFromAngstrom(t *testing.T) {
	if got := FromAngstrom(10, Nanometer); !almostEqual(got, 1) {
		t.Errorf("FromAngstrom(10, nm) = %v, want 1", got)
	}
	if got := FromAngstrom(1e4, Micrometer); !almostEqual(got, 1) {
		t.Errorf("FromAngstrom(1e4, um) = %v, want 1", got)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, u := range ValidUnits {
		v := FromAngstrom(ToAngstrom(12.5, u), u)
		if !almostEqual(v, 12.5) {
			t.Errorf("round trip through %q = %v, want 12.5", u, v)
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
