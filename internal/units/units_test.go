package units

import (
	"math"
	"testing"
)

func TestConvertArea(t *testing.T) {
	tests := []struct {
		name     string
		areaMM2  float64
		units    string
		expected float64
	}{
		{"800 mm2 to cm2", 800.0, CM2, 8.0},
		{"800 mm2 to mm2", 800.0, MM2, 800.0},
		{"unknown units default to mm2", 800.0, "unknown", 800.0},
		{"0 mm2 to cm2", 0.0, CM2, 0.0},
		{"open field 40000 mm2 to cm2", 40000.0, CM2, 400.0},
		{"sub-square-cm aperture", 42.5, CM2, 0.425},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertArea(tt.areaMM2, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertArea(%f, %s) = %f, want %f", tt.areaMM2, tt.units, result, tt.expected)
			}
		})
	}
}

func TestConvertLength(t *testing.T) {
	tests := []struct {
		name     string
		lengthMM float64
		units    string
		expected float64
	}{
		{"25 mm to cm", 25.0, CM2, 2.5},
		{"25 mm stays mm", 25.0, MM2, 25.0},
		{"unknown units default to mm", 25.0, "furlongs", 25.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertLength(tt.lengthMM, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertLength(%f, %s) = %f, want %f", tt.lengthMM, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mm2", MM2, true},
		{"valid cm2", CM2, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "MM2", false},
		{"case sensitive mixed", "Cm2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "mm2, cm2"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}
