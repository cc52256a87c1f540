package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertTemperature(t *testing.T) {
	testCases := []struct {
		name     string
		value    float64
		from     TemperatureUnit
		to       TemperatureUnit
		expected int
	}{
		{name: "identity metric rounds down", value: 15.4, from: UnitMetric, to: UnitMetric, expected: 15},
		{name: "identity metric rounds up", value: 15.5, from: UnitMetric, to: UnitMetric, expected: 16},
		{name: "identity imperial", value: 59.0, from: UnitImperial, to: UnitImperial, expected: 59},
		{name: "metric to imperial", value: 15.0, from: UnitMetric, to: UnitImperial, expected: 59},
		{name: "metric to imperial negative", value: -40.0, from: UnitMetric, to: UnitImperial, expected: -40},
		{name: "imperial to metric", value: 59.0, from: UnitImperial, to: UnitMetric, expected: 15},
		{name: "freezing point", value: 0.0, from: UnitMetric, to: UnitImperial, expected: 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ConvertTemperature(tc.value, tc.from, tc.to))
		})
	}
}

// A metric->imperial->metric round trip may drift by one degree because
// both directions round, but never more.
func TestConvertTemperatureRoundTrip(t *testing.T) {
	for temp := -50.0; temp <= 50.0; temp += 0.7 {
		f := ConvertTemperature(temp, UnitMetric, UnitImperial)
		back := ConvertTemperature(float64(f), UnitImperial, UnitMetric)
		drift := math.Abs(float64(back) - math.Round(temp))
		assert.LessOrEqual(t, drift, 1.0, "round trip drift too large for %.1f", temp)
	}
}

func TestTemperatureSymbol(t *testing.T) {
	assert.Equal(t, "°C", TemperatureSymbol(UnitMetric))
	assert.Equal(t, "°F", TemperatureSymbol(UnitImperial))
}

func TestUnitLabel(t *testing.T) {
	assert.Equal(t, "Celsius", UnitLabel(UnitMetric))
	assert.Equal(t, "Fahrenheit", UnitLabel(UnitImperial))
}
