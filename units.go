package main

import "math"

// This file contains the temperature unit helpers. Snapshots always store
// Celsius; these helpers convert for display only.

// TemperatureUnit is the unit system used for display.
type TemperatureUnit string

const (
	UnitMetric   TemperatureUnit = "metric"
	UnitImperial TemperatureUnit = "imperial"
)

// ConvertTemperature converts a temperature between unit systems and rounds
// to the nearest integer. Matching units are an identity conversion (still
// rounded).
func ConvertTemperature(value float64, from, to TemperatureUnit) int {
	if from == to {
		return int(math.Round(value))
	}
	if from == UnitMetric && to == UnitImperial {
		return int(math.Round(value*9/5 + 32))
	}
	if from == UnitImperial && to == UnitMetric {
		return int(math.Round((value - 32) * 5 / 9))
	}
	return int(math.Round(value))
}

// TemperatureSymbol returns the display symbol for a unit system.
func TemperatureSymbol(unit TemperatureUnit) string {
	if unit == UnitImperial {
		return "°F"
	}
	return "°C"
}

// UnitLabel returns the human-readable name of a unit system.
func UnitLabel(unit TemperatureUnit) string {
	if unit == UnitImperial {
		return "Fahrenheit"
	}
	return "Celsius"
}
