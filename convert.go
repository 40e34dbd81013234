package barowatch

// Unit helpers for the values Compensate returns: temperature in centidegrees
// Celsius, pressure in tenths of a millibar.

// Celsius converts a compensated temperature to degrees Celsius.
func Celsius(centi int32) float64 {
	return float64(centi) / 100
}

// Fahrenheit converts a compensated temperature to degrees Fahrenheit.
func Fahrenheit(centi int32) float64 {
	return Celsius(centi)*9/5 + 32
}

// Millibar converts a compensated pressure to millibar (hPa).
func Millibar(p int32) float64 {
	return float64(p) / 10
}

// Pascal converts a compensated pressure to pascals.
func Pascal(p int32) float64 {
	return float64(p) * 10
}

// Bar converts a compensated pressure to bar.
func Bar(p int32) float64 {
	return float64(p) / 10000
}
