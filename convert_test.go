package barowatch

import (
	"math"
	"testing"
)

func TestConversions(t *testing.T) {
	cases := []struct {
		name string
		got  float64
		want float64
	}{
		{"Celsius", Celsius(2015), 20.15},
		{"Fahrenheit", Fahrenheit(2000), 68},
		{"Fahrenheit negative", Fahrenheit(-4000), -40},
		{"Millibar", Millibar(10005), 1000.5},
		{"Pascal", Pascal(10005), 100050},
		{"Bar", Bar(10005), 1.0005},
	}

	for _, tc := range cases {
		if math.Abs(tc.got-tc.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}
