package utils

import "testing"

func TestCostMinutes(t *testing.T) {
	tests := []struct {
		name string
		args float64
		want int
	}{
		{name: "zero", args: 0, want: 0},
		{name: "negative", args: -5, want: 0},
		{name: "under minute", args: 59, want: 1},
		{name: "minute", args: 60, want: 1},
		{name: "over minute", args: 61, want: 2},
		{name: "fraction", args: 125.4, want: 3},
		{name: "long", args: 600, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CostMinutes(tt.args); got != tt.want {
				t.Errorf("CostMinutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumberOr(t *testing.T) {
	tests := []struct {
		name string
		args string
		want float64
	}{
		{name: "empty", args: "", want: 5},
		{name: "value", args: "10", want: 10},
		{name: "spaces", args: " 2.5 ", want: 2.5},
		{name: "zero", args: "0", want: 0},
		{name: "negative", args: "-1", want: 5},
		{name: "invalid", args: "abc", want: 5},
		{name: "nan", args: "NaN", want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NumberOr(tt.args, 5); got != tt.want {
				t.Errorf("NumberOr() = %v, want %v", got, tt.want)
			}
		})
	}
}
