package core

import "testing"

func TestNextOrder(t *testing.T) {
	cases := []struct {
		name     string
		existing []int
		want     int
	}{
		{"empty scope", nil, 0},
		{"single item", []int{0}, 1},
		{"contiguous", []int{0, 1, 2}, 3},
		{"gaps tolerated", []int{0, 2, 7}, 8},
		{"unordered input", []int{5, 1, 3}, 6},
		{"negative values", []int{-3, -1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextOrder(tc.existing); got != tc.want {
				t.Fatalf("NextOrder(%v) = %d, want %d", tc.existing, got, tc.want)
			}
		})
	}
}

func TestNextOrderIsStrictlyGreater(t *testing.T) {
	existing := []int{4, 9, 9, 2}
	got := NextOrder(existing)
	for _, v := range existing {
		if got <= v {
			t.Fatalf("NextOrder returned %d, not greater than existing %d", got, v)
		}
	}
}
