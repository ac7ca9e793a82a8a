package progress

import "testing"

func TestPercentage(t *testing.T) {
	cases := []struct {
		completed, total int
		want             float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 2, 50},
		{1, 3, 100.0 / 3.0},
		{2, 2, 100},
		{5, 2, 100},
	}
	for _, tc := range cases {
		if got := Percentage(tc.completed, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d,%d): want=%v got=%v", tc.completed, tc.total, tc.want, got)
		}
	}
}
