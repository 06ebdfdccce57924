package credit

import "testing"

func TestCostForWords(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1},
		{1, 1},
		{50, 1},
		{149, 1},
		{150, 2},
		{200, 2},
		{249, 2},
		{250, 3},
		{300, 3},
		{349, 3},
		{350, 4},
		{448, 4},
		{449, 5},
		{450, 5},
		{548, 5},
		{549, 6},
		{1000, 10},
	}

	for _, tt := range tests {
		if got := CostForWords(tt.words); got != tt.want {
			t.Errorf("CostForWords(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}
