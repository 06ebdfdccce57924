package humanizer

import "testing"

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "   \n\t ", 0},
		{"single word", "hello", 1},
		{"simple sentence", "the quick brown fox", 4},
		{"leading and trailing space", "  padded text here  ", 3},
		{"newlines and tabs", "one\ntwo\tthree", 3},
		{"multiple spaces", "a  b   c", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
