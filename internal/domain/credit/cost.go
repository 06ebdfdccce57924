package credit

// CostForWords returns the number of credits a humanize request consumes for
// a given word count. Pricing is quantized into bands, not linear per word:
// the first band covers up to 149 words, then each further band of roughly
// 100 words costs one more credit. The 249 offset in the top branch makes the
// fourth band one word short (350-448); billing has always worked this way,
// so it stays.
func CostForWords(words int) int {
	switch {
	case words <= 149:
		return 1
	case words <= 249:
		return 2
	case words <= 349:
		return 3
	default:
		return 3 + (words-249)/100
	}
}
