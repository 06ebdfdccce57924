package humanize

type RewriteRequest struct {
	Text   string `json:"text" validate:"required"`
	Tone   int    `json:"tone" validate:"gte=0,lte=4"`
	Length int    `json:"length" validate:"gte=0,lte=2"`
}

type RewriteResponse struct {
	Output    string `json:"output"`
	Words     int    `json:"words"`
	Cost      int    `json:"cost"`
	Remaining int    `json:"remaining"`
}
