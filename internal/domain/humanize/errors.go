package humanize

import "errors"

var (
	ErrTextTooShort = errors.New("text is below the minimum word count")
	ErrRateLimited  = errors.New("too many rewrite requests")
	ErrInternal     = errors.New("internal humanize error")
)
