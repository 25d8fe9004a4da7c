package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrRateLimited indicates the vendor returned HTTP 429.
type ErrRateLimited struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimited) Unwrap() error { return e.Err }

// ErrBadOutput indicates the model produced content that does not parse
// or does not satisfy the requested schema.
type ErrBadOutput struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrBadOutput) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *ErrBadOutput) Unwrap() error { return e.Err }

// ErrUnavailable indicates the vendor is unreachable or failing.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrTruncated indicates the response hit the MaxTokens ceiling.
type ErrTruncated struct {
	Content json.RawMessage
}

func (e *ErrTruncated) Error() string {
	return "model response truncated at max tokens"
}
