package contract

import "errors"

var (
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model response violates schema")
	ErrEmptyResponse     = errors.New("model returned empty response")
	ErrPromptMissing     = errors.New("required prompt is missing")
	ErrValidation        = errors.New("validation failed")
	ErrSearchUnavailable = errors.New("web search unavailable")
	ErrMemoryUnavailable = errors.New("long-term memory unavailable")
)
