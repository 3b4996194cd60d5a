package agent

import (
	"strings"

	"github.com/MrSnowNB/project-alice/internal/types"
)

// Category labels a classified failure for the recovery planner.
type Category string

const (
	CategoryAuthFailed     Category = "auth_failed"
	CategoryForbidden      Category = "forbidden"
	CategoryRateLimited    Category = "rate_limited"
	CategoryNotFound       Category = "not_found"
	CategoryExecutionError Category = "execution_error"
	CategoryUnknown        Category = "unknown"
)

// failureSignatures are substrings that mark a capability payload as a
// failure or an unhelpful result even when the capability itself
// reported success. Keys appear both with and without a space after the
// colon so hand-written and machine-serialized payloads both match.
var failureSignatures = []string{
	`"status":"error"`,
	`"status": "error"`,
	`"status":"script_error"`,
	`"status": "script_error"`,
	`"status":"command_error"`,
	`"status": "command_error"`,
	`"status":"execution_error"`,
	`"status": "execution_error"`,
	`"error":`,
	`"result":"No`,
	`"result": "No`,
	`Search returned an empty URL`,
}

// Classify inspects a capability result and reports whether the turn
// failed, with the failure category when it did.
func Classify(result types.Message) (bool, Category) {
	if result.Status == types.ResultError {
		return true, Categorize(result.Content)
	}
	for _, sig := range failureSignatures {
		if strings.Contains(result.Content, sig) {
			return true, Categorize(result.Content)
		}
	}
	return false, ""
}

// Categorize maps a failure payload onto the recovery taxonomy using
// case-insensitive substring heuristics. Payloads that match nothing
// are CategoryUnknown.
func Categorize(payload string) Category {
	p := strings.ToLower(payload)
	switch {
	case strings.Contains(p, "401") || strings.Contains(p, "unauthorized"):
		return CategoryAuthFailed
	case strings.Contains(p, "403") || strings.Contains(p, "forbidden"):
		return CategoryForbidden
	case strings.Contains(p, "429") || strings.Contains(p, "too many requests") || strings.Contains(p, "rate limit"):
		return CategoryRateLimited
	case strings.Contains(p, "404") || strings.Contains(p, "not found"):
		return CategoryNotFound
	case strings.Contains(p, "script_error") || strings.Contains(p, "command_error") ||
		strings.Contains(p, "execution_error") || strings.Contains(p, "non-zero exit") ||
		strings.Contains(p, "exception"):
		return CategoryExecutionError
	default:
		return CategoryUnknown
	}
}
