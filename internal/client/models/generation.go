package models

import (
	"strings"
	"time"
)

// GenerationRequest exists for the duration of one generate call.
// Positive is required; Negative may be empty.
type GenerationRequest struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Normalize trims surrounding whitespace from both prompts.
func (r GenerationRequest) Normalize() GenerationRequest {
	return GenerationRequest{
		Positive: strings.TrimSpace(r.Positive),
		Negative: strings.TrimSpace(r.Negative),
	}
}

// ImageResult describes one generated image. The backing resource of
// PublicURL may disappear ExpiresIn seconds after the response.
type ImageResult struct {
	Index     int    `json:"index"`
	OSSPath   string `json:"oss_path"`
	PublicURL string `json:"public_url"`
	ExpiresIn int    `json:"expires_in"`
}

// ExpiresAt returns when PublicURL stops being valid, given the time the
// response was received. A non-positive ExpiresIn yields the zero time.
func (i ImageResult) ExpiresAt(receivedAt time.Time) time.Time {
	if i.ExpiresIn <= 0 {
		return time.Time{}
	}
	return receivedAt.Add(time.Duration(i.ExpiresIn) * time.Second)
}

// GenerationResult is the outcome of a successful generation.
type GenerationResult struct {
	Seed       int64
	Positive   string
	Negative   string
	Images     []ImageResult
	ReceivedAt time.Time
}
