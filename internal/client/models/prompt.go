// Package models defines the client-side data shapes exchanged with the
// image-generation backend.
package models

// EncodedPrompt is the backend's encoded form of a prompt pair.
type EncodedPrompt struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Prompt is a saved (positive, negative) pair. Index is assigned by the
// backend and is unique; it is not necessarily stable across insertions.
type Prompt struct {
	Index    int           `json:"index"`
	Positive string        `json:"positive"`
	Negative string        `json:"negative"`
	Encoded  EncodedPrompt `json:"encoded"`
}

// PromptInput is the request body for creating or updating a prompt.
type PromptInput struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Request turns a saved prompt into a generation request.
func (p Prompt) Request() GenerationRequest {
	return GenerationRequest{Positive: p.Positive, Negative: p.Negative}
}
