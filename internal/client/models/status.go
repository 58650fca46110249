package models

// Identity is the payload of the identity check endpoint.
type Identity struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Ack is the success flag and message returned by mutating endpoints.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReservedInstancesAck is the response to a reserved-instance target change.
type ReservedInstancesAck struct {
	Ack
	Data      map[string]any `json:"data,omitempty"`
	Recommend string         `json:"recommend,omitempty"`
}

// Reserved-instance targets.
const (
	ReservedOff = 0
	ReservedOn  = 1
)
