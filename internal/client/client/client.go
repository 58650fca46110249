package client

import (
	"context"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
)

// Client is the transport-agnostic contract for the image-generation backend.
//
// Every call is stateless apart from the attached bearer token. No call is
// retried and nothing is cached.
type Client interface {
	GetIdentity(ctx context.Context) (*models.Identity, error)

	ListPrompts(ctx context.Context) ([]models.Prompt, error)
	AddPrompt(ctx context.Context, in models.PromptInput) (models.Ack, error)
	UpdatePrompt(ctx context.Context, index int, in models.PromptInput) (models.Ack, error)
	DeletePrompt(ctx context.Context, index int) (models.Ack, error)

	GenerateImage(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)

	SetReservedInstances(ctx context.Context, target int) (*models.ReservedInstancesAck, error)
	GetReservedInstancesStatus(ctx context.Context) (int, error)
	GetLogs(ctx context.Context) (string, error)
	GetLatestImage(ctx context.Context) (string, error)
	GetCoupons(ctx context.Context) (float64, error)

	SetToken(token string)
	ClearToken()
	Token() string

	// WithToken returns an independent client carrying token. The receiver
	// is left untouched.
	WithToken(token string) Client
}
