package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/logging"
)

// PromptService manages the saved prompt pairs. The backend is authoritative;
// the service keeps the last fetched list and re-fetches it after every
// successful add, update or delete.
type PromptService interface {
	Refresh(ctx context.Context) ([]models.Prompt, error)
	// List returns the cached prompts in backend order.
	List() []models.Prompt
	Get(index int) (models.Prompt, bool)
	Add(ctx context.Context, positive, negative string) (models.Ack, error)
	Update(ctx context.Context, index int, positive, negative string) (models.Ack, error)
	Delete(ctx context.Context, index int) (models.Ack, error)
}

type promptService struct {
	api client.Client
	log logging.Logger

	mu      sync.RWMutex
	prompts []models.Prompt
}

func NewPromptService(api client.Client, log logging.Logger) PromptService {
	if log == nil {
		log = logging.Nop()
	}
	return &promptService{api: api, log: log.With("component", "prompts")}
}

func (s *promptService) Refresh(ctx context.Context) ([]models.Prompt, error) {
	prompts, err := s.api.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.prompts = append([]models.Prompt(nil), prompts...)
	s.mu.Unlock()

	s.log.Debug(ctx, "prompts refreshed", "count", len(prompts))
	return s.List(), nil
}

func (s *promptService) List() []models.Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Prompt(nil), s.prompts...)
}

func (s *promptService) Get(index int) (models.Prompt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prompts {
		if p.Index == index {
			return p, true
		}
	}
	return models.Prompt{}, false
}

func (s *promptService) Add(ctx context.Context, positive, negative string) (models.Ack, error) {
	ack, err := s.api.AddPrompt(ctx, models.PromptInput{Positive: positive, Negative: negative})
	return s.afterMutation(ctx, "add", -1, ack, err)
}

func (s *promptService) Update(ctx context.Context, index int, positive, negative string) (models.Ack, error) {
	ack, err := s.api.UpdatePrompt(ctx, index, models.PromptInput{Positive: positive, Negative: negative})
	return s.afterMutation(ctx, "update", index, ack, err)
}

func (s *promptService) Delete(ctx context.Context, index int) (models.Ack, error) {
	ack, err := s.api.DeletePrompt(ctx, index)
	return s.afterMutation(ctx, "delete", index, ack, err)
}

func (s *promptService) afterMutation(ctx context.Context, op string, index int, ack models.Ack, err error) (models.Ack, error) {
	log := s.log.With("op", op)
	if index >= 0 {
		log = log.With("prompt_index", index)
	}
	if err != nil {
		log.Warn(ctx, "prompt mutation failed", "error", err)
		return ack, err
	}
	log.Info(ctx, "prompt mutation applied", "message", ack.Message)

	if _, err := s.Refresh(ctx); err != nil {
		return ack, fmt.Errorf("refresh prompts: %w", err)
	}
	return ack, nil
}
