package services

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/dmitrijs2005/imagegen/internal/logging"
	"github.com/google/uuid"
)

type GenerationStatus int

const (
	StatusIdle GenerationStatus = iota
	StatusGenerating
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s GenerationStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusGenerating:
		return "generating"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether s ends a generation.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// GenerationSnapshot is a copy of the controller state.
type GenerationSnapshot struct {
	Status   GenerationStatus
	HandleID string
	Request  models.GenerationRequest
	Result   *models.GenerationResult
	Err      error

	// Side effects of a finished generation. Their failure never changes Status.
	LatestImage string
	LatestErr   error
	Archived    []string
	ArchiveErr  error
}

// Message is the text to show for the snapshot's error, if any.
func (s GenerationSnapshot) Message() string {
	return client.UserMessage(s.Err)
}

// Archiver copies generated images somewhere durable before their public
// URLs expire. It returns the locations written.
type Archiver interface {
	Archive(ctx context.Context, res *models.GenerationResult) ([]string, error)
}

// Generator drives one generate/cancel interaction at a time.
//
// A second Generate while one is in flight cancels and replaces the first;
// the replaced call returns a cancelled snapshot and its late response is
// discarded. At most one cancellation handle is live.
type Generator interface {
	// Generate blocks until the outcome is known. The error is
	// common.ErrEmptyPrompt for an empty positive prompt (nothing is sent and
	// the state is left alone), the failure cause when the generation failed,
	// and nil when it completed or was cancelled.
	Generate(ctx context.Context, req models.GenerationRequest) (GenerationSnapshot, error)
	// Cancel aborts the in-flight generation. It returns false when there is
	// nothing to cancel.
	Cancel() bool
	// Reset cancels anything in flight and returns to idle.
	Reset()
	InFlight() bool
	Snapshot() GenerationSnapshot
	Subscribe(fn func(GenerationSnapshot)) func()
}

type generationHandle struct {
	id     string
	cancel context.CancelFunc
}

type GeneratorOption func(*generator)

// WithArchiver archives the images of every completed generation.
func WithArchiver(a Archiver) GeneratorOption {
	return func(g *generator) { g.archiver = a }
}

type generator struct {
	api      client.Client
	log      logging.Logger
	archiver Archiver

	mu      sync.Mutex
	current *generationHandle
	state   GenerationSnapshot
	subs    map[int]func(GenerationSnapshot)
	next    int
}

func NewGenerator(api client.Client, log logging.Logger, opts ...GeneratorOption) Generator {
	if log == nil {
		log = logging.Nop()
	}
	g := &generator{
		api:  api,
		log:  log.With("component", "generator"),
		subs: make(map[int]func(GenerationSnapshot)),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *generator) Generate(ctx context.Context, req models.GenerationRequest) (GenerationSnapshot, error) {
	req = req.Normalize()
	if req.Positive == "" {
		snap := g.Snapshot()
		snap.Err = common.ErrEmptyPrompt
		return snap, common.ErrEmptyPrompt
	}

	callCtx, cancel := context.WithCancel(ctx)
	h := &generationHandle{id: uuid.NewString(), cancel: cancel}
	log := g.log.With("generation_id", h.id)

	g.mu.Lock()
	if prev := g.current; prev != nil {
		prev.cancel()
		log.Info(ctx, "replacing in-flight generation", "replaced_id", prev.id)
	}
	g.current = h
	g.state = GenerationSnapshot{Status: StatusGenerating, HandleID: h.id, Request: req}
	g.publishLocked()

	log.Info(ctx, "generation started")
	res, err := g.api.GenerateImage(callCtx, req)
	cancel()

	g.mu.Lock()
	if g.current != h {
		g.mu.Unlock()
		log.Debug(ctx, "discarding response of retired generation")
		return GenerationSnapshot{Status: StatusCancelled, HandleID: h.id, Request: req}, nil
	}
	g.current = nil
	next := GenerationSnapshot{HandleID: h.id, Request: req}
	switch {
	case err == nil:
		next.Status = StatusCompleted
		next.Result = res
	case errors.Is(err, client.ErrCancelled):
		next.Status = StatusCancelled
	default:
		next.Status = StatusFailed
		next.Err = err
	}
	g.state = next
	g.publishLocked()

	switch next.Status {
	case StatusCompleted:
		log.Info(ctx, "generation completed", "seed", res.Seed, "images", len(res.Images))
	case StatusFailed:
		log.Warn(ctx, "generation failed", "error", err)
	default:
		log.Info(ctx, "generation cancelled")
		return next, nil
	}

	g.followUp(ctx, h, next)

	snap := g.Snapshot()
	if snap.HandleID != h.id {
		snap = next
	}
	if snap.Status == StatusFailed {
		return snap, snap.Err
	}
	return snap, nil
}

// followUp runs the best-effort side effects of a finished generation and
// applies them only if no newer generation has started meanwhile.
func (g *generator) followUp(ctx context.Context, h *generationHandle, done GenerationSnapshot) {
	log := g.log.With("generation_id", h.id)

	latest, latestErr := g.api.GetLatestImage(ctx)
	if latestErr != nil {
		log.Warn(ctx, "latest image refresh failed", "error", latestErr)
	}

	var archived []string
	var archiveErr error
	if done.Status == StatusCompleted && g.archiver != nil && len(done.Result.Images) > 0 {
		archived, archiveErr = g.archiver.Archive(ctx, done.Result)
		if archiveErr != nil {
			log.Warn(ctx, "archiving failed", "error", archiveErr)
		} else {
			log.Info(ctx, "images archived", "objects", len(archived))
		}
	}

	g.mu.Lock()
	if g.state.HandleID != h.id || g.current != nil {
		g.mu.Unlock()
		return
	}
	g.state.LatestImage = latest
	g.state.LatestErr = latestErr
	g.state.Archived = archived
	g.state.ArchiveErr = archiveErr
	g.publishLocked()
}

func (g *generator) Cancel() bool {
	g.mu.Lock()
	h := g.current
	if h == nil {
		g.mu.Unlock()
		return false
	}
	h.cancel()
	g.current = nil
	g.state = GenerationSnapshot{Status: StatusCancelled, HandleID: h.id, Request: g.state.Request}
	g.publishLocked()

	g.log.Info(context.Background(), "generation cancelled", "generation_id", h.id)
	return true
}

func (g *generator) Reset() {
	g.mu.Lock()
	if g.current != nil {
		g.current.cancel()
		g.current = nil
	}
	g.state = GenerationSnapshot{}
	g.publishLocked()
}

func (g *generator) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil
}

func (g *generator) Snapshot() GenerationSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *generator) Subscribe(fn func(GenerationSnapshot)) func() {
	g.mu.Lock()
	id := g.next
	g.next++
	g.subs[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// publishLocked copies the state and listeners, releases g.mu and notifies.
func (g *generator) publishLocked() {
	snap := g.state
	subs := make([]func(GenerationSnapshot), 0, len(g.subs))
	for _, f := range g.subs {
		subs = append(subs, f)
	}
	g.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
}
