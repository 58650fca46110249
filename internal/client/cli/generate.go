package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/client/services"
	"github.com/dmitrijs2005/imagegen/internal/common"
)

// Generate starts an image generation in the background and returns at once.
// With an index argument the saved prompt is used; otherwise the prompts are
// read interactively. The outcome is printed when it is known.
func (a *App) Generate(ctx context.Context, args []string) error {
	req, err := a.generationRequest(ctx, args)
	if err != nil {
		return err
	}
	req = req.Normalize()
	if req.Positive == "" {
		return common.ErrEmptyPrompt
	}

	if a.gen.InFlight() {
		fmt.Fprintln(a.out, "Replacing the running generation.")
	}
	fmt.Fprintln(a.out, "Generating...")

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		gctx, cancel := a.callCtx(ctx)
		defer cancel()

		snap, _ := a.gen.Generate(gctx, req)
		printGeneration(a.out, snap)
	}()
	return nil
}

func (a *App) generationRequest(ctx context.Context, args []string) (models.GenerationRequest, error) {
	if len(args) > 0 {
		idx, err := parseIndex(args)
		if err != nil {
			return models.GenerationRequest{}, err
		}
		p, ok := a.prompts.Get(idx)
		if !ok {
			rctx, cancel := a.callCtx(ctx)
			_, err := a.prompts.Refresh(rctx)
			cancel()
			if err != nil {
				return models.GenerationRequest{}, err
			}
			if p, ok = a.prompts.Get(idx); !ok {
				return models.GenerationRequest{}, common.ErrInvalidIndex
			}
		}
		return p.Request(), nil
	}

	positive, err := getSimpleText(a.reader, "Positive prompt", a.out)
	if err != nil {
		return models.GenerationRequest{}, err
	}
	negative, err := getSimpleText(a.reader, "Negative prompt (optional)", a.out)
	if err != nil {
		return models.GenerationRequest{}, err
	}
	return models.GenerationRequest{Positive: positive, Negative: negative}, nil
}

// Cancel aborts the running generation, if any.
func (a *App) Cancel(_ context.Context) error {
	if !a.gen.Cancel() {
		fmt.Fprintln(a.out, "Nothing to cancel.")
	}
	return nil
}

func printGeneration(w io.Writer, snap services.GenerationSnapshot) {
	switch snap.Status {
	case services.StatusCompleted:
		res := snap.Result
		fmt.Fprintf(w, "Generation completed, seed %d.\n", res.Seed)
		for _, img := range res.Images {
			line := fmt.Sprintf("  [%d] %s", img.Index, img.PublicURL)
			if exp := img.ExpiresAt(res.ReceivedAt); !exp.IsZero() {
				line += " (valid until " + exp.Local().Format(time.TimeOnly) + ")"
			}
			fmt.Fprintln(w, line)
		}
		if snap.LatestImage != "" {
			fmt.Fprintf(w, "Latest image: %s\n", snap.LatestImage)
		}
		for _, key := range snap.Archived {
			fmt.Fprintf(w, "Archived: %s\n", key)
		}
		if snap.ArchiveErr != nil {
			fmt.Fprintf(w, "Archiving failed: %v\n", snap.ArchiveErr)
		}
	case services.StatusFailed:
		fmt.Fprintf(w, "Generation failed: %s\n", snap.Message())
	case services.StatusCancelled:
		fmt.Fprintln(w, "Generation cancelled.")
	}
}
