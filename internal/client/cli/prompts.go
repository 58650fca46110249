package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/common"
)

// ListPrompts fetches the saved prompts and prints them.
func (a *App) ListPrompts(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	list, err := a.prompts.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No prompts saved.")
		return nil
	}
	for _, p := range list {
		printPrompt(a, p)
	}
	return nil
}

func printPrompt(a *App, p models.Prompt) {
	fmt.Fprintf(a.out, "#%d  %s\n", p.Index, p.Positive)
	if p.Negative != "" {
		fmt.Fprintf(a.out, "     negative: %s\n", p.Negative)
	}
}

// AddPrompt asks for a positive and an optional negative prompt and saves them.
func (a *App) AddPrompt(ctx context.Context) error {
	positive, err := getSimpleText(a.reader, "Positive prompt", a.out)
	if err != nil {
		return err
	}
	if strings.TrimSpace(positive) == "" {
		return common.ErrEmptyPrompt
	}
	negative, err := getSimpleText(a.reader, "Negative prompt (optional)", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	ack, err := a.prompts.Add(ctx, positive, negative)
	if err != nil {
		return err
	}
	printAck(a, ack, "Prompt added.")
	return nil
}

// EditPrompt replaces the prompt at the given index. Empty answers keep the
// current value when the prompt is known locally.
func (a *App) EditPrompt(ctx context.Context, args []string) error {
	idx, err := parseIndex(args)
	if err != nil {
		return err
	}
	cur, known := a.prompts.Get(idx)
	if known {
		printPrompt(a, cur)
	}

	positive, err := getSimpleText(a.reader, "New positive prompt", a.out)
	if err != nil {
		return err
	}
	negative, err := getSimpleText(a.reader, "New negative prompt", a.out)
	if err != nil {
		return err
	}
	if known {
		if strings.TrimSpace(positive) == "" {
			positive = cur.Positive
		}
		if strings.TrimSpace(negative) == "" {
			negative = cur.Negative
		}
	}
	if strings.TrimSpace(positive) == "" {
		return common.ErrEmptyPrompt
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	ack, err := a.prompts.Update(ctx, idx, positive, negative)
	if err != nil {
		return err
	}
	printAck(a, ack, "Prompt updated.")
	return nil
}

// DeletePrompt removes the prompt at the given index.
func (a *App) DeletePrompt(ctx context.Context, args []string) error {
	idx, err := parseIndex(args)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	ack, err := a.prompts.Delete(ctx, idx)
	if err != nil {
		return err
	}
	printAck(a, ack, "Prompt deleted.")
	return nil
}

// parseIndex reads a prompt index given as "3" or "#3".
func parseIndex(args []string) (int, error) {
	if len(args) == 0 {
		return 0, common.ErrInvalidIndex
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || n < 0 {
		return 0, common.ErrInvalidIndex
	}
	return n, nil
}

func printAck(a *App, ack models.Ack, fallback string) {
	if ack.Message != "" {
		fmt.Fprintln(a.out, ack.Message)
		return
	}
	fmt.Fprintln(a.out, fallback)
}
