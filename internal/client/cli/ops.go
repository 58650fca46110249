package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/client/services"
	"github.com/dmitrijs2005/imagegen/internal/common"
)

// Latest prints the URL of the most recent image.
func (a *App) Latest(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	url, err := a.ops.LatestImage(ctx)
	if err != nil {
		return err
	}
	if url == "" {
		fmt.Fprintln(a.out, "No image yet.")
		return nil
	}
	fmt.Fprintln(a.out, url)
	return nil
}

// Reserved shows or changes the reserved-instance target.
//
//	reserved           print the current status
//	reserved on|off    set the target
//	reserved toggle    flip the current status
func (a *App) Reserved(ctx context.Context, args []string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if len(args) == 0 {
		st, err := a.ops.ReservedStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Reserved instances: %s\n", onOff(st))
		return nil
	}

	var (
		ack    *models.ReservedInstancesAck
		target int
		err    error
	)
	switch args[0] {
	case "on", "1":
		target = models.ReservedOn
		ack, err = a.ops.SetReserved(ctx, true)
	case "off", "0":
		target = models.ReservedOff
		ack, err = a.ops.SetReserved(ctx, false)
	case "toggle":
		ack, target, err = a.ops.ToggleReserved(ctx)
	default:
		return common.ErrInvalidTarget
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Reserved instances: %s\n", onOff(target))
	if ack != nil {
		if ack.Message != "" {
			fmt.Fprintln(a.out, ack.Message)
		}
		if ack.Recommend != "" {
			fmt.Fprintf(a.out, "Recommendation: %s\n", ack.Recommend)
		}
	}
	return nil
}

func onOff(v int) string {
	if v == models.ReservedOn {
		return "on"
	}
	return "off"
}

// Logs prints new backend log lines. "logs follow" keeps polling until the
// user presses Enter.
func (a *App) Logs(ctx context.Context, args []string) error {
	f := services.NewLogFollower(a.api, a.pollInterval(), a.out, a.log)

	if len(args) > 0 && args[0] == "follow" {
		fctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			f.Run(fctx)
		}()
		fmt.Fprintln(a.out, "Following logs, press Enter to stop.")
		_, _ = readLine(a.reader)
		cancel()
		<-done
		return nil
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	chunk, err := f.Poll(ctx)
	if err != nil {
		return err
	}
	if chunk == "" {
		fmt.Fprintln(a.out, "No new log lines.")
	}
	return nil
}

// Coupons prints the remaining coupon balance.
func (a *App) Coupons(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	bal, err := a.ops.Coupons(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Coupon balance: %s\n", strconv.FormatFloat(bal, 'f', -1, 64))
	return nil
}
