package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ListPrompts(ctx context.Context) error
	AddPrompt(ctx context.Context) error
	EditPrompt(ctx context.Context, args []string) error
	DeletePrompt(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
	Cancel(ctx context.Context) error
	Latest(ctx context.Context) error
	Reserved(ctx context.Context, args []string) error
	Logs(ctx context.Context, args []string) error
	Coupons(ctx context.Context) error
}

const (
	helpGuest  = "Available commands: login, help, exit"
	helpMember = "Available commands: prompts, addprompt, editprompt <i>, delprompt <i>, " +
		"generate [#i], cancel, latest, reserved [on|off|toggle], logs [follow], coupons, whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the imagegen CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on a. Everything but help, login and exit requires
// a logged-in session. The loop exits on EOF, on "exit"/"quit", or when ctx
// is done.
//
// Errors returned by handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("imagegen %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpMember)
			} else {
				printlnFn(helpGuest)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "login":
			report(a.Login(ctx))
			continue
		}

		if !a.isLoggedIn() {
			if isKnown(cmd) {
				printlnFn("Please log in first")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		var cmdErr error
		switch cmd {
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "prompts", "ls":
			cmdErr = a.ListPrompts(ctx)
		case "addprompt":
			cmdErr = a.AddPrompt(ctx)
		case "editprompt":
			cmdErr = a.EditPrompt(ctx, args)
		case "delprompt":
			cmdErr = a.DeletePrompt(ctx, args)
		case "generate", "gen":
			cmdErr = a.Generate(ctx, args)
		case "cancel":
			cmdErr = a.Cancel(ctx)
		case "latest":
			cmdErr = a.Latest(ctx)
		case "reserved":
			cmdErr = a.Reserved(ctx, args)
		case "logs":
			cmdErr = a.Logs(ctx, args)
		case "coupons":
			cmdErr = a.Coupons(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
		report(cmdErr)
	}
}

func isKnown(cmd string) bool {
	switch cmd {
	case "logout", "whoami", "prompts", "ls", "addprompt", "editprompt", "delprompt",
		"generate", "gen", "cancel", "latest", "reserved", "logs", "coupons":
		return true
	}
	return false
}

func report(err error) {
	if err != nil {
		printlnFn("Error:", client.UserMessage(err))
	}
}
