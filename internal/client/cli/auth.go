package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/imagegen/internal/common"
)

// getSimpleText and getToken are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getToken = GetToken

var errLoginFailed = errors.New("login failed: token rejected")

// Login asks for an API token and validates it against the backend. Tokens
// shorter than common.MinTokenLength are refused locally.
func (a *App) Login(ctx context.Context) error {
	token, err := getToken(a.reader, a.out)
	if err != nil {
		return err
	}
	if !common.ValidTokenFormat(token) {
		return common.ErrInvalidToken
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if !a.session.Login(ctx, token) {
		return errLoginFailed
	}
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

// Logout forgets the token locally. Any running generation is cancelled.
func (a *App) Logout(ctx context.Context) error {
	a.gen.Reset()
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// WhoAmI re-checks the token and prints what is known about it.
func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	id, err := a.api.GetIdentity(ctx)
	if err != nil {
		return err
	}
	printIdentity(a.out, common.MaskToken(a.session.Token()), id.Status, id.Timestamp)
	if exp, ok := a.session.ExpiresAt(); ok {
		fmt.Fprintf(a.out, "Expires: %s\n", exp.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printIdentity(w io.Writer, token, status, ts string) {
	fmt.Fprintf(w, "Token:   %s\n", token)
	fmt.Fprintf(w, "Status:  %s\n", status)
	if ts != "" {
		fmt.Fprintf(w, "Server:  %s\n", ts)
	}
}
