package cli

import (
	"bufio"
	"context"
	"io"
	"testing"

	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubToken(t *testing.T, token string) {
	t.Helper()
	orig := getToken
	getToken = func(_ *bufio.Reader, _ io.Writer) (string, error) { return token, nil }
	t.Cleanup(func() { getToken = orig })
}

func TestLogin_ShortTokenIsRejectedLocally(t *testing.T) {
	e := newTestEnv(t, "")
	stubToken(t, "short")

	err := e.app.Login(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Equal(t, 0, e.srv.Calls(""))
}

func TestLogin_WrongToken(t *testing.T) {
	e := newTestEnv(t, "")
	stubToken(t, "tok-not-the-right-one")

	err := e.app.Login(context.Background())
	assert.ErrorIs(t, err, errLoginFailed)
	assert.False(t, e.app.isLoggedIn())

	tok, err := e.store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestLogin_Logout(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "")
	stubToken(t, testToken)

	require.NoError(t, e.app.Login(ctx))
	assert.True(t, e.app.isLoggedIn())

	require.NoError(t, e.app.WhoAmI(ctx))
	assert.Contains(t, e.out.String(), "Status:  ok")
	assert.Contains(t, e.out.String(), common.MaskToken(testToken))

	require.NoError(t, e.app.Logout(ctx))
	assert.False(t, e.app.isLoggedIn())
	tok, err := e.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
