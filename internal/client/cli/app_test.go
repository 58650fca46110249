package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/apitest"
	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/config"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-abcdefghij"

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type testEnv struct {
	app   *App
	srv   *apitest.Server
	store *metadata.SQLiteTokenStore
	out   *syncBuffer
}

// newTestEnv builds an App against a fake backend and a file-backed store.
// script is what the user types on stdin.
func newTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()
	ctx := context.Background()

	srv := apitest.New(testToken)
	t.Cleanup(srv.Close)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "imagegen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = srv.URL
	cfg.RequestTimeout = 5 * time.Second
	cfg.LogPollInterval = 10 * time.Millisecond

	store := metadata.NewSQLiteTokenStore(db)
	out := &syncBuffer{}
	a := newApp(cfg, client.NewHTTPClient(srv.URL), store, nil, bufio.NewReader(strings.NewReader(script)), out)
	capturePrintln(t)
	return &testEnv{app: a, srv: srv, store: store, out: out}
}

// loggedIn persists the valid token and restores the session.
func (e *testEnv) loggedIn(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, e.store.Save(context.Background(), testToken, time.Now()))
	require.True(t, e.app.session.Restore(context.Background()).Authenticated)
	return e
}

// answers stubs interactive text input with the given replies, in order.
func answers(t *testing.T, replies ...string) {
	t.Helper()
	orig := getSimpleText
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(replies) == 0 {
			return "", io.EOF
		}
		r := replies[0]
		replies = replies[1:]
		return r, nil
	}
	t.Cleanup(func() { getSimpleText = orig })
}

func TestApp_RunRestoresSession(t *testing.T) {
	e := newTestEnv(t, "exit\n")
	require.NoError(t, e.store.Save(context.Background(), testToken, time.Now()))

	e.app.Run(context.Background())

	assert.Contains(t, e.out.String(), "Session restored.")
	assert.True(t, e.app.isLoggedIn())
	assert.Equal(t, 1, e.srv.Calls("GET /info"))
}

func TestApp_RunAsksForToken(t *testing.T) {
	e := newTestEnv(t, "exit\n")
	stubToken(t, testToken)

	e.app.Run(context.Background())

	assert.Contains(t, e.out.String(), "Logged in.")
	tok, err := e.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testToken, tok)
}

func TestApp_Status(t *testing.T) {
	e := newTestEnv(t, "")
	assert.Equal(t, "[guest]", e.app.status())

	e.loggedIn(t)
	assert.Equal(t, "["+common.MaskToken(testToken)+"]", e.app.status())
}

func TestApp_PromptCommands(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "").loggedIn(t)

	answers(t, "a cat", "", "a dog", "blurry")
	require.NoError(t, e.app.AddPrompt(ctx))
	require.NoError(t, e.app.AddPrompt(ctx))

	require.NoError(t, e.app.ListPrompts(ctx))
	out := e.out.String()
	assert.Contains(t, out, "#0  a cat\n")
	assert.Contains(t, out, "#1  a dog\n")
	assert.Contains(t, out, "negative: blurry")

	answers(t, "", "low quality")
	require.NoError(t, e.app.EditPrompt(ctx, []string{"#0"}))
	got := e.srv.Prompts()
	require.Len(t, got, 2)
	assert.Equal(t, "a cat", got[0].Positive)
	assert.Equal(t, "low quality", got[0].Negative)

	require.NoError(t, e.app.DeletePrompt(ctx, []string{"1"}))
	assert.Len(t, e.srv.Prompts(), 1)
	assert.Len(t, e.app.prompts.List(), 1)
}

func TestApp_PromptValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "").loggedIn(t)

	answers(t, "   ")
	assert.ErrorIs(t, e.app.AddPrompt(ctx), common.ErrEmptyPrompt)
	assert.ErrorIs(t, e.app.DeletePrompt(ctx, nil), common.ErrInvalidIndex)
	assert.ErrorIs(t, e.app.EditPrompt(ctx, []string{"-1"}), common.ErrInvalidIndex)
	assert.Equal(t, 0, e.srv.Calls("POST /prompts"))
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{[]string{"0"}, 0, false},
		{[]string{"#7"}, 7, false},
		{[]string{"x"}, 0, true},
		{[]string{"-2"}, 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := parseIndex(tt.args)
		if tt.wantErr {
			assert.ErrorIs(t, err, common.ErrInvalidIndex, "%v", tt.args)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestApp_GenerateFromSavedPrompt(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "").loggedIn(t)
	e.srv.SetLatest("https://x/latest.png")

	answers(t, "a lighthouse", "")
	require.NoError(t, e.app.AddPrompt(ctx))

	require.NoError(t, e.app.Generate(ctx, []string{"#0"}))
	e.app.pending.Wait()

	out := e.out.String()
	assert.Contains(t, out, "Generating...")
	assert.Contains(t, out, "Generation completed, seed 42.")
	assert.Contains(t, out, "[0] https://x/img.png (valid until")
	assert.Contains(t, out, "Latest image: https://x/latest.png")
}

func TestApp_GenerateUnknownIndex(t *testing.T) {
	e := newTestEnv(t, "").loggedIn(t)

	err := e.app.Generate(context.Background(), []string{"5"})
	assert.ErrorIs(t, err, common.ErrInvalidIndex)
	assert.Equal(t, 1, e.srv.Calls("GET /prompts"))
	assert.Equal(t, 0, e.srv.Calls("POST /invoke"))
}

func TestApp_GenerateEmptyPrompt(t *testing.T) {
	e := newTestEnv(t, "").loggedIn(t)
	answers(t, "  ", "ugly")

	assert.ErrorIs(t, e.app.Generate(context.Background(), nil), common.ErrEmptyPrompt)
	assert.Equal(t, 0, e.srv.Calls("POST /invoke"))
}

func TestApp_GenerateFailure(t *testing.T) {
	e := newTestEnv(t, "").loggedIn(t)
	e.srv.SetInvoke(func(context.Context, models.GenerationRequest) (int, any) {
		return http.StatusOK, apitest.Failure("GPU quota exceeded")
	})
	answers(t, "a fox", "")

	require.NoError(t, e.app.Generate(context.Background(), nil))
	e.app.pending.Wait()
	assert.Contains(t, e.out.String(), "Generation failed: GPU quota exceeded")
}

func TestApp_CancelAndInterrupt(t *testing.T) {
	e := newTestEnv(t, "").loggedIn(t)
	release := make(chan struct{})
	defer close(release)
	e.srv.SetInvoke(apitest.Blocking(release))

	require.NoError(t, e.app.Cancel(context.Background()))
	assert.Contains(t, e.out.String(), "Nothing to cancel.")
	assert.False(t, e.app.Interrupt())

	answers(t, "a fox", "")
	require.NoError(t, e.app.Generate(context.Background(), nil))
	require.Eventually(t, func() bool { return e.app.status() == "[generating]" }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, e.app.Interrupt())
	e.app.pending.Wait()
	assert.Contains(t, e.out.String(), "Generation cancelled.")
	assert.False(t, e.app.gen.InFlight())
}

func TestApp_Reserved(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "").loggedIn(t)

	require.NoError(t, e.app.Reserved(ctx, nil))
	assert.Contains(t, e.out.String(), "Reserved instances: off")

	require.NoError(t, e.app.Reserved(ctx, []string{"toggle"}))
	assert.Contains(t, e.out.String(), "Reserved instances: on")
	assert.Equal(t, 1, e.srv.Calls("POST /reserved-instances"))

	assert.ErrorIs(t, e.app.Reserved(ctx, []string{"maybe"}), common.ErrInvalidTarget)
}

func TestApp_LatestCouponsLogs(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, "").loggedIn(t)

	e.srv.SetLatest("")
	require.NoError(t, e.app.Latest(ctx))
	assert.Contains(t, e.out.String(), "No image yet.")

	e.srv.SetCoupons("12.5")
	require.NoError(t, e.app.Coupons(ctx))
	assert.Contains(t, e.out.String(), "Coupon balance: 12.5")

	e.srv.PushLogs("step 1/20")
	require.NoError(t, e.app.Logs(ctx, nil))
	assert.Contains(t, e.out.String(), "step 1/20\n")

	require.NoError(t, e.app.Logs(ctx, nil))
	assert.Contains(t, e.out.String(), "No new log lines.")
}

func TestApp_LogsFollowStopsOnEnter(t *testing.T) {
	e := newTestEnv(t, "\n").loggedIn(t)
	e.srv.PushLogs("warming up")

	require.NoError(t, e.app.Logs(context.Background(), []string{"follow"}))
	assert.Contains(t, e.out.String(), "Following logs")
}
