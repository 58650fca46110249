package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/client/repositories/metadata"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func setupStore(t *testing.T) (*metadata.SQLiteTokenStore, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	return metadata.NewSQLiteTokenStore(db), db
}

// ---- fake client ----

// fakeClient implements client.Client for unit tests. Behaviour is set
// through the exported fields; calls are counted per method.
type fakeClient struct {
	mu    sync.Mutex
	token string
	calls map[string]int

	IdentityFn     func(token string) error
	IdentityTokens []string

	GenerateFn func(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
	LastGenReq models.GenerationRequest

	LatestURL string
	LatestErr error

	PromptsRet []models.Prompt
	ListErr    error
	AckRet     models.Ack
	AckErr     error

	Reserved    int
	ReservedErr error
	LastTarget  int

	LogChunks []string
	LogsErr   error

	CouponsRet float64
	CouponsErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(map[string]int)}
}

func (f *fakeClient) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeClient) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeClient) identity(token string) (*models.Identity, error) {
	f.hit("GetIdentity")
	f.mu.Lock()
	f.IdentityTokens = append(f.IdentityTokens, token)
	fn := f.IdentityFn
	f.mu.Unlock()
	if fn != nil {
		if err := fn(token); err != nil {
			return nil, err
		}
	}
	return &models.Identity{Status: "ok"}, nil
}

func (f *fakeClient) GetIdentity(ctx context.Context) (*models.Identity, error) {
	return f.identity(f.Token())
}

func (f *fakeClient) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	f.hit("ListPrompts")
	return f.PromptsRet, f.ListErr
}

func (f *fakeClient) AddPrompt(ctx context.Context, in models.PromptInput) (models.Ack, error) {
	f.hit("AddPrompt")
	return f.AckRet, f.AckErr
}

func (f *fakeClient) UpdatePrompt(ctx context.Context, index int, in models.PromptInput) (models.Ack, error) {
	f.hit("UpdatePrompt")
	return f.AckRet, f.AckErr
}

func (f *fakeClient) DeletePrompt(ctx context.Context, index int) (models.Ack, error) {
	f.hit("DeletePrompt")
	return f.AckRet, f.AckErr
}

func (f *fakeClient) GenerateImage(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	f.hit("GenerateImage")
	f.mu.Lock()
	f.LastGenReq = req
	fn := f.GenerateFn
	f.mu.Unlock()
	if fn == nil {
		return &models.GenerationResult{Seed: 1, Positive: req.Positive, Negative: req.Negative}, nil
	}
	return fn(ctx, req)
}

func (f *fakeClient) SetReservedInstances(ctx context.Context, target int) (*models.ReservedInstancesAck, error) {
	f.hit("SetReservedInstances")
	f.mu.Lock()
	f.LastTarget = target
	f.mu.Unlock()
	if f.ReservedErr != nil {
		return nil, f.ReservedErr
	}
	return &models.ReservedInstancesAck{Ack: models.Ack{Success: true, Message: "ok"}}, nil
}

func (f *fakeClient) GetReservedInstancesStatus(ctx context.Context) (int, error) {
	f.hit("GetReservedInstancesStatus")
	return f.Reserved, f.ReservedErr
}

func (f *fakeClient) GetLogs(ctx context.Context) (string, error) {
	f.hit("GetLogs")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LogsErr != nil {
		return "", f.LogsErr
	}
	if len(f.LogChunks) == 0 {
		return "", nil
	}
	c := f.LogChunks[0]
	f.LogChunks = f.LogChunks[1:]
	return c, nil
}

func (f *fakeClient) GetLatestImage(ctx context.Context) (string, error) {
	f.hit("GetLatestImage")
	return f.LatestURL, f.LatestErr
}

func (f *fakeClient) GetCoupons(ctx context.Context) (float64, error) {
	f.hit("GetCoupons")
	return f.CouponsRet, f.CouponsErr
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeClient) ClearToken() { f.SetToken("") }

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) WithToken(token string) client.Client {
	return &tokenView{fakeClient: f, token: token}
}

// tokenView is the transient client returned by WithToken. Only the
// identity check looks at its own token.
type tokenView struct {
	*fakeClient
	token string
}

func (v *tokenView) GetIdentity(ctx context.Context) (*models.Identity, error) {
	return v.identity(v.token)
}

func (v *tokenView) Token() string { return v.token }

// ---- fake token storage ----

type fakeStore struct {
	mu        sync.Mutex
	token     string
	LoadErr   error
	SaveErr   error
	RemoveErr error
	Removes   int
}

func (s *fakeStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.LoadErr
}

func (s *fakeStore) Save(_ context.Context, token string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.token = token
	return nil
}

func (s *fakeStore) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removes++
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.token = ""
	return nil
}
