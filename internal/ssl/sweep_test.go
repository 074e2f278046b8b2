package ssl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/executor"
	"github.com/ksyq12/sslops/internal/model"
	"github.com/ksyq12/sslops/internal/remote"
	"github.com/ksyq12/sslops/internal/store"
)

// expiringDomain returns a domain whose certificate expires in expiresIn.
func expiringDomain(name string, expiresIn time.Duration) *model.Domain {
	return issuedDomain(name, now.Add(expiresIn-CertValidity))
}

func TestManager_Sweep(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			gw := &fakeGateway{respond: func(call gatewayCall) (*remote.Result, error) {
				if strings.Contains(call.Command, "b.example.com") {
					return failWith(errors.ErrCodeRemoteCommand, "rate limited")(call)
				}
				return &remote.Result{Succeeded: true}, nil
			}}
			store := newFakeStore()
			store.renewable = []*model.Domain{
				expiringDomain("a.example.com", 5*24*time.Hour),
				expiringDomain("b.example.com", 10*24*time.Hour),
				expiringDomain("c.example.com", 20*24*time.Hour),
				expiringDomain("d.example.com", 30*24*time.Hour),
			}
			m := newTestManager(gw, store, Config{SweepConcurrency: concurrency})

			report, err := m.Sweep(context.Background())
			require.NoError(t, err)

			assert.NotEmpty(t, report.ID)
			assert.Equal(t, 4, report.Candidates)
			assert.Equal(t, []string{"a.example.com", "c.example.com", "d.example.com"}, report.Renewed)
			require.Len(t, report.Failed, 1)
			assert.Equal(t, "b.example.com", report.Failed[0].Domain)
			assert.Equal(t, errors.ErrCodeRemoteCommand, errors.CodeOf(report.Failed[0].Err))
			assert.Equal(t, 4, gw.CallCount(), "every candidate is attempted")

			for _, name := range report.Renewed {
				saved, ok := store.Saved(name)
				require.True(t, ok, name)
				assert.Equal(t, now.Add(CertValidity), *saved.ExpiresAt)
			}
			_, ok := store.Saved("b.example.com")
			assert.False(t, ok)
		})
	}
}

func TestManager_SweepUnreadableKeyFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(filepath.Join(dir, "domains.yaml"))
	require.NoError(t, err)

	require.NoError(t, fs.AddServer(&model.Server{Name: "good", Address: "10.0.0.5", Username: "deploy"}))
	require.NoError(t, fs.AddServer(&model.Server{
		Name:           "bad",
		Address:        "10.0.0.6",
		Username:       "deploy",
		PrivateKeyFile: filepath.Join(dir, "missing_key"),
	}))
	require.NoError(t, fs.AddProject("site", "good"))
	require.NoError(t, fs.AddProject("legacy", "bad"))
	require.NoError(t, fs.AddDomain("a.example.com", "site"))
	require.NoError(t, fs.AddDomain("b.example.com", "legacy"))
	for _, name := range []string{"a.example.com", "b.example.com"} {
		d := expiringDomain(name, 5*24*time.Hour)
		require.NoError(t, fs.SaveSSL(context.Background(), d, d.SSLState()))
	}

	exec := &executor.MockExecutor{}
	gw := remote.NewGateway(exec, remote.Config{KeyDir: t.TempDir()})
	m := newTestManager(gw, fs, Config{})

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, []string{"a.example.com"}, report.Renewed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "b.example.com", report.Failed[0].Domain)
	assert.Equal(t, errors.ErrCodeCredential, errors.CodeOf(report.Failed[0].Err))
	assert.Equal(t, 1, exec.CallCount(), "only the healthy server is contacted")

	a, err := fs.Get(context.Background(), "a.example.com")
	require.NoError(t, err)
	assert.True(t, a.SSLExpiresAt.Equal(now.Add(CertValidity)))

	b, err := fs.Get(context.Background(), "b.example.com")
	require.NoError(t, err)
	assert.True(t, b.SSLExpiresAt.Equal(now.Add(5*24*time.Hour)), "failed renewal keeps the stored expiry")
}

func TestManager_SweepRechecksCandidates(t *testing.T) {
	gw := &fakeGateway{}
	store := newFakeStore()

	manual := expiringDomain("manual.example.com", 24*time.Hour)
	manual.AutoRenewSSL = false
	store.renewable = []*model.Domain{
		expiringDomain("due.example.com", 24*time.Hour),
		expiringDomain("later.example.com", 45*24*time.Hour),
		expiringDomain("expired.example.com", -time.Hour),
		manual,
		newDomain("nocert.example.com"),
	}
	m := newTestManager(gw, store, Config{})

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, []string{"due.example.com"}, report.Renewed)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 1, gw.CallCount())
}

func TestManager_SweepNoServerDoesNotStopOthers(t *testing.T) {
	gw := &fakeGateway{}
	store := newFakeStore()

	orphan := expiringDomain("orphan.example.com", 24*time.Hour)
	orphan.Project.Server = nil
	store.renewable = []*model.Domain{
		orphan,
		expiringDomain("ok.example.com", 24*time.Hour),
	}
	m := newTestManager(gw, store, Config{})

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.example.com"}, report.Renewed)
	require.Len(t, report.Failed, 1)
	assert.True(t, errors.Is(report.Failed[0].Err, errors.ErrNoServerAssociated))
	assert.Equal(t, 1, gw.CallCount())
}

func TestManager_SweepListFailure(t *testing.T) {
	gw := &fakeGateway{}
	store := newFakeStore()
	store.listErr = fmt.Errorf("connection refused")
	m := newTestManager(gw, store, Config{})

	report, err := m.Sweep(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, errors.ErrCodeStore, errors.CodeOf(err))
	assert.Zero(t, gw.CallCount())
}

func TestManager_SweepEmpty(t *testing.T) {
	m := newTestManager(&fakeGateway{}, newFakeStore(), Config{})

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Empty(t, report.Renewed)
	assert.Empty(t, report.Failed)
}

func TestManager_SweepConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex

	gw := &fakeGateway{respond: func(call gatewayCall) (*remote.Result, error) {
		n := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &remote.Result{Succeeded: true}, nil
	}}
	store := newFakeStore()
	for i := 0; i < 8; i++ {
		store.renewable = append(store.renewable, expiringDomain(fmt.Sprintf("d%d.example.com", i), 24*time.Hour))
	}
	m := newTestManager(gw, store, Config{SweepConcurrency: 2})

	report, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Renewed, 8)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(2))
}

func TestRenewWorker(t *testing.T) {
	store := newFakeStore()
	store.renewable = []*model.Domain{expiringDomain("example.com", 24*time.Hour)}
	m := newTestManager(&fakeGateway{}, store, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	w := NewRenewWorker(m, 5*time.Millisecond)
	w.OnSweep = func(report *SweepReport, err error) {
		assert.NoError(t, err)
		if runs.Add(1) == 3 {
			cancel()
		}
	}

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestNewRenewWorker_DefaultInterval(t *testing.T) {
	w := NewRenewWorker(nil, 0)
	assert.Equal(t, DefaultSweepInterval, w.interval)
}
