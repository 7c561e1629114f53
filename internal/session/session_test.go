package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"drivesend/internal/config"
	"drivesend/internal/encrypt"
	"drivesend/internal/model"
	"drivesend/internal/uploader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeliverer stands in for the Drive uploader: it records every call,
// returns scripted failures per base name, and tracks how many deliveries
// ever ran concurrently.
type fakeDeliverer struct {
	mu       sync.Mutex
	calls    []string
	failures map[string][]error
	delay    time.Duration
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{failures: make(map[string][]error)}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, path string) (model.UploadResult, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		old := f.maxSeen.Load()
		if cur <= old || f.maxSeen.CompareAndSwap(old, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return model.UploadResult{}, &uploader.TransientError{Err: ctx.Err()}
		case <-time.After(f.delay):
		}
	}

	base := filepath.Base(path)

	f.mu.Lock()
	f.calls = append(f.calls, path)
	var scripted error
	if errs := f.failures[base]; len(errs) > 0 {
		scripted = errs[0]
		f.failures[base] = errs[1:]
	}
	f.mu.Unlock()

	if scripted != nil {
		return model.UploadResult{}, scripted
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.UploadResult{}, err
	}

	return model.UploadResult{
		FileID:     "fake-" + base,
		FileName:   base,
		LocalSize:  info.Size(),
		RemoteSize: info.Size(),
		Verified:   true,
	}, nil
}

func (f *fakeDeliverer) callPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDeliverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		WatchDir:       t.TempDir(),
		CreateWatchDir: true,
		Recursive:      true,
		Extensions:     []string{".png"},
		AuthMethod:     "oauth",
		PollInterval:   10 * time.Millisecond,
		StableTimeout:  300 * time.Millisecond,
		RetryBase:      10 * time.Millisecond,
		RetryCap:       50 * time.Millisecond,
		MaxAttempts:    5,
		BufferSize:     16,
	}
}

func drop(t *testing.T, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func TestDeliverSingleFile(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeDeliverer()

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	path := drop(t, cfg.WatchDir, "a.png", 1024)

	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot()
		return ok && snap.Uploaded == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{path}, fake.callPaths())

	snap, ok := m.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0, snap.Failed)
}

func TestFilteredFilesNeverDelivered(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeDeliverer()

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "a.png.enc", 512)
	drop(t, cfg.WatchDir, "notes.txt", 64)

	time.Sleep(500 * time.Millisecond)
	assert.Zero(t, fake.callCount())
}

func TestEncryptDeliversOnlyArtifact(t *testing.T) {
	key, err := encrypt.GenerateKey()
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Encrypt = true
	cfg.EncryptionKey = key
	fake := newFakeDeliverer()

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	path := drop(t, cfg.WatchDir, "b.png", 2048)

	require.Eventually(t, func() bool {
		return fake.callCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// wait out any stray event handling before asserting exact counts
	time.Sleep(500 * time.Millisecond)

	calls := fake.callPaths()
	require.Len(t, calls, 1)
	assert.Equal(t, path+encrypt.Suffix, calls[0])

	// the original is never touched, the artifact is kept without
	// post_delete_enc
	assert.FileExists(t, path)
	assert.FileExists(t, path+encrypt.Suffix)
}

func TestEncryptPostDeleteRemovesArtifact(t *testing.T) {
	key, err := encrypt.GenerateKey()
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Encrypt = true
	cfg.EncryptionKey = key
	cfg.PostDeleteEnc = true
	fake := newFakeDeliverer()

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	path := drop(t, cfg.WatchDir, "b.png", 2048)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path + encrypt.Suffix)
		return fake.callCount() == 1 && os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	assert.FileExists(t, path)
}

func TestEncryptWithoutKeyDropsFile(t *testing.T) {
	t.Setenv("DRIVESEND_ENCRYPTION_KEY", "")
	t.Setenv("COMFYUI_ENCRYPTION_KEY", "")

	cfg := testConfig(t)
	cfg.Encrypt = true
	fake := newFakeDeliverer()

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "b.png", 128)

	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot()
		return ok && snap.Failed == 1
	}, 5*time.Second, 10*time.Millisecond)

	// the plaintext must never reach the deliverer
	assert.Zero(t, fake.callCount())
}

func TestQuotaFailureNeverRetriedAndStopsSession(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeDeliverer()
	fake.failures["a.png"] = []error{
		fmt.Errorf("%w: scripted", uploader.ErrQuotaExceeded),
		fmt.Errorf("%w: scripted", uploader.ErrQuotaExceeded),
	}

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "a.png", 256)

	require.Eventually(t, func() bool {
		return !m.Running()
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, fake.callCount())
}

func TestTransientFailureIsRetried(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeDeliverer()
	fake.failures["a.png"] = []error{
		&uploader.TransientError{Err: fmt.Errorf("scripted network blip")},
	}

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "a.png", 256)

	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot()
		return ok && snap.Uploaded == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, fake.callCount())

	snap, _ := m.Snapshot()
	assert.Equal(t, 1, snap.Retries)
}

func TestAbandonedAfterMaxAttempts(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxAttempts = 2

	fake := newFakeDeliverer()
	blip := &uploader.TransientError{Err: fmt.Errorf("scripted outage")}
	fake.failures["a.png"] = []error{blip, blip, blip, blip, blip}

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "a.png", 256)

	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot()
		return ok && snap.Abandoned == 1
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, cfg.MaxAttempts, fake.callCount())
}

func TestRetryDoesNotBlockLaterFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetryBase = 200 * time.Millisecond

	fake := newFakeDeliverer()
	fake.failures["a.png"] = []error{
		&uploader.TransientError{Err: fmt.Errorf("scripted")},
	}

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "a.png", 256)
	drop(t, cfg.WatchDir, "z.png", 256)

	require.Eventually(t, func() bool {
		snap, ok := m.Snapshot()
		return ok && snap.Uploaded == 2
	}, 5*time.Second, 10*time.Millisecond)

	// while a.png sat in backoff, z.png went through
	calls := fake.callPaths()
	require.Len(t, calls, 3)
	assert.Equal(t, "a.png", filepath.Base(calls[len(calls)-1]))
}

func TestStopDuringFlightThenRestartSingleWorker(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeDeliverer()
	fake.delay = 300 * time.Millisecond

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))

	drop(t, cfg.WatchDir, "a.png", 256)

	require.Eventually(t, func() bool {
		return fake.inflight.Load() == 1
	}, 5*time.Second, 5*time.Millisecond)

	// stop-then-start with a delivery still in flight
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: fake}))
	defer m.Stop()

	drop(t, cfg.WatchDir, "b.png", 256)

	require.Eventually(t, func() bool {
		for _, p := range fake.callPaths() {
			if strings.HasSuffix(p, "b.png") {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), fake.maxSeen.Load(),
		"two worker loops must never deliver concurrently")
}

func TestStartFailsWithoutWatchDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.WatchDir = filepath.Join(cfg.WatchDir, "missing")
	cfg.CreateWatchDir = false

	m := NewManager()
	err := m.Start(Options{Config: cfg, Deliverer: newFakeDeliverer()})
	require.Error(t, err)
	assert.False(t, m.Running())
}

func TestStartCreatesWatchDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.WatchDir = filepath.Join(cfg.WatchDir, "nested", "out")

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: newFakeDeliverer()}))
	defer m.Stop()

	assert.DirExists(t, cfg.WatchDir)
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := testConfig(t)

	m := NewManager()
	require.NoError(t, m.Start(Options{Config: cfg, Deliverer: newFakeDeliverer()}))

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())
}
