package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"drivesend/internal/config"
	"drivesend/internal/encrypt"
	"drivesend/internal/logger"
	"drivesend/internal/model"
	"drivesend/internal/pipeline"
	"drivesend/internal/stability"
	"drivesend/internal/uploader"
	"drivesend/internal/watch"

	"go.uber.org/zap"
)

// Deliverer is the delivery boundary the worker drives. The call is
// synchronous; classification of the returned error decides requeue vs drop.
type Deliverer interface {
	Deliver(ctx context.Context, path string) (model.UploadResult, error)
}

// Recorder persists the outcome of a terminal attempt.
type Recorder interface {
	Save(path string, status model.UploadStatus, attempts int, result model.UploadResult, uploadErr error) error
}

const stopTimeout = 10 * time.Second

// Session is one start-to-stop lifecycle of the watch-and-upload pipeline:
// a watcher goroutine feeding the queue and exactly one serial worker
// draining it. Deliveries never overlap within a session.
type Session struct {
	cfg      *config.Config
	method   string
	deliver  Deliverer
	recorder Recorder

	queue  *pipeline.Queue
	filter *pipeline.Filter
	probe  stability.Probe

	watcher *watch.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	uploaded  int
	failed    int
	abandoned int
	retries   int
	lastDone  *time.Time

	// attempt counts per path, touched only by the worker goroutine
	attempts map[string]int
}

func newSession(cfg *config.Config, method string, deliver Deliverer, recorder Recorder) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		cfg:      cfg,
		method:   method,
		deliver:  deliver,
		recorder: recorder,
		queue:    pipeline.NewQueue(cfg.DedupTTL),
		filter:   pipeline.NewFilter(cfg.Extensions, encrypt.Suffix),
		probe:    stability.New(cfg.PollInterval, cfg.StableTimeout),
		ctx:      ctx,
		cancel:   cancel,
		attempts: make(map[string]int),
	}
}

// start validates the watch root and arms the watcher. The caller has
// already authenticated; nothing here may fail after the watcher is armed,
// so a failed start never leaves events accumulating without a worker.
func (s *Session) start() error {
	if _, err := os.Stat(s.cfg.WatchDir); err != nil {
		if !os.IsNotExist(err) || !s.cfg.CreateWatchDir {
			return fmt.Errorf("watch directory unavailable: %w", err)
		}

		if err := os.MkdirAll(s.cfg.WatchDir, 0755); err != nil {
			return fmt.Errorf("failed to create watch directory: %w", err)
		}

		logger.Log.Info("created watch directory",
			zap.String("dir", s.cfg.WatchDir))
	}

	w, err := watch.New(s.cfg.BufferSize, s.cfg.Recursive)
	if err != nil {
		return err
	}

	if err := w.Watch(s.cfg.WatchDir); err != nil {
		w.Stop()
		return err
	}

	s.watcher = w
	s.mu.Lock()
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.wg.Add(2)
	go s.admitLoop()
	go s.workerLoop()

	logger.Log.Info("session started",
		zap.String("dir", s.cfg.WatchDir),
		zap.String("auth", s.method),
		zap.Bool("recursive", s.cfg.Recursive),
		zap.Bool("encrypt", s.cfg.Encrypt))

	return nil
}

// Stop is idempotent. It cancels both loops and waits, bounded, for them to
// exit; the worker only checks cancellation between queue pops, so one
// in-flight delivery may finish first.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if s.watcher != nil {
		s.watcher.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		logger.Log.Warn("session stop timed out, detaching")
	}

	logger.Log.Info("session stopped",
		zap.String("dir", s.cfg.WatchDir))
}

func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Session) admitLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.watcher.Events():
			if !ok {
				return
			}

			if event.Type != model.EventCreate || event.IsDir {
				continue
			}

			if !s.filter.Admit(event.Path) {
				logger.Log.Debug("filtered",
					zap.String("path", event.Path))
				continue
			}

			if s.queue.Admit(event.Path) {
				logger.Log.Info("queued",
					zap.String("path", event.Path))
			} else {
				logger.Log.Debug("duplicate event dropped",
					zap.String("path", event.Path))
			}
		}
	}
}

func (s *Session) workerLoop() {
	defer s.wg.Done()

	for {
		path, ok := s.queue.Pop(s.ctx)
		if !ok {
			return
		}

		s.process(path)
	}
}

func (s *Session) process(path string) {
	stable, err := s.probe.Wait(s.ctx, path)
	if err != nil {
		return // cancelled
	}
	if !stable {
		logger.Log.Warn("file never stabilized, may be incomplete",
			zap.String("path", path),
			zap.Duration("waited", s.probe.Timeout))
	}

	uploadPath := path
	encrypted := false
	if s.cfg.Encrypt {
		key := encrypt.ResolveKey(s.cfg.EncryptionKey)
		out, err := encrypt.EncryptFile(path, key)
		if err != nil {
			// never fall back to uploading the plaintext
			logger.Log.Error("encryption failed, dropping file",
				zap.String("path", path),
				zap.Error(err))
			s.recordFailure(path, model.StatusFailed, model.UploadResult{}, err)
			return
		}

		uploadPath = out
		encrypted = true
		logger.Log.Info("encrypted",
			zap.String("path", path),
			zap.String("artifact", out))
	}

	result, err := s.deliver.Deliver(s.ctx, uploadPath)
	if err != nil {
		s.handleDeliveryError(path, result, err)
		return
	}

	s.mu.Lock()
	s.uploaded++
	now := time.Now()
	s.lastDone = &now
	s.mu.Unlock()

	attemptCount := s.attempts[path] + 1
	delete(s.attempts, path)

	if result.Verified {
		logger.Log.Info("uploaded",
			zap.String("path", uploadPath),
			zap.String("file_id", result.FileID),
			zap.Int64("size", result.RemoteSize))
	} else {
		logger.Log.Warn("uploaded with verification mismatch",
			zap.String("path", uploadPath),
			zap.String("file_id", result.FileID),
			zap.String("warning", result.Warning))
	}

	if s.recorder != nil {
		if err := s.recorder.Save(uploadPath, model.StatusSuccess, attemptCount, result, nil); err != nil {
			logger.Log.Warn("failed to save history",
				zap.Error(err))
		}
	}

	if encrypted && s.cfg.PostDeleteEnc {
		if err := os.Remove(uploadPath); err != nil {
			logger.Log.Warn("failed to delete encrypted artifact",
				zap.String("path", uploadPath),
				zap.Error(err))
		} else {
			logger.Log.Info("deleted encrypted artifact",
				zap.String("path", uploadPath))
		}
	}
}

func (s *Session) handleDeliveryError(path string, result model.UploadResult, err error) {
	if s.ctx.Err() != nil {
		return
	}

	if errors.Is(err, uploader.ErrQuotaExceeded) {
		logger.Log.Error("storage quota exceeded, stopping session",
			zap.String("path", path),
			zap.Error(err))
		s.recordFailure(path, model.StatusFailed, result, err)

		// systemic: no per-file retry can help, shut the pipeline down
		s.mu.Lock()
		wasRunning := s.running
		s.running = false
		s.mu.Unlock()

		s.cancel()
		if wasRunning && s.watcher != nil {
			s.watcher.Stop()
		}
		return
	}

	if !uploader.Retryable(err) {
		logger.Log.Error("upload failed permanently",
			zap.String("path", path),
			zap.Error(err))
		s.recordFailure(path, model.StatusFailed, result, err)
		delete(s.attempts, path)
		return
	}

	s.attempts[path]++
	attempt := s.attempts[path]

	if attempt >= s.cfg.MaxAttempts {
		logger.Log.Error("upload abandoned after max attempts",
			zap.String("path", path),
			zap.Int("attempts", attempt),
			zap.Error(err))
		s.recordFailure(path, model.StatusAbandoned, result, err)
		delete(s.attempts, path)
		return
	}

	delay := s.backoffDelay(attempt)
	s.mu.Lock()
	s.retries++
	s.mu.Unlock()

	logger.Log.Warn("upload failed, will retry",
		zap.String("path", path),
		zap.Int("attempt", attempt),
		zap.Duration("backoff", delay),
		zap.Error(err))

	// requeue at the tail after the backoff so a failing file cannot
	// block the rest of the queue
	go func() {
		select {
		case <-s.ctx.Done():
		case <-time.After(delay):
			s.queue.Requeue(path)
		}
	}()
}

func (s *Session) backoffDelay(attempt int) time.Duration {
	delay := s.cfg.RetryBase * time.Duration(1<<uint(attempt-1))
	if delay > s.cfg.RetryCap {
		delay = s.cfg.RetryCap
	}

	return delay
}

func (s *Session) recordFailure(path string, status model.UploadStatus, result model.UploadResult, err error) {
	s.mu.Lock()
	if status == model.StatusAbandoned {
		s.abandoned++
	} else {
		s.failed++
	}
	s.mu.Unlock()

	if s.recorder == nil {
		return
	}

	if saveErr := s.recorder.Save(path, status, s.attempts[path], result, err); saveErr != nil {
		logger.Log.Warn("failed to save history",
			zap.Error(saveErr))
	}
}

func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.SessionSnapshot{
		WatchDir:   s.cfg.WatchDir,
		AuthMethod: s.method,
		Recursive:  s.cfg.Recursive,
		Encrypt:    s.cfg.Encrypt,
		Running:    s.running,
		StartedAt:  s.startedAt,
		Queued:     s.queue.Len(),
		Uploaded:   s.uploaded,
		Failed:     s.failed,
		Abandoned:  s.abandoned,
		Retries:    s.retries,
		LastUpload: s.lastDone,
	}
}

// Status renders the human-readable session summary.
func (s *Session) Status() string {
	snap := s.Snapshot()

	var b strings.Builder
	state := "stopped"
	if snap.Running {
		state = "running"
	}

	fmt.Fprintf(&b, "monitor %s\n", state)
	fmt.Fprintf(&b, "  directory: %s\n", snap.WatchDir)
	fmt.Fprintf(&b, "  auth: %s\n", snap.AuthMethod)
	fmt.Fprintf(&b, "  recursive: %t\n", snap.Recursive)
	fmt.Fprintf(&b, "  encryption: %t\n", snap.Encrypt)
	fmt.Fprintf(&b, "  queued: %d  uploaded: %d  failed: %d  abandoned: %d  retries: %d",
		snap.Queued, snap.Uploaded, snap.Failed, snap.Abandoned, snap.Retries)

	return b.String()
}
