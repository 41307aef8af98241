package fleet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// filePermissions is the permission mode for the fleet document.
const filePermissions = 0600

// dirPermissions is the permission mode for the document directory.
const dirPermissions = 0750

// Logger is the minimal logging interface the store needs.
// Satisfied by logging.Logger; defaults to a no-op.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store owns the on-disk fleet document.
//
// Load reads and validates the document at startup. Save snapshots the
// current document and marks it dirty; a background flusher coalesces
// saves within the debounce window into a single atomic disk write
// (write-then-rename), so a crash mid-write never corrupts the live file.
//
// Failed writes are retried on the next flush cycle and surfaced through
// the OnSaveError callback. The in-memory document stays authoritative
// throughout; the service keeps running on persistent disk failure, it
// just loses durability until the disk recovers.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	path     string
	debounce time.Duration
	log      Logger

	mu          sync.Mutex
	pending     *Document
	dirty       bool
	closed      bool
	onSaveError func(err error)

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewStore creates a store for the document at path and starts its flusher.
//
// Parameters:
//   - path: Filesystem path of the fleet document
//   - debounce: Write-coalescing window. Zero flushes on the next cycle
//     without extra delay.
func NewStore(path string, debounce time.Duration) *Store {
	s := &Store{
		path:     path,
		debounce: debounce,
		log:      noopLogger{},
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.flusher()

	return s
}

// SetLogger sets the logger used by the store.
func (s *Store) SetLogger(log Logger) {
	if log != nil {
		s.log = log
	}
}

// SetOnSaveError sets a callback invoked when a flush cycle fails.
// The error wraps ErrSaveFailed. Used to surface persistence problems
// as visible warnings rather than swallowing them.
func (s *Store) SetOnSaveError(callback func(err error)) {
	s.mu.Lock()
	s.onSaveError = callback
	s.mu.Unlock()
}

// Path returns the filesystem path of the fleet document.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the document from disk.
//
// Returns:
//   - *Document: The parsed document
//   - error: If the file cannot be read or fails validation
//     (ErrInvalidDocument)
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet document: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	s.log.Info("fleet document loaded", "path", s.path, "devices", len(doc.Devices))
	return doc, nil
}

// Save snapshots the document and schedules a debounced flush.
//
// The document is deep-copied, so the caller may keep mutating its copy.
// Save never blocks on disk I/O.
func (s *Store) Save(doc *Document) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = doc.Clone()
	s.dirty = true
	s.mu.Unlock()

	// Non-blocking: a pending kick already covers this save.
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush forces an immediate write of any pending snapshot.
//
// Returns:
//   - error: ErrSaveFailed (wrapped) if the write fails
func (s *Store) Flush() error {
	return s.flushDirty()
}

// Close stops the flusher and writes any pending snapshot.
//
// Returns:
//   - error: If the final flush fails
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()

	return s.flushDirty()
}

// flusher coalesces saves: the first kick arms the debounce timer, further
// kicks within the window are absorbed, and the timer firing writes one
// snapshot. A failed write re-arms the timer so the save is retried.
func (s *Store) flusher() {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-s.kick:
			if !armed {
				timer.Reset(s.debounce)
				armed = true
			}

		case <-timer.C:
			armed = false
			if err := s.flushDirty(); err != nil {
				s.notifySaveError(err)
				timer.Reset(s.debounce)
				armed = true
			}

		case <-s.done:
			if armed && !timer.Stop() {
				<-timer.C
			}
			return
		}
	}
}

// flushDirty writes the pending snapshot if there is one. The dirty flag is
// only cleared after a successful write, and only if no newer snapshot
// arrived while writing.
func (s *Store) flushDirty() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	doc := s.pending
	s.mu.Unlock()

	if err := s.writeAtomic(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	s.mu.Lock()
	if s.pending == doc {
		s.dirty = false
	}
	s.mu.Unlock()

	s.log.Debug("fleet document persisted", "path", s.path, "devices", len(doc.Devices))
	return nil
}

// writeAtomic serializes doc to a temp file in the document's directory,
// syncs it, and renames it over the live file. A crash at any point leaves
// either the old document or the new one, never a partial write.
func (s *Store) writeAtomic(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating document directory: %w", err)
	}

	// Temp file must live in the same directory as the target so the
	// rename stays on one filesystem and is atomic.
	tmp, err := os.CreateTemp(dir, ".fleet-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		cleanup()
		return fmt.Errorf("setting file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("replacing document: %w", err)
	}

	return nil
}

// notifySaveError invokes the warning callback, if set, and always logs.
func (s *Store) notifySaveError(err error) {
	s.log.Warn("fleet document save failed, will retry",
		"path", s.path,
		"error", err,
	)

	s.mu.Lock()
	callback := s.onSaveError
	s.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}
