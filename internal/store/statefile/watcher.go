package statefile

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	// selfWriteWindow is how long after our own write a change event is
	// assumed to be self-triggered and ignored. A missed external change
	// inside the window is caught by the next event or poll cycle.
	selfWriteWindow = 1 * time.Second

	// debounceDelay coalesces the burst of raw events one atomic replace
	// produces into a single reconciliation.
	debounceDelay = 200 * time.Millisecond

	// fallbackInterval is the mtime/hash poll period when native change
	// notifications are unavailable or unreliable.
	fallbackInterval = 2 * time.Second
)

// Watcher observes the state file's directory for writes made by another
// process and invokes onChange once per external change. The directory is
// watched rather than the file itself because atomic replace invalidates a
// direct file handle.
//
// When the state file lives outside the user's home directory (e.g. a
// network mount, where inotify/kqueue delivery is unreliable) the watcher
// degrades to polling the file's modification time and content hash.
type Watcher struct {
	store    *Store
	onChange func(Document)
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
	fsw     *fsnotify.Watcher
	timer   *time.Timer

	// forcePoll and forceNotify pin the watcher to one change-detection
	// mode regardless of path heuristics. Set in tests.
	forcePoll   bool
	forceNotify bool
}

// NewWatcher creates a watcher that reads the document through store and
// passes it to onChange on every external write.
func NewWatcher(store *Store, onChange func(Document), log zerolog.Logger) *Watcher {
	return &Watcher{
		store:    store,
		onChange: onChange,
		log:      log.With().Str("component", "watcher").Logger(),
	}
}

// Start begins watching. Idempotent: starting an already-running watcher is
// a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.done = make(chan struct{})

	if w.forcePoll || (!w.forceNotify && pathOutsideHome(w.store.Path())) {
		w.log.Info().Str("path", w.store.Path()).Msg("using poll-based change detection")
		lastMod, lastHash := w.pollBaseline()
		w.wg.Add(1)
		go w.pollLoop(lastMod, lastHash)
		w.running = true
		return nil
	}

	if err := os.MkdirAll(w.store.Dir(), 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		// Native notifications unavailable, fall back to polling.
		w.log.Warn().Err(err).Msg("fsnotify unavailable, falling back to polling")
		lastMod, lastHash := w.pollBaseline()
		w.wg.Add(1)
		go w.pollLoop(lastMod, lastHash)
		w.running = true
		return nil
	}

	if err := fsw.Add(w.store.Dir()); err != nil {
		_ = fsw.Close()
		return err
	}

	w.fsw = fsw
	w.wg.Add(1)
	go w.run(fsw)
	w.running = true
	return nil
}

// Stop cancels the underlying watch and waits for the event loop to exit.
// Idempotent and safe to call even if Start was never called.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()

	if fsw != nil {
		_ = fsw.Close()
	}
	w.wg.Wait()
}

// run processes filesystem events until stopped.
func (w *Watcher) run(fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watch error")
		}
	}
}

// handleEvent filters directory events down to changes of the state file
// itself and schedules a debounced reconciliation.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)
	if name != filepath.Base(w.store.Path()) || strings.HasSuffix(name, ".tmp") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.reconcile)
}

// reconcile runs the self-write check and, for genuinely external changes,
// reads the document and hands it to onChange.
func (w *Watcher) reconcile() {
	since := time.Since(w.store.LastWrite())
	if since < selfWriteWindow {
		w.log.Debug().Dur("sinceWrite", since).Msg("ignoring self-triggered change")
		return
	}

	doc, ok := w.store.Read()
	if !ok {
		return
	}

	w.log.Debug().Msg("external state change detected")
	w.onChange(doc)
}

// pollBaseline snapshots the file's current mtime and content hash. Called
// synchronously from Start so writes landing after Start returns are always
// seen as changes by pollLoop.
func (w *Watcher) pollBaseline() (time.Time, [sha256.Size]byte) {
	if info, err := os.Stat(w.store.Path()); err == nil {
		return info.ModTime(), w.contentHash()
	}
	return time.Time{}, [sha256.Size]byte{}
}

// pollLoop is the fallback change detector: compares mtime and a content
// hash on a fixed interval.
func (w *Watcher) pollLoop(lastMod time.Time, lastHash [sha256.Size]byte) {
	defer w.wg.Done()

	ticker := time.NewTicker(fallbackInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(w.store.Path())
			if err != nil {
				continue
			}
			hash := w.contentHash()
			if info.ModTime().Equal(lastMod) && hash == lastHash {
				continue
			}
			lastMod = info.ModTime()
			lastHash = hash
			w.reconcile()
		}
	}
}

func (w *Watcher) contentHash() [sha256.Size]byte {
	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		return [sha256.Size]byte{}
	}
	return sha256.Sum256(data)
}

// pathOutsideHome reports whether path does not live under the user's home
// directory. Native file notifications are unreliable on network mounts,
// which in practice is where out-of-home state files point.
func pathOutsideHome(path string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(home, abs)
	if err != nil {
		return true
	}
	return strings.HasPrefix(rel, "..")
}
