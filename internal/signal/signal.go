// Package signal provides file-based out-of-band task control via the
// .hive directory. Writing a stop or pause file signals every process
// watching the same work directory.
package signal

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	stopFile  = "stop"
	pauseFile = "pause"
)

// Manager watches the signals directory for stop/pause files.
type Manager struct {
	hiveDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager creates a manager rooted at workDir/.hive.
func NewManager(workDir string) (*Manager, error) {
	hiveDir := filepath.Join(workDir, ".hive")
	if err := os.MkdirAll(filepath.Join(hiveDir, "signals"), 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		hiveDir: hiveDir,
		done:    make(chan struct{}),
	}

	// Start file watcher for immediate signals
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - ShouldStop/ShouldPause fall back to stat
		return m, nil
	}
	m.watcher = watcher

	if err := watcher.Add(filepath.Join(hiveDir, "signals")); err != nil {
		watcher.Close()
		m.watcher = nil
		return m, nil
	}

	go m.watchSignals()
	return m, nil
}

// watchSignals monitors the signals directory for stop/pause files.
func (m *Manager) watchSignals() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			m.mu.Lock()
			switch filepath.Base(event.Name) {
			case stopFile:
				if event.Op&fsnotify.Remove == 0 {
					m.stopSignal = true
				}
			case pauseFile:
				// Pause follows the file: created means paused, removed
				// means resumed.
				m.pauseSignal = event.Op&fsnotify.Remove == 0
			}
			m.mu.Unlock()
		case <-m.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (m *Manager) ShouldStop() bool {
	// Also check the file directly in case the watcher missed it
	if _, err := os.Stat(m.signalPath(stopFile)); err == nil {
		m.mu.Lock()
		m.stopSignal = true
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopSignal
}

// ShouldPause returns true while the pause file exists. Unlike stop,
// pause is not sticky: removing the file resumes.
func (m *Manager) ShouldPause() bool {
	_, err := os.Stat(m.signalPath(pauseFile))
	paused := err == nil

	m.mu.Lock()
	m.pauseSignal = paused
	m.mu.Unlock()
	return paused
}

// SendStop creates a stop signal file.
func (m *Manager) SendStop() error {
	return os.WriteFile(m.signalPath(stopFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (m *Manager) SendPause() error {
	return os.WriteFile(m.signalPath(pauseFile), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearPause removes the pause file, resuming any watching process.
func (m *Manager) ClearPause() {
	m.mu.Lock()
	m.pauseSignal = false
	m.mu.Unlock()

	os.Remove(m.signalPath(pauseFile))
}

// Clear removes all signal files and resets signal state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopSignal = false
	m.pauseSignal = false

	os.Remove(m.signalPath(stopFile))
	os.Remove(m.signalPath(pauseFile))
}

// Dir returns the path to the .hive directory.
func (m *Manager) Dir() string {
	return m.hiveDir
}

func (m *Manager) signalPath(name string) string {
	return filepath.Join(m.hiveDir, "signals", name)
}

// Close shuts down the manager.
func (m *Manager) Close() {
	close(m.done)
	if m.watcher != nil {
		m.watcher.Close()
	}
}
