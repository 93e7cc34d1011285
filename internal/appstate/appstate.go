// Package appstate keeps small cross-session UI state, currently the
// active tab. Persistence goes through an injected Port so callers own
// the backing medium and tests can stay in memory.
package appstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Tabs the UI can land on.
const (
	TabDashboard = "dashboard"
	TabForm      = "form"
	TabLedger    = "ledger"
	TabStores    = "stores"
)

const defaultTab = TabForm

// ValidTab reports whether name is a known tab.
func ValidTab(name string) bool {
	switch name {
	case TabDashboard, TabForm, TabLedger, TabStores:
		return true
	}
	return false
}

// Port loads and saves the serialized state blob.
type Port interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

type persisted struct {
	ActiveTab string `json:"active_tab"`
}

// State is the in-memory UI state, read once through the port at
// construction and written back on every change.
type State struct {
	mu        sync.Mutex
	port      Port
	activeTab string
}

// New reads the persisted state through port. A missing or unreadable
// blob falls back to the default tab.
func New(port Port) *State {
	s := &State{port: port, activeTab: defaultTab}

	data, err := port.Load()
	if err != nil || len(data) == 0 {
		return s
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return s
	}
	if ValidTab(p.ActiveTab) {
		s.activeTab = p.ActiveTab
	}
	return s
}

// ActiveTab returns the current tab.
func (s *State) ActiveTab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

// SetActiveTab switches tabs and persists the change. Unknown tab names
// are rejected.
func (s *State) SetActiveTab(name string) error {
	if !ValidTab(name) {
		return fmt.Errorf("unknown tab %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = name

	data, err := json.Marshal(persisted{ActiveTab: name})
	if err != nil {
		return fmt.Errorf("marshal ui state: %w", err)
	}
	if err := s.port.Save(data); err != nil {
		return fmt.Errorf("persist ui state: %w", err)
	}
	return nil
}

// FilePort persists the state blob as a file under the data directory.
type FilePort struct {
	path string
}

func NewFilePort(dataDir string) *FilePort {
	return &FilePort{path: filepath.Join(dataDir, "ui_state.json")}
}

func (p *FilePort) Load() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func (p *FilePort) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}
