package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{creds: make(map[string]Credential)}
}

func (m *Memory) Get(_ context.Context, portalID string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[portalID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) Put(_ context.Context, cred Credential) error {
	if err := validate(cred); err != nil {
		return err
	}
	cred.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	m.creds[cred.PortalID] = cred
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, portalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[portalID]; !ok {
		return ErrNotFound
	}
	delete(m.creds, portalID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Credential, error) {
	m.mu.RLock()
	out := make([]Credential, 0, len(m.creds))
	for _, c := range m.creds {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PortalID < out[j].PortalID })
	return out, nil
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
