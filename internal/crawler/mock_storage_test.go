package crawler

import (
	"sync"
)

type mockItem struct {
	id      int
	url     string
	status  string
	outcome *PageOutcome
}

// MockStorage is an in-memory frontier implementing Storage
type MockStorage struct {
	mu      sync.Mutex
	items   []*mockItem
	byURL   map[string]*mockItem
	meta    map[string]string
	resets  int
	offered map[string]int // how often each URL reached AddToQueue
	nextErr error          // returned by GetNextFromQueue when set
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		byURL:   make(map[string]*mockItem),
		meta:    make(map[string]string),
		offered: make(map[string]int),
	}
}

func (m *MockStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.byURL = make(map[string]*mockItem)
	m.meta = make(map[string]string)
	m.offered = make(map[string]int)
	m.resets++
	return nil
}

func (m *MockStorage) AddToQueue(urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, url := range urls {
		m.offered[url]++
		if _, exists := m.byURL[url]; exists {
			continue
		}
		item := &mockItem{id: len(m.items) + 1, url: url, status: StatusQueued}
		m.items = append(m.items, item)
		m.byURL[url] = item
	}
	return nil
}

func (m *MockStorage) GetNextFromQueue() (*URLItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nextErr != nil {
		return nil, m.nextErr
	}

	for _, item := range m.items {
		if item.status == StatusQueued {
			item.status = StatusProcessing
			return &URLItem{ID: item.id, URL: item.url}, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) CompletePage(id int, outcome *PageOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.items[id-1]
	item.status = outcome.Status()
	item.outcome = outcome
	return nil
}

func (m *MockStorage) GetQueueStatus() (queued int, processing int, done int, failed int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.items {
		switch item.status {
		case StatusQueued:
			queued++
		case StatusProcessing:
			processing++
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		}
	}
	return queued, processing, done, failed, nil
}

func (m *MockStorage) HasQueuedItems() (bool, error) {
	queued, processing, _, _, _ := m.GetQueueStatus()
	return queued+processing > 0, nil
}

func (m *MockStorage) GetMeta(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[key], nil
}

func (m *MockStorage) SetMeta(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

// status returns the frontier status and outcome recorded for url
func (m *MockStorage) status(url string) (string, *PageOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.byURL[url]
	if !ok {
		return "", nil
	}
	return item.status, item.outcome
}
