package common

import (
	"context"
	"fmt"
	"sync"

	"github.com/mharuka/kabuban/internal/interfaces"
	"github.com/mharuka/kabuban/internal/models"
)

// MemoryStorage is an in-memory StorageManager for unit tests.
type MemoryStorage struct {
	PortfolioStore *MemoryPortfolioStore
	HistoryStore   *MemoryHistoryStore
	AlertStore     *MemoryAlertStore
	KnowledgeStore *MemoryKnowledgeStore
}

// NewMemoryStorage creates an empty in-memory storage manager.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		PortfolioStore: &MemoryPortfolioStore{records: make(map[string]models.Portfolio)},
		HistoryStore:   &MemoryHistoryStore{records: make(map[string]models.Snapshot)},
		AlertStore:     &MemoryAlertStore{records: make(map[string]models.AlertRule)},
		KnowledgeStore: &MemoryKnowledgeStore{records: make(map[string]models.KnowledgeItem)},
	}
}

func (m *MemoryStorage) Portfolios() interfaces.PortfolioStore { return m.PortfolioStore }
func (m *MemoryStorage) History() interfaces.HistoryStore      { return m.HistoryStore }
func (m *MemoryStorage) Alerts() interfaces.AlertStore         { return m.AlertStore }
func (m *MemoryStorage) Knowledge() interfaces.KnowledgeStore  { return m.KnowledgeStore }
func (m *MemoryStorage) Close() error                          { return nil }

// MemoryPortfolioStore is an in-memory PortfolioStore.
type MemoryPortfolioStore struct {
	mu      sync.Mutex
	records map[string]models.Portfolio
}

func (s *MemoryPortfolioStore) Scan(ctx context.Context) ([]models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Portfolio, 0, len(s.records))
	for _, p := range s.records {
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryPortfolioStore) Get(ctx context.Context, name string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *MemoryPortfolioStore) Upsert(ctx context.Context, p *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.Name] = *p
	return nil
}

func (s *MemoryPortfolioStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}

// MemoryHistoryStore is an in-memory HistoryStore keyed by (portfolio, date).
type MemoryHistoryStore struct {
	mu      sync.Mutex
	records map[string]models.Snapshot
}

func (s *MemoryHistoryStore) ScanByPortfolio(ctx context.Context, name string) ([]models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Snapshot
	for _, snap := range s.records {
		if snap.PortfolioName == name {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *MemoryHistoryStore) Upsert(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[snap.PortfolioName+"_"+snap.Date] = *snap
	return nil
}

// MemoryAlertStore is an in-memory AlertStore keyed by (portfolio, type).
type MemoryAlertStore struct {
	mu      sync.Mutex
	records map[string]models.AlertRule
}

func alertKey(name string, alertType models.AlertType) string {
	return name + "_" + string(alertType)
}

func (s *MemoryAlertStore) Scan(ctx context.Context) ([]models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertRule
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryAlertStore) ScanByPortfolio(ctx context.Context, name string) ([]models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AlertRule
	for _, r := range s.records {
		if r.PortfolioName == name {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryAlertStore) Upsert(ctx context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[alertKey(r.PortfolioName, r.Type)] = *r
	return nil
}

func (s *MemoryAlertStore) DeleteMatching(ctx context.Context, name string, alertType models.AlertType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alertKey(name, alertType)
	if _, ok := s.records[key]; !ok {
		return 0, nil
	}
	delete(s.records, key)
	return 1, nil
}

func (s *MemoryAlertStore) SetLastTriggered(ctx context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alertKey(r.PortfolioName, r.Type)
	stored, ok := s.records[key]
	if !ok {
		return models.ErrNotFound
	}
	stored.LastTriggered = r.LastTriggered
	s.records[key] = stored
	return nil
}

// MemoryKnowledgeStore is an in-memory KnowledgeStore keyed by ID.
type MemoryKnowledgeStore struct {
	mu      sync.Mutex
	records map[string]models.KnowledgeItem
}

func (s *MemoryKnowledgeStore) Scan(ctx context.Context) ([]models.KnowledgeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.KnowledgeItem
	for _, item := range s.records {
		out = append(out, item)
	}
	return out, nil
}

func (s *MemoryKnowledgeStore) Upsert(ctx context.Context, item *models.KnowledgeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[item.ID] = *item
	return nil
}

func (s *MemoryKnowledgeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// SentMessage is one message captured by MockSink.
type SentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

// MockSink captures notifications and can simulate per-recipient failures.
type MockSink struct {
	mu      sync.Mutex
	Sent    []SentMessage
	FailFor map[string]bool // recipients whose sends fail
}

// NewMockSink creates an empty capturing sink.
func NewMockSink() *MockSink {
	return &MockSink{FailFor: make(map[string]bool)}
}

func (m *MockSink) Send(ctx context.Context, recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFor[recipient] {
		return fmt.Errorf("simulated send failure for %s", recipient)
	}
	m.Sent = append(m.Sent, SentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the captured messages.
func (m *MockSink) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

var (
	_ interfaces.StorageManager   = (*MemoryStorage)(nil)
	_ interfaces.NotificationSink = (*MockSink)(nil)
)
