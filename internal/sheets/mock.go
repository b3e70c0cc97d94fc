package sheets

import (
	"context"
	"sync"

	"github.com/moneytalks-bot/moneytalks/internal/service"
)

// MockTransport is a scriptable in-memory implementation of
// service.LedgerTransport for testing.
type MockTransport struct {
	AppendRowFunc         func(ctx context.Context, spreadsheetID, section string, row service.LedgerRow) (int64, error)
	ReadCategoriesFunc    func(ctx context.Context, spreadsheetID, section string) ([]string, error)
	DeleteRowByMarkerFunc func(ctx context.Context, spreadsheetID, section, marker string) error

	appendCalls []AppendCall
	readCalls   []ReadCall
	deleteCalls []DeleteCall
	mu          sync.Mutex
}

// AppendCall records one AppendRow invocation.
type AppendCall struct {
	SpreadsheetID string
	Section       string
	Row           service.LedgerRow
}

// ReadCall records one ReadCategories invocation.
type ReadCall struct {
	SpreadsheetID string
	Section       string
}

// DeleteCall records one DeleteRowByMarker invocation.
type DeleteCall struct {
	SpreadsheetID string
	Section       string
	Marker        string
}

// NewMockTransport creates a mock that succeeds with defaults until
// scripted otherwise.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// AppendRow implements service.LedgerTransport.
func (m *MockTransport) AppendRow(ctx context.Context, spreadsheetID, section string, row service.LedgerRow) (int64, error) {
	m.mu.Lock()
	m.appendCalls = append(m.appendCalls, AppendCall{SpreadsheetID: spreadsheetID, Section: section, Row: row})
	fn := m.AppendRowFunc
	calls := len(m.appendCalls)
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, spreadsheetID, section, row)
	}
	return int64(calls + 1), nil
}

// ReadCategories implements service.CategorySource.
func (m *MockTransport) ReadCategories(ctx context.Context, spreadsheetID, section string) ([]string, error) {
	m.mu.Lock()
	m.readCalls = append(m.readCalls, ReadCall{SpreadsheetID: spreadsheetID, Section: section})
	fn := m.ReadCategoriesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, spreadsheetID, section)
	}
	return nil, nil
}

// DeleteRowByMarker implements service.LedgerTransport.
func (m *MockTransport) DeleteRowByMarker(ctx context.Context, spreadsheetID, section, marker string) error {
	m.mu.Lock()
	m.deleteCalls = append(m.deleteCalls, DeleteCall{SpreadsheetID: spreadsheetID, Section: section, Marker: marker})
	fn := m.DeleteRowByMarkerFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, spreadsheetID, section, marker)
	}
	return nil
}

// AppendCalls returns a copy of all recorded AppendRow calls.
func (m *MockTransport) AppendCalls() []AppendCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]AppendCall, len(m.appendCalls))
	copy(calls, m.appendCalls)
	return calls
}

// ReadCalls returns a copy of all recorded ReadCategories calls.
func (m *MockTransport) ReadCalls() []ReadCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ReadCall, len(m.readCalls))
	copy(calls, m.readCalls)
	return calls
}

// DeleteCalls returns a copy of all recorded DeleteRowByMarker calls.
func (m *MockTransport) DeleteCalls() []DeleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]DeleteCall, len(m.deleteCalls))
	copy(calls, m.deleteCalls)
	return calls
}

// Reset clears all recorded calls.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendCalls = nil
	m.readCalls = nil
	m.deleteCalls = nil
}
