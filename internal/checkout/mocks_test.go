package checkout

import (
	"context"
	"sync"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
)

type mockTokens struct {
	token string
	err   error
}

func (m mockTokens) Token(context.Context) (string, error) {
	return m.token, m.err
}

type mockAddressSaver struct {
	m     sync.Mutex
	calls int
	got   domain.DeliveryAddress
	saved *domain.DeliveryAddress
	err   error
}

func (m *mockAddressSaver) CreateAddress(_ context.Context, _ string, addr domain.DeliveryAddress) (*domain.DeliveryAddress, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	m.got = addr
	if m.err != nil {
		return nil, m.err
	}
	return m.saved, nil
}

func (m *mockAddressSaver) callCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.calls
}

type mockOrderSubmitter struct {
	m       sync.Mutex
	calls   int
	got     domain.OrderSubmission
	keys    []string
	tokens  []string
	receipt *domain.OrderReceipt
	err     error

	// started and release make SubmitOrder block until the test lets it go.
	started chan struct{}
	release chan struct{}
}

func (m *mockOrderSubmitter) SubmitOrder(ctx context.Context, token, key string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	m.m.Lock()
	m.calls++
	m.got = sub
	m.keys = append(m.keys, key)
	m.tokens = append(m.tokens, token)
	started, release := m.started, m.release
	m.m.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.m.Lock()
	defer m.m.Unlock()
	return m.receipt, m.err
}

func (m *mockOrderSubmitter) callCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.calls
}

func (m *mockOrderSubmitter) submission() domain.OrderSubmission {
	m.m.Lock()
	defer m.m.Unlock()
	return m.got
}

type mockPublisher struct {
	m      sync.Mutex
	events []domain.OrderPlaced
	err    error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, e domain.OrderPlaced) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.events = append(m.events, e)
	return m.err
}
