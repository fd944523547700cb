package tent

import (
	"context"
	"fmt"
	"sync"
)

// A fake resolver, for use in tests
type MockResolver struct {
	mu     *sync.RWMutex
	Posts  map[string][]Post
	Errors map[string]error
	Calls  map[string]int
	Purged map[string]int
}

var _ Resolver = (*MockResolver)(nil)

func NewMockResolver() MockResolver {
	return MockResolver{
		mu:     &sync.RWMutex{},
		Posts:  make(map[string][]Post),
		Errors: make(map[string]error),
		Calls:  make(map[string]int),
		Purged: make(map[string]int),
	}
}

func (m *MockResolver) Insert(uri string, posts []Post) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Posts[uri] = posts
	delete(m.Errors, uri)
}

// Makes every later resolution of uri fail with err.
func (m *MockResolver) Fail(uri string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Errors[uri] = err
	delete(m.Posts, uri)
}

func (m *MockResolver) Resolve(ctx context.Context, uri string) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls[uri]++
	if uri == "" {
		return nil, ErrEmptyURI
	}
	if err, ok := m.Errors[uri]; ok {
		return nil, err
	}
	posts, ok := m.Posts[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, uri)
	}
	return posts, nil
}

func (m *MockResolver) Purge(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Purged[uri]++
	return nil
}

// Number of times Resolve has been called for uri.
func (m *MockResolver) CallCount(uri string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Calls[uri]
}
