package media

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	files   map[string][]byte
	types   map[string]string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: baseURL, files: make(map[string][]byte), types: make(map[string]string)}
}

func (m *Memory) Upload(_ context.Context, _ string, r io.Reader, c Constraints) (string, error) {
	body, format, err := Inspect(r, c)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := strconv.Itoa(len(m.files) + 1)
	m.files[id] = b
	m.types[id] = ContentType(format)
	return publicURL(m.baseURL, id), nil
}

func (m *Memory) Open(_ context.Context, id string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), m.types[id], nil
}
