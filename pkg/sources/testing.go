package sources

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// MapEnv is an in-memory Env backed by a map. The zero value is an empty
// environment.
type MapEnv map[string]string

// Lookup implements Env.
func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// MapFS is an in-memory FS. Files maps absolute paths to contents; Home is
// returned by HomeDir and defaults to "/home/test" when empty.
type MapFS struct {
	Files map[string][]byte
	Home  string
}

// ReadFile implements FS.
func (m *MapFS) ReadFile(path string) ([]byte, error) {
	if data, ok := m.Files[path]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("open %s: no such file or directory", path)
}

// HomeDir implements FS.
func (m *MapFS) HomeDir() (string, error) {
	if m.Home == "" {
		return "/home/test", nil
	}
	return m.Home, nil
}

// ManualClock is a Clock whose time only moves when the test advances it.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// HTTPClientFunc adapts a function to the HTTPClient interface.
type HTTPClientFunc func(req *http.Request) (*http.Response, error)

// Do implements HTTPClient.
func (f HTTPClientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// NeverHTTPClient returns an HTTPClient that fails every request, standing in
// for an environment with no reachable network endpoints.
func NeverHTTPClient() HTTPClient {
	return HTTPClientFunc(func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("dial tcp %s: connect: connection refused", req.URL.Host)
	})
}

// Stubbed returns Sources wired entirely to in-memory shims: env and files as
// given, a manual clock at now, and a transport that refuses all connections.
func Stubbed(env map[string]string, files map[string][]byte, now time.Time) *Sources {
	return &Sources{
		Env:        MapEnv(env),
		FS:         &MapFS{Files: files},
		Clock:      NewManualClock(now),
		HTTPClient: NeverHTTPClient(),
	}
}
