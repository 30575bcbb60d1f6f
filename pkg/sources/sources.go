// Package sources provides the injectable view of the process environment,
// filesystem, wall clock, and HTTP transport that all resolution chains and
// credential providers read through.
//
// Resolution logic never touches os.Getenv, os.ReadFile, time.Now, or a
// http.Client directly. Everything goes through a *Sources value, so tests can
// substitute the whole bundle with in-memory shims (see testing.go) and drive
// resolution without real I/O.
//
// A Sources value is shared by the loader, every default chain, and every
// credential provider it constructs. It is read-only from the engine's
// perspective and safe for concurrent use.
package sources

import (
	"net/http"
	"os"
	"time"
)

// Env is a read-only view of process environment variables.
type Env interface {
	// Lookup returns the value of the variable and whether it is set.
	// An empty-but-set variable returns ("", true).
	Lookup(key string) (string, bool)
}

// FS is a read-only view of the filesystem.
type FS interface {
	// ReadFile reads the named file and returns its contents.
	ReadFile(path string) ([]byte, error)

	// HomeDir returns the current user's home directory.
	HomeDir() (string, error)
}

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// HTTPClient issues a single HTTP request. It matches the transport interface
// the AWS SDK v2 service clients accept, so one injected transport serves both
// the local endpoints (IMDS, container credentials) and the regional identity
// services (STS, SSO).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sources bundles the four capabilities. The zero value is not usable; build
// one with Default or with the test shims in this package.
type Sources struct {
	Env        Env
	FS         FS
	Clock      Clock
	HTTPClient HTTPClient
}

// Default returns Sources backed by the real process environment, the OS
// filesystem, the system clock, and http.DefaultClient.
func Default() *Sources {
	return &Sources{
		Env:        osEnv{},
		FS:         osFS{},
		Clock:      systemClock{},
		HTTPClient: http.DefaultClient,
	}
}

type osEnv struct{}

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (osFS) HomeDir() (string, error) { return os.UserHomeDir() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
