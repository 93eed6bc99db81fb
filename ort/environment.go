// environment.go - Prozessweites Environment-Singleton mit Referenzzaehlung
// Enthält: EnvBuilder, Environment, Build, Clone, Close, Live
//
// Zustaende: Uninitialized -> Creating -> Ready -> Released (refs == 0).
// Gleichzeitige Build-Aufrufe teilen sich genau einen nativen Create-Aufruf.

package ort

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/boydjohnson/onnxruntime/envconfig"
)

var (
	// envMu guards shared and every sharedEnv's refs and ptr
	envMu  sync.Mutex
	shared *sharedEnv

	creation singleflight.Group
)

// sharedEnv owns the native environment handle
type sharedEnv struct {
	abi   ABI
	ptr   EnvPtr
	name  string
	level LoggingLevel
	refs  int
}

func (s *sharedEnv) release() {
	envMu.Lock()
	defer envMu.Unlock()

	s.refs--
	switch {
	case s.refs > 0:
		return
	case s.refs < 0:
		panic("ort: environment reference count below zero")
	case s.ptr == 0:
		panic("ort: releasing a null environment handle")
	case shared != s:
		panic("ort: releasing an environment that is not live")
	}

	slog.Debug("releasing environment", "name", s.name, "ptr", fmt.Sprintf("%#x", uintptr(s.ptr)))
	s.abi.ReleaseEnv(s.ptr)
	s.ptr = 0
	shared = nil
}

// acquire returns the live environment with an extra reference, or nil
func acquire() *sharedEnv {
	envMu.Lock()
	defer envMu.Unlock()

	if shared == nil {
		return nil
	}
	shared.refs++
	return shared
}

// Live reports whether a native environment currently exists.
func Live() bool {
	envMu.Lock()
	defer envMu.Unlock()
	return shared != nil
}

// EnvBuilder configures the process-wide environment.
//
// Only one native environment exists per process. If one is already live,
// Build returns a new reference to it and the builder's name, log level and
// ABI are ignored: the first successful Build wins.
type EnvBuilder struct {
	name  string
	level LoggingLevel
	abi   ABI
}

// NewEnvBuilder returns a builder with defaults taken from ORT_ENV_NAME and
// ORT_LOG_SEVERITY.
func NewEnvBuilder() *EnvBuilder {
	level, err := ParseLoggingLevel(envconfig.LogSeverity())
	if err != nil {
		level = LoggingLevelWarning
	}

	return &EnvBuilder{
		name:  envconfig.EnvName(),
		level: level,
	}
}

// WithName sets the environment name. Ignored if an environment is live.
func (b *EnvBuilder) WithName(name string) *EnvBuilder {
	b.name = name
	return b
}

// WithLogLevel sets the native log severity. Ignored if an environment is live.
func (b *EnvBuilder) WithLogLevel(level LoggingLevel) *EnvBuilder {
	b.level = level
	return b
}

// WithABI selects the native function table instead of the default backend.
// Ignored if an environment is live.
func (b *EnvBuilder) WithABI(abi ABI) *EnvBuilder {
	b.abi = abi
	return b
}

// Build returns a reference to the process-wide environment, creating it on
// first use. Failures wrap ErrEnvironmentCreation.
func (b *EnvBuilder) Build() (*Environment, error) {
	for {
		if s := acquire(); s != nil {
			if s.name != b.name || s.level != b.level {
				slog.Debug("environment already exists, ignoring configuration", "name", s.name, "requested", b.name)
			}
			return newEnvironment(s), nil
		}

		if _, err, _ := creation.Do("environment", b.create); err != nil {
			return nil, err
		}
	}
}

func (b *EnvBuilder) create() (any, error) {
	envMu.Lock()
	defer envMu.Unlock()

	if shared != nil {
		return nil, nil
	}

	abi := b.abi
	if abi == nil {
		var err error
		if abi, err = NewABI(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEnvironmentCreation, err)
		}
	}

	slog.Debug("environment not yet initialized, creating a new one", "name", b.name, "log_level", b.level)
	ptr, err := abi.CreateEnvWithCustomLogger(forwardLog, b.level, b.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironmentCreation, err)
	} else if ptr == 0 {
		return nil, fmt.Errorf("%w: native call returned a null handle", ErrEnvironmentCreation)
	}

	shared = &sharedEnv{abi: abi, ptr: ptr, name: b.name, level: b.level}
	slog.Debug("environment created", "name", b.name, "ptr", fmt.Sprintf("%#x", uintptr(ptr)))
	return nil, nil
}

// envRef is one counted reference; it is kept apart from Environment so a
// cleanup can drop it after the Environment becomes unreachable
type envRef struct {
	shared *sharedEnv
	closed atomic.Bool
}

func (r *envRef) drop() bool {
	if r.closed.Swap(true) {
		return false
	}
	r.shared.release()
	return true
}

// Environment is one reference to the process-wide native environment. The
// native handle is released when the last reference is closed.
type Environment struct {
	ref     *envRef
	cleanup runtime.Cleanup
}

func newEnvironment(s *sharedEnv) *Environment {
	e := &Environment{ref: &envRef{shared: s}}
	e.cleanup = runtime.AddCleanup(e, func(r *envRef) {
		if r.drop() {
			slog.Warn("environment reference was not closed", "name", r.shared.name)
		}
	}, e.ref)
	return e
}

// Name returns the name the environment was created with.
func (e *Environment) Name() string {
	return e.ref.shared.name
}

// LogLevel returns the native log severity the environment was created with.
func (e *Environment) LogLevel() LoggingLevel {
	return e.ref.shared.level
}

// ABI returns the function table that created the environment.
func (e *Environment) ABI() ABI {
	return e.ref.shared.abi
}

// Handle returns the native environment pointer. It stays valid while e (or
// any other reference) is open.
func (e *Environment) Handle() (EnvPtr, error) {
	envMu.Lock()
	defer envMu.Unlock()

	if e.ref.closed.Load() {
		return 0, ErrReleased
	}
	return e.ref.shared.ptr, nil
}

// Clone returns an additional reference to the same environment.
func (e *Environment) Clone() (*Environment, error) {
	envMu.Lock()
	defer envMu.Unlock()

	if e.ref.closed.Load() {
		return nil, ErrReleased
	}
	e.ref.shared.refs++
	return newEnvironment(e.ref.shared), nil
}

// Close drops this reference. Closing twice returns ErrReleased.
func (e *Environment) Close() error {
	if !e.ref.drop() {
		return ErrReleased
	}
	e.cleanup.Stop()
	return nil
}

// LogValue implements slog.LogValuer.
func (e *Environment) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", e.Name()),
		slog.String("log_level", e.LogLevel().String()),
		slog.Bool("closed", e.ref.closed.Load()),
	)
}
