// environment_test.go - Tests fuer das Environment-Singleton
package ort_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/boydjohnson/onnxruntime/logutil"
	"github.com/boydjohnson/onnxruntime/ort"
	"github.com/boydjohnson/onnxruntime/ort/orttest"
)

// newFake liefert ein frisches Fake-ABI und prueft, dass kein Environment lebt
func newFake(t *testing.T) *orttest.ABI {
	t.Helper()
	if ort.Live() {
		t.Fatal("ein Environment eines vorherigen Tests lebt noch")
	}
	return orttest.New()
}

func build(t *testing.T, abi ort.ABI, name string) *ort.Environment {
	t.Helper()
	env, err := ort.NewEnvBuilder().
		WithName(name).
		WithLogLevel(ort.LoggingLevelWarning).
		WithABI(abi).
		Build()
	if err != nil {
		t.Fatalf("Build(%q): %v", name, err)
	}
	return env
}

func handle(t *testing.T, env *ort.Environment) ort.EnvPtr {
	t.Helper()
	ptr, err := env.Handle()
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return ptr
}

// TestSequentialEnvironmentCreation prueft, dass alle Builds dasselbe Handle teilen
func TestSequentialEnvironmentCreation(t *testing.T) {
	fake := newFake(t)

	first := build(t, fake, "sequential_environment_creation")
	envs := []*ort.Environment{first}
	prev := handle(t, first)

	for i := range 10 {
		env := build(t, fake, fmt.Sprintf("sequential_environment_creation: %d", i))
		envs = append(envs, env)

		next := handle(t, env)
		if next != prev {
			t.Errorf("Build %d: Handle %#x, erwartet %#x", i, next, prev)
		}
		if env.Name() != "sequential_environment_creation" {
			t.Errorf("Build %d: Name %q", i, env.Name())
		}
		prev = next
	}

	if fake.Creates() != 1 {
		t.Errorf("Creates: erwartet 1, bekommen %d", fake.Creates())
	}

	for _, env := range envs[:len(envs)-1] {
		if err := env.Close(); err != nil {
			t.Fatal(err)
		}
		if fake.EnvReleases() != 0 {
			t.Fatal("Environment wurde vor der letzten Referenz freigegeben")
		}
	}
	if !ort.Live() {
		t.Fatal("Environment sollte noch leben")
	}

	if err := envs[len(envs)-1].Close(); err != nil {
		t.Fatal(err)
	}
	if fake.EnvReleases() != 1 || fake.BadReleases() != 0 {
		t.Errorf("Releases: erwartet 1, bekommen %d (ungueltig: %d)", fake.EnvReleases(), fake.BadReleases())
	}
	if ort.Live() {
		t.Error("Environment sollte freigegeben sein")
	}
}

// TestConcurrentEnvironmentCreations baut zehn Environments parallel zu einem bestehenden
func TestConcurrentEnvironmentCreations(t *testing.T) {
	fake := newFake(t)

	mainEnv := build(t, fake, "t")
	mainPtr := handle(t, mainEnv)

	var (
		mu   sync.Mutex
		envs []*ort.Environment
	)

	var g errgroup.Group
	for i := range 10 {
		g.Go(func() error {
			env, err := ort.NewEnvBuilder().
				WithName(fmt.Sprintf("concurrent_environment_creation: %d", i)).
				WithLogLevel(ort.LoggingLevelVerbose).
				WithABI(fake).
				Build()
			if err != nil {
				return err
			}

			mu.Lock()
			envs = append(envs, env)
			mu.Unlock()

			ptr, err := env.Handle()
			if err != nil {
				return err
			}
			if ptr != mainPtr {
				return fmt.Errorf("Handle %#x, erwartet %#x", ptr, mainPtr)
			}
			if env.Name() != "t" {
				return fmt.Errorf("Name %q, erwartet %q", env.Name(), "t")
			}
			if env.LogLevel() != ort.LoggingLevelWarning {
				return fmt.Errorf("LogLevel %v, erwartet warning", env.LogLevel())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, "t", mainEnv.Name())
	require.Equal(t, mainPtr, handle(t, mainEnv))
	require.Equal(t, 1, fake.Creates())

	for _, env := range append(envs, mainEnv) {
		require.NoError(t, env.Close())
	}
	require.Equal(t, 1, fake.EnvReleases())
	require.Zero(t, fake.LiveEnvs())
}

// TestConcurrentFirstBuild laesst viele Goroutinen gleichzeitig das erste Environment anfordern
func TestConcurrentFirstBuild(t *testing.T) {
	fake := newFake(t)
	fake.BeforeCreate(func() { time.Sleep(20 * time.Millisecond) })

	const workers = 32
	envs := make([]*ort.Environment, workers)
	start := make(chan struct{})

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			env, err := ort.NewEnvBuilder().WithName(fmt.Sprintf("racer %d", i)).WithABI(fake).Build()
			envs[i] = env
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	require.Equal(t, 1, fake.Creates())
	first := handle(t, envs[0])
	for i, env := range envs {
		require.Equal(t, first, handle(t, env), "racer %d", i)
		require.Equal(t, envs[0].Name(), env.Name(), "racer %d", i)
		require.True(t, strings.HasPrefix(env.Name(), "racer "))
	}

	for _, env := range envs {
		require.NoError(t, env.Close())
	}
	require.Equal(t, 1, fake.EnvReleases())
}

// TestBuildFailure prueft die Fehlerklassifizierung und einen spaeteren Neuversuch
func TestBuildFailure(t *testing.T) {
	fake := newFake(t)
	fake.FailCreate(&ort.Status{Code: ort.CodeFail, Message: "no threads"})

	_, err := ort.NewEnvBuilder().WithName("broken").WithABI(fake).Build()
	if !errors.Is(err, ort.ErrEnvironmentCreation) {
		t.Fatalf("erwartet ErrEnvironmentCreation, bekommen %v", err)
	}

	var status *ort.Status
	if !errors.As(err, &status) || status.Code != ort.CodeFail || status.Message != "no threads" {
		t.Errorf("Status nicht erhalten: %v", err)
	}
	if ort.Live() {
		t.Fatal("nach fehlgeschlagenem Build darf kein Environment leben")
	}

	fake.FailCreate(nil)
	env := build(t, fake, "recovered")
	defer env.Close()

	if env.Name() != "recovered" {
		t.Errorf("Name: %q", env.Name())
	}
	if fake.Creates() != 2 {
		t.Errorf("Creates: erwartet 2, bekommen %d", fake.Creates())
	}
}

// TestConcurrentBuildFailure prueft, dass alle Wettlaeufer den Fehler sehen
func TestConcurrentBuildFailure(t *testing.T) {
	fake := newFake(t)
	fake.FailCreate(&ort.Status{Code: ort.CodeRuntimeException, Message: "boom"})
	fake.BeforeCreate(func() { time.Sleep(10 * time.Millisecond) })

	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ort.NewEnvBuilder().WithABI(fake).Build()
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.ErrorIs(t, err, ort.ErrEnvironmentCreation, "racer %d", i)
	}
	require.False(t, ort.Live())
	require.Zero(t, fake.LiveEnvs())
}

// TestCloseTwice prueft, dass doppeltes Schliessen ein Fehler ist
func TestCloseTwice(t *testing.T) {
	fake := newFake(t)
	env := build(t, fake, "close twice")

	require.NoError(t, env.Close())
	require.ErrorIs(t, env.Close(), ort.ErrReleased)

	_, err := env.Handle()
	require.ErrorIs(t, err, ort.ErrReleased)

	_, err = env.Clone()
	require.ErrorIs(t, err, ort.ErrReleased)

	require.Equal(t, "close twice", env.Name())
	require.Equal(t, 1, fake.EnvReleases())
	require.Zero(t, fake.BadReleases())
}

// TestCloneOutlivesOriginal prueft die Referenzzaehlung ueber Clone
func TestCloneOutlivesOriginal(t *testing.T) {
	fake := newFake(t)
	env := build(t, fake, "owner")

	clone, err := env.Clone()
	require.NoError(t, err)
	require.NoError(t, env.Close())

	require.True(t, ort.Live())
	require.Zero(t, fake.EnvReleases())
	require.Equal(t, "owner", clone.Name())

	ptr, err := clone.Handle()
	require.NoError(t, err)
	require.NotZero(t, ptr)

	require.NoError(t, clone.Close())
	require.Equal(t, 1, fake.EnvReleases())
}

// TestRecreateAfterRelease prueft, dass nach voller Freigabe neu erstellt wird
func TestRecreateAfterRelease(t *testing.T) {
	fake := newFake(t)

	first := build(t, fake, "first")
	require.NoError(t, first.Close())

	second := build(t, fake, "second")
	defer second.Close()

	require.Equal(t, "second", second.Name())
	require.Equal(t, 2, fake.Creates())
	require.Equal(t, 1, fake.LiveEnvs())
}

// TestNativeLogForwarding prueft die Weiterleitung nativer Logs nach slog
func TestNativeLogForwarding(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logutil.NewLogger(&buf, logutil.LevelTrace))
	t.Cleanup(func() { slog.SetDefault(prev) })

	fake := newFake(t)
	env := build(t, fake, "logging")
	defer env.Close()

	fake.Log(ort.LoggingLevelWarning, "graph optimizer skipped a node")
	fake.Log(ort.LoggingLevelVerbose, "allocating arena")

	out := buf.String()
	for _, want := range []string{
		`level=WARN`,
		`msg="graph optimizer skipped a node"`,
		`category=orttest`,
		`logid=fake`,
		`level=TRACE`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Log-Ausgabe enthaelt %q nicht:\n%s", want, out)
		}
	}
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("handler exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }

// TestNativeLogPanicContained prueft, dass Panics im Logger nicht in den nativen Code laufen
func TestNativeLogPanicContained(t *testing.T) {
	fake := newFake(t)
	env := build(t, fake, "panicking logger")
	defer env.Close()

	prev := slog.Default()
	slog.SetDefault(slog.New(panicHandler{}))
	fake.Log(ort.LoggingLevelError, "this handler panics")
	slog.SetDefault(prev)
}

// TestNoBackend prueft den Fehler ohne registriertes Backend
func TestNoBackend(t *testing.T) {
	newFake(t)

	_, err := ort.NewEnvBuilder().Build()
	require.ErrorIs(t, err, ort.ErrEnvironmentCreation)
	require.ErrorIs(t, err, ort.ErrNoBackend)
	require.False(t, ort.Live())
}

// TestBuilderDefaults prueft die Defaults aus der Umgebung
func TestBuilderDefaults(t *testing.T) {
	t.Setenv("ORT_ENV_NAME", "from-env")
	t.Setenv("ORT_LOG_SEVERITY", "error")

	fake := newFake(t)
	env, err := ort.NewEnvBuilder().WithABI(fake).Build()
	require.NoError(t, err)
	defer env.Close()

	require.Equal(t, "from-env", env.Name())
	require.Equal(t, ort.LoggingLevelError, env.LogLevel())
	require.Same(t, fake, env.ABI())
}
