// cmd_env.go - Environment Commands
// Hauptfunktionen: EnvHandler, StressHandler
package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/boydjohnson/onnxruntime/logutil"
	"github.com/boydjohnson/onnxruntime/ort"
)

// EnvHandler - Baut das Environment und gibt Name und Handle aus
func EnvHandler(cmd *cobra.Command, args []string) error {
	b := envBuilder()

	if name, _ := cmd.Flags().GetString("name"); name != "" {
		b.WithName(name)
	}

	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		level, err := ort.ParseLoggingLevel(s)
		if err != nil {
			return err
		}
		b.WithLogLevel(level)
	}

	env, err := b.Build()
	if err != nil {
		return err
	}
	defer env.Close()

	handle, err := env.Handle()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "name:      %s\n", env.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "log level: %s\n", env.LogLevel())
	fmt.Fprintf(cmd.OutOrStdout(), "handle:    %#x\n", uintptr(handle))
	return nil
}

// StressHandler - Baut ein Environment und danach viele parallel mit anderen
// Namen; alle muessen dasselbe Handle und den ersten Namen liefern
func StressHandler(cmd *cobra.Command, args []string) error {
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	} else if workers < 1 {
		return fmt.Errorf("invalid value for --workers: %d", workers)
	}

	first, err := envBuilder().WithName("stress").Build()
	if err != nil {
		return err
	}
	defer first.Close()

	want, err := first.Handle()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	envs := make([]*ort.Environment, 0, workers)
	defer func() {
		for _, env := range envs {
			env.Close()
		}
	}()

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			env, err := envBuilder().WithName(fmt.Sprintf("stress-%d", i)).Build()
			if err != nil {
				return err
			}

			mu.Lock()
			envs = append(envs, env)
			mu.Unlock()

			handle, err := env.Handle()
			if err != nil {
				return err
			}
			logutil.Trace("worker built environment", "worker", i, "name", env.Name(), "handle", fmt.Sprintf("%#x", uintptr(handle)))

			if handle != want {
				return fmt.Errorf("worker %d: handle %#x, expected %#x", i, uintptr(handle), uintptr(want))
			} else if env.Name() != first.Name() {
				return fmt.Errorf("worker %d: name %q, expected %q", i, env.Name(), first.Name())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d environments share handle %#x named %q\n", workers+1, uintptr(want), first.Name())
	return nil
}
