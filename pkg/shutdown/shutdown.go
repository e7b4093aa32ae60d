package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/pkg/errors"
)

// CleanupFunc releases one resource. Cleanups receive the shutdown deadline.
type CleanupFunc func(timeoutCtx context.Context) error

// WaitForShutdown blocks until SIGINT or SIGTERM, then runs the cleanups in order
// within timeout.
//
// Usage:
//
//	shutdown.WaitForShutdown(ctx, 5*time.Second,
//	    func(ctx context.Context) error { server.Shutdown(ctx); return nil },
//	    func(ctx context.Context) error { pool.Close(); return nil },
//	    func(ctx context.Context) error { return manager.Close() },
//	)
func WaitForShutdown(rootCtx context.Context, timeout time.Duration, cleanups ...CleanupFunc) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	return waitAndCleanUp(rootCtx, signals, timeout, cleanups)
}

func waitAndCleanUp(rootCtx context.Context, signals <-chan os.Signal, timeout time.Duration, cleanups []CleanupFunc) error {
	select {
	case sig := <-signals:
		logx.GetLogger().LogDebug(rootCtx, fmt.Sprintf("Interrupt signal captured: %s", sig.String()))
	case <-rootCtx.Done():
		logx.GetLogger().LogDebug(rootCtx, "Root context done, shutting down")
	}

	// rootCtx may already be cancelled here, cleanups still get their full budget
	timeoutCtx, cancel := context.WithTimeout(context.WithoutCancel(rootCtx), timeout)
	defer cancel()

	return cleanUp(timeoutCtx, cleanups)
}

// cleanUp runs the cleanups sequentially and waits for either all of them to
// complete or the deadline. The first error is returned, the rest are logged.
func cleanUp(timeoutCtx context.Context, cleanups []CleanupFunc) error {
	logx.GetLogger().LogInfo(timeoutCtx, "Cleaning up all resources ....")

	done := make(chan error, 1)

	go func() {
		var firstErr error
		for i, cleanup := range cleanups {
			if cleanup == nil {
				continue
			}
			if err := cleanup(timeoutCtx); err != nil {
				logx.GetLogger().LogError(timeoutCtx, fmt.Sprintf("cleanup %d failed", i), err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		done <- firstErr
	}()

	select {
	case <-timeoutCtx.Done():
		logx.GetLogger().LogError(timeoutCtx, "Deadline exceeded during cleanup", timeoutCtx.Err())
		return errors.Wrap(timeoutCtx.Err(), "cleanup did not complete")
	case err := <-done:
		if err == nil {
			logx.GetLogger().LogInfo(timeoutCtx, "All resources cleaned up")
		}
		return err
	}
}

// RunTaskWithContextCancellationCheck runs task and, on SIGINT or SIGTERM, closes
// terminateSignal so the task can finish its current unit of work before its
// context is cancelled.
func RunTaskWithContextCancellationCheck(rootCtx context.Context, task func(cancelCtx context.Context, terminateSignal <-chan struct{}) error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigs)

	return runTask(rootCtx, sigs, task)
}

func runTask(rootCtx context.Context, sigs <-chan os.Signal, task func(cancelCtx context.Context, terminateSignal <-chan struct{}) error) error {
	cancelCtx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	terminateSignal := make(chan struct{})
	taskCompleted := make(chan error, 1)

	go func() {
		taskCompleted <- task(cancelCtx, terminateSignal)
	}()

	var err error
	select {
	case sig := <-sigs:
		logx.GetLogger().LogInfo(cancelCtx, fmt.Sprintf("Received signal: %s", sig))
		close(terminateSignal)
		err = <-taskCompleted
	case err = <-taskCompleted:
	}

	if err != nil {
		logx.GetLogger().LogError(cancelCtx, "Task error", err)
	}

	return err
}
