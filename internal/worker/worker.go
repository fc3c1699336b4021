// Package worker runs registered tasks on a fixed interval until stopped.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Worker manages periodic background tasks.
type Worker struct {
	tasks  []Task
	config Config
	logger *slog.Logger

	// Synchronization
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Register adds a task to the worker. Call this before Start().
func (w *Worker) Register(task Task) {
	w.tasks = append(w.tasks, task)
	w.logger.Debug("Registered task", "task", task.Name())
}

// Start runs every task once and then on each tick until Stop is called or
// ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Worker started", "tasks", len(w.tasks), "interval", w.config.Interval)
}

// Stop signals the worker to stop and waits for it to finish.
// It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopCh)
	})

	// Wait for the loop with timeout
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, a task may still be running")
	}
}

// run is the main loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.runAll(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runAll(ctx)
		}
	}
}

func (w *Worker) runAll(ctx context.Context) {
	for _, task := range w.tasks {
		w.runTask(ctx, task)
	}
}

// runTask executes a single task with timeout and panic recovery.
func (w *Worker) runTask(ctx context.Context, task Task) {
	logger := w.logger.With("task", task.Name())

	taskCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked", "panic", r)
		}
	}()

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		logger.Error("Task failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Debug("Task completed", "duration", time.Since(start))
}
