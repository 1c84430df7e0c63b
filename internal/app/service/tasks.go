package service

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// TaskTimeout es lo máximo que vive una tarea lanzada con Spawn.
const TaskTimeout = 30 * time.Second

// Tasks lanza trabajo en segundo plano sin esperarlo.
// No hay orden garantizado respecto de quien la lanzó; los errores sólo se loguean.
type Tasks struct {
	wg sync.WaitGroup
}

func NewTasks() *Tasks { return &Tasks{} }

// Spawn corre fn en una goroutine propia con su propio context (no el del handler).
func (t *Tasks) Spawn(name string, fn func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[task] panic en %s: %v\n%s", name, rec, debug.Stack())
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), TaskTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[task] %s: %v", name, err)
		}
	}()
}

// Wait espera las tareas en vuelo o hasta que ctx termine. false = timeout.
func (t *Tasks) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
