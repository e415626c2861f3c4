// Package workers runs periodic background jobs on tickers.
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"leadboard/internal/logging"
)

type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Manager runs each registered worker once at start and then on its interval until Stop.
type Manager struct {
	log      *zap.Logger
	timeout  time.Duration
	mu       sync.Mutex
	workers  []Worker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		log:      logging.OrNop(log).Named("workers"),
		timeout:  2 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
	m.log.Info("worker registered", zap.String("worker", w.Name()), zap.Duration("interval", w.Interval()))
}

// Names lists registered workers in registration order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.workers))
	for i, w := range m.workers {
		names[i] = w.Name()
	}
	return names
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		m.wg.Add(1)
		go m.loop(w)
	}
}

func (m *Manager) loop(w Worker) {
	defer m.wg.Done()
	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	m.execute(w)
	for {
		select {
		case <-ticker.C:
			m.execute(w)
		case <-m.stopChan:
			m.log.Debug("worker stopped", zap.String("worker", w.Name()))
			return
		}
	}
}

func (m *Manager) execute(w Worker) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	start := time.Now()
	if err := w.Run(ctx); err != nil {
		m.log.Error("worker run failed", zap.String("worker", w.Name()), zap.Error(err))
		return
	}
	m.log.Debug("worker run", zap.String("worker", w.Name()), zap.Duration("took", time.Since(start)))
}

// Stop signals every worker and waits for in-flight runs.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
}
