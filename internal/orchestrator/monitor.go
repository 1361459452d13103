package orchestrator

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor sonda periodicamente o endpoint de saúde e informa o cliente.
type Monitor struct {
	client   *Client
	url      string
	interval time.Duration
	http     *http.Client
	logger   zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor cria o monitor de conectividade.
func NewMonitor(client *Client, healthURL string, interval time.Duration, httpClient *http.Client, logger zerolog.Logger) *Monitor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		client:   client,
		url:      healthURL,
		interval: interval,
		http:     httpClient,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start inicia o loop. Chamadas repetidas não criam novos loops.
func (m *Monitor) Start(parent context.Context) {
	m.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		m.cancel = cancel
		go m.runLoop(ctx)
	})
}

// Stop encerra o loop e aguarda a última sonda terminar.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) runLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug().Dur("interval", m.interval).Msg("monitor: loop iniciado")
	m.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug().Msg("monitor: loop encerrado")
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce executa uma sonda e devolve o relatório da drenagem disparada, se houver.
func (m *Monitor) RunOnce(ctx context.Context) DrainReport {
	online := m.probe(ctx)
	if ctx.Err() != nil {
		return DrainReport{}
	}
	report := m.client.SetOnline(ctx, online)
	if report.Sent > 0 || report.Failed > 0 {
		m.logger.Info().Int("sent", report.Sent).Int("failed", report.Failed).Int("remaining", report.Remaining).Msg("monitor: fila drenada")
	}
	return report
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		m.logger.Error().Err(err).Msg("monitor: url de saúde inválida")
		return false
	}
	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Debug().Err(err).Msg("monitor: sonda falhou")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < http.StatusInternalServerError
}
