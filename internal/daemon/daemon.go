package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"callconsole/internal/logging"
	"callconsole/internal/store"
)

// Daemon serves the remote session API over HTTP.
type Daemon struct {
	addr    string
	token   string
	version string
	metrics bool
	repo    store.Repository
	logger  logging.Logger
	api     *API
	server  *http.Server
}

func New(addr, token, version string, repo store.Repository, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	hub := NewTranscriptHub(logger)
	d := &Daemon{
		addr:    addr,
		token:   token,
		version: version,
		metrics: true,
		repo:    repo,
		logger:  logger,
	}
	d.api = &API{
		Version:     version,
		Calls:       NewCallService(repo, hub, logger),
		Notes:       NewNoteService(repo),
		Chat:        NewChatService(repo, nil, logger),
		Transcripts: NewTranscriptService(repo, hub),
		Hub:         hub,
		Logger:      logger,
	}
	return d
}

// SetMetrics toggles the public /metrics endpoint.
func (d *Daemon) SetMetrics(enabled bool) {
	d.metrics = enabled
}

// Handler returns the router without starting a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.Router(d.token, d.metrics)
}

// Run listens on the configured address until ctx is cancelled or the
// shutdown endpoint is called.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return err
	}
	return d.Serve(ctx, ln)
}

func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	d.server = &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.api.Shutdown = d.server.Shutdown
	defer d.api.Hub.CloseAll()

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", ln.Addr().String()), logging.F("version", d.version))
		errCh <- d.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return d.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
