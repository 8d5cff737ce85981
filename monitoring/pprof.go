package monitoring

import (
	"errors"
	"net/http"
	_ "net/http/pprof"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// PProf exposes the runtime profiling endpoints on their own listener,
// separate from the vault API, so profile scrapes never share a port with
// uploads. Disabled unless profiling_listen is set in the config.
type PProf struct {
	srv     *http.Server
	listen  string
	started atomic.Bool
}

func NewPProf(listenAddr string) *PProf {
	// nil handler means http.DefaultServeMux, which is where the
	// net/http/pprof import registers its routes
	server := &http.Server{
		Addr:    listenAddr,
		Handler: nil,
	}

	return &PProf{
		srv:    server,
		listen: listenAddr,
	}
}

// Start serves profiling requests in a new goroutine. Repeated calls are
// ignored while the server is up.
func (p *PProf) Start() {
	if !p.started.CompareAndSwap(false, true) {
		log.Debug().Msg("profiling server already running, ignoring duplicate Start call")
		return
	}

	go func() {
		log.Info().Str("addr", p.listen).Msg("profiling server listening")
		err := p.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("profiling server failed")
		}
	}()
}

// Stop closes the profiling listener and allows a later restart.
func (p *PProf) Stop() error {
	log.Info().Msg("shutting down profiling server")
	err := p.srv.Close()
	p.started.Store(false)
	return err
}
