package host

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/handlers"
	"tunnelhost/infrastructure/tlsacceptor"
)

// acceptErrorBudget is the per-listener tolerance for consecutive accept
// errors before the host stops itself.
const acceptErrorBudget = 200

// Options configures a ConnectionHost at construction.
type Options struct {
	TCPEndpoints   []string
	Acceptor       *tlsacceptor.Acceptor
	SessionManager application.SessionManager
	Logger         application.Logger
	Framer         application.Framer
	RequestTimeout time.Duration
	ServerVersion  string
	UDPEndpoint    string
	Filter         handlers.NetworkFilter
}

// ConnectionHost owns the TCP listeners, their accept loops, and the
// lifecycle state machine described in spec §4.6. It holds no UDP socket
// itself; UDP transmitters are constructed and driven separately and
// report into the same SessionManager.
type ConnectionHost struct {
	mu sync.Mutex

	tcpEndpoints   []string
	acceptor       *tlsacceptor.Acceptor
	requestTimeout time.Duration
	logger         application.Logger
	deps           handlers.Dependencies

	isStarted  bool
	isDisposed bool

	listeners []net.Listener
	cancel    context.CancelFunc
	group     *errgroup.Group
	stopOnce  sync.Once
}

func New(opts Options) *ConnectionHost {
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &ConnectionHost{
		tcpEndpoints:   opts.TCPEndpoints,
		acceptor:       opts.Acceptor,
		requestTimeout: requestTimeout,
		logger:         opts.Logger,
		deps: handlers.Dependencies{
			SessionManager: opts.SessionManager,
			Logger:         opts.Logger,
			Framer:         opts.Framer,
			Filter:         opts.Filter,
			ServerVersion:  opts.ServerVersion,
			UDPEndpoint:    opts.UDPEndpoint,
		},
	}
}

// Start binds every configured TCP endpoint and spawns one accept loop per
// listener. Failure at any step unwinds every listener already bound.
func (h *ConnectionHost) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.isDisposed {
		h.mu.Unlock()
		return domain.ErrDisposed
	}
	if h.isStarted {
		h.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	if len(h.tcpEndpoints) == 0 {
		h.mu.Unlock()
		return domain.ErrNoTcpEndpoint
	}

	listeners := make([]net.Listener, 0, len(h.tcpEndpoints))
	for _, addr := range h.tcpEndpoints {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			for _, bound := range listeners {
				_ = bound.Close()
			}
			h.mu.Unlock()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		listeners = append(listeners, ln)
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	h.deps.TCPEndpoint = listeners[0].Addr().String()
	h.listeners = listeners
	h.cancel = cancel
	h.group = group
	h.isStarted = true
	h.stopOnce = sync.Once{}
	h.mu.Unlock()

	for _, ln := range listeners {
		ln := ln
		group.Go(func() error {
			return h.acceptLoop(groupCtx, ln)
		})
	}

	go func() {
		<-runCtx.Done()
		h.mu.Lock()
		for _, ln := range h.listeners {
			_ = ln.Close()
		}
		h.mu.Unlock()
	}()

	return nil
}

// acceptLoop accepts connections until cancelled or the listener closes,
// detaching each connection onto its own goroutine. More than
// acceptErrorBudget consecutive accept errors without an intervening
// success trigger an asynchronous Stop.
func (h *ConnectionHost) acceptLoop(ctx context.Context, ln net.Listener) error {
	consecutiveErrors := 0
	for {
		conn, err := ln.Accept()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			consecutiveErrors++
			h.logger.Printf("accept error (%d/%d): %v", consecutiveErrors, acceptErrorBudget, err)
			if consecutiveErrors > acceptErrorBudget {
				h.logger.Printf("fatal: accept error budget exceeded, stopping host")
				go func() { _ = h.Stop() }()
				return fmt.Errorf("accept error budget exceeded: %w", err)
			}
			continue
		}
		consecutiveErrors = 0
		go h.serveConnection(ctx, conn)
	}
}

// Stop cancels the host's running context, closes every listener, and
// waits for every accept loop to return. Safe to call multiple times and
// concurrently with Dispose.
func (h *ConnectionHost) Stop() error {
	h.mu.Lock()
	if !h.isStarted {
		h.mu.Unlock()
		return nil
	}
	cancel := h.cancel
	group := h.group
	h.mu.Unlock()

	var err error
	h.stopOnce.Do(func() {
		cancel()
		err = group.Wait()
		h.acceptor.ClearCache()

		h.mu.Lock()
		h.isStarted = false
		h.listeners = nil
		h.mu.Unlock()
	})
	return err
}

// Dispose stops the host if running and marks it permanently disposed.
func (h *ConnectionHost) Dispose() error {
	err := h.Stop()
	h.mu.Lock()
	h.isDisposed = true
	h.mu.Unlock()
	return err
}

// IsStarted reports whether the host is currently accepting connections.
func (h *ConnectionHost) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isStarted
}

// IsDisposed reports whether Dispose has been called.
func (h *ConnectionHost) IsDisposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isDisposed
}

// TCPEndpoints reports the effective bound TCP addresses after Start.
func (h *ConnectionHost) TCPEndpoints() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	addrs := make([]string, 0, len(h.listeners))
	for _, ln := range h.listeners {
		addrs = append(addrs, ln.Addr().String())
	}
	return addrs
}
