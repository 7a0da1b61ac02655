package main

import (
	"context"
	"flag"
	"log"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunnelhost/infrastructure/config"
	"tunnelhost/infrastructure/framing"
	"tunnelhost/infrastructure/handlers"
	"tunnelhost/infrastructure/host"
	"tunnelhost/infrastructure/logging"
	"tunnelhost/infrastructure/sessionmgr"
	"tunnelhost/infrastructure/tlsacceptor"
	"tunnelhost/infrastructure/udptransmitter"
)

// maxFrameBytes bounds a single request/response body; oversized frames are
// rejected by the framer rather than read into memory.
const maxFrameBytes = 64 * 1024

func main() {
	configPath := flag.String("config", "/etc/tunnelhost/config.json", "path to the server configuration file")
	flag.Parse()

	logger := logging.NewLogLogger()

	cfg, err := config.NewReader(*configPath).Read()
	if err != nil {
		log.Fatalf("tunnelhost: %v", err)
	}

	certSource := tlsacceptor.NewBindAddressCertSource()
	for _, binding := range cfg.Certificates {
		bind, err := netip.ParseAddrPort(binding.BindAddress)
		if err != nil {
			log.Fatalf("tunnelhost: invalid certificate bind address %q: %v", binding.BindAddress, err)
		}
		certSource.Register(bind, binding.CertFile, binding.KeyFile)
	}
	acceptor := tlsacceptor.NewAcceptor(certSource)

	// The UDP socket is bound first so its resolved port can be published
	// to both the session manager and the host before either starts.
	var udpPort int
	var transmitter *udptransmitter.Transmitter
	sessionManager := sessionmgr.NewManager(0)
	if cfg.UDPEndpoint != "" {
		transmitter, err = udptransmitter.New(cfg.UDPEndpoint, sessionManager, logger)
		if err != nil {
			log.Fatalf("tunnelhost: bind UDP endpoint %s: %v", cfg.UDPEndpoint, err)
		}
		udpPort = transmitter.BoundPort()
		sessionManager = sessionmgr.NewManager(udpPort)
	}

	connectionHost := host.New(host.Options{
		TCPEndpoints:   cfg.TCPEndpoints,
		Acceptor:       acceptor,
		SessionManager: sessionManager,
		Logger:         logger,
		Framer:         framing.NewLengthPrefixFramer(maxFrameBytes),
		RequestTimeout: time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		ServerVersion:  cfg.ServerVersion,
		UDPEndpoint:    udpEndpointString(cfg.UDPEndpoint, udpPort),
		Filter: handlers.NetworkFilter{
			IncludeIpRanges:         cfg.IncludeIpRanges,
			ExcludeIpRanges:         cfg.ExcludeIpRanges,
			IsIPv6Supported:         cfg.IsIPv6Supported,
			MaxDatagramChannelCount: cfg.MaxDatagramChannelCount,
		},
	})

	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Printf("shutdown signal received, disposing host")
		appCtxCancel()
	}()

	if transmitter != nil {
		go func() {
			if err := transmitter.Run(appCtx); err != nil {
				logger.Printf("udp transmitter stopped: %v", err)
			}
		}()
	}

	if err := connectionHost.Start(appCtx); err != nil {
		log.Fatalf("tunnelhost: start: %v", err)
	}
	logger.Printf("tunnelhost listening on %v", cfg.TCPEndpoints)

	<-appCtx.Done()

	if err := connectionHost.Dispose(); err != nil {
		logger.Printf("host shutdown error: %v", err)
	}
	if transmitter != nil {
		if err := transmitter.Dispose(); err != nil {
			logger.Printf("udp transmitter shutdown error: %v", err)
		}
	}
}

func udpEndpointString(configured string, resolvedPort int) string {
	if configured == "" {
		return ""
	}
	if resolvedPort == 0 {
		return configured
	}
	addr, err := netip.ParseAddrPort(configured)
	if err != nil {
		return configured
	}
	return netip.AddrPortFrom(addr.Addr(), uint16(resolvedPort)).String()
}
