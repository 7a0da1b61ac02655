package domain

import "errors"

var (
	// ErrNoTcpEndpoint is returned by ConnectionHost.Start when the TCP
	// endpoint set is empty.
	ErrNoTcpEndpoint = errors.New("no TcpEndPoint")
	// ErrAlreadyStarted is returned by Start when the host is already running.
	ErrAlreadyStarted = errors.New("host already started")
	// ErrDisposed is returned by Start on a host that has been disposed.
	ErrDisposed = errors.New("host disposed")
)
