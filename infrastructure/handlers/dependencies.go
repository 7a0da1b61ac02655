package handlers

import "tunnelhost/application"

// NetworkFilter carries the local include/exclude IP range configuration
// and capacity limits published to the client in every HelloResponse.
type NetworkFilter struct {
	IncludeIpRanges         []string
	ExcludeIpRanges         []string
	IsIPv6Supported         bool
	MaxDatagramChannelCount int
}

// Dependencies bundles everything a handler needs beyond the request
// itself. It holds no per-connection state and is shared across all
// connections.
type Dependencies struct {
	SessionManager application.SessionManager
	Logger         application.Logger
	Framer         application.Framer
	Filter         NetworkFilter
	ServerVersion  string
	TCPEndpoint    string
	UDPEndpoint    string
}
