package config

// CertificateBinding names a bind address and the certificate/key files the
// TLS acceptor should present for it.
type CertificateBinding struct {
	BindAddress string `json:"BindAddress"`
	CertFile    string `json:"CertFile"`
	KeyFile     string `json:"KeyFile"`
}

// Config is the on-disk shape of the server's configuration file.
type Config struct {
	TCPEndpoints     []string             `json:"TCPEndpoints"`
	UDPEndpoint      string               `json:"UDPEndpoint,omitempty"`
	Certificates     []CertificateBinding `json:"Certificates"`
	RequestTimeoutMs int                  `json:"RequestTimeoutMs"`
	ErrorBudget      int                  `json:"ErrorBudget"`
	ServerVersion    string               `json:"ServerVersion"`
	MaxDatagramChannelCount int           `json:"MaxDatagramChannelCount"`
	IncludeIpRanges  []string             `json:"IncludeIpRanges,omitempty"`
	ExcludeIpRanges  []string             `json:"ExcludeIpRanges,omitempty"`
	IsIPv6Supported  bool                 `json:"IsIPv6Supported"`
}

const (
	DefaultRequestTimeoutMs        = 60000
	DefaultErrorBudget             = 200
	DefaultMaxDatagramChannelCount = 1
)

// NewDefaultConfig mirrors the zero-config defaults a fresh deployment
// should start from.
func NewDefaultConfig() *Config {
	return &Config{
		TCPEndpoints:            []string{":443"},
		RequestTimeoutMs:        DefaultRequestTimeoutMs,
		ErrorBudget:             DefaultErrorBudget,
		ServerVersion:           "dev",
		MaxDatagramChannelCount: DefaultMaxDatagramChannelCount,
	}
}

// ApplyDefaults fills zero-valued fields that must not end up as zero.
func (c *Config) ApplyDefaults() {
	if c.RequestTimeoutMs <= 0 {
		c.RequestTimeoutMs = DefaultRequestTimeoutMs
	}
	if c.ErrorBudget <= 0 {
		c.ErrorBudget = DefaultErrorBudget
	}
	if c.MaxDatagramChannelCount <= 0 {
		c.MaxDatagramChannelCount = DefaultMaxDatagramChannelCount
	}
}
