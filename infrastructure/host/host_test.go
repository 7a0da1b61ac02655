package host

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"tunnelhost/application"
	"tunnelhost/domain"
	"tunnelhost/infrastructure/framing"
	"tunnelhost/infrastructure/handlers"
	"tunnelhost/infrastructure/sessionmgr"
	"tunnelhost/infrastructure/tlsacceptor"
)

func generateSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

type staticCertSource struct {
	cert tls.Certificate
}

func (s *staticCertSource) CertificateFor(netip.AddrPort) (*tls.Certificate, error) {
	return &s.cert, nil
}
func (s *staticCertSource) ClearCache() {}

func newTestHost(t *testing.T, sm application.SessionManager) *ConnectionHost {
	t.Helper()
	cert := generateSelfSignedCert(t)
	acceptor := tlsacceptor.NewAcceptor(&staticCertSource{cert: cert})
	return New(Options{
		TCPEndpoints:   []string{"127.0.0.1:0"},
		Acceptor:       acceptor,
		SessionManager: sm,
		Logger:         noopLogger{},
		Framer:         framing.NewLengthPrefixFramer(1 << 20),
		RequestTimeout: 5 * time.Second,
		ServerVersion:  "test",
		Filter:         handlers.NetworkFilter{MaxDatagramChannelCount: 1},
	})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

func dialTLS(t *testing.T, addr string) *tls.Conn {
	t.Helper()
	conn, err := tls.Dial("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("tls dial: %v", err)
	}
	return conn
}

func writeRawFrame(t *testing.T, w io.Writer, body []byte) {
	t.Helper()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		t.Fatalf("write length: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("write body: %v", err)
	}
}

func readRawFrame(t *testing.T, r io.Reader) []byte {
	t.Helper()
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		t.Fatalf("read length: %v", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return body
}

func TestHost_S1_RawHelloHappyPath(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Dispose()

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()

	if _, err := conn.Write([]byte{domain.RawTransportByte, byte(domain.Hello)}); err != nil {
		t.Fatalf("write sniff+code: %v", err)
	}
	req := domain.HelloRequest{
		ClientInfo: domain.ClientInfo{ClientId: "c", ProtocolVersion: 2, ClientVersion: "5.0", UserAgent: "ua"},
	}
	body, _ := json.Marshal(req)
	writeRawFrame(t, conn, body)

	respBody := readRawFrame(t, conn)
	var resp domain.HelloResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ServerProtocolVersion != 3 {
		t.Fatalf("ServerProtocolVersion = %d, want 3", resp.ServerProtocolVersion)
	}
	if resp.ErrorCode != domain.ErrCodeOk {
		t.Fatalf("ErrorCode = %q, want Ok", resp.ErrorCode)
	}
}

func TestHost_S2_UnsupportedClientVersion(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Dispose()

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()

	if _, err := conn.Write([]byte{domain.RawTransportByte, byte(domain.Hello)}); err != nil {
		t.Fatalf("write sniff+code: %v", err)
	}
	req := domain.HelloRequest{
		ClientInfo: domain.ClientInfo{ClientId: "c", ProtocolVersion: 1, ClientVersion: "1.0", UserAgent: "ua"},
	}
	body, _ := json.Marshal(req)
	writeRawFrame(t, conn, body)

	respBody := readRawFrame(t, conn)
	var resp domain.SessionResponseBase
	if err := json.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ErrorCode != domain.ErrCodeUnsupportedClient {
		t.Fatalf("ErrorCode = %q, want UnsupportedClient", resp.ErrorCode)
	}
}

func TestHost_S3_UnknownRequestCode(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Dispose()

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()

	if _, err := conn.Write([]byte{domain.RawTransportByte, 0xFF}); err != nil {
		t.Fatalf("write sniff+code: %v", err)
	}

	reply := make([]byte, len("HTTP/1.1 401"))
	if _, err := io.ReadFull(conn, reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != "HTTP/1.1 401" {
		t.Fatalf("reply = %q, want HTTP/1.1 401 prefix", reply)
	}
}

func TestHost_S4_ByeWithoutValidSessionKey(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Dispose()

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()

	if _, err := conn.Write([]byte{domain.RawTransportByte, byte(domain.Bye)}); err != nil {
		t.Fatalf("write sniff+code: %v", err)
	}
	req := domain.ByeRequest{RequestBase: domain.RequestBase{SessionId: 123, SessionKey: hex.EncodeToString([]byte("wrong"))}}
	body, _ := json.Marshal(req)
	writeRawFrame(t, conn, body)

	respBody := readRawFrame(t, conn)
	var resp domain.SessionResponseBase
	if err := json.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ErrorCode != domain.ErrCodeUnknownSession {
		t.Fatalf("ErrorCode = %q, want UnknownSession", resp.ErrorCode)
	}
}

func TestHost_StartPreconditions(t *testing.T) {
	sm := sessionmgr.NewManager(0)

	acceptor := tlsacceptor.NewAcceptor(&staticCertSource{cert: generateSelfSignedCert(t)})
	empty := New(Options{
		TCPEndpoints:   nil,
		Acceptor:       acceptor,
		SessionManager: sm,
		Logger:         noopLogger{},
		Framer:         framing.NewLengthPrefixFramer(1 << 20),
	})
	if err := empty.Start(context.Background()); err != domain.ErrNoTcpEndpoint {
		t.Fatalf("Start with no endpoints = %v, want ErrNoTcpEndpoint", err)
	}

	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := h.Start(context.Background()); err != domain.ErrAlreadyStarted {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	if err := h.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := h.Start(context.Background()); err != domain.ErrDisposed {
		t.Fatalf("Start after Dispose = %v, want ErrDisposed", err)
	}
}

func TestHost_Cancellation_StopCompletesPromptly(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()
	if _, err := conn.Write([]byte{domain.RawTransportByte, byte(domain.Hello)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("Stop did not complete within the request timeout")
	}
	if h.IsStarted() {
		t.Fatal("expected host to report not started after Stop")
	}
}

func TestHost_S5_ChunkedReuse(t *testing.T) {
	sm := sessionmgr.NewManager(0)
	h := newTestHost(t, sm)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Dispose()

	conn := dialTLS(t, h.TCPEndpoints()[0])
	defer conn.Close()
	br := bufio.NewReader(conn)

	helloReq := domain.HelloRequest{
		ClientInfo:    domain.ClientInfo{ClientId: "c", ProtocolVersion: 2, ClientVersion: "5.0", UserAgent: "ua"},
		UseUdpChannel: true,
	}
	helloJSON, _ := json.Marshal(helloReq)
	helloFrame := frameBytes(byte(domain.Hello), helloJSON)
	writeChunkedHTTPRequest(t, conn, helloFrame)

	helloRespFrame := readChunkedHTTPResponse(t, br)
	var helloResp domain.HelloResponse
	if err := json.Unmarshal(helloRespFrame, &helloResp); err != nil {
		t.Fatalf("unmarshal hello response: %v", err)
	}
	if helloResp.ErrorCode != domain.ErrCodeOk {
		t.Fatalf("hello ErrorCode = %q, want Ok", helloResp.ErrorCode)
	}

	udpReq := domain.UdpChannelRequest{RequestBase: domain.RequestBase{SessionId: helloResp.SessionId, SessionKey: helloResp.SessionKey}}
	udpJSON, _ := json.Marshal(udpReq)
	udpFrame := frameBytes(byte(domain.UdpChannel), udpJSON)
	writeChunkedHTTPRequest(t, conn, udpFrame)

	udpRespFrame := readChunkedHTTPResponse(t, br)
	var udpResp domain.UdpChannelSessionResponse
	if err := json.Unmarshal(udpRespFrame, &udpResp); err != nil {
		t.Fatalf("unmarshal udp response: %v", err)
	}
	if udpResp.ErrorCode != domain.ErrCodeOk {
		t.Fatalf("udp ErrorCode = %q, want Ok", udpResp.ErrorCode)
	}
}

func frameBytes(code byte, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(code)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
	return buf.Bytes()
}

func writeChunkedHTTPRequest(t *testing.T, w io.Writer, body []byte) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("POST / HTTP/1.1\r\nHost: tunnel\r\nTransfer-Encoding: chunked\r\n\r\n")
	fmt.Fprintf(&buf, "%x\r\n", len(body))
	buf.Write(body)
	buf.WriteString("\r\n0\r\n\r\n")
	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatalf("write chunked request: %v", err)
	}
}

// readChunkedHTTPResponse reads the literal status line, headers, and
// dechunks the body by hand (rather than net/http.ReadResponse) so the
// test keeps driving the same bufio.Reader across pipelined exchanges.
func readChunkedHTTPResponse(t *testing.T, br *bufio.Reader) []byte {
	t.Helper()
	statusLine, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 200") {
		t.Fatalf("status line = %q", statusLine)
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read header: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}

	var body bytes.Buffer
	for {
		sizeLine, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read chunk size: %v", err)
		}
		sizeLine = strings.TrimSpace(sizeLine)
		var size int64
		if _, err := fmt.Sscanf(sizeLine, "%x", &size); err != nil {
			t.Fatalf("parse chunk size %q: %v", sizeLine, err)
		}
		if size == 0 {
			if _, err := br.ReadString('\n'); err != nil {
				t.Fatalf("read trailer: %v", err)
			}
			break
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(br, chunk); err != nil {
			t.Fatalf("read chunk: %v", err)
		}
		body.Write(chunk)
		if _, err := br.Discard(2); err != nil { // trailing CRLF
			t.Fatalf("discard chunk CRLF: %v", err)
		}
	}

	full := body.Bytes()
	n := binary.LittleEndian.Uint32(full[:4])
	return full[4 : 4+n]
}

// alwaysErrorListener's Accept never succeeds, for driving acceptLoop's
// consecutive-error budget without needing 201 real failed dials.
type alwaysErrorListener struct {
	closed bool
}

func (l *alwaysErrorListener) Accept() (net.Conn, error) {
	return nil, fmt.Errorf("synthetic accept failure")
}

func (l *alwaysErrorListener) Close() error {
	l.closed = true
	return nil
}

func (l *alwaysErrorListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4zero, Port: 0}
}

func TestHost_AcceptLoop_StopsAfterErrorBudgetExceeded(t *testing.T) {
	h := &ConnectionHost{
		logger: noopLogger{},
	}
	ln := &alwaysErrorListener{}

	err := h.acceptLoop(context.Background(), ln)
	if err == nil {
		t.Fatal("expected acceptLoop to return a fatal error once the accept error budget is exceeded")
	}
	if !strings.Contains(err.Error(), "accept error budget exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}
