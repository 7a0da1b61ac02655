package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// anonymousReplyTemplate is the literal byte sequence emitted for every
// non-session error, verbatim including the Kestrel server banner: the
// point is to make the endpoint indistinguishable from a generic HTTPS
// server to scanners. Keep it byte-exact.
const anonymousReplyTemplate = "HTTP/1.1 401 Unauthorized\r\nContent-Length: 0\r\nDate: %s\r\nServer: Kestrel\r\nWWW-Authenticate: Bearer\r\n"

// WriteAnonymousReply emits the fixed 401 response used for every error
// that is not a session error: unknown client, malformed request,
// unsupported code. No bytes in the reply disclose a session id.
func WriteAnonymousReply(w io.Writer, now time.Time) error {
	date := now.UTC().Format(http.TimeFormat)
	_, err := fmt.Fprintf(w, anonymousReplyTemplate, date)
	return err
}

// WriteSessionError serializes a SessionResponseBase carrying code onto
// stream via framer. The client is known and authenticated enough to
// deserve a structured reply rather than the anonymous 401.
func WriteSessionError(stream application.ClientStream, framer application.Framer, code domain.SessionErrorCode, diagnostic string) error {
	resp := domain.SessionResponseBase{ErrorCode: code, Diagnostic: diagnostic}
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return framer.WriteFrame(stream, body)
}
