package sessionmgr

import (
	"io"
	"net"

	"tunnelhost/application"
)

// pumpDatagramChannel keeps a datagram channel's stream drained once it has
// been handed off to the session. Real packet delivery to a TUN device or
// equivalent is a deployment concern outside this default manager; this
// loop only owns the stream's lifecycle so the handoff contract (ownership
// transfers on a nil AttachDatagramChannel error) is honored.
func pumpDatagramChannel(stream application.ClientStream) {
	buf := make([]byte, 32*1024)
	for {
		if _, err := stream.Read(buf); err != nil {
			break
		}
	}
	_ = stream.Dispose(false)
}

// spliceProxyChannel dials destination and copies bytes in both directions
// until either side closes, then disposes both ends. This is the one
// channel kind the default manager can usefully implement end to end
// without any external packet-routing collaborator.
func spliceProxyChannel(stream application.ClientStream, destination string) {
	outbound, err := net.Dial("tcp", destination)
	if err != nil {
		_ = stream.Dispose(false)
		return
	}

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(outbound, stream)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(stream, outbound)
		done <- struct{}{}
	}()
	<-done

	_ = outbound.Close()
	_ = stream.Dispose(false)
}
