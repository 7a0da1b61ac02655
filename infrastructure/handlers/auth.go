package handlers

import (
	"context"
	"encoding/hex"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// authenticate decodes a hex-encoded session key and authenticates it
// against the session named by sessionID, shared by every non-Hello
// handler.
func authenticate(ctx context.Context, deps Dependencies, sessionID uint64, sessionKeyHex string) (application.Session, error) {
	key, err := hex.DecodeString(sessionKeyHex)
	if err != nil {
		return nil, application.NewSessionError(domain.ErrCodeBadSessionKey, "")
	}
	return deps.SessionManager.Authenticate(ctx, application.SessionID(sessionID), key)
}
