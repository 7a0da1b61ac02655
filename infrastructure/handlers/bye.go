package handlers

import (
	"context"
	"encoding/json"

	"tunnelhost/application"
	"tunnelhost/domain"
)

// HandleBye implements §4.7 Bye: authenticate, close the session, and
// dispose with no response body.
func HandleBye(ctx context.Context, stream application.ClientStream, deps Dependencies) (Outcome, error) {
	body, err := deps.Framer.ReadFrame(stream)
	if err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	var req domain.ByeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return DisposeUngraceful, &application.RequestParseError{Cause: err}
	}

	session, err := authenticate(ctx, deps, req.SessionId, req.SessionKey)
	if err != nil {
		return DisposeUngraceful, err
	}

	if err := deps.SessionManager.Close(ctx, session.ID()); err != nil {
		return DisposeUngraceful, err
	}

	return DisposeUngraceful, nil
}
