package calctl

import "errors"

// Sentinel errors for the calctl client and commands.
var (
	ErrNoToken       = errors.New("no session token; run `calctl link` or set CALMATE_SESSION_TOKEN")
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrNoCode        = errors.New("no authorization code")
	ErrNoRefresh     = errors.New("google did not return a refresh token; revoke access and link again")
)
