package apperr

import "errors"

// Sentinel errors shared by the store, membership engine and delivery router.
// All of them are local and recoverable: handlers map them to a status code,
// the websocket router reports them back on the originating connection only.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrUnknownGroup       = errors.New("unknown group")
	ErrUnknownUser        = errors.New("unknown user")
	ErrUnknownMember      = errors.New("unknown member")
	ErrInvalidMessage     = errors.New("message needs content or attachments")
	ErrInvalidContent     = errors.New("invalid content")
	ErrInvalidName        = errors.New("invalid group name")
	ErrAlreadyMember      = errors.New("already a member")
	ErrNotAMember         = errors.New("not a member")
	ErrNoOp               = errors.New("nothing to change")
	ErrCreatorCannotLeave = errors.New("creator cannot leave")
)
