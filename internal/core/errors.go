package core

import "errors"

var (
	// ErrRateLimited means the remote asked us to slow down.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransient covers network failures and 5xx answers worth retrying.
	ErrTransient = errors.New("transient failure")
	// ErrMissingCID is returned when a record reference has no CID.
	ErrMissingCID = errors.New("missing cid")
	// ErrMissingRoot is returned when a thread root cannot be determined.
	ErrMissingRoot = errors.New("missing thread root")
	// ErrCancelled marks work abandoned because a force-stop was requested.
	ErrCancelled = errors.New("cancelled by force-stop")
	// ErrNoHistory means the account has no posts to remember.
	ErrNoHistory = errors.New("no post history")
)
