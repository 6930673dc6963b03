package internal

import "errors"

// Error kinds of the network bootstrap. Returned errors wrap one of those
// together with the underlying cause and can be checked by errors.Is.
var (
	ErrCapacity          = errors.New("too many listening addresses")
	ErrSyntax            = errors.New("malformed listen address")
	ErrResolve           = errors.New("cannot resolve listen address")
	ErrUnsupportedFamily = errors.New("address family not supported")
	ErrOptionUnsupported = errors.New("socket option not supported")
	ErrBind              = errors.New("cannot create listening socket")
	ErrSecurity          = errors.New("cannot drop privileges")
	ErrDaemonize         = errors.New("daemonization failed")
	ErrUnsupported       = errors.New("not supported on this platform")
)
