package playback

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a controller that is
	// already running.
	ErrAlreadyStarted = errors.New("playback: already started")
	// ErrSessionSpent is returned by Start on a controller that has
	// already completed one start/stop cycle. Per spec §3, started
	// transitions monotonically false→true→false within a session; a
	// stopped controller can only be re-driven by constructing a new one.
	ErrSessionSpent = errors.New("playback: session already ran; construct a new Controller")
)
