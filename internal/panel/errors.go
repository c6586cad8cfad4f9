package panel

import "errors"

var (
	// ErrInvalidChannel is returned for a channel index outside 0..ChannelCount-1.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidElapsed is returned by Tick for a non-positive delta.
	ErrInvalidElapsed = errors.New("invalid elapsed time")
	// ErrInvalidMode is returned when Unset or an unknown mode is requested.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidTiming is returned for a negative start delay or duration.
	ErrInvalidTiming = errors.New("invalid timing")
	// ErrUnsetModeObserved is reported (never returned) when a tick finds a
	// channel that was never given a mode. The channel is forced Off.
	ErrUnsetModeObserved = errors.New("unset mode observed")
)
