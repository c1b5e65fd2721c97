package closecode

var fatal = map[Type]bool{
	AuthenticationFailed: true,
	InvalidShard:         true,
	ShardingRequired:     true,
	InvalidAPIVersion:    true,
	InvalidIntents:       true,
	DisallowedIntents:    true,
}

// CanReconnectAfter reports whether a new connection may be opened after the
// server closed the previous one with the given code.
func CanReconnectAfter(code Type) bool {
	return !fatal[code]
}

// CanResumeAfter reports whether the session of the closed connection can be resumed.
// Codes that tell the client to start a new session, and a normal closure, can not.
func CanResumeAfter(code Type) bool {
	switch code {
	case Normal, InvalidSeq, SessionTimedOut:
		return false
	}
	return CanReconnectAfter(code)
}
