package service

// ConnectionError is returned when connecting, negotiating TLS or
// authenticating fails. Its message is the transport's own message.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// SendError is returned when the connection was verified but the test
// message could not be delivered.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }
