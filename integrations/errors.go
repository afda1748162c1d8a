package integrations

import "fmt"

// FetchError reports a request that never produced a usable response:
// transport failures, auth token failures and undecodable bodies.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RemoteError reports a non-2xx response. Message is the text the API sent
// back, meant to be shown to the user unchanged.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: kanban API returned %d: %s", e.Op, e.Status, e.Message)
}
