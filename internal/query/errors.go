package query

import "fmt"

// Kind tags an error with the category a caller-facing boundary (the
// C-handle adapter) needs in order to pick a status code, without that
// boundary ever inspecting error strings.
type Kind int

const (
	KindInvalidName Kind = iota + 1
	KindCRSError
	KindModelLoadError
	KindStateError
)

// Error is the tagged error type every initialize-time and state-machine
// failure in this package reports: one error type per boundary,
// translated to an integer status only at the outermost adapter, never
// inspected by business logic.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func invalidName(name string) error {
	return &Error{Kind: KindInvalidName, Msg: fmt.Sprintf("value name %q not found in model", name)}
}

func crsError(msg string) error {
	return &Error{Kind: KindCRSError, Msg: msg}
}

func modelLoadError(filename string, cause error) error {
	return &Error{Kind: KindModelLoadError, Msg: fmt.Sprintf("load model %q: %v", filename, cause)}
}

func stateError(msg string) error {
	return &Error{Kind: KindStateError, Msg: msg}
}
