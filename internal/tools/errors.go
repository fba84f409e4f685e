package tools

import "fmt"

// UnknownToolError is returned when the model names a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// MissingArgumentError is returned when a required argument is absent or empty.
type MissingArgumentError struct {
	Tool     string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument %q", e.Tool, e.Argument)
}

// MalformedToolCallError is returned when the arguments cannot be decoded
// against the tool's declared parameters.
type MalformedToolCallError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *MalformedToolCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed arguments: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed arguments: %s", e.Tool, e.Reason)
}

func (e *MalformedToolCallError) Unwrap() error {
	return e.Err
}
