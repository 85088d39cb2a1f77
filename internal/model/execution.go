package model

import "slices"

// RaisedException describes the exception that escaped an interpreter run.
type RaisedException struct {
	Name     string   `json:"name"`
	MRO      []string `json:"mro"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Filename string   `json:"filename"`
}

// Is reports whether the exception is, or inherits from, the named class.
func (e *RaisedException) Is(name string) bool {
	if e == nil {
		return false
	}

	return e.Name == name || slices.Contains(e.MRO, name)
}

// IsAny reports whether the exception matches one of the names.
func (e *RaisedException) IsAny(names ...string) bool {
	for _, name := range names {
		if e.Is(name) {
			return true
		}
	}

	return false
}

// Execution is the outcome of running one code unit in a fresh interpreter.
type Execution struct {
	OK        bool
	TimedOut  bool
	Stdout    string
	Exception *RaisedException
}

// Crashed reports whether an exception escaped the unit.
func (e Execution) Crashed() bool {
	return e.Exception != nil
}
