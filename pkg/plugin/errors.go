package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Plugin errors. Not-found is a configuration error raised while loading;
// the others surface from calls to a running plugin.
var (
	// ErrPluginNotFound is returned when no manifest matches a requested plugin.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrPluginTimeout is returned when a plugin does not answer in time.
	ErrPluginTimeout = errors.New("plugin call timed out")

	// ErrPluginUnavailable is returned when a plugin process cannot be
	// started or reached, or has exited.
	ErrPluginUnavailable = errors.New("plugin unavailable")

	// ErrPluginProtocol is returned when a plugin answers with an error or a
	// message that cannot be decoded.
	ErrPluginProtocol = errors.New("plugin protocol error")
)

// NotFoundError describes a plugin that could not be resolved.
type NotFoundError struct {
	Name    string
	Version string
	Dir     string
	// Available lists the name/version pairs that were found instead.
	Available []string
}

func (e *NotFoundError) Error() string {
	want := e.Name
	if e.Version != "" {
		want += "/" + e.Version
	}
	msg := fmt.Sprintf("plugin %s not found in %s", want, e.Dir)
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

// Unwrap makes errors.Is(err, ErrPluginNotFound) work.
func (e *NotFoundError) Unwrap() error { return ErrPluginNotFound }

// ProtocolError carries the details of an error reported by a plugin.
// Reason and Domain come from a google.rpc.ErrorInfo detail when the plugin
// sends one.
type ProtocolError struct {
	Plugin  string
	Method  string
	Message string
	Reason  string
	Domain  string
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("plugin %s: %s: %s", e.Plugin, e.Method, e.Message)
	if e.Reason != "" {
		msg += " (reason " + e.Reason + ")"
	}
	return msg
}

// Unwrap makes errors.Is(err, ErrPluginProtocol) work.
func (e *ProtocolError) Unwrap() error { return ErrPluginProtocol }
