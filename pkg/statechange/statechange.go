// Package statechange drives the provider-state setup and teardown of an
// interaction through a caller-supplied Handler.
package statechange

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/logging"
)

// Handler puts the provider into a state. setup is false during teardown.
// The returned values are merged into the provider-state parameters seen by
// later lookups.
type Handler interface {
	StateChange(ctx context.Context, state contract.ProviderState, setup bool) (map[string]any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, state contract.ProviderState, setup bool) (map[string]any, error)

// StateChange implements Handler.
func (f HandlerFunc) StateChange(ctx context.Context, state contract.ProviderState, setup bool) (map[string]any, error) {
	return f(ctx, state, setup)
}

// Result is the outcome of setting up the states of one interaction.
type Result struct {
	// Params is the union of the state parameters and the handler results.
	Params map[string]any
	// Message is the interaction message followed by the states that were
	// set up, e.g. "Verifying x Given a And b".
	Message string
}

// Executor runs state changes.
type Executor struct {
	handler Handler
	logger  *slog.Logger
}

// NewExecutor returns an executor calling h. A nil logger disables logging.
func NewExecutor(h Handler, logger *slog.Logger) *Executor {
	return &Executor{handler: h, logger: logging.Component(logger, "statechange")}
}

// Execute sets up the provider states of interaction in order. It stops at
// the first failing state and records the error under the message built so
// far in failures. An interaction without states calls the handler once
// with an unnamed state.
func (e *Executor) Execute(ctx context.Context, interaction contract.Interaction, message string, failures map[string]string) (Result, error) {
	result := Result{Params: map[string]any{}, Message: message}

	states := interaction.Info().ProviderStates
	if len(states) == 0 {
		values, err := e.call(ctx, contract.ProviderState{}, true)
		if err != nil {
			failures[result.Message] = err.Error()
			return result, err
		}
		merge(result.Params, values)
		return result, nil
	}

	for i, state := range states {
		values, err := e.call(ctx, state, true)
		if err != nil {
			failures[result.Message] = err.Error()
			return result, fmt.Errorf("state change %q failed: %w", state.Name, err)
		}
		if i == 0 {
			result.Message += " Given " + state.Name
		} else {
			result.Message += " And " + state.Name
		}
		merge(result.Params, state.Params)
		merge(result.Params, values)
	}
	return result, nil
}

// Teardown calls the handler with setup false for every provider state.
// Errors are logged, not returned.
func (e *Executor) Teardown(ctx context.Context, interaction contract.Interaction) {
	states := interaction.Info().ProviderStates
	if len(states) == 0 {
		states = []contract.ProviderState{{}}
	}
	for _, state := range states {
		if _, err := e.call(ctx, state, false); err != nil {
			e.logger.Warn("state change teardown failed", "state", state.Name, "error", err)
		}
	}
}

func (e *Executor) call(ctx context.Context, state contract.ProviderState, setup bool) (map[string]any, error) {
	values, err := e.handler.StateChange(ctx, state, setup)
	e.logger.Debug("state change", "state", state.Name, "setup", setup, "error", err)
	return values, err
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
