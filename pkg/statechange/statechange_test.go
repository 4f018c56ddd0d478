package statechange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contracts/pkg/contract"
)

type call struct {
	state string
	setup bool
}

// recorder records calls and fails for the states in failOn.
type recorder struct {
	calls  []call
	failOn map[string]error
	values map[string]map[string]any
}

func (r *recorder) StateChange(_ context.Context, state contract.ProviderState, setup bool) (map[string]any, error) {
	r.calls = append(r.calls, call{state: state.Name, setup: setup})
	if err := r.failOn[state.Name]; err != nil {
		return nil, err
	}
	return r.values[state.Name], nil
}

func interaction(states ...contract.ProviderState) *contract.RequestResponse {
	i := &contract.RequestResponse{Request: contract.NewRequest(), Response: contract.NewResponse()}
	i.ProviderStates = states
	return i
}

func TestExecute(t *testing.T) {
	r := &recorder{values: map[string]map[string]any{
		"a user exists":   {"userId": 42},
		"an order exists": {"orderId": "o-1", "userId": 43},
	}}
	failures := map[string]string{}

	result, err := NewExecutor(r, nil).Execute(context.Background(), interaction(
		contract.ProviderState{Name: "a user exists", Params: map[string]any{"name": "bob"}},
		contract.ProviderState{Name: "an order exists"},
	), "Verifying a request", failures)

	require.NoError(t, err)
	assert.Equal(t, "Verifying a request Given a user exists And an order exists", result.Message)
	assert.Equal(t, map[string]any{"name": "bob", "userId": 43, "orderId": "o-1"}, result.Params)
	assert.Empty(t, failures)
	assert.Equal(t, []call{{"a user exists", true}, {"an order exists", true}}, r.calls)
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("database is down")
	r := &recorder{failOn: map[string]error{"b": boom}}
	failures := map[string]string{}

	result, err := NewExecutor(r, nil).Execute(context.Background(), interaction(
		contract.ProviderState{Name: "a"},
		contract.ProviderState{Name: "b"},
		contract.ProviderState{Name: "c"},
	), "Verifying", failures)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, "Verifying Given a", result.Message)
	assert.Equal(t, map[string]string{"Verifying Given a": "database is down"}, failures)
	assert.Len(t, r.calls, 2)
}

func TestExecute_NoStates(t *testing.T) {
	r := &recorder{values: map[string]map[string]any{"": {"k": "v"}}}
	result, err := NewExecutor(r, nil).Execute(context.Background(), interaction(), "Verifying", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "Verifying", result.Message)
	assert.Equal(t, map[string]any{"k": "v"}, result.Params)
	assert.Equal(t, []call{{"", true}}, r.calls)
}

func TestTeardown(t *testing.T) {
	r := &recorder{failOn: map[string]error{"a": errors.New("ignored")}}
	NewExecutor(r, nil).Teardown(context.Background(), interaction(
		contract.ProviderState{Name: "a"},
		contract.ProviderState{Name: "b"},
	))
	assert.Equal(t, []call{{"a", false}, {"b", false}}, r.calls)
}

func TestHandlerFunc(t *testing.T) {
	var got string
	h := HandlerFunc(func(_ context.Context, state contract.ProviderState, _ bool) (map[string]any, error) {
		got = state.Name
		return nil, nil
	})
	_, err := NewExecutor(h, nil).Execute(context.Background(), interaction(contract.ProviderState{Name: "x"}), "m", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}
