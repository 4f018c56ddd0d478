package plugin

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/matching"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

const customType = "application/x-custom"

type handlerFunc func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// fakePlugin serves the plugin interface in-process.
type fakePlugin struct {
	mu      sync.Mutex
	init    handlerFunc
	compare handlerFunc
	last    *structpb.Struct
}

func (f *fakePlugin) lastRequest() *structpb.Struct {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakePlugin) unary(fn func() handlerFunc) grpc.MethodHandler {
	return func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.last = in
		f.mu.Unlock()
		return fn()(ctx, in)
	}
}

func startFakePlugin(t *testing.T, f *fakePlugin) string {
	t.Helper()
	if f.init == nil {
		f.init = func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"catalogue": []any{
					map[string]any{
						"type":   EntryTypeContentMatcher,
						"key":    "custom",
						"values": map[string]any{"content-types": customType + ";application/x-other"},
					},
					map[string]any{"type": "TRANSPORT", "key": "custom-transport"},
				},
			})
		}
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "InitPlugin", Handler: f.unary(func() handlerFunc { return f.init })},
			{MethodName: "CompareContents", Handler: f.unary(func() handlerFunc { return f.compare })},
		},
	}, f)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func dial(t *testing.T, addr string) *GRPCClient {
	t.Helper()
	c, err := DialGRPC("custom/1.0.0", addr, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func customBody(s string) contract.Body {
	return contract.NewBody([]byte(s), customType)
}

func TestGRPCClient_InitPlugin(t *testing.T) {
	addr := startFakePlugin(t, &fakePlugin{})
	c := dial(t, addr)

	resp, err := c.InitPlugin(context.Background(), InitPluginRequest{Implementation: "contracts", Version: "1.2.3"})
	require.NoError(t, err)
	require.Len(t, resp.Catalogue, 2)
	assert.Equal(t, "custom", resp.Catalogue[0].Key)
	assert.Equal(t, []string{customType, "application/x-other"}, resp.Catalogue[0].ContentTypes())
	assert.Empty(t, resp.Catalogue[1].ContentTypes())
}

func TestContentMatcher_MatchBody(t *testing.T) {
	f := &fakePlugin{
		compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"results": map[string]any{
					"$.b": []any{map[string]any{"expected": "2", "actual": "3", "mismatch": "b differs"}},
					"$.a": []any{map[string]any{"expected": "1", "actual": "4", "mismatch": "a differs", "path": "$.a"}},
				},
			})
		},
	}
	c := dial(t, startFakePlugin(t, f))
	cm := &ContentMatcher{plugin: "custom/1.0.0", key: "custom", client: c, timeout: time.Second}
	assert.Equal(t, "plugin:custom/1.0.0/custom", cm.Name())

	rules := matchingrules.NewCategory("body")
	rules.AddRule("$.a", matchingrules.TypeMatch())
	mc := matching.NewContext(rules, matching.AllowUnexpectedKeys(true))

	mismatches, err := cm.MatchBody(context.Background(), customBody("a=1,b=2"), customBody("a=4,b=3"), mc)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "$.a", mismatches[0].Path())
	assert.Equal(t, "$.b", mismatches[1].Path())
	assert.Equal(t, "b differs", mismatches[1].Description())

	req := f.lastRequest().GetFields()
	assert.True(t, req["allowUnexpectedKeys"].GetBoolValue())
	assert.Equal(t, customType, req["expected"].GetStructValue().GetFields()["contentType"].GetStringValue())
	assert.Contains(t, req["rules"].GetStructValue().GetFields(), "$.a")
}

func TestContentMatcher_TypeMismatchReplacesResults(t *testing.T) {
	f := &fakePlugin{
		compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"typeMismatch": map[string]any{"expected": customType, "actual": "text/plain"},
				"results":      map[string]any{"$": []any{map[string]any{"mismatch": "ignored"}}},
			})
		},
	}
	cm := &ContentMatcher{plugin: "custom/1.0.0", key: "custom", client: dial(t, startFakePlugin(t, f))}

	mismatches, err := cm.MatchBody(context.Background(), customBody("x"), customBody("y"), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.IsType(t, matching.BodyTypeMismatch{}, mismatches[0])
}

func TestContentMatcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		compare handlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "timeout",
			compare: func(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPluginTimeout)
			},
		},
		{
			name: "error info",
			compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				st, err := status.New(codes.InvalidArgument, "rules are invalid").
					WithDetails(&errdetails.ErrorInfo{Reason: "INVALID_RULES", Domain: "plugin.example"})
				if err != nil {
					return nil, err
				}
				return nil, st.Err()
			},
			check: func(t *testing.T, err error) {
				var perr *ProtocolError
				require.ErrorAs(t, err, &perr)
				assert.ErrorIs(t, err, ErrPluginProtocol)
				assert.Equal(t, "INVALID_RULES", perr.Reason)
				assert.Equal(t, "plugin.example", perr.Domain)
				assert.Equal(t, "rules are invalid", perr.Message)
			},
		},
		{
			name: "error field",
			compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return structpb.NewStruct(map[string]any{"error": "cannot parse body"})
			},
			check: func(t *testing.T, err error) {
				var perr *ProtocolError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "cannot parse body", perr.Message)
			},
		},
		{
			name: "unavailable",
			compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return nil, status.Error(codes.Unavailable, "shutting down")
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrPluginUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakePlugin{compare: tt.compare}
			cm := &ContentMatcher{plugin: "custom/1.0.0", key: "custom", client: dial(t, startFakePlugin(t, f)), timeout: 100 * time.Millisecond}
			_, err := cm.MatchBody(context.Background(), customBody("x"), customBody("y"), nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

// dialLauncher connects to an already running fake plugin.
type dialLauncher struct {
	addr     string
	launched int
}

func (l *dialLauncher) Launch(_ context.Context, m *Manifest) (Client, error) {
	l.launched++
	return DialGRPC(m.ID(), l.addr, "")
}

func TestManager_LoadAndRegister(t *testing.T) {
	f := &fakePlugin{
		compare: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"results": map[string]any{"$": []any{map[string]any{"mismatch": "bodies differ"}}},
			})
		},
	}
	launcher := &dialLauncher{addr: startFakePlugin(t, f)}
	dir := t.TempDir()
	writeManifest(t, dir, "custom", "1.0.0")

	mgr := NewManager(WithDir(dir), WithLauncher(launcher), WithTimeout(time.Second))
	t.Cleanup(func() { _ = mgr.Shutdown() })

	p, err := mgr.Load(context.Background(), "custom", "")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", p.Manifest.Version)

	_, err = mgr.Load(context.Background(), "custom", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, launcher.launched)

	builder := matching.DefaultRegistryBuilder()
	require.NoError(t, mgr.RegisterContentMatchers(builder))
	registry := builder.Build()

	m, ok := registry.Lookup(customType + "; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, "plugin:custom/1.0.0/custom", m.Name())

	engine := matching.NewEngine(registry)
	mismatches, err := engine.MatchBody(context.Background(), customBody("a"), customBody("b"), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "bodies differ", mismatches[0].Description())

	require.NoError(t, mgr.Shutdown())
	assert.Empty(t, mgr.Plugins())
}

func TestManager_BuiltInMatchersWin(t *testing.T) {
	f := &fakePlugin{
		init: func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{
				"catalogue": []any{map[string]any{
					"type":   EntryTypeContentMatcher,
					"key":    "json",
					"values": map[string]any{"content-types": contract.ContentTypeJSON},
				}},
			})
		},
	}
	dir := t.TempDir()
	writeManifest(t, dir, "custom", "1.0.0")
	mgr := NewManager(WithDir(dir), WithLauncher(&dialLauncher{addr: startFakePlugin(t, f)}))
	t.Cleanup(func() { _ = mgr.Shutdown() })

	_, err := mgr.Load(context.Background(), "custom", "")
	require.NoError(t, err)

	builder := matching.DefaultRegistryBuilder()
	require.NoError(t, mgr.RegisterContentMatchers(builder))
	m, ok := builder.Build().Lookup(contract.ContentTypeJSON)
	require.True(t, ok)
	assert.Equal(t, "json", m.Name())
}

func TestManager_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "other", "2.0.0")
	mgr := NewManager(WithDir(dir), WithLauncher(&dialLauncher{}))

	_, err := mgr.Load(context.Background(), "custom", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPluginNotFound))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"other/2.0.0"}, nf.Available)
	assert.Contains(t, err.Error(), "custom")
}

func TestManager_LaunchFailure(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "custom", "1.0.0")
	mgr := NewManager(WithDir(dir), WithLauncher(failingLauncher{}))

	_, err := mgr.Load(context.Background(), "custom", "")
	assert.ErrorIs(t, err, ErrPluginUnavailable)
	assert.Empty(t, mgr.Plugins())
}

type failingLauncher struct{}

func (failingLauncher) Launch(context.Context, *Manifest) (Client, error) {
	return nil, ErrPluginUnavailable
}
