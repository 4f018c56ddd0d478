// Package plugin loads out-of-process content matchers.
//
// A plugin is installed as a directory containing a pact-plugin.json
// manifest and an executable. When started, the executable prints one JSON
// line with the port of its gRPC server and then serves the
// io.pact.plugin.PactPlugin service. Messages are exchanged as
// google.protobuf.Struct values.
//
// Typical use during start-up:
//
//	mgr := plugin.NewManager(plugin.WithDir(dir), plugin.WithLogger(logger))
//	defer mgr.Shutdown()
//	if _, err := mgr.Load(ctx, "protobuf", ""); err != nil {
//		return err
//	}
//	builder := matching.DefaultRegistryBuilder()
//	if err := mgr.RegisterContentMatchers(builder); err != nil {
//		return err
//	}
//	engine := matching.NewEngine(builder.Build())
//
// Calls to a plugin are bounded by the manager timeout and fail with
// ErrPluginTimeout, ErrPluginUnavailable or a *ProtocolError.
package plugin
