package plugin

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to one running plugin. Implementations must be safe for
// concurrent use.
type Client interface {
	InitPlugin(ctx context.Context, req InitPluginRequest) (*InitPluginResponse, error)
	CompareContents(ctx context.Context, req CompareContentsRequest) (*CompareContentsResponse, error)
	Close() error
}

// GRPCClient is a Client over a gRPC connection.
type GRPCClient struct {
	name      string
	conn      *grpc.ClientConn
	serverKey string
	onClose   func() error
}

// DialGRPC connects to a plugin listening on address. serverKey, when set,
// is sent with every call as "authorization" metadata.
func DialGRPC(name, address, serverKey string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to plugin %s at %s: %v", ErrPluginUnavailable, name, address, err)
	}
	return &GRPCClient{name: name, conn: conn, serverKey: serverKey}, nil
}

// InitPlugin sends the start-up handshake.
func (c *GRPCClient) InitPlugin(ctx context.Context, req InitPluginRequest) (*InitPluginResponse, error) {
	in, err := req.toStruct()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode InitPlugin request: %v", ErrPluginProtocol, err)
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, MethodInitPlugin, in, out); err != nil {
		return nil, err
	}
	resp, err := initResponseFromStruct(out)
	if err != nil {
		return nil, &ProtocolError{Plugin: c.name, Method: MethodInitPlugin, Message: err.Error()}
	}
	return resp, nil
}

// CompareContents asks the plugin to compare two bodies.
func (c *GRPCClient) CompareContents(ctx context.Context, req CompareContentsRequest) (*CompareContentsResponse, error) {
	in, err := req.toStruct()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode CompareContents request: %v", ErrPluginProtocol, err)
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, MethodCompareContents, in, out); err != nil {
		return nil, err
	}
	resp, err := compareResponseFromStruct(out)
	if err != nil {
		return nil, &ProtocolError{Plugin: c.name, Method: MethodCompareContents, Message: err.Error()}
	}
	return resp, nil
}

// Close closes the connection and stops the plugin process when the client
// owns one.
func (c *GRPCClient) Close() error {
	err := c.conn.Close()
	if c.onClose != nil {
		err = errors.Join(err, c.onClose())
	}
	return err
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out *structpb.Struct) error {
	if c.serverKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.serverKey)
	}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return c.mapError(ctx, method, err)
	}
	return nil
}

// mapError turns a gRPC error into one of the plugin errors.
func (c *GRPCClient) mapError(ctx context.Context, method string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s", ErrPluginTimeout, c.name, method)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %s %s: %v", ErrPluginUnavailable, c.name, method, err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s %s", ErrPluginTimeout, c.name, method)
	case codes.Unavailable, codes.Canceled:
		return fmt.Errorf("%w: %s %s: %s", ErrPluginUnavailable, c.name, method, st.Message())
	}
	perr := &ProtocolError{Plugin: c.name, Method: method, Message: st.Message()}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			perr.Reason = info.GetReason()
			perr.Domain = info.GetDomain()
			break
		}
	}
	return perr
}
