package api

import (
	"context"

	"github.com/matheus3301/buddytalk/internal/chat"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChatClient is a typed client for ChatService.
type ChatClient struct {
	cc grpc.ClientConnInterface
}

// NewChatClient creates a client over an established connection.
func NewChatClient(cc grpc.ClientConnInterface) *ChatClient {
	return &ChatClient{cc: cc}
}

func (c *ChatClient) call(ctx context.Context, method string, req, resp any) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return err
	}
	return Decode(out, resp)
}

func (c *ChatClient) command(ctx context.Context, method string, req any) (*Result, error) {
	var res Result
	if err := c.call(ctx, method, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetState returns the daemon's engine snapshot.
func (c *ChatClient) GetState(ctx context.Context) (*StateView, error) {
	var st StateView
	if err := c.call(ctx, MethodGetState, struct{}{}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SelectChannel selects channelID and waits for its initial load.
func (c *ChatClient) SelectChannel(ctx context.Context, channelID string) (*Result, error) {
	return c.command(ctx, MethodSelectChannel, SelectChannelRequest{ChannelID: channelID})
}

// SelectUser selects the sender identity.
func (c *ChatClient) SelectUser(ctx context.Context, userID string) (*Result, error) {
	return c.command(ctx, MethodSelectUser, SelectUserRequest{UserID: userID})
}

// FetchMore extends the window in direction ("older" or "newer").
func (c *ChatClient) FetchMore(ctx context.Context, direction string) (*Result, error) {
	return c.command(ctx, MethodFetchMore, FetchMoreRequest{Direction: direction})
}

// SendText posts text to the selected channel.
func (c *ChatClient) SendText(ctx context.Context, text string) (*Result, error) {
	return c.command(ctx, MethodSendText, SendTextRequest{Text: text})
}

// ListFailed returns failed-send records matching req.
func (c *ChatClient) ListFailed(ctx context.Context, req ListFailedRequest) ([]chat.Message, error) {
	var out FailedList
	if err := c.call(ctx, MethodListFailed, req, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// EventReceiver is the client side of WatchEvents.
type EventReceiver interface {
	Recv() (*Envelope, error)
}

type eventReceiver struct {
	stream grpc.ClientStream
}

func (r *eventReceiver) Recv() (*Envelope, error) {
	m := new(structpb.Struct)
	if err := r.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	var env Envelope
	if err := Decode(m, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// WatchEvents streams bus events whose kind starts with prefix until ctx ends.
func (c *ChatClient) WatchEvents(ctx context.Context, prefix string) (EventReceiver, error) {
	stream, err := c.cc.NewStream(ctx, &ChatServiceDesc.Streams[0], FullMethod(MethodWatchEvents))
	if err != nil {
		return nil, err
	}
	in, err := Encode(WatchEventsRequest{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &eventReceiver{stream: stream}, nil
}
