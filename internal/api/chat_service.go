package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/config"
	intsync "github.com/matheus3301/buddytalk/internal/sync"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Engine is the reconciliation engine as seen by the API.
type Engine interface {
	SelectChannel(ctx context.Context, channelID string) error
	SelectUser(userID string)
	FetchMore(ctx context.Context, dir chat.Direction) error
	Send(ctx context.Context, text string) (chat.Message, error)
	Failed() []chat.Message
	Snapshot() intsync.State
}

var _ Engine = (*intsync.Engine)(nil)

// ChatService implements the ChatService gRPC service.
type ChatService struct {
	engine      Engine
	cfg         *config.Config
	bus         *bus.Bus
	sessionName string
	startedAt   time.Time
	logger      *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

var _ ChatServer = (*ChatService)(nil)

// NewChatService creates a new chat service backed by the engine.
func NewChatService(engine Engine, cfg *config.Config, b *bus.Bus, sessionName string, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		engine:      engine,
		cfg:         cfg,
		bus:         b,
		sessionName: sessionName,
		startedAt:   time.Now(),
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Close ends every open WatchEvents stream.
func (s *ChatService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func decodeRequest(in *structpb.Struct, v any) error {
	if err := Decode(in, v); err != nil {
		return grpcstatus.Errorf(codes.InvalidArgument, "%v", err)
	}
	return nil
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := Encode(v)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

// result converts an engine outcome into a Result document.
func result(err error, msg *chat.Message) (*structpb.Struct, error) {
	res := Result{Accepted: err == nil, Message: msg}
	if err != nil {
		res.Reason = err.Error()
	}
	return encodeResponse(res)
}

func (s *ChatService) GetState(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st := s.engine.Snapshot()
	return encodeResponse(StateView{
		Session:     s.sessionName,
		ChannelID:   st.ChannelID,
		UserID:      st.UserID,
		Loading:     st.Loading,
		Older:       string(st.Older),
		Newer:       string(st.Newer),
		Sending:     st.Sending,
		Degraded:    st.Degraded,
		FailedCount: len(s.engine.Failed()),
		UptimeMs:    time.Since(s.startedAt).Milliseconds(),
		NotifyMs:    s.cfg.NotifyAfter().Milliseconds(),
		Messages:    st.Messages,
		Channels:    s.cfg.Channels,
		Users:       s.cfg.Users,
	})
}

func (s *ChatService) SelectChannel(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SelectChannelRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if _, ok := s.cfg.Channel(req.ChannelID); !ok {
		return result(errors.New("unknown channel "+req.ChannelID), nil)
	}
	return result(s.engine.SelectChannel(ctx, req.ChannelID), nil)
}

func (s *ChatService) SelectUser(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SelectUserRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	if _, ok := s.cfg.User(req.UserID); !ok {
		return result(errors.New("unknown user "+req.UserID), nil)
	}
	s.engine.SelectUser(req.UserID)
	return result(nil, nil)
}

func (s *ChatService) FetchMore(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req FetchMoreRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	dir, err := chat.ParseDirection(req.Direction)
	if err != nil {
		return result(err, nil)
	}
	return result(s.engine.FetchMore(ctx, dir), nil)
}

func (s *ChatService) SendText(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SendTextRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	msg, err := s.engine.Send(ctx, req.Text)
	if msg.ID == "" {
		return result(err, nil)
	}
	return result(err, &msg)
}

func (s *ChatService) ListFailed(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListFailedRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	records := []chat.Message{}
	for _, m := range s.engine.Failed() {
		if req.ChannelID != "" && m.ChannelID != req.ChannelID {
			continue
		}
		if req.UserID != "" && m.SenderID != req.UserID {
			continue
		}
		records = append(records, m)
	}
	return encodeResponse(FailedList{Records: records})
}

func (s *ChatService) WatchEvents(in *structpb.Struct, stream EventStream) error {
	var req WatchEventsRequest
	if err := decodeRequest(in, &req); err != nil {
		return err
	}
	ch, unsub := s.bus.Subscribe(req.Prefix, 256)
	defer unsub()
	defer func() {
		s.logger.Debug("event stream closed",
			zap.String("prefix", req.Prefix),
			zap.Uint64("bus_dropped_total", s.bus.Dropped()))
	}()

	for {
		select {
		case evt := <-ch:
			env, err := s.envelope(evt)
			if err != nil {
				s.logger.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(env); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

func (s *ChatService) envelope(evt bus.Event) (*structpb.Struct, error) {
	env := Envelope{
		EventID:    uuid.New().String(),
		Session:    s.sessionName,
		OccurredAt: evt.Timestamp,
		Kind:       evt.Kind,
	}
	if evt.Payload != nil {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return nil, err
		}
		env.Payload = payload
	}
	return Encode(env)
}
