package visualiser

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/posture.report/internal/monitoring"
)

const (
	serviceName      = "posture.v1.FeedbackService"
	streamMethod     = "StreamFeedback"
	streamFullMethod = "/" + serviceName + "/" + streamMethod
)

// FeedbackServer is the server API for FeedbackService.
type FeedbackServer interface {
	StreamFeedback(req *structpb.Struct, stream grpc.ServerStream) error
}

var feedbackServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*FeedbackServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamMethod,
			Handler:       streamFeedbackHandler,
			ServerStreams: true,
		},
	},
	Metadata: "posture/v1/feedback.proto",
}

// RegisterFeedbackServer registers srv on s.
func RegisterFeedbackServer(s grpc.ServiceRegistrar, srv FeedbackServer) {
	s.RegisterService(&feedbackServiceDesc, srv)
}

func streamFeedbackHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FeedbackServer).StreamFeedback(req, stream)
}

// StreamFeedback implements FeedbackServer.
func (p *Publisher) StreamFeedback(raw *structpb.Struct, stream grpc.ServerStream) error {
	req, err := RequestFromStruct(raw)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	client, err := p.addClient(req)
	if err != nil {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	defer p.removeClient(client.id)

	regions := req.regionSet()
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return status.Error(codes.Unavailable, "publisher stopping")
		case u := <-client.ch:
			msg, err := u.Filter(regions).ToStruct()
			if err != nil {
				monitoring.Diagf("[Visualiser] failed to encode update %d: %v", u.Tick, err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// Subscribe opens a feedback stream on conn and calls fn for each update
// until the stream ends, ctx is cancelled or fn returns an error. A clean
// server-side close returns nil.
func Subscribe(ctx context.Context, conn grpc.ClientConnInterface, req Request, fn func(*Update) error) error {
	body, err := req.ToStruct()
	if err != nil {
		return err
	}
	stream, err := conn.NewStream(ctx, &feedbackServiceDesc.Streams[0], streamFullMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(body); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		u, err := UpdateFromStruct(msg)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
}
