package grpc

import (
	"context"

	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	"google.golang.org/grpc"
)

const (
	AuthServiceName        = "vinylkeeper.auth.v1.Auth"
	CollectionsServiceName = "vinylkeeper.collections.v1.Collections"
)

type AuthServer interface {
	Register(context.Context, *dto.RegisterDTO) (*dto.AuthResponse, error)
	Login(context.Context, *dto.LoginDTO) (*dto.AuthResponse, error)
	Refresh(context.Context, *Empty) (*dto.AccessResponse, error)
	RequestPasswordReset(context.Context, *dto.ForgotPasswordDTO) (*Empty, error)
	CompletePasswordReset(context.Context, *dto.ResetPasswordDTO) (*Empty, error)
	ChangePassword(context.Context, *dto.ChangePasswordDTO) (*Empty, error)
	Me(context.Context, *Empty) (*dto.UserResponse, error)
	Validate(context.Context, *ValidateRequest) (*ValidateResponse, error)
}

type CollectionsServer interface {
	CreateCollection(context.Context, *dto.CreateCollectionDTO) (*dto.CollectionResponse, error)
	ListMyCollections(context.Context, *Empty) (*CollectionList, error)
	ListPublicCollections(context.Context, *ListPublicRequest) (*CollectionList, error)
	GetCollection(context.Context, *CollectionID) (*dto.CollectionResponse, error)
	UpdateCollection(context.Context, *UpdateCollectionRequest) (*dto.CollectionResponse, error)
	SwitchCollectionArea(context.Context, *SwitchAreaRequest) (*dto.CollectionResponse, error)
	DeleteCollection(context.Context, *CollectionID) (*Empty, error)
}

// unary adapts a typed method to grpc.MethodHandler the way generated code
// does, so server interceptors see the decoded request.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AuthServiceName, "Register", AuthServer.Register),
		unary(AuthServiceName, "Login", AuthServer.Login),
		unary(AuthServiceName, "Refresh", AuthServer.Refresh),
		unary(AuthServiceName, "RequestPasswordReset", AuthServer.RequestPasswordReset),
		unary(AuthServiceName, "CompletePasswordReset", AuthServer.CompletePasswordReset),
		unary(AuthServiceName, "ChangePassword", AuthServer.ChangePassword),
		unary(AuthServiceName, "Me", AuthServer.Me),
		unary(AuthServiceName, "Validate", AuthServer.Validate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vinylkeeper/auth/v1",
}

var CollectionsServiceDesc = grpc.ServiceDesc{
	ServiceName: CollectionsServiceName,
	HandlerType: (*CollectionsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CollectionsServiceName, "CreateCollection", CollectionsServer.CreateCollection),
		unary(CollectionsServiceName, "ListMyCollections", CollectionsServer.ListMyCollections),
		unary(CollectionsServiceName, "ListPublicCollections", CollectionsServer.ListPublicCollections),
		unary(CollectionsServiceName, "GetCollection", CollectionsServer.GetCollection),
		unary(CollectionsServiceName, "UpdateCollection", CollectionsServer.UpdateCollection),
		unary(CollectionsServiceName, "SwitchCollectionArea", CollectionsServer.SwitchCollectionArea),
		unary(CollectionsServiceName, "DeleteCollection", CollectionsServer.DeleteCollection),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vinylkeeper/collections/v1",
}

// Register attaches both services to s.
func Register(s grpc.ServiceRegistrar, h *Handler) {
	s.RegisterService(&AuthServiceDesc, h)
	s.RegisterService(&CollectionsServiceDesc, h)
}
