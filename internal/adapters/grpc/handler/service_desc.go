package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	leaveServiceName     = "leave.v1.LeaveService"
	leaveTypeServiceName = "leave.v1.LeaveTypeService"
	employeeServiceName  = "leave.v1.EmployeeService"
)

// LeaveServiceServer は leave.v1.LeaveService のサーバー実装が満たすインターフェースです。
type LeaveServiceServer interface {
	CreateLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApproveLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RejectLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetLeaveRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLeaveRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBalances(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	InitializeYear(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AttachDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// LeaveTypeServiceServer は leave.v1.LeaveTypeService のサーバー実装が満たすインターフェースです。
type LeaveTypeServiceServer interface {
	CreateLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLeaveTypes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteLeaveType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// EmployeeServiceServer は leave.v1.EmployeeService のサーバー実装が満たすインターフェースです。
type EmployeeServiceServer interface {
	RegisterEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// LeaveServiceDesc は leave.v1.LeaveService のサービス定義です。
var LeaveServiceDesc = grpc.ServiceDesc{
	ServiceName: leaveServiceName,
	HandlerType: (*LeaveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(leaveServiceName, "CreateLeaveRequest", LeaveServiceServer.CreateLeaveRequest),
		unaryMethod(leaveServiceName, "UpdateLeaveRequest", LeaveServiceServer.UpdateLeaveRequest),
		unaryMethod(leaveServiceName, "ApproveLeaveRequest", LeaveServiceServer.ApproveLeaveRequest),
		unaryMethod(leaveServiceName, "RejectLeaveRequest", LeaveServiceServer.RejectLeaveRequest),
		unaryMethod(leaveServiceName, "CancelLeaveRequest", LeaveServiceServer.CancelLeaveRequest),
		unaryMethod(leaveServiceName, "DeleteLeaveRequest", LeaveServiceServer.DeleteLeaveRequest),
		unaryMethod(leaveServiceName, "GetLeaveRequest", LeaveServiceServer.GetLeaveRequest),
		unaryMethod(leaveServiceName, "ListLeaveRequests", LeaveServiceServer.ListLeaveRequests),
		unaryMethod(leaveServiceName, "GetBalance", LeaveServiceServer.GetBalance),
		unaryMethod(leaveServiceName, "ListBalances", LeaveServiceServer.ListBalances),
		unaryMethod(leaveServiceName, "InitializeYear", LeaveServiceServer.InitializeYear),
		unaryMethod(leaveServiceName, "AttachDocument", LeaveServiceServer.AttachDocument),
		unaryMethod(leaveServiceName, "ListDocuments", LeaveServiceServer.ListDocuments),
		unaryMethod(leaveServiceName, "GetDocument", LeaveServiceServer.GetDocument),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leave/v1/leave.proto",
}

// LeaveTypeServiceDesc は leave.v1.LeaveTypeService のサービス定義です。
var LeaveTypeServiceDesc = grpc.ServiceDesc{
	ServiceName: leaveTypeServiceName,
	HandlerType: (*LeaveTypeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(leaveTypeServiceName, "CreateLeaveType", LeaveTypeServiceServer.CreateLeaveType),
		unaryMethod(leaveTypeServiceName, "GetLeaveType", LeaveTypeServiceServer.GetLeaveType),
		unaryMethod(leaveTypeServiceName, "ListLeaveTypes", LeaveTypeServiceServer.ListLeaveTypes),
		unaryMethod(leaveTypeServiceName, "UpdateLeaveType", LeaveTypeServiceServer.UpdateLeaveType),
		unaryMethod(leaveTypeServiceName, "DeleteLeaveType", LeaveTypeServiceServer.DeleteLeaveType),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leave/v1/leave_type.proto",
}

// EmployeeServiceDesc は leave.v1.EmployeeService のサービス定義です。
var EmployeeServiceDesc = grpc.ServiceDesc{
	ServiceName: employeeServiceName,
	HandlerType: (*EmployeeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(employeeServiceName, "RegisterEmployee", EmployeeServiceServer.RegisterEmployee),
		unaryMethod(employeeServiceName, "GetEmployee", EmployeeServiceServer.GetEmployee),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "leave/v1/employee.proto",
}

// RegisterLeaveServiceServer は LeaveService を登録します。
func RegisterLeaveServiceServer(s grpc.ServiceRegistrar, srv LeaveServiceServer) {
	s.RegisterService(&LeaveServiceDesc, srv)
}

// RegisterLeaveTypeServiceServer は LeaveTypeService を登録します。
func RegisterLeaveTypeServiceServer(s grpc.ServiceRegistrar, srv LeaveTypeServiceServer) {
	s.RegisterService(&LeaveTypeServiceDesc, srv)
}

// RegisterEmployeeServiceServer は EmployeeService を登録します。
func RegisterEmployeeServiceServer(s grpc.ServiceRegistrar, srv EmployeeServiceServer) {
	s.RegisterService(&EmployeeServiceDesc, srv)
}

func unaryMethod[S any](service, method string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
