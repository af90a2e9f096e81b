package status

import (
	"errors"
	"net/http"

	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"google.golang.org/grpc/codes"
)

// Entry is how one error kind looks at the boundary.
type Entry struct {
	HTTP      int
	GRPC      codes.Code
	Message   string
	Retryable bool
}

type row struct {
	kind  error
	entry Entry
}

// Every token failure kind looks the same to clients; the cause is only
// logged.
var unauthorized = Entry{http.StatusUnauthorized, codes.Unauthenticated, "unauthorized", false}

// Order matters: narrower kinds come before the kinds they wrap.
var table = []row{
	{customErrors.ErrInvalidName, Entry{http.StatusBadRequest, codes.InvalidArgument, "invalid collection name", false}},
	{customErrors.ErrInvalidDescription, Entry{http.StatusBadRequest, codes.InvalidArgument, "invalid collection description", false}},
	{customErrors.ErrInvalidArgument, Entry{http.StatusBadRequest, codes.InvalidArgument, "invalid request", false}},
	{customErrors.ErrInvalidCredentials, Entry{http.StatusUnauthorized, codes.Unauthenticated, "invalid email or password", false}},
	{customErrors.ErrUnauthorized, unauthorized},
	{customErrors.ErrInvalidToken, unauthorized},
	{customErrors.ErrForbidden, Entry{http.StatusForbidden, codes.PermissionDenied, "forbidden", false}},
	{customErrors.ErrAlreadyExists, Entry{http.StatusConflict, codes.AlreadyExists, "user already exists", false}},
	{customErrors.ErrNotFound, Entry{http.StatusNotFound, codes.NotFound, "not found", false}},
	{customErrors.ErrEmailTimeout, Entry{http.StatusGatewayTimeout, codes.DeadlineExceeded, "email delivery timed out", false}},
	{customErrors.ErrNotification, Entry{http.StatusBadGateway, codes.Unavailable, "email delivery failed", false}},
	{customErrors.ErrPasswordHash, Entry{http.StatusInternalServerError, codes.Internal, "internal error", false}},
	{customErrors.ErrDatabase, Entry{http.StatusServiceUnavailable, codes.Unavailable, "service temporarily unavailable", true}},
}

var internal = Entry{http.StatusInternalServerError, codes.Internal, "internal error", false}

// Of classifies err. Unknown errors are reported as internal without
// exposing their text.
func Of(err error) Entry {
	if err == nil {
		return Entry{HTTP: http.StatusOK, GRPC: codes.OK}
	}
	for _, r := range table {
		if errors.Is(err, r.kind) {
			return r.entry
		}
	}
	return internal
}
