package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrRefreshTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrorUnauthorized, codes.Unauthenticated},
	{common.ErrorInvalidArgument, codes.InvalidArgument},
	{remote.ErrUnknownCollection, codes.InvalidArgument},
	{remote.ErrBatchTooLarge, codes.ResourceExhausted},
	{remote.ErrSubscriptionLagging, codes.Aborted},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrorAlreadyExists, codes.AlreadyExists},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// ToStatus converts a service error into a gRPC status error. Unknown
// errors become Internal without leaking their text.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range statusCodes {
		if errors.Is(err, m.err) {
			msg := m.err.Error()
			if m.code == codes.InvalidArgument || m.code == codes.ResourceExhausted {
				msg = err.Error()
			}
			return status.Error(m.code, msg)
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

// FromStatus converts a gRPC status error back into the matching sentinel
// so callers can use errors.Is. Non-status errors are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	if st.Code() == codes.Unauthenticated {
		for _, e := range []error{common.ErrTokenExpired, common.ErrRefreshTokenExpired, common.ErrInvalidToken} {
			if st.Message() == e.Error() {
				return e
			}
		}
		return common.ErrorUnauthorized
	}
	// Several sentinels share a code. The message names the specific one;
	// the longest sentinel text found in it wins, the first entry otherwise.
	var match, named error
	for _, m := range statusCodes {
		if m.code != st.Code() {
			continue
		}
		if st.Message() == m.err.Error() {
			return m.err
		}
		if match == nil {
			match = m.err
		}
		if strings.Contains(st.Message(), m.err.Error()) &&
			(named == nil || len(m.err.Error()) > len(named.Error())) {
			named = m.err
		}
	}
	if named != nil {
		match = named
	}
	if match == nil {
		return err
	}
	return fmt.Errorf("%w: %s", match, st.Message())
}
