package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("login: %w", common.ErrorUnauthorized), codes.Unauthenticated},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{fmt.Errorf("write 3: %w", remote.ErrUnknownCollection), codes.InvalidArgument},
		{fmt.Errorf("%w: 501 > 500", remote.ErrBatchTooLarge), codes.ResourceExhausted},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{remote.ErrSubscriptionLagging, codes.Aborted},
		{errors.New("pq: connection reset"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)))
		})
	}

	assert.Nil(t, ToStatus(nil))
	assert.Equal(t, "internal error", status.Convert(ToStatus(errors.New("secret detail"))).Message())
}

func TestFromStatus_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		common.ErrTokenExpired,
		common.ErrRefreshTokenExpired,
		common.ErrorUnauthorized,
		common.ErrorInvalidArgument,
		remote.ErrBatchTooLarge,
		remote.ErrSubscriptionLagging,
		common.ErrorNotFound,
		common.ErrorAlreadyExists,
		context.Canceled,
	} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", sentinel)
			assert.ErrorIs(t, FromStatus(ToStatus(wrapped)), sentinel)
		})
	}

	plain := errors.New("dial failed")
	assert.Same(t, plain, FromStatus(plain))
	assert.Nil(t, FromStatus(nil))

	unavailable := status.Error(codes.Unavailable, "down")
	assert.Equal(t, codes.Unavailable, status.Code(FromStatus(unavailable)))
}

func TestFromStatus_SharedCode(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
		not  error
	}{
		{"unknown collection", `unknown collection: "wallets"`, remote.ErrUnknownCollection, nil},
		{"wrapped unknown collection", "fetch: unknown collection", remote.ErrUnknownCollection, nil},
		{"both texts present", "invalid argument: unknown collection", remote.ErrUnknownCollection, nil},
		{"generic", "amount must be positive", common.ErrorInvalidArgument, remote.ErrUnknownCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(status.Error(codes.InvalidArgument, tt.msg))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg)
			if tt.not != nil {
				assert.NotErrorIs(t, err, tt.not)
			}
		})
	}

	rt := FromStatus(ToStatus(fmt.Errorf("fetch %q: %w", "wallets", remote.ErrUnknownCollection)))
	assert.ErrorIs(t, rt, remote.ErrUnknownCollection)
}
