package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeOf(t *testing.T) {
	notFound := NotFound("trip not found")

	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"direct", notFound, codes.NotFound},
		{"wrapped", fmt.Errorf("accept: %w", notFound), codes.NotFound},
		{"grpc status", status.Error(codes.Aborted, "contention"), codes.Aborted},
		{"plain", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestErrorStatus(t *testing.T) {
	err := FailedPrecondition("trip %s is not open", "t1")

	assert.Equal(t, "trip t1 is not open", err.Error())
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestMessageHidesInternal(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("dial tcp: refused")))
	assert.Equal(t, "not yours", Message(fmt.Errorf("x: %w", PermissionDenied("not yours"))))
}
