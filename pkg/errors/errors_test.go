package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(errors.New("no lab rooms"), ErrConfiguration.Code, ErrConfiguration.Status, "timetable configuration error")
	assert.Same(t, wrapped, FromError(wrapped))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Nil(t, FromError(nil))
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := WithDetails(ErrConfiguration, []string{"net-lab"})
	assert.Equal(t, []string{"net-lab"}, detailed.Details)
	assert.Nil(t, ErrConfiguration.Details)
	assert.Equal(t, "timetable configuration error", detailed.Error())

	inner := errors.New("pq: deadlock")
	err := Wrap(inner, ErrInternal.Code, ErrInternal.Status, "failed to store timetable")
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "failed to store timetable: pq: deadlock", err.Error())
}

func TestBecauseMatchesSentinelByCode(t *testing.T) {
	cause := errors.New("redis: nil")
	err := Because(ErrCacheMiss, cause, "")
	assert.Equal(t, "cache miss", err.Message)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, Clone(ErrUnauthorized, "invalid token"), ErrUnauthorized)
	assert.Equal(t, http.StatusBadRequest, Because(ErrValidation, cause, "bad day").Status)
}
