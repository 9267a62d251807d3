package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func TestRedisStoreWithoutClient(t *testing.T) {
	store := NewRedisStore(nil, nil)
	ctx := context.Background()

	_, err := store.Get(ctx, "timetable:batch:b1")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, store.Set(ctx, "timetable:batch:b1", []byte(`{}`), time.Minute))
	n, err := store.Purge(ctx, "timetable:*")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, store.Close())
}
