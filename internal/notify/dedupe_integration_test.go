//go:build integration

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takedown/internal/notify"
	"takedown/pkg/testutil/containers"
)

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(ctx))

	d := notify.NewRedisDeduper(rc.Client)

	ok, err := d.Claim(ctx, "case-1", notify.TemplateSLAWarning, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first claim wins")

	ok, err = d.Claim(ctx, "case-1", notify.TemplateSLAWarning, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim inside the window is suppressed")

	ok, err = d.Claim(ctx, "case-2", notify.TemplateSLAWarning, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other cases are independent")

	// A short TTL expires and frees the key.
	ok, err = d.Claim(ctx, "case-3", notify.TemplateSLAWarning, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(1500 * time.Millisecond)
	ok, err = d.Claim(ctx, "case-3", notify.TemplateSLAWarning, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "claim after expiry succeeds")
}
