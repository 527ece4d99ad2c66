//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"archgate/pkg/testutil/containers"
)

func TestClientHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.Client.Health(context.Background()))
}
