package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/appkeeper/internal/ports"
)

// testServersEnv names a ZooKeeper ensemble to run the session tests against.
const testServersEnv = "APPKEEPER_TEST_ZOOKEEPER"

func dialTest(t *testing.T) (ports.CoordinationClient, string) {
	t.Helper()
	servers := os.Getenv(testServersEnv)
	if servers == "" {
		t.Skipf("%s not set", testServersEnv)
	}
	chroot := fmt.Sprintf("/appkeeper-test/%s", uuid.NewString())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewDialer(5*time.Second, nil).Dial(ctx, servers, chroot)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.DeleteTree(context.Background(), "/")
		_ = c.Close()
	})
	return c, chroot
}

func TestClient_CreatePolicies(t *testing.T) {
	c, _ := dialTest(t)
	ctx := context.Background()

	res, err := c.Create(ctx, "/config/app-id", []byte("one"), ports.FailIfExists)
	require.NoError(t, err)
	assert.Equal(t, ports.Created, res)

	res, err = c.Create(ctx, "/config/app-id", []byte("two"), ports.FailIfExists)
	require.NoError(t, err)
	assert.Equal(t, ports.AlreadyExists, res)

	res, err = c.Create(ctx, "/config/app-id", []byte("three"), ports.OverwriteIfExists)
	require.NoError(t, err)
	assert.Equal(t, ports.Created, res)

	data, err := c.Get(ctx, "/config/app-id")
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
}

func TestClient_DeleteTreeAndChildren(t *testing.T) {
	c, _ := dialTest(t)
	ctx := context.Background()

	for _, p := range []string{"/finders/f-1", "/finders/f-2", "/oracle/server/max-timestamp"} {
		_, err := c.Create(ctx, p, nil, ports.FailIfExists)
		require.NoError(t, err)
	}
	names, err := c.Children(ctx, "/finders")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f-1", "f-2"}, names)

	require.NoError(t, c.DeleteTree(ctx, "/finders"))
	require.NoError(t, c.DeleteTree(ctx, "/finders"))

	ok, err := c.Exists(ctx, "/finders")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Get(ctx, "/finders")
	assert.True(t, errors.Is(err, ports.ErrNoNode))
}

func TestDialer_NoServers(t *testing.T) {
	_, err := NewDialer(time.Second, nil).Dial(context.Background(), " , ", "/x")
	require.Error(t, err)
}

func TestClient_Abs(t *testing.T) {
	tests := []struct {
		chroot, in, want string
	}{
		{"/", "/config", "/config"},
		{"/fluo/app", "/config", "/fluo/app/config"},
		{"/fluo/app", "/", "/fluo/app"},
		{"/fluo/app", "config/", "/fluo/app/config"},
	}
	for _, tt := range tests {
		c := &Client{chroot: tt.chroot}
		assert.Equal(t, tt.want, c.abs(tt.in), "chroot=%s in=%s", tt.chroot, tt.in)
	}
}
