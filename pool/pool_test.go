package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/client/clienttest"
	"github.com/l3uddz/delugetools/logger"
)

func fakeFactory(fakes map[string]*clienttest.Fake) Factory {
	return func(ep client.Endpoint) (client.Interface, error) {
		f, ok := fakes[ep.Host]
		if !ok {
			return nil, errors.New("no such daemon")
		}
		return f, nil
	}
}

func endpoints(hosts ...string) []client.Endpoint {
	eps := make([]client.Endpoint, 0, len(hosts))
	for _, h := range hosts {
		eps = append(eps, client.Endpoint{Host: h, Port: client.DefaultPort, Login: "u", Password: "p"})
	}
	return eps
}

func TestPool_ConnectKeepsOrderAndIsolatesFailures(t *testing.T) {
	up := clienttest.New("up", 0)
	down := clienttest.New("down", 0)
	down.ConnectErr = errors.New("connection refused")

	p, err := New(endpoints("up", "down", "unknown"), fakeFactory(map[string]*clienttest.Fake{
		"up":   up,
		"down": down,
	}), logger.Discard(), WithRetries(2), WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 3, p.Size())

	connected, err := p.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, connected)

	assert.True(t, p.Member(0).Ok())
	assert.True(t, up.Connected())
	assert.Equal(t, "up:58846", p.Member(0).String())

	assert.False(t, p.Member(1).Ok())
	assert.ErrorContains(t, p.Member(1).Err, "connection refused")

	assert.False(t, p.Member(2).Ok())
	assert.ErrorContains(t, p.Member(2).Err, "init client")

	for i, m := range p.Members() {
		assert.Equal(t, i, m.Index)
	}

	p.Close()
	assert.False(t, up.Connected())
}

func TestPool_Empty(t *testing.T) {
	_, err := New(nil, fakeFactory(nil), logger.Discard())
	require.Error(t, err)
}

func TestPool_ConnectCancelled(t *testing.T) {
	p, err := New(endpoints("up"), fakeFactory(map[string]*clienttest.Fake{
		"up": clienttest.New("up", 0),
	}), logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	connected, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.Zero(t, connected)
	assert.ErrorIs(t, p.Member(0).Err, context.Canceled)
}
