package watch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/augiro/a2s-query/a2s"
)

// loopbackResolver always resolves to loopback, so refresh exercises a
// real Dispatcher/transport pair without a DNS round trip.
type loopbackResolver struct{}

func (loopbackResolver) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	return []net.IP{net.IPv4(127, 0, 0, 1)}, nil
}

// Test_Watcher_Refresh_BuildsAFreshDispatcherEachTick guards against a
// regression where Watcher stored one *a2s.Dispatcher and reused it
// across ticks, racing one tick's socket bind against the previous
// tick's still-unwinding receive loop. Nothing is listening on the
// target port, so each refresh runs to its own deadline independently;
// calling it twice back to back must not panic or block past either
// run's own timeout, which it would if the two runs shared a transport
// and serialized on it.
func Test_Watcher_Refresh_BuildsAFreshDispatcherEachTick(t *testing.T) {
	t.Run("two consecutive refreshes each complete on their own deadline", func(t0 *testing.T) {
		w := New(
			zap.NewNop().Sugar(),
			loopbackResolver{},
			a2s.Config{TimeoutMs: 30, BufferSize: 1400},
			[]a2s.EndpointConfig{{Host: "localhost", Port: 1}},
			time.Hour,
		)

		ctx := context.Background()

		start := time.Now()
		err := w.refresh(ctx)
		require.NoError(t0, err)
		firstElapsed := time.Since(start)

		start = time.Now()
		err = w.refresh(ctx)
		require.NoError(t0, err)
		secondElapsed := time.Since(start)

		assert.Less(t0, firstElapsed, time.Second)
		assert.Less(t0, secondElapsed, time.Second)

		all := w.Snapshot().All()
		require.Len(t0, all, 1)
		assert.False(t0, all[0].Complete())
	})
}
