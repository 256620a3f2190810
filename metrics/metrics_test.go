package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/opera-p2p-fuzzer/utils/port"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

func TestCounters(t *testing.T) {
	require := require.New(t)

	before := testutil.ToFloat64(Disconnects.WithLabelValues("random"))
	Disconnects.WithLabelValues("random").Inc()
	require.Equal(before+1, testutil.ToFloat64(Disconnects.WithLabelValues("random")))

	Mismatched.WithLabelValues("node").Set(1)
	require.Equal(float64(1), testutil.ToFloat64(Mismatched.WithLabelValues("node")))
}

func TestServe(t *testing.T) {
	require := require.New(t)
	log, _ := test.NewNullLogger()

	a := port.NewAllocator(rnd.New(11))
	a.Min, a.Max = 21000, 21500
	p, err := a.Allocate(port.Set{})
	require.NoError(err)
	addr := fmt.Sprintf("127.0.0.1:%d", p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, log) }()

	WorkersRunning.Set(3)

	var body string
	require.Eventually(func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return true
	}, 5*time.Second, 50*time.Millisecond)
	require.True(strings.Contains(body, "fuzzer_workers_running 3"))

	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
