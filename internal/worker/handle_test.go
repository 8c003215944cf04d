package worker

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops a /bin/sh worker script into a temp dir and returns
// Options pointing at it.
func writeScript(t *testing.T, body string, grace time.Duration) (Options, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return Options{
		Kind:         "test",
		Interpreters: []string{"sh"},
		Script:       "worker.sh",
		ScriptDirs:   []string{dir},
		GracePeriod:  grace,
	}, dir
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartDeliversMessages(t *testing.T) {
	opts, base := writeScript(t, `
echo '{"type":"ready"}'
echo 'plain text line'
cat >/dev/null
`, 200*time.Millisecond)

	h := New(opts)

	var mu sync.Mutex
	var types []string
	var raws []string
	h.OnMessage(func(msgType string, _ []byte) {
		mu.Lock()
		types = append(types, msgType)
		mu.Unlock()
	})
	h.OnRaw(func(line string) {
		mu.Lock()
		raws = append(raws, line)
		mu.Unlock()
	})

	require.NoError(t, h.Start(base))
	defer h.Stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) > 0 && len(raws) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ready"}, types)
	assert.Equal(t, []string{"plain text line"}, raws)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	opts, base := writeScript(t, "cat >/dev/null\n", 100*time.Millisecond)
	h := New(opts)

	require.NoError(t, h.Start(base))
	defer h.Stop()
	waitFor(t, time.Second, h.IsRunning)

	assert.Error(t, h.Start(base), "second start must be rejected")
}

func TestSendWritesJSONLine(t *testing.T) {
	// The script echoes every stdin line back as-is.
	opts, base := writeScript(t, `
while read line; do echo "$line"; done
`, 100*time.Millisecond)
	h := New(opts)

	var mu sync.Mutex
	var got []string
	h.OnMessage(func(msgType string, _ []byte) {
		mu.Lock()
		got = append(got, msgType)
		mu.Unlock()
	})

	require.NoError(t, h.Start(base))
	defer h.Stop()
	waitFor(t, time.Second, h.IsRunning)

	require.NoError(t, h.Send(map[string]string{"type": "ping"}))

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ping"}, got)
}

func TestSendToStoppedWorkerFails(t *testing.T) {
	opts, _ := writeScript(t, "cat >/dev/null\n", 100*time.Millisecond)
	h := New(opts)

	assert.Error(t, h.Send(map[string]string{"type": "ping"}))
}

func TestStopQuitThenKill(t *testing.T) {
	// The script ignores the quit command, forcing the grace-period kill.
	opts, base := writeScript(t, `
trap '' TERM
while true; do sleep 1; done
`, 150*time.Millisecond)
	h := New(opts)

	exited := make(chan error, 1)
	h.OnExit(func(err error) { exited <- err })

	require.NoError(t, h.Start(base))
	waitFor(t, time.Second, h.IsRunning)

	h.Stop()

	select {
	case <-exited:
	case <-time.After(3 * time.Second):
		t.Fatal("worker not killed after grace period")
	}
	assert.False(t, h.IsRunning())
}

func TestStopIsIdempotent(t *testing.T) {
	opts, base := writeScript(t, "cat >/dev/null\n", 150*time.Millisecond)
	h := New(opts)

	var mu sync.Mutex
	exits := 0
	h.OnExit(func(error) {
		mu.Lock()
		exits++
		mu.Unlock()
	})

	// Stopping an idle handle is a no-op.
	h.Stop()

	require.NoError(t, h.Start(base))
	waitFor(t, time.Second, h.IsRunning)

	h.Stop()
	h.Stop()
	h.Stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return exits > 0
	})

	// Give any stray second kill timer a chance to misfire.
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, exits, "exit callback fires exactly once")
}

func TestCleanExitFiresCallback(t *testing.T) {
	// Worker that exits on its own after the quit command.
	opts, base := writeScript(t, `
read line
exit 0
`, 500*time.Millisecond)
	h := New(opts)

	exited := make(chan error, 1)
	h.OnExit(func(err error) { exited <- err })

	require.NoError(t, h.Start(base))
	waitFor(t, time.Second, h.IsRunning)

	h.Stop()

	select {
	case err := <-exited:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("exit callback never fired")
	}
}

func TestStartFailsWithoutScript(t *testing.T) {
	h := New(Options{
		Kind:         "test",
		Interpreters: []string{"sh"},
		Script:       "missing.sh",
		ScriptDirs:   []string{"nope"},
	})

	assert.Error(t, h.Start(t.TempDir()))
	assert.False(t, h.IsRunning())

	// A failed start leaves the handle idle and restartable.
	opts, base := writeScript(t, "cat >/dev/null\n", 100*time.Millisecond)
	h2 := New(opts)
	require.NoError(t, h2.Start(base))
	h2.Stop()
}
