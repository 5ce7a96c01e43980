package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
	"github.com/uhyunpark/nostr-signerd/pkg/wireformat"
)

// scriptedClient answers GetTask from a per-attempt script; the last entry repeats.
type scriptedClient struct {
	mu        sync.Mutex
	script    []coordinator.Task
	polls     int
	submitted []coordinator.SignRequest
	getErr    error
}

func (c *scriptedClient) ListGroups(ctx context.Context) ([]coordinator.Group, error) {
	return nil, nil
}

func (c *scriptedClient) SubmitSigningTask(ctx context.Context, req coordinator.SignRequest) (coordinator.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, req)
	return coordinator.Task{ID: []byte{0xab}, State: coordinator.TaskCreated}, nil
}

func (c *scriptedClient) GetTask(ctx context.Context, taskID []byte) (coordinator.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return coordinator.Task{}, c.getErr
	}
	i := c.polls
	if i >= len(c.script) {
		i = len(c.script) - 1
	}
	c.polls++
	t := c.script[i]
	t.ID = taskID
	return t, nil
}

func running(n int) []coordinator.Task {
	out := make([]coordinator.Task, n)
	for i := range out {
		out[i] = coordinator.Task{State: coordinator.TaskRunning}
	}
	return out
}

func finished(sigHex string) coordinator.Task {
	return coordinator.Task{State: coordinator.TaskFinished, Data: [][]byte{wireformat.QuoteHex(sigHex)}}
}

var (
	testSig    = strings.Repeat("5a", 64)
	testDigest = strings.Repeat("11", 32)
	testGroup  = wireformat.EncodeCoordinatorValue("02" + strings.Repeat("22", 32))
)

func TestRequestSignature_FinishesOnLastAttempt(t *testing.T) {
	client := &scriptedClient{script: append(running(59), finished(testSig))}
	clock := util.NewStepClock(time.Unix(0, 0))
	p := NewPoller(client, clock, DefaultSchedule, nil)

	sig, err := p.RequestSignature(context.Background(), testDigest, testGroup, "Nostr test")
	require.NoError(t, err)
	assert.Equal(t, testSig, sig)
	assert.Equal(t, 60, client.polls)
	assert.Equal(t, 60*time.Second, clock.Now().Sub(time.Unix(0, 0)))

	require.Len(t, client.submitted, 1)
	req := client.submitted[0]
	assert.Equal(t, "Nostr test", req.Name)
	assert.Len(t, req.Data, 32)
	assert.Equal(t, byte(0x11), req.Data[0])
	assert.Equal(t, `"02`+strings.Repeat("22", 32)+`"`, string(req.GroupID))
}

func TestRequestSignature_Timeout(t *testing.T) {
	client := &scriptedClient{script: running(1)}
	clock := util.NewStepClock(time.Unix(0, 0))
	p := NewPoller(client, clock, DefaultSchedule, nil)

	_, err := p.RequestSignature(context.Background(), testDigest, testGroup, "x")
	require.True(t, signerr.Is(err, signerr.KindTimeout), "err = %v", err)
	assert.Equal(t, 60, client.polls)
	assert.Len(t, clock.Waits(), 60)

	var e *signerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "ab", e.TaskID)
}

func TestRequestSignature_FailedStopsImmediately(t *testing.T) {
	client := &scriptedClient{script: append(running(2), coordinator.Task{State: coordinator.TaskFailed}, finished(testSig))}
	p := NewPoller(client, util.NewStepClock(time.Unix(0, 0)), DefaultSchedule, nil)

	_, err := p.RequestSignature(context.Background(), testDigest, testGroup, "x")
	require.True(t, signerr.Is(err, signerr.KindTaskFailed), "err = %v", err)
	assert.Equal(t, 3, client.polls, "no polling after FAILED")
}

func TestRequestSignature_CreatedCountsAsPending(t *testing.T) {
	client := &scriptedClient{script: []coordinator.Task{
		{State: coordinator.TaskCreated},
		{State: coordinator.TaskRunning},
		finished(strings.ToUpper(testSig)),
	}}
	p := NewPoller(client, util.NewStepClock(time.Unix(0, 0)), DefaultSchedule, nil)

	sig, err := p.RequestSignature(context.Background(), testDigest, testGroup, "x")
	require.NoError(t, err)
	assert.Equal(t, testSig, sig)
}

func TestDecodeSignature(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: `"` + testSig + `"`, want: testSig},
		{name: "parity prefixed", raw: `"03` + testSig + `"`, want: testSig},
		{name: "r starts with 02", raw: `"02` + testSig[2:] + `"`, want: "02" + testSig[2:]},
		{name: "short", raw: `"` + testSig[:126] + `"`, wantErr: true},
		{name: "long without prefix", raw: `"05` + testSig + `"`, wantErr: true},
		{name: "unquoted", raw: testSig, wantErr: true},
		{name: "not hex", raw: `"` + strings.Repeat("zz", 64) + `"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSignature([]byte(tt.raw), "ab")
			if tt.wantErr {
				assert.True(t, signerr.Is(err, signerr.KindFormat), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestSignature_BadInputs(t *testing.T) {
	client := &scriptedClient{script: running(1)}
	p := NewPoller(client, util.NewStepClock(time.Unix(0, 0)), DefaultSchedule, nil)
	ctx := context.Background()

	_, err := p.RequestSignature(ctx, "abc", testGroup, "x")
	assert.True(t, signerr.Is(err, signerr.KindFormat))

	_, err = p.RequestSignature(ctx, testDigest, "%%%", "x")
	assert.True(t, signerr.Is(err, signerr.KindFormat))

	assert.Empty(t, client.submitted, "nothing is submitted for malformed input")
}

func TestAwait_TransportErrorAborts(t *testing.T) {
	boom := signerr.Transport("get_task", errors.New("unavailable"))
	client := &scriptedClient{script: running(1), getErr: boom}
	p := NewPoller(client, util.NewStepClock(time.Unix(0, 0)), DefaultSchedule, nil)

	_, err := p.Await(context.Background(), []byte{1})
	assert.True(t, signerr.Is(err, signerr.KindTransport))
}

func TestAwait_FinishedWithoutOutput(t *testing.T) {
	client := &scriptedClient{script: []coordinator.Task{{State: coordinator.TaskFinished}}}
	p := NewPoller(client, util.NewStepClock(time.Unix(0, 0)), DefaultSchedule, nil)

	_, err := p.Await(context.Background(), []byte{1})
	assert.True(t, signerr.Is(err, signerr.KindFormat))
}

func TestAwait_ContextCancelled(t *testing.T) {
	client := &scriptedClient{script: running(1)}
	// a real clock with a long interval: only cancellation can end the wait
	p := NewPoller(client, util.RealClock{}, Schedule{Interval: time.Hour, MaxAttempts: 3}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Await(ctx, []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.polls)
}

func TestSchedule_Budget(t *testing.T) {
	assert.Equal(t, 60*time.Second, DefaultSchedule.Budget())
	p := NewPoller(&scriptedClient{}, nil, Schedule{}, nil)
	assert.Equal(t, DefaultSchedule, p.schedule)
}
