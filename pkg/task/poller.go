// Package task submits signing tasks to the coordinator and waits for them.
package task

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
	"github.com/uhyunpark/nostr-signerd/pkg/wireformat"
)

// Schedule bounds how a task is polled: one status request per Interval,
// at most MaxAttempts requests.
type Schedule struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultSchedule gives the caller a 60 second upper bound.
var DefaultSchedule = Schedule{Interval: time.Second, MaxAttempts: 60}

// Budget is the longest a task may take under this schedule.
func (s Schedule) Budget() time.Duration {
	return s.Interval * time.Duration(s.MaxAttempts)
}

// Poller submits signing requests and polls them to completion.
type Poller struct {
	client   coordinator.Client
	clock    util.Clock
	schedule Schedule
	logger   *zap.SugaredLogger
}

func NewPoller(client coordinator.Client, clock util.Clock, schedule Schedule, logger *zap.SugaredLogger) *Poller {
	if clock == nil {
		clock = util.RealClock{}
	}
	if schedule.MaxAttempts <= 0 {
		schedule = DefaultSchedule
	}
	return &Poller{client: client, clock: clock, schedule: schedule, logger: util.OrNop(logger)}
}

// RequestSignature asks the group to sign the digest and returns the
// 64-byte signature as 128 hex chars.
func (p *Poller) RequestSignature(ctx context.Context, digestHex, groupIDBase64, label string) (string, error) {
	digest, err := wireformat.HexToBytes(digestHex)
	if err != nil {
		return "", err
	}
	groupID, err := decodeGroupID(groupIDBase64)
	if err != nil {
		return "", err
	}

	t, err := p.client.SubmitSigningTask(ctx, coordinator.SignRequest{
		Name:    label,
		GroupID: groupID,
		Data:    digest,
	})
	if err != nil {
		return "", err
	}
	p.logger.Infow("task_submitted", "task_id", t.IDHex(), "label", label)

	output, err := p.Await(ctx, t.ID)
	if err != nil {
		return "", err
	}
	return decodeSignature(output, t.IDHex())
}

// Await polls a task until it is terminal and returns its first output.
// Every status request is preceded by one schedule interval.
func (p *Poller) Await(ctx context.Context, taskID []byte) ([]byte, error) {
	for attempt := 1; attempt <= p.schedule.MaxAttempts; attempt++ {
		select {
		case <-p.clock.After(p.schedule.Interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		t, err := p.client.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch t.State {
		case coordinator.TaskCreated, coordinator.TaskRunning:
			p.logger.Debugw("task_pending", "task_id", t.IDHex(), "state", t.State.String(), "attempt", attempt)
			continue
		case coordinator.TaskFailed:
			p.logger.Warnw("task_failed", "task_id", t.IDHex(), "attempt", attempt)
			return nil, signerr.TaskFailed(t.IDHex())
		case coordinator.TaskFinished:
			if len(t.Data) == 0 {
				return nil, signerr.Format("task_output", "finished task has no output")
			}
			p.logger.Infow("task_finished", "task_id", t.IDHex(), "attempt", attempt)
			return t.Data[0], nil
		default:
			e := signerr.Format("task_state", "coordinator reported unknown task state "+t.State.String())
			e.TaskID = t.IDHex()
			return nil, e
		}
	}

	taskHex := wireformat.BytesToHex(taskID)
	p.logger.Warnw("task_timeout", "task_id", taskHex, "budget", p.schedule.Budget().String())
	return nil, signerr.Timeout(taskHex, p.schedule.MaxAttempts)
}

func decodeGroupID(groupIDBase64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(groupIDBase64)
	if err != nil {
		e := signerr.Format("group_id", "group identifier is not base64")
		e.Err = err
		return nil, e
	}
	return raw, nil
}

// decodeSignature turns a raw task output into the (r, s) signature hex.
// A 65-byte value carries a parity prefix which is dropped.
func decodeSignature(output []byte, taskID string) (string, error) {
	sigHex, err := wireformat.DecodeQuotedHex(output)
	if err != nil {
		return "", err
	}
	if len(sigHex) == 2*(wireformat.SignatureLen+1) {
		sigHex = wireformat.StripParityByte(sigHex)
	}
	if len(sigHex) != 2*wireformat.SignatureLen {
		e := signerr.FormatLength("decode_signature", "invalid signature length", wireformat.SignatureLen, len(sigHex)/2)
		e.TaskID = taskID
		return "", e
	}
	if _, err := wireformat.HexToBytes(sigHex); err != nil {
		return "", err
	}
	return strings.ToLower(sigHex), nil
}
