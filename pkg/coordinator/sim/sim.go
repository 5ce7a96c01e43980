// Package sim is an in-memory stand-in for the threshold-signing coordinator.
//
// Each group is backed by a single secp256k1 key, so signatures are real
// BIP-340 signatures that verify against the group's public key. Tasks move
// one state per status request, which lets callers exercise their polling.
package sim

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/crypto"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
	"github.com/uhyunpark/nostr-signerd/pkg/wireformat"
)

// DefaultRoundsToFinish is how many status requests a task takes to finish.
const DefaultRoundsToFinish = 2

type group struct {
	info coordinator.Group
	key  *crypto.Signer
}

type task struct {
	task     coordinator.Task
	group    *group
	name     string
	data     []byte
	polls    int
	rejected bool
}

// Simulator implements coordinator.Server.
type Simulator struct {
	mu     sync.Mutex
	groups []*group
	tasks  map[string]*task

	// RoundsToFinish is the number of GetTask calls before a task finishes.
	RoundsToFinish int
	// RejectName, when set, fails every task whose name it matches.
	RejectName func(name string) bool

	logger *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Simulator {
	return &Simulator{
		tasks:          make(map[string]*task),
		RoundsToFinish: DefaultRoundsToFinish,
		logger:         util.OrNop(logger),
	}
}

// AddGroup registers a group. A nil key generates a fresh one.
func (s *Simulator) AddGroup(name string, protocol coordinator.ProtocolType, keyType coordinator.KeyType, key *crypto.Signer) (coordinator.Group, error) {
	if key == nil {
		var err error
		key, err = crypto.GenerateKey()
		if err != nil {
			return coordinator.Group{}, fmt.Errorf("generate group key: %w", err)
		}
	}

	compressed := key.CompressedPubKey()
	info := coordinator.Group{
		Identifier: wireformat.QuoteHex(hex.EncodeToString(compressed)),
		Name:       name,
		Threshold:  2,
		Protocol:   protocol,
		KeyType:    keyType,
		DeviceIDs:  [][]byte{[]byte("sim-device-1"), []byte("sim-device-2"), []byte("sim-device-3")},
	}

	s.mu.Lock()
	s.groups = append(s.groups, &group{info: info, key: key})
	s.mu.Unlock()

	s.logger.Infow("sim_group_added", "name", name, "protocol", protocol.String(), "key_type", keyType.String())
	return info, nil
}

// Reject fails a pending task the next time it is polled.
func (s *Simulator) Reject(taskID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[string(taskID)]
	if !ok {
		return fmt.Errorf("task not found: %x", taskID)
	}
	t.rejected = true
	return nil
}

// Polls returns how many times a task's status was requested.
func (s *Simulator) Polls(taskID []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[string(taskID)]; ok {
		return t.polls
	}
	return 0
}

func (s *Simulator) GetGroups(ctx context.Context, req *coordinator.GroupsRequest) (*coordinator.Groups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &coordinator.Groups{Groups: make([]coordinator.Group, 0, len(s.groups))}
	for _, g := range s.groups {
		out.Groups = append(out.Groups, g.info)
	}
	return out, nil
}

func (s *Simulator) Sign(ctx context.Context, req *coordinator.SignRequest) (*coordinator.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.findGroup(req.GroupID)
	if g == nil {
		return nil, status.Errorf(codes.NotFound, "group not found")
	}

	id := uuid.New()
	t := &task{
		task: coordinator.Task{
			ID:    id[:],
			Type:  taskTypeFor(g.info.KeyType),
			State: coordinator.TaskCreated,
		},
		group: g,
		name:  req.Name,
		data:  append([]byte(nil), req.Data...),
	}
	if s.RejectName != nil && s.RejectName(req.Name) {
		t.rejected = true
	}
	s.tasks[string(t.task.ID)] = t

	s.logger.Infow("sim_task_created", "task_id", t.task.IDHex(), "name", req.Name, "group", g.info.Name)
	out := t.task
	return &out, nil
}

func (s *Simulator) GetTask(ctx context.Context, req *coordinator.TaskRequest) (*coordinator.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[string(req.TaskID)]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "task not found")
	}
	t.polls++
	s.advance(t)

	out := t.task
	out.Data = append([][]byte(nil), t.task.Data...)
	return &out, nil
}

func (s *Simulator) advance(t *task) {
	if t.task.State.Terminal() {
		return
	}
	if t.rejected {
		t.task.State = coordinator.TaskFailed
		s.logger.Infow("sim_task_failed", "task_id", t.task.IDHex(), "reason", "rejected")
		return
	}

	t.task.Round = uint32(t.polls)
	if t.polls < s.RoundsToFinish {
		t.task.State = coordinator.TaskRunning
		return
	}

	sig, err := t.group.key.Sign(t.data)
	if err != nil {
		t.task.State = coordinator.TaskFailed
		s.logger.Infow("sim_task_failed", "task_id", t.task.IDHex(), "reason", err.Error())
		return
	}
	t.task.State = coordinator.TaskFinished
	t.task.Data = [][]byte{wireformat.QuoteHex(hex.EncodeToString(sig))}
	s.logger.Infow("sim_task_finished", "task_id", t.task.IDHex(), "polls", t.polls)
}

func (s *Simulator) findGroup(id []byte) *group {
	for _, g := range s.groups {
		if string(g.info.Identifier) == string(id) {
			return g
		}
	}
	return nil
}

func taskTypeFor(k coordinator.KeyType) coordinator.TaskType {
	switch k {
	case coordinator.KeySignPDF:
		return coordinator.TaskSignPDF
	case coordinator.KeyDecrypt:
		return coordinator.TaskDecrypt
	default:
		return coordinator.TaskSignChallenge
	}
}

var _ coordinator.Server = (*Simulator)(nil)
