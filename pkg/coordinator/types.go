// Package coordinator is the client side of the MeeSign threshold-signing
// coordinator: group listing, signing task submission and task status.
package coordinator

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ProtocolType identifies the threshold protocol a group runs.
type ProtocolType int32

const (
	ProtocolGG18    ProtocolType = 0
	ProtocolElGamal ProtocolType = 1
	ProtocolFROST   ProtocolType = 2
	ProtocolMuSig2  ProtocolType = 3
)

func (p ProtocolType) String() string {
	switch p {
	case ProtocolGG18:
		return "GG18"
	case ProtocolElGamal:
		return "ELGAMAL"
	case ProtocolFROST:
		return "FROST"
	case ProtocolMuSig2:
		return "MUSIG2"
	default:
		return fmt.Sprintf("PROTOCOL(%d)", int32(p))
	}
}

// KeyType is what a group's key may be used for.
type KeyType int32

const (
	KeySignPDF       KeyType = 0
	KeySignChallenge KeyType = 1
	KeyDecrypt       KeyType = 2
)

func (k KeyType) String() string {
	switch k {
	case KeySignPDF:
		return "SIGN_PDF"
	case KeySignChallenge:
		return "SIGN_CHALLENGE"
	case KeyDecrypt:
		return "DECRYPT"
	default:
		return fmt.Sprintf("KEY_TYPE(%d)", int32(k))
	}
}

type TaskType int32

const (
	TaskGroup         TaskType = 0
	TaskSignPDF       TaskType = 1
	TaskSignChallenge TaskType = 2
	TaskDecrypt       TaskType = 3
)

// TaskState is the lifecycle of a coordinator task. FINISHED and FAILED are terminal.
type TaskState int32

const (
	TaskCreated  TaskState = 0
	TaskRunning  TaskState = 1
	TaskFinished TaskState = 2
	TaskFailed   TaskState = 3
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "CREATED"
	case TaskRunning:
		return "RUNNING"
	case TaskFinished:
		return "FINISHED"
	case TaskFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Terminal reports whether no further transitions will happen.
func (s TaskState) Terminal() bool {
	return s == TaskFinished || s == TaskFailed
}

// Group is a registered set of key-share holders. Immutable once listed.
type Group struct {
	Identifier []byte
	Name       string
	Threshold  uint32
	Protocol   ProtocolType
	KeyType    KeyType
	DeviceIDs  [][]byte
}

// IdentifierBase64 is the form group identifiers take outside this package.
func (g Group) IdentifierBase64() string {
	return base64.StdEncoding.EncodeToString(g.Identifier)
}

// GroupsRequest asks for every group, or those of one device when DeviceID is set.
type GroupsRequest struct {
	DeviceID []byte
}

type Groups struct {
	Groups []Group
}

// SignRequest submits Data for signing by the group GroupID. Name is shown to
// the group's operators when they approve the task.
type SignRequest struct {
	Name    string
	GroupID []byte
	Data    []byte
}

type TaskRequest struct {
	TaskID   []byte
	DeviceID []byte
}

// Task is a unit of work tracked by the coordinator. Data holds the outputs
// once the task has finished.
type Task struct {
	ID      []byte
	Type    TaskType
	State   TaskState
	Round   uint32
	Attempt uint32
	Data    [][]byte
	Request []byte
}

// IDHex renders the task id for logs and errors.
func (t Task) IDHex() string {
	return hex.EncodeToString(t.ID)
}
