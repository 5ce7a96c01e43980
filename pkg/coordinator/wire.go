package coordinator

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the coordinator's protobuf schema (package meesign).
const (
	fieldGroupIdentifier protowire.Number = 1
	fieldGroupName       protowire.Number = 2
	fieldGroupThreshold  protowire.Number = 3
	fieldGroupProtocol   protowire.Number = 4
	fieldGroupKeyType    protowire.Number = 5
	fieldGroupDeviceIDs  protowire.Number = 6

	fieldGroupsGroups protowire.Number = 1

	fieldGroupsRequestDeviceID protowire.Number = 1

	fieldSignName    protowire.Number = 1
	fieldSignGroupID protowire.Number = 2
	fieldSignData    protowire.Number = 3

	fieldTaskRequestTaskID   protowire.Number = 1
	fieldTaskRequestDeviceID protowire.Number = 2

	fieldTaskID      protowire.Number = 1
	fieldTaskType    protowire.Number = 2
	fieldTaskState   protowire.Number = 3
	fieldTaskRound   protowire.Number = 4
	fieldTaskAttempt protowire.Number = 5
	fieldTaskData    protowire.Number = 6
	fieldTaskRequest protowire.Number = 7
)

// wireMessage is implemented by every request and response type.
type wireMessage interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

// wireCodec is a grpc encoding.Codec producing protobuf wire bytes for the
// handful of coordinator messages, without generated code.
type wireCodec struct{}

func (wireCodec) Name() string { return "proto" }

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("coordinator codec: cannot marshal %T", v)
	}
	return m.marshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("coordinator codec: cannot unmarshal into %T", v)
	}
	return m.unmarshalWire(data)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendOptionalBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// walkFields calls fn for every field in b. fn returns the number of value
// bytes it consumed, or 0 to have the field skipped.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}
	*dst = append([]byte{}, v...)
	return n
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return n
	}
	*dst = v
	return n
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n
	}
	*dst = v
	return n
}

func (g *Group) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, fieldGroupIdentifier, g.Identifier)
	b = appendString(b, fieldGroupName, g.Name)
	b = appendVarint(b, fieldGroupThreshold, uint64(g.Threshold))
	b = appendVarint(b, fieldGroupProtocol, uint64(g.Protocol))
	b = appendVarint(b, fieldGroupKeyType, uint64(g.KeyType))
	for _, id := range g.DeviceIDs {
		b = protowire.AppendTag(b, fieldGroupDeviceIDs, protowire.BytesType)
		b = protowire.AppendBytes(b, id)
	}
	return b
}

func (g *Group) unmarshalWire(data []byte) error {
	*g = Group{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		var v uint64
		switch num {
		case fieldGroupIdentifier:
			return consumeBytes(typ, b, &g.Identifier)
		case fieldGroupName:
			return consumeString(typ, b, &g.Name)
		case fieldGroupThreshold:
			n := consumeVarint(typ, b, &v)
			g.Threshold = uint32(v)
			return n
		case fieldGroupProtocol:
			n := consumeVarint(typ, b, &v)
			g.Protocol = ProtocolType(v)
			return n
		case fieldGroupKeyType:
			n := consumeVarint(typ, b, &v)
			g.KeyType = KeyType(v)
			return n
		case fieldGroupDeviceIDs:
			var id []byte
			n := consumeBytes(typ, b, &id)
			if n > 0 {
				g.DeviceIDs = append(g.DeviceIDs, id)
			}
			return n
		}
		return 0
	})
}

func (r *GroupsRequest) marshalWire() []byte {
	return appendOptionalBytes(nil, fieldGroupsRequestDeviceID, r.DeviceID)
}

func (r *GroupsRequest) unmarshalWire(data []byte) error {
	*r = GroupsRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == fieldGroupsRequestDeviceID {
			return consumeBytes(typ, b, &r.DeviceID)
		}
		return 0
	})
}

func (g *Groups) marshalWire() []byte {
	var b []byte
	for i := range g.Groups {
		b = protowire.AppendTag(b, fieldGroupsGroups, protowire.BytesType)
		b = protowire.AppendBytes(b, g.Groups[i].marshalWire())
	}
	return b
}

func (g *Groups) unmarshalWire(data []byte) error {
	*g = Groups{}
	var nested error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num != fieldGroupsGroups {
			return 0
		}
		var raw []byte
		n := consumeBytes(typ, b, &raw)
		if n <= 0 {
			return n
		}
		var group Group
		if err := group.unmarshalWire(raw); err != nil && nested == nil {
			nested = err
		}
		g.Groups = append(g.Groups, group)
		return n
	})
	if err != nil {
		return err
	}
	return nested
}

func (r *SignRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, fieldSignName, r.Name)
	b = appendBytes(b, fieldSignGroupID, r.GroupID)
	b = appendBytes(b, fieldSignData, r.Data)
	return b
}

func (r *SignRequest) unmarshalWire(data []byte) error {
	*r = SignRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldSignName:
			return consumeString(typ, b, &r.Name)
		case fieldSignGroupID:
			return consumeBytes(typ, b, &r.GroupID)
		case fieldSignData:
			return consumeBytes(typ, b, &r.Data)
		}
		return 0
	})
}

func (r *TaskRequest) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, fieldTaskRequestTaskID, r.TaskID)
	b = appendOptionalBytes(b, fieldTaskRequestDeviceID, r.DeviceID)
	return b
}

func (r *TaskRequest) unmarshalWire(data []byte) error {
	*r = TaskRequest{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case fieldTaskRequestTaskID:
			return consumeBytes(typ, b, &r.TaskID)
		case fieldTaskRequestDeviceID:
			return consumeBytes(typ, b, &r.DeviceID)
		}
		return 0
	})
}

func (t *Task) marshalWire() []byte {
	var b []byte
	b = appendBytes(b, fieldTaskID, t.ID)
	b = appendVarint(b, fieldTaskType, uint64(t.Type))
	b = appendVarint(b, fieldTaskState, uint64(t.State))
	b = appendVarint(b, fieldTaskRound, uint64(t.Round))
	b = appendVarint(b, fieldTaskAttempt, uint64(t.Attempt))
	for _, d := range t.Data {
		b = protowire.AppendTag(b, fieldTaskData, protowire.BytesType)
		b = protowire.AppendBytes(b, d)
	}
	b = appendOptionalBytes(b, fieldTaskRequest, t.Request)
	return b
}

func (t *Task) unmarshalWire(data []byte) error {
	*t = Task{}
	return walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		var v uint64
		switch num {
		case fieldTaskID:
			return consumeBytes(typ, b, &t.ID)
		case fieldTaskType:
			n := consumeVarint(typ, b, &v)
			t.Type = TaskType(v)
			return n
		case fieldTaskState:
			n := consumeVarint(typ, b, &v)
			t.State = TaskState(v)
			return n
		case fieldTaskRound:
			n := consumeVarint(typ, b, &v)
			t.Round = uint32(v)
			return n
		case fieldTaskAttempt:
			n := consumeVarint(typ, b, &v)
			t.Attempt = uint32(v)
			return n
		case fieldTaskData:
			var d []byte
			n := consumeBytes(typ, b, &d)
			if n > 0 {
				t.Data = append(t.Data, d)
			}
			return n
		case fieldTaskRequest:
			return consumeBytes(typ, b, &t.Request)
		}
		return 0
	})
}
