package sim

import (
	"context"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
)

// LocalClient calls a Simulator in-process, without gRPC.
type LocalClient struct {
	Sim *Simulator
}

func (c LocalClient) ListGroups(ctx context.Context) ([]coordinator.Group, error) {
	resp, err := c.Sim.GetGroups(ctx, &coordinator.GroupsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (c LocalClient) SubmitSigningTask(ctx context.Context, req coordinator.SignRequest) (coordinator.Task, error) {
	t, err := c.Sim.Sign(ctx, &req)
	if err != nil {
		return coordinator.Task{}, err
	}
	return *t, nil
}

func (c LocalClient) GetTask(ctx context.Context, taskID []byte) (coordinator.Task, error) {
	t, err := c.Sim.GetTask(ctx, &coordinator.TaskRequest{TaskID: taskID})
	if err != nil {
		return coordinator.Task{}, err
	}
	return *t, nil
}

var _ coordinator.Client = LocalClient{}
