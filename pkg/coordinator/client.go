package coordinator

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/uhyunpark/nostr-signerd/pkg/signerr"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

const (
	serviceName = "meesign.MeeSign"

	methodGetGroups = "/" + serviceName + "/GetGroups"
	methodSign      = "/" + serviceName + "/Sign"
	methodGetTask   = "/" + serviceName + "/GetTask"
)

// Client is the coordinator RPC surface the signer consumes.
type Client interface {
	ListGroups(ctx context.Context) ([]Group, error)
	SubmitSigningTask(ctx context.Context, req SignRequest) (Task, error)
	GetTask(ctx context.Context, taskID []byte) (Task, error)
}

// Config holds connection settings for the coordinator.
type Config struct {
	Address string
	// CAFile enables TLS with the given root certificate when non-empty.
	CAFile string
	// RPCTimeout bounds every single RPC; zero means no per-call deadline.
	RPCTimeout time.Duration
	// DialTimeout is the minimum time allowed for each connection attempt.
	DialTimeout time.Duration
	KeepAlive   time.Duration
}

// GRPCClient talks to the coordinator over gRPC.
type GRPCClient struct {
	conn   *grpc.ClientConn
	cfg    Config
	logger *zap.SugaredLogger
}

// Dial creates a client for cfg.Address. The connection is established lazily
// on the first RPC.
func Dial(cfg Config, logger *zap.SugaredLogger) (*GRPCClient, error) {
	var opts []grpc.DialOption

	if cfg.CAFile != "" {
		creds, err := credentials.NewClientTLSFromFile(cfg.CAFile, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to load TLS credentials")
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if cfg.DialTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.DefaultConfig,
			MinConnectTimeout: cfg.DialTimeout,
		}))
	}

	if cfg.KeepAlive > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepAlive,
			Timeout:             cfg.KeepAlive / 3,
			PermitWithoutStream: false,
		}))
	}

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create coordinator client for %s", cfg.Address)
	}
	return NewGRPCClient(conn, cfg, logger), nil
}

// NewGRPCClient wraps an existing connection.
func NewGRPCClient(conn *grpc.ClientConn, cfg Config, logger *zap.SugaredLogger) *GRPCClient {
	return &GRPCClient{conn: conn, cfg: cfg, logger: util.OrNop(logger)}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) ListGroups(ctx context.Context) ([]Group, error) {
	var resp Groups
	if err := c.invoke(ctx, "get_groups", methodGetGroups, &GroupsRequest{}, &resp); err != nil {
		return nil, err
	}
	c.logger.Debugw("coordinator_groups_listed", "count", len(resp.Groups))
	return resp.Groups, nil
}

func (c *GRPCClient) SubmitSigningTask(ctx context.Context, req SignRequest) (Task, error) {
	var task Task
	if err := c.invoke(ctx, "sign", methodSign, &req, &task); err != nil {
		return Task{}, err
	}
	c.logger.Debugw("coordinator_task_created", "task_id", task.IDHex(), "state", task.State.String())
	return task, nil
}

func (c *GRPCClient) GetTask(ctx context.Context, taskID []byte) (Task, error) {
	var task Task
	if err := c.invoke(ctx, "get_task", methodGetTask, &TaskRequest{TaskID: taskID}, &task); err != nil {
		if e, ok := err.(*signerr.Error); ok {
			e.TaskID = hex.EncodeToString(taskID)
		}
		return Task{}, err
	}
	return task, nil
}

func (c *GRPCClient) invoke(ctx context.Context, op, method string, req, resp wireMessage) error {
	if c.cfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RPCTimeout)
		defer cancel()
	}
	if err := c.conn.Invoke(ctx, method, req, resp, grpc.ForceCodec(wireCodec{})); err != nil {
		return signerr.Transport(op, err)
	}
	return nil
}

var _ Client = (*GRPCClient)(nil)
