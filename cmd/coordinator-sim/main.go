// coordinator-sim serves an in-memory coordinator for local development.
//
// Environment:
//
//	SIM_LISTEN_ADDR   listen address (default 127.0.0.1:1337)
//	SIM_ROUNDS        status requests before a task finishes (default 2)
//	SIM_GROUP_KEY     hex secp256k1 secret for the MuSig2 group (random when unset)
//	SIM_REJECT        tasks whose name contains this text fail
//	LOG_LEVEL         zap level (default info)
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/uhyunpark/nostr-signerd/pkg/coordinator"
	"github.com/uhyunpark/nostr-signerd/pkg/coordinator/sim"
	"github.com/uhyunpark/nostr-signerd/pkg/crypto"
	"github.com/uhyunpark/nostr-signerd/pkg/identity"
	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

func main() {
	_ = godotenv.Load()

	logger, err := util.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	s := sim.New(sugar)
	if v := os.Getenv("SIM_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.RoundsToFinish = n
		}
	}
	if reject := os.Getenv("SIM_REJECT"); reject != "" {
		s.RejectName = func(name string) bool { return strings.Contains(name, reject) }
	}

	var key *crypto.Signer
	if v := os.Getenv("SIM_GROUP_KEY"); v != "" {
		key, err = crypto.FromPrivateKeyHex(v)
		if err != nil {
			sugar.Fatalw("invalid_group_key", "err", err)
		}
	}

	// A group the signer must skip, listed before the one it selects
	if _, err := s.AddGroup("documents", coordinator.ProtocolGG18, coordinator.KeySignPDF, nil); err != nil {
		sugar.Fatalw("group_init_failed", "err", err)
	}
	g, err := s.AddGroup("nostr", coordinator.ProtocolMuSig2, coordinator.KeySignChallenge, key)
	if err != nil {
		sugar.Fatalw("group_init_failed", "err", err)
	}
	pubkey, err := identity.FormatPublicKey(g.IdentifierBase64())
	if err != nil {
		sugar.Fatalw("group_key_invalid", "err", err)
	}

	addr := os.Getenv("SIM_LISTEN_ADDR")
	if addr == "" {
		addr = "127.0.0.1:1337"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		sugar.Fatalw("listen_failed", "addr", addr, "err", err)
	}

	server := grpc.NewServer(coordinator.ServerCodec())
	coordinator.RegisterServer(server, s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sugar.Info("shutdown signal received")
		server.GracefulStop()
	}()

	sugar.Infow("coordinator_sim_listening", "addr", addr, "group", g.Name, "pubkey", pubkey, "rounds", s.RoundsToFinish)
	if err := server.Serve(lis); err != nil {
		sugar.Fatalw("serve_failed", "err", err)
	}
}
