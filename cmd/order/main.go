package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/discovery"
	"github.com/example/pizzaplanet/pkg/grpc"
	"github.com/example/pizzaplanet/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

const usage = `usage: order [flags] <command> [args]

commands:
  status  <order-id>
  advance <order-id> <status>
  cancel  <order-id> [reason]
  menu    [category]
`

func main() {
	configPath := pflag.StringP("config", "c", "config/config.yaml", "path to the YAML config file")
	target := pflag.String("target", "", "order service address; defaults to discovery, then server.host:port")
	timeout := pflag.Duration("timeout", 5*time.Second, "per-call timeout")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	_ = godotenv.Load()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	var disc grpc.Discoverer
	if cfg.Etcd.Enabled && *target == "" {
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, using default address", zap.Error(err))
		} else {
			defer sd.Close()
			disc = sd
		}
	}
	addr := *target
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	clients := grpc.NewClientManager(log, disc)
	if err := clients.Connect(cfg.Server.Name, addr); err != nil {
		log.Fatal("Failed to connect", zap.Error(err))
	}
	defer clients.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := run(ctx, clients.OrderClient(), args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	data, _ := json.MarshalIndent(out.AsMap(), "", "  ")
	fmt.Println(string(data))
}

func run(ctx context.Context, c *grpc.OrderServiceClient, args []string) (*structpb.Struct, error) {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: missing arguments\n%s", args[0], usage)
		}
		return nil
	}
	switch args[0] {
	case "status":
		if err := need(2); err != nil {
			return nil, err
		}
		return c.GetOrderStatus(ctx, args[1])
	case "advance":
		if err := need(3); err != nil {
			return nil, err
		}
		return c.AdvanceStatus(ctx, args[1], strings.Join(args[2:], " "))
	case "cancel":
		if err := need(2); err != nil {
			return nil, err
		}
		return c.CancelOrder(ctx, args[1], strings.Join(args[2:], " "))
	case "menu":
		category := ""
		if len(args) > 1 {
			category = args[1]
		}
		return c.GetMenu(ctx, category)
	}
	return nil, fmt.Errorf("unknown command %q\n%s", args[0], usage)
}
