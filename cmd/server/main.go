package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/pizzaplanet/gateway"
	"github.com/example/pizzaplanet/pkg/app"
	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/discovery"
	"github.com/example/pizzaplanet/pkg/grpc"
	"github.com/example/pizzaplanet/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "config/config.yaml", "path to the YAML config file")
	pflag.Parse()

	// GROQ_API_KEY and friends may live in a local .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build service", zap.Error(err))
	}
	defer a.Close()

	errCh := make(chan error, 2)

	feed := gateway.NewOrderFeed(log.Named("feed"))
	a.Orders.AddObserver(feed)
	gw := gateway.NewGateway(&cfg.Gateway, a.Service, feed, log.Named("gateway"))
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()

	var orderServer *grpc.OrderServer
	if cfg.Server.Enabled {
		orderServer = grpc.NewOrderServer(a.Service, &cfg.Server, log.Named("grpc"))
		go func() {
			if err := orderServer.Start(); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var (
		sd        *discovery.ServiceDiscovery
		instances []*discovery.ServiceInstance
	)
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, log.Named("discovery"))
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			instances = append(instances, &discovery.ServiceInstance{
				Name: cfg.Gateway.Name, Host: cfg.Gateway.Host, Port: cfg.Gateway.Port,
			})
			if orderServer != nil {
				instances = append(instances, &discovery.ServiceInstance{
					Name: cfg.Server.Name, Host: cfg.Server.Host, Port: cfg.Server.Port,
				})
			}
			for _, inst := range instances {
				if err := sd.Register(ctx, inst); err != nil {
					log.Error("Failed to register service", zap.String("name", inst.Name), zap.Error(err))
				}
			}
		}
	}

	log.Info("Pizza service started",
		zap.String("gateway", cfg.Gateway.Addr()),
		zap.Bool("grpc", cfg.Server.Enabled),
		zap.Bool("sessions", cfg.Session.Enabled))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Server error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if sd != nil {
		for _, inst := range instances {
			if err := sd.Deregister(shutdownCtx, inst); err != nil {
				log.Error("Failed to deregister service", zap.String("name", inst.Name), zap.Error(err))
			}
		}
		sd.Close()
	}
	if orderServer != nil {
		orderServer.Stop()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}

	log.Info("Pizza service stopped")
}
