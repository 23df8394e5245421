package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/example/pizzaplanet/pkg/app"
	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/logger"
	"github.com/example/pizzaplanet/pkg/service"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML config file")
	email := pflag.String("email", "", "customer email used for orders")
	name := pflag.String("name", "", "customer name")
	pflag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	// Keep the conversation readable.
	cfg.Log.Level = "warn"
	cfg.Log.Encoding = "console"
	cfg.Log.OutputPaths = []string{"stderr"}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build service", zap.Error(err))
	}
	defer a.Close()

	in := bufio.NewScanner(os.Stdin)
	if *email == "" {
		fmt.Print("What's your email? (press enter to skip) ")
		if in.Scan() {
			*email = strings.TrimSpace(in.Text())
		}
	}

	fmt.Println("🍕 Welcome to Pizza Planet! Ask for the menu, order a pizza, or track an order. Type 'quit' to leave.")
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		msg := strings.TrimSpace(in.Text())
		if msg == "" {
			continue
		}
		if msg == "quit" || msg == "exit" {
			fmt.Println("Goodbye! 👋")
			break
		}

		res, err := a.Service.HandleChatMessage(ctx, service.ChatRequest{
			Message:   msg,
			UserEmail: *email,
			UserName:  *name,
		})
		if err != nil {
			fmt.Printf("Sorry, something went wrong: %v\n", err)
			continue
		}
		fmt.Println(res.Response)
	}
}
