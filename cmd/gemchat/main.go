package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gemchat/internal/chat"
	"gemchat/internal/config"
	"gemchat/internal/exchange"
	"gemchat/internal/httpapi"
	"gemchat/internal/llm"
	"gemchat/internal/llm/providers/google"
	"gemchat/internal/server"
	"gemchat/internal/store"
	"gemchat/internal/transcript"
)

const defaultServerURL = "http://localhost:5000"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serve(os.Args[2:])
	case "send":
		send(os.Args[2:])
	case "history":
		history(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  gemchat serve [--config <file.yaml>] [--addr <addr>] [--db <path>]")
	fmt.Fprintln(os.Stderr, "  gemchat send [--server <url>] <message>")
	fmt.Fprintln(os.Stderr, "  gemchat history [--server <url>]")
}

func serve(args []string) {
	var configPath string
	var addr string
	var dbPath string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--addr":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--addr requires a value")
				os.Exit(1)
			}
			addr = args[i]
		case "--db":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--db requires a value")
				os.Exit(1)
			}
			dbPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := cfg.ValidateForServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	turnStore, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer turnStore.Close()

	client := llm.NewClient()
	client.Register(google.New(cfg.GeminiAPIKey, cfg.GeminiBaseURL))

	orch, err := exchange.New(client, turnStore, exchange.Config{
		Model:      cfg.Model,
		GenTimeout: cfg.GenTimeout(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv := server.New(server.Config{Addr: cfg.Addr}, orch)
	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func send(args []string) {
	serverURL, rest := serverFlag(args)
	message := strings.TrimSpace(strings.Join(rest, " "))
	if message == "" {
		fmt.Fprintln(os.Stderr, "send requires a message")
		os.Exit(1)
	}

	ctrl, err := transcript.NewController(httpapi.New(serverURL))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	done, err := ctrl.Send(context.Background(), message)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out := <-done
	if out.Err != nil {
		if kind := chat.KindOf(out.Err); kind != "" {
			fmt.Fprintf(os.Stderr, "send failed (%s): %v\n", kind, out.Err)
		} else {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", out.Err)
		}
		os.Exit(1)
	}
	fmt.Println(out.Turn.ModelReply)
}

func history(args []string) {
	serverURL, rest := serverFlag(args)
	if len(rest) != 0 {
		fmt.Fprintf(os.Stderr, "unknown arg: %s\n", rest[0])
		os.Exit(1)
	}

	ctrl, err := transcript.NewController(httpapi.New(serverURL))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := ctrl.LoadHistory(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	entries := ctrl.Entries()
	if len(entries) == 0 {
		fmt.Println("no messages yet")
		return
	}
	for _, e := range entries {
		fmt.Printf("[%s] you: %s\n", e.Turn.CreatedAt.Local().Format("2006-01-02 15:04"), e.Turn.UserMessage)
		fmt.Printf("%s gemini: %s\n", strings.Repeat(" ", 18), e.Turn.ModelReply)
	}
}

// serverFlag extracts --server from args, returning the URL and the
// remaining arguments.
func serverFlag(args []string) (string, []string) {
	serverURL := defaultServerURL
	rest := []string{}
	for i := 0; i < len(args); i++ {
		if args[i] == "--server" {
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--server requires a value")
				os.Exit(1)
			}
			serverURL = args[i]
			continue
		}
		rest = append(rest, args[i])
	}
	return serverURL, rest
}
