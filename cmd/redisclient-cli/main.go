package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pior/redisclient"
	"github.com/pior/redisclient/metrics"
	"github.com/pior/redisclient/resp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	configFile  string
	endpoints   string
	poolSize    int
	timeout     time.Duration
	metricsAddr string
	verbose     bool
}

func main() {
	config := Config{}
	flag.StringVar(&config.configFile, "config", "", "YAML config file")
	flag.StringVar(&config.endpoints, "endpoints", "", "comma separated server addresses (overrides the config file)")
	flag.IntVar(&config.poolSize, "pool-size", 0, "maximum number of connections (overrides the config file)")
	flag.DurationVar(&config.timeout, "timeout", 5*time.Second, "command timeout")
	flag.StringVar(&config.metricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9121)")
	flag.BoolVar(&config.verbose, "v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if config.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	clientConfig, err := loadConfig(config)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	clientConfig.Logger = logger

	client, err := redisclient.New(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	if config.metricsAddr != "" {
		serveMetrics(client, config.metricsAddr, logger)
	}

	fmt.Printf("Connected to %s (pool size %d)\n", strings.Join(clientConfig.Endpoints, ","), clientConfig.MaxSize)
	fmt.Println("Type any command, 'stats' for client statistics, 'quit' to exit.")

	if err := repl(os.Stdin, os.Stdout, client, config.timeout); err != nil {
		log.Fatalf("Error reading input: %v", err)
	}
}

func loadConfig(config Config) (redisclient.Config, error) {
	fc, err := redisclient.ReadConfigFile(config.configFile)
	if err != nil {
		return redisclient.Config{}, err
	}

	if config.endpoints != "" {
		fc.Endpoints = redisclient.ParseEndpointList(config.endpoints)
	}
	if config.poolSize > 0 {
		fc.PoolSize = int32(config.poolSize)
	}
	if fc.PoolSize == 0 {
		fc.PoolSize = redisclient.DefaultMaxSize
	}
	if fc.Timeout == 0 {
		fc.Timeout = config.timeout
	}

	return fc.Config()
}

func serveMetrics(client *redisclient.Client, addr string, logger *slog.Logger) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(client, "cli"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

// commander is the part of *redisclient.Client used by the REPL.
type commander interface {
	Do(ctx context.Context, args ...resp.Arg) (*redisclient.ReplyHandle, error)
	Stats() redisclient.ClientStats
	PoolStats() redisclient.PoolStats
}

func repl(in io.Reader, out io.Writer, client commander, timeout time.Duration) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		words, err := shellquote.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "(error) invalid input: %v\n", err)
			continue
		}
		if len(words) == 0 {
			continue
		}

		switch strings.ToLower(words[0]) {
		case "quit", "exit":
			return nil
		case "stats":
			printStats(out, client.Stats(), client.PoolStats())
			continue
		}

		runCommand(out, client, words, timeout)
	}

	return scanner.Err()
}

func runCommand(out io.Writer, client commander, words []string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	reply, err := client.Do(ctx, resp.Strings(words...)...)
	duration := time.Since(start)
	if err != nil {
		fmt.Fprintf(out, "(error) %v (took %v)\n", err, duration)
		return
	}
	defer reply.Close()

	writeReply(out, reply.Reply(), "")
}

func printStats(out io.Writer, stats redisclient.ClientStats, pool redisclient.PoolStats) {
	fmt.Fprintf(out, "commands:       %d\n", stats.Commands)
	fmt.Fprintf(out, "error_replies:  %d\n", stats.ErrorReplies)
	fmt.Fprintf(out, "errors:         %d\n", stats.Errors)
	fmt.Fprintf(out, "sets:           %d\n", stats.Sets)
	fmt.Fprintf(out, "gets:           %d (hits %d)\n", stats.Gets, stats.GetHits)
	fmt.Fprintf(out, "incrs:          %d\n", stats.Incrs)
	fmt.Fprintf(out, "connections:    %d total, %d idle, %d active\n", pool.TotalConns, pool.IdleConns, pool.ActiveConns)
	fmt.Fprintf(out, "acquires:       %d (waits %d, errors %d)\n", pool.AcquireCount, pool.AcquireWaitCount, pool.AcquireErrors)
	fmt.Fprintf(out, "created:        %d\n", pool.CreatedConns)
	fmt.Fprintf(out, "destroyed:      %d\n", pool.DestroyedConns)
}
