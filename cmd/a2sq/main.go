// Command a2sq is a demonstration client for the A2S query package: it
// queries one or more servers and prints each stage's event as it
// arrives.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/augiro/a2s-query/a2s"
	"github.com/augiro/a2s-query/internal/logging"
)

// cliConfig mirrors the grouped-struct + long/env/default tag idiom the
// corpus's Source-query-aware config loader uses, scoped down to the
// handful of knobs this demo binary actually exposes.
type cliConfig struct {
	Query struct {
		Host       string `long:"host" env:"A2SQ_HOST" description:"Server hostname or IP" required:"true"`
		Port       int    `long:"port" env:"A2SQ_PORT" description:"Server query port" default:"27015"`
		TimeoutMs  int    `long:"timeout-ms" env:"A2SQ_TIMEOUT_MS" description:"Overall run deadline in milliseconds" default:"2000"`
		BufferSize int    `long:"buffer-size" env:"A2SQ_BUFFER_SIZE" description:"Per-datagram receive buffer size" default:"1400"`
	} `group:"Query Options"`

	Debug bool `long:"debug" env:"A2SQ_DEBUG" description:"Enable debug logging"`
}

func parseConfig() *cliConfig {
	var cfg cliConfig
	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	return &cfg
}

func main() {
	cfg := parseConfig()

	log := logging.New(cfg.Debug)
	defer log.Sync()

	dispatcher := a2s.NewDispatcher(log, nil, nil, a2s.Config{
		TimeoutMs:  cfg.Query.TimeoutMs,
		BufferSize: cfg.Query.BufferSize,
	})

	events, err := dispatcher.Run(context.Background(), []a2s.EndpointConfig{
		{Host: cfg.Query.Host, Port: cfg.Query.Port},
	})
	if err != nil {
		log.Fatalw("run failed to start", "error", err)
	}

	group := new(errgroup.Group)
	group.Go(func() error { return drain(events) })

	if err := group.Wait(); err != nil {
		log.Errorw("run ended with error", "error", err)
		os.Exit(1)
	}
}

// drain reads every event channel until Done fires once, printing a
// line per event the way a quick smoke-test client would.
func drain(events *a2s.Events) error {
	for {
		select {
		case e, ok := <-events.Info:
			if !ok {
				continue
			}
			fmt.Printf("info:      %s:%d -> %+v\n", e.Endpoint.Host, e.Endpoint.Port, e.Info)
		case e, ok := <-events.Challenge:
			if !ok {
				continue
			}
			fmt.Printf("challenge: %s:%d -> token=%d\n", e.Endpoint.Host, e.Endpoint.Port, e.Token)
		case e, ok := <-events.Player:
			if !ok {
				continue
			}
			fmt.Printf("players:   %s:%d -> %d players\n", e.Endpoint.Host, e.Endpoint.Port, len(e.Players))
		case e, ok := <-events.Rules:
			if !ok {
				continue
			}
			fmt.Printf("rules:     %s:%d -> %d rules\n", e.Endpoint.Host, e.Endpoint.Port, len(e.Rules))
		case e, ok := <-events.Ping:
			if !ok {
				continue
			}
			fmt.Printf("ping:      %s:%d -> %.2fms\n", e.Endpoint.Host, e.Endpoint.Port, e.Ms)
		case e, ok := <-events.Error:
			if !ok {
				continue
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", e)
		case done, ok := <-events.Done:
			if !ok {
				return nil
			}
			for _, ep := range done {
				switch {
				case ep.Err != nil:
					fmt.Fprintf(os.Stderr, "%s:%d finished with error: %v\n", ep.Host, ep.Port, ep.Err)
				case !ep.Complete():
					fmt.Fprintf(os.Stderr, "%s:%d incomplete when the run ended\n", ep.Host, ep.Port)
				}
			}
			return nil
		}
	}
}
