// Command rdnsd is a recursive DNS resolver: it listens for UDP queries
// and answers them by iteratively walking the name server hierarchy from
// a root hint.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rdns"
	"rdns/cache"
)

const maxDatagramSize = 512

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type config struct {
	addr            string
	root            string
	upstreamTimeout time.Duration
	maxHops         int
	maxDepth        int
	cacheSize       int
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	cmd := &cobra.Command{
		Use:   "rdnsd",
		Short: "Iterative recursive DNS resolver",
		Long: "rdnsd listens for DNS queries over UDP and answers them by\n" +
			"walking the name server hierarchy starting from a root hint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.addr, "addr", "0.0.0.0:2053", "UDP address to listen on")
	flags.StringVar(&cfg.root, "root", rdns.RootNameServer, "root name server to start resolution at")
	flags.DurationVar(&cfg.upstreamTimeout, "upstream-timeout", time.Second, "per-hop upstream query timeout")
	flags.IntVar(&cfg.maxHops, "max-hops", rdns.DefaultMaxHops, "maximum delegation hops per resolution")
	flags.IntVar(&cfg.maxDepth, "max-depth", rdns.DefaultMaxSubResolutionDepth, "maximum nested sub-resolution depth")
	flags.IntVar(&cfg.cacheSize, "cache-size", 10_000, "maximum number of cached responses (0 disables the bound)")

	return cmd
}

func run(ctx context.Context, cfg *config) error {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	errLogger := log.New(os.Stderr, "", log.LstdFlags)

	resolver := &rdns.Resolver{
		Transport: rdns.NewTransport(func(string) time.Duration {
			return cfg.upstreamTimeout
		}),
		Cache:                 cache.New(cfg.cacheSize),
		Root:                  cfg.root,
		MaxHops:               cfg.maxHops,
		MaxSubResolutionDepth: cfg.maxDepth,
		Rand:                  rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:                   logger.Printf,
	}

	handler := &rdns.Handler{
		Resolver: resolver,
		Log:      errLogger.Printf,
	}

	conn, err := net.ListenPacket("udp", cfg.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", cfg.addr, err)
	}
	defer conn.Close()

	logger.Printf("listening on %s, root server %s", cfg.addr, cfg.root)

	return serve(ctx, conn, handler, errLogger)
}

// serve binds once (by the caller), then loops: receive a datagram, hand it
// to the handler, and send the reply back. The model is single-threaded and
// cooperative on purpose — one query is handled end to end before the next
// is received.
func serve(ctx context.Context, conn net.PacketConn, handler *rdns.Handler, errLogger *log.Logger) error {
	buf := make([]byte, maxDatagramSize)

	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			errLogger.Printf("read: %v", err)
			continue
		}

		request := make([]byte, n)
		copy(request, buf[:n])

		reply, err := handler.Handle(ctx, request)
		if err != nil {
			errLogger.Printf("handle query from %s: %v", src, err)
			continue
		}

		if _, err := conn.WriteTo(reply, src); err != nil {
			errLogger.Printf("write reply to %s: %v", src, err)
		}
	}
}
