// Package main provides an operator CLI for a running arena server: it lists
// and closes rooms over the admin gRPC endpoint and reads match history from
// PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/cory-johannsen/arena/internal/admin"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

var (
	flagConfig  string
	flagAddr    string
	flagTimeout time.Duration
	flagRoom    string
	flagLimit   int
)

var rootCmd = &cobra.Command{
	Use:           "arenactl",
	Short:         "Inspect and manage a running arena server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "configs/dev.yaml", "path to configuration file")
	flags.StringVar(&flagAddr, "addr", "", "admin gRPC address (defaults to admin.grpc_host:admin.grpc_port)")
	flags.DurationVar(&flagTimeout, "timeout", 10*time.Second, "per-command timeout")

	matchesCmd := &cobra.Command{
		Use:   "matches",
		Short: "List recorded match results",
		Args:  cobra.NoArgs,
		RunE:  runMatches,
	}
	matchesCmd.Flags().StringVar(&flagRoom, "room", "", "only matches from this room")
	matchesCmd.Flags().IntVar(&flagLimit, "limit", postgres.DefaultListLimit, "maximum results")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "rooms",
			Short: "List live rooms",
			Args:  cobra.NoArgs,
			RunE:  runRooms,
		},
		&cobra.Command{
			Use:   "close <room>",
			Short: "Disconnect every player in a room",
			Args:  cobra.ExactArgs(1),
			RunE:  runClose,
		},
		matchesCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("arenactl: %v", err)
	}
}

func dial() (*admin.RoomAdminClient, func(), error) {
	addr := flagAddr
	if addr == "" {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		addr = cfg.Admin.GRPCAddr()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return admin.NewRoomAdminClient(conn), func() { _ = conn.Close() }, nil
}

func runRooms(cmd *cobra.Command, _ []string) error {
	client, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	out, err := client.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(out)
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	start := time.Now()
	client, closeFn, err := dial()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	if err := client.CloseRoom(ctx, args[0]); err != nil {
		return fmt.Errorf("closing room %q: %w", args[0], err)
	}
	cmd.Printf("closed room %s [%s]\n", args[0], time.Since(start))
	return nil
}

func runMatches(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	records, err := postgres.NewMatchRepository(pool.DB()).ListByRoom(ctx, flagRoom, flagLimit)
	if err != nil {
		return err
	}
	for _, m := range records {
		cmd.Printf("#%d %s  %s beat %s (%d to %d) in %d rounds at %s\n",
			m.ID, m.Room, m.Winner, m.Loser, m.WinnerHP, m.LoserHP, m.Rounds,
			m.FinishedAt.UTC().Format(time.RFC3339))
	}
	if len(records) == 0 {
		cmd.Println("no matches recorded")
	}
	return nil
}
