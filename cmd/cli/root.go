// Package cli implements the syncstore command-line client: one file per
// concern, each exporting a package-level *cobra.Command that main.go wires
// into the root command.
package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

// RootCmd is the top-level syncstore command.
var RootCmd = &cobra.Command{
	Use:   "syncstore",
	Short: "Content-addressed object store with branch-consistent synchronization",
}

var (
	addrFlag string
	logLvl   string
	log      = logrus.New()
)

func init() {
	_ = godotenv.Load()
	RootCmd.PersistentFlags().StringVar(&addrFlag, "addr", envOrDefault("SYNC_ADDR", "127.0.0.1:7420"), "syncstore server address (SYNC_ADDR)")
	RootCmd.PersistentFlags().StringVar(&logLvl, "log-level", envOrDefault("SYNC_LOG_LEVEL", "info"), "log level (SYNC_LOG_LEVEL)")
	RootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		lvl, err := logrus.ParseLevel(logLvl)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		log.SetLevel(lvl)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dial() *core.Client {
	c, err := core.Dial(addrFlag)
	if err != nil {
		bail(fmt.Errorf("dial %s: %w", addrFlag, err))
	}
	return c
}

func bail(err error) {
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}

func parseKeyHex(s string) core.Key {
	var k core.Key
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(k) {
		bail(fmt.Errorf("invalid key %q: expected %d hex bytes", s, len(k)))
	}
	copy(k[:], b)
	return k
}
