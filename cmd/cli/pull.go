package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

var (
	pullOutDir string
	pullHave   []string
)

var pullCmd = &cobra.Command{
	Use:   "pull <tag>",
	Short: "Fetch everything reachable from <tag>'s current head, excluding what --have already covers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tag := core.Tag(args[0])

		c := dial()
		defer c.Close()

		roots, err := c.TagRead(tag)
		bail(err)
		if len(roots) == 0 {
			bail(fmt.Errorf("tag %q is not bound to any key", tag))
		}

		have := make([]core.Tag, len(pullHave))
		for i, h := range pullHave {
			have[i] = core.Tag(h)
		}

		g, err := c.PullKeys(roots, have)
		bail(err)

		if pullOutDir != "" {
			bail(os.MkdirAll(pullOutDir, 0o755))
		}
		for _, k := range g.Nodes {
			v, ok, err := c.ValueRead(k)
			bail(err)
			if !ok {
				continue // value not yet written server-side; shape-only node
			}
			if pullOutDir == "" {
				fmt.Println(k.String())
				continue
			}
			bail(os.WriteFile(filepath.Join(pullOutDir, k.String()), v, 0o644))
		}
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullOutDir, "out", "", "directory to write fetched values into, named by hex key (default: print keys only)")
	pullCmd.Flags().StringSliceVar(&pullHave, "have", nil, "tags whose ancestor closure the caller already has, to minimize the transfer")
	RootCmd.AddCommand(pullCmd)
}
