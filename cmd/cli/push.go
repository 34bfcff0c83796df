package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

var pushPreds []string

var pushCmd = &cobra.Command{
	Use:   "push <tag> <file>",
	Short: "Write a value, append it as a new node under <tag>, and push the DAG shape and tag update to the server",
	Long: "push writes the given file's bytes as a new content-addressed value, then calls " +
		"push_keys to register it as a single-node graph whose predecessors are --pred (the " +
		"current branch head by default), and finally rebinds <tag> to point at it.",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tag := core.Tag(args[0])
		data := readInput(args[1:])

		c := dial()
		defer c.Close()

		var preds []core.Key
		if len(pushPreds) > 0 {
			for _, p := range pushPreds {
				preds = append(preds, parseKeyHex(p))
			}
		} else {
			heads, err := c.TagRead(tag)
			bail(err)
			preds = heads
		}

		k, err := c.ValueWrite(core.Value(data))
		bail(err)

		g := core.Graph{Nodes: []core.Key{k}}
		for _, p := range preds {
			g.Edges = append(g.Edges, core.Edge{From: k, To: p})
		}

		bail(c.PushKeys(g, []core.TagBinding{{Tag: tag, Keys: []core.Key{k}}}))
		fmt.Fprintln(os.Stdout, k.String())
	},
}

func init() {
	pushCmd.Flags().StringSliceVar(&pushPreds, "pred", nil, "explicit predecessor keys (default: the tag's current head)")
	RootCmd.AddCommand(pushCmd)
}
