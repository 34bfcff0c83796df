package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

var mergePath string

var mergeCmd = &cobra.Command{
	Use:   "merge <tag> <other-tag>",
	Short: "Three-way merge <other-tag>'s head into <tag> and advance <tag> to the result",
	Long: "merge fetches both branches' heads and their shared ancestor, resolves the " +
		"divergence client-side with the built-in log resolver, then pushes the resolved " +
		"value and advances <tag> to point at it.",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if mergePath != core.LogPath {
			bail(fmt.Errorf("no built-in resolver for path %q; the CLI only ships %q", mergePath, core.LogPath))
		}

		tag, other := core.Tag(args[0]), core.Tag(args[1])

		c := dial()
		defer c.Close()

		mine, err := c.TagRead(tag)
		bail(err)
		theirs, err := c.TagRead(other)
		bail(err)
		if len(mine) != 1 || len(theirs) != 1 {
			bail(fmt.Errorf("both %q and %q must have exactly one head to merge", tag, other))
		}
		a, b := mine[0], theirs[0]

		mirror, err := mirrorAncestry(c, []core.Key{a, b})
		bail(err)

		me := core.NewMergeEngine(&core.Stores{Keys: mirror}, nil, log)
		lca, hasLCA := me.LCA(a, b)

		var old *core.Value
		if hasLCA {
			v, ok, err := c.ValueRead(lca)
			bail(err)
			if ok {
				old = &v
			}
		}

		va, _, err := c.ValueRead(a)
		bail(err)
		vb, _, err := c.ValueRead(b)
		bail(err)

		merged, err := core.MergeLogs(old, va, vb)
		bail(err)

		k, err := c.ValueWrite(merged)
		bail(err)
		bail(c.PushKeys(core.Graph{
			Nodes: []core.Key{k},
			Edges: []core.Edge{{From: k, To: a}, {From: k, To: b}},
		}, []core.TagBinding{{Tag: tag, Keys: []core.Key{k}}}))

		fmt.Println(k.String())
	},
}

// mirrorAncestry fetches the full ancestor closure of roots from the server
// and materializes it into a local, read-only MemKeyStore so LCA can be
// computed without a second round trip per predecessor lookup.
func mirrorAncestry(c *core.Client, roots []core.Key) (*core.MemKeyStore, error) {
	g, err := c.PullKeys(roots, nil)
	if err != nil {
		return nil, err
	}
	mirror := core.NewMemKeyStore()
	predsOf := make(map[core.Key][]core.Key, len(g.Nodes))
	for _, e := range g.Edges {
		predsOf[e.From] = append(predsOf[e.From], e.To)
	}
	order, err := core.TopoSort(g)
	if err != nil {
		return nil, err
	}
	for _, k := range order {
		if err := mirror.Add(k, predsOf[k]); err != nil {
			return nil, err
		}
	}
	return mirror, nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergePath, "path", core.LogPath, "resolver path (only \"log\" is built into the CLI)")
	RootCmd.AddCommand(mergeCmd)
}
