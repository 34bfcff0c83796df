package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

var tagCmd = &cobra.Command{Use: "tag", Short: "Inspect and update tag bindings"}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tag defined on the server",
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()
		tags, err := c.TagList()
		bail(err)
		for _, t := range tags {
			fmt.Println(t)
		}
	},
}

var tagReadCmd = &cobra.Command{
	Use:   "read <tag>",
	Short: "Print the keys currently bound to a tag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()
		keys, err := c.TagRead(core.Tag(args[0]))
		bail(err)
		for _, k := range keys {
			fmt.Println(k.String())
		}
	},
}

var tagUpdateCmd = &cobra.Command{
	Use:   "update <tag> <key>...",
	Short: "Rebind a tag to the given set of keys",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		keys := make([]core.Key, 0, len(args)-1)
		for _, a := range args[1:] {
			keys = append(keys, parseKeyHex(a))
		}
		c := dial()
		defer c.Close()
		bail(c.TagUpdate(core.Tag(args[0]), keys))
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "rm <tag>",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := dial()
		defer c.Close()
		bail(c.TagRemove(core.Tag(args[0])))
	},
}

func init() {
	tagCmd.AddCommand(tagListCmd, tagReadCmd, tagUpdateCmd, tagRemoveCmd)
	RootCmd.AddCommand(tagCmd)
}
