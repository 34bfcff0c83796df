package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/synnergy-chain/syncstore/core"
)

var valueCmd = &cobra.Command{Use: "value", Short: "Write and read content-addressed values"}

var valueWriteCmd = &cobra.Command{
	Use:   "write [file]",
	Short: "Write stdin (or a file) as a new value and print its key",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data := readInput(args)
		c := dial()
		defer c.Close()
		k, err := c.ValueWrite(core.Value(data))
		bail(err)
		fmt.Println(k.String())
	},
}

var valueReadCmd = &cobra.Command{
	Use:   "read <key>",
	Short: "Read a value by key and print it to stdout",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		k := parseKeyHex(args[0])
		c := dial()
		defer c.Close()
		v, ok, err := c.ValueRead(k)
		bail(err)
		if !ok {
			bail(fmt.Errorf("no value for key %s", k))
		}
		os.Stdout.Write(v)
	},
}

func readInput(args []string) []byte {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		bail(err)
		return data
	}
	data, err := os.ReadFile(args[0])
	bail(err)
	return data
}

func init() {
	valueCmd.AddCommand(valueWriteCmd, valueReadCmd)
	RootCmd.AddCommand(valueCmd)
}
