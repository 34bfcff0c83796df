package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/synnergy-chain/syncstore/core"
)

// watchConfig is the shape of the optional --config file: a flat list of
// tags to watch, for deployments where the subscription set is too large
// or too dynamic to pass on the command line.
type watchConfig struct {
	Tags []string `yaml:"tags"`
}

var watchConfigPath string

var watchCmd = &cobra.Command{
	Use:   "watch [tag...]",
	Short: "Stream change notifications for one or more tags until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		tagNames := append([]string(nil), args...)

		if watchConfigPath != "" {
			b, err := os.ReadFile(watchConfigPath)
			bail(err)
			var cfg watchConfig
			bail(yaml.Unmarshal(b, &cfg))
			tagNames = append(tagNames, cfg.Tags...)
		}
		if len(tagNames) == 0 {
			bail(fmt.Errorf("watch: no tags given on the command line or in --config"))
		}

		tags := make([]core.Tag, len(tagNames))
		for i, a := range tagNames {
			tags[i] = core.Tag(a)
		}

		events, cancel, err := core.Watch(addrFlag, tags)
		bail(err)
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				fmt.Printf("changed=%v new_nodes=%d\n", ev.Changed, len(ev.Graph.Nodes))
				for _, k := range ev.Graph.Nodes {
					fmt.Printf("  %s\n", k.String())
				}
			case <-sigCh:
				return
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "", "YAML file with a top-level 'tags' list to watch, merged with any positional tags")
	RootCmd.AddCommand(watchCmd)
}
