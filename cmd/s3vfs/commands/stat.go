package commands

import (
	"context"
	"fmt"

	"github.com/mwantia/s3vfs"
	"github.com/mwantia/s3vfs/data"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <uri>",
	Short: "Print the metadata of a path as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		path, err := provider.GetPath(args[0])
		if err != nil {
			return err
		}

		info, err := provider.Stat(ctx, path)
		if err != nil {
			return err
		}

		out, err := info.Sys().(*data.ObjectStat).Marshal()
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	}),
}
