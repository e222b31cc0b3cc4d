package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mwantia/s3vfs"
	"github.com/spf13/cobra"
)

var lsRecursive bool

var lsCmd = &cobra.Command{
	Use:   "ls <uri>",
	Short: "List a directory",
	Long: `List the direct children of a directory ordered by key.

With --recursive every file and directory below the uri is printed,
parents before their children.

Examples:
  s3vfs ls s3://my-bucket/
  s3vfs ls -r s3://my-bucket/logs/`,
	Args: cobra.ExactArgs(1),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		path, err := provider.GetPath(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		if lsRecursive {
			return provider.Walk(ctx, path, func(entry s3vfs.DirEntry) error {
				printEntry(w, entry)
				return nil
			})
		}

		entries, err := provider.ReadDir(ctx, path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			printEntry(w, entry)
		}
		return nil
	}),
}

func init() {
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "walk the whole tree")
}

func printEntry(w *tabwriter.Writer, entry s3vfs.DirEntry) {
	if entry.Info.IsDir() {
		fmt.Fprintf(w, "DIR\t\t\t%s\n", entry.Path.ToURI())
		return
	}

	modified := ""
	if t := entry.Info.ModTime(); !t.IsZero() {
		modified = t.Local().Format(time.DateTime)
	}
	fmt.Fprintf(w, "FILE\t%d\t%s\t%s\n", entry.Info.Size(), modified, entry.Path.ToURI())
}
