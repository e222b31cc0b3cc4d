package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/mwantia/s3vfs"
	"github.com/spf13/cobra"
)

var (
	replaceExisting bool
	rmRecursive     bool
	mkdirParents    bool
)

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy a file or a directory tree",
	Long: `Copy a file or a directory tree with server side copies.

A file copied onto a directory uri (ending in /) keeps its name. Both
uris must address the same endpoint.

Examples:
  s3vfs cp s3://my-bucket/a.txt s3://my-bucket/archive/
  s3vfs cp --replace s3://my-bucket/site/ s3://other-bucket/site/`,
	Args: cobra.ExactArgs(2),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		src, dst, err := resolvePair(provider, args)
		if err != nil {
			return err
		}
		return provider.Copy(ctx, src, dst, copyOptions()...)
	}),
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move a file or a directory tree",
	Args:  cobra.ExactArgs(2),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		src, dst, err := resolvePair(provider, args)
		if err != nil {
			return err
		}
		return provider.Move(ctx, src, dst, copyOptions()...)
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm <uri>...",
	Short: "Remove files and directories",
	Long: `Remove files and empty directories.

With --recursive directories are removed together with everything
below them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		for _, uri := range args {
			path, err := provider.GetPath(uri)
			if err != nil {
				return err
			}

			if !rmRecursive {
				if err := provider.Delete(ctx, path); err != nil {
					return err
				}
				continue
			}

			deleted, err := provider.DeleteAll(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "removed %d keys below %s\n", deleted, path.ToURI())
		}
		return nil
	}),
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <uri>...",
	Short: "Create directory markers",
	Args:  cobra.MinimumNArgs(1),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		for _, uri := range args {
			path, err := provider.GetPath(uri)
			if err != nil {
				return err
			}

			if !mkdirParents {
				if err := provider.CreateDirectory(ctx, path); err != nil {
					return err
				}
				continue
			}

			if err := createParents(ctx, provider, path); err != nil {
				return err
			}
		}
		return nil
	}),
}

func init() {
	cpCmd.Flags().BoolVar(&replaceExisting, "replace", false, "overwrite existing targets")
	mvCmd.Flags().BoolVar(&replaceExisting, "replace", false, "overwrite existing targets")
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "remove directories and their contents")
	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "create missing parents, existing directories are no error")
}

func resolvePair(provider *s3vfs.Provider, args []string) (*s3vfs.Path, *s3vfs.Path, error) {
	src, err := provider.GetPath(args[0])
	if err != nil {
		return nil, nil, err
	}
	dst, err := provider.GetPath(args[1])
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

func copyOptions() []s3vfs.CopyOption {
	if replaceExisting {
		return []s3vfs.CopyOption{s3vfs.ReplaceExisting}
	}
	return nil
}

func createParents(ctx context.Context, provider *s3vfs.Provider, path *s3vfs.Path) error {
	for i := range path.NameCount() {
		dir, err := path.Subpath(0, i+1)
		if err != nil {
			return err
		}
		dir = dir.ToAbsolute()

		exists, err := provider.Exists(ctx, dir)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := provider.CreateDirectory(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}
