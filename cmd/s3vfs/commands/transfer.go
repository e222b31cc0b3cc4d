package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mwantia/s3vfs"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/spf13/cobra"
)

var (
	catOffset int64
	catLength int64

	putIfModified bool
	putNoClobber  bool
	putChecksum   string
)

var catCmd = &cobra.Command{
	Use:   "cat <uri>",
	Short: "Write an object to stdout",
	Long: `Write an object to stdout.

A part of the object can be selected with --offset and --length, only
that range is requested from the store.

Examples:
  s3vfs cat s3://my-bucket/notes.txt
  s3vfs cat --offset 1024 --length 512 s3://my-bucket/data.bin`,
	Args: cobra.ExactArgs(1),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		return download(ctx, provider, args[0], os.Stdout)
	}),
}

var getCmd = &cobra.Command{
	Use:   "get <uri> <file>",
	Short: "Download an object into a local file",
	Args:  cobra.ExactArgs(2),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		file, err := os.Create(args[1])
		if err != nil {
			return err
		}

		if err := download(ctx, provider, args[0], file); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}),
}

var putCmd = &cobra.Command{
	Use:   "put <file|-> <uri>",
	Short: "Upload a local file or stdin",
	Long: `Upload a local file, or stdin when the file is "-".

The content is buffered locally and uploaded once when complete.

Examples:
  s3vfs put report.csv s3://my-bucket/reports/report.csv
  s3vfs put --if-modified config.yaml s3://my-bucket/config.yaml
  tar c . | s3vfs put --no-clobber - s3://my-bucket/backup.tar`,
	Args: cobra.ExactArgs(2),
	RunE: withProvider(func(ctx context.Context, provider *s3vfs.Provider, args []string) error {
		var source io.Reader = os.Stdin
		size := int64(-1)
		if args[0] != "-" {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return err
			}
			source, size = file, info.Size()
		}

		path, err := provider.GetPath(args[1])
		if err != nil {
			return err
		}

		mode := data.AccessModeWrite | data.AccessModeCreate | data.AccessModeTrunc
		opts := []s3vfs.OpenOption{}
		if putNoClobber {
			mode |= data.AccessModeExcl
			opts = append(opts, s3vfs.PreventConcurrentOverwrite())
		}
		if putChecksum != "" {
			opts = append(opts, s3vfs.IntegrityCheck(backend.ChecksumAlgorithm(putChecksum)))
		}

		if putIfModified {
			if size < 0 {
				return fmt.Errorf("--if-modified requires a file")
			}

			// Only an object of equal size can hold the same content. It is
			// kept in the buffer and overwritten completely.
			info, err := provider.Stat(ctx, path)
			if err == nil && !info.IsDir() && info.Size() == size {
				mode &^= data.AccessModeTrunc
				opts = append(opts, s3vfs.PutOnlyIfModified(nil))
			}
		}

		channel, err := provider.OpenWrite(ctx, path, mode, opts...)
		if err != nil {
			return err
		}

		if _, err := io.Copy(channel, source); err != nil {
			channel.Close()
			return err
		}

		if err := channel.Close(); err != nil {
			return err
		}

		if !channel.Uploaded() {
			fmt.Fprintf(os.Stderr, "%s is unchanged\n", path.ToURI())
		}
		return nil
	}),
}

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "first byte to read")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "number of bytes to read (default: until the end)")
	getCmd.Flags().Int64Var(&catOffset, "offset", 0, "first byte to read")
	getCmd.Flags().Int64Var(&catLength, "length", -1, "number of bytes to read (default: until the end)")

	putCmd.Flags().BoolVar(&putIfModified, "if-modified", false, "skip the upload when the content is unchanged")
	putCmd.Flags().BoolVar(&putNoClobber, "no-clobber", false, "fail when the object exists or is created concurrently")
	putCmd.Flags().StringVar(&putChecksum, "checksum", "", "checksum algorithm sent with the upload (CRC32, CRC32C, CRC64NVME, SHA1, SHA256)")
}

func download(ctx context.Context, provider *s3vfs.Provider, uri string, w io.Writer) error {
	path, err := provider.GetPath(uri)
	if err != nil {
		return err
	}

	opts := []s3vfs.OpenOption{}
	if catLength >= 0 {
		opts = append(opts, s3vfs.Range(catOffset, catOffset+catLength))
	}

	channel, err := provider.OpenRead(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer channel.Close()

	if catLength < 0 && catOffset > 0 {
		if _, err := channel.Seek(catOffset, io.SeekStart); err != nil {
			return err
		}
	}

	_, err = io.Copy(w, channel)
	return err
}
