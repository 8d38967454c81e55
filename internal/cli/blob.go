package cli

import (
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/blob"
	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/output"
)

func newBlobCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Upload, download, and manage objects in S3",
	}

	cmd.AddCommand(
		newBlobUploadCommand(app),
		newBlobDownloadCommand(app),
		newBlobUploadDirCommand(app),
		newBlobDownloadDirCommand(app),
		newBlobSyncCommand(app),
		newBlobHeadCommand(app),
		newBlobTagCommand(app),
		newBlobUntagCommand(app),
		newBlobListVersionsCommand(app),
		newBlobPresignCommand(app),
		newBlobSelectCommand(app),
	)
	return cmd
}

func parseKV(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

func newBlobUploadCommand(app *App) *cobra.Command {
	var contentType, ifMatchETag string
	var ifNotExists bool
	var metaPairs, tagPairs []string
	c := &cobra.Command{
		Use:   "upload <local-path> <s3-uri>",
		Short: "Upload a single file, choosing single-PUT or multipart by size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[1])
			if err != nil {
				return err
			}
			opts := blob.UploadOptions{
				ContentType: contentType,
				Metadata:    parseKV(metaPairs),
				Tags:        parseKV(tagPairs),
				IfNotExists: ifNotExists,
				IfMatchETag: ifMatchETag,
			}
			res, err := app.Blob.Upload(cmd.Context(), args[0], loc, opts)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"uri": loc.String(), "etag": res.ETag, "bytes": res.Bytes, "multipart": res.Multipart,
			}, "etag")
		},
	}
	c.Flags().StringVar(&contentType, "content-type", "", "override the auto-detected content type")
	c.Flags().BoolVar(&ifNotExists, "if-not-exists", false, "fail if the destination key already exists")
	c.Flags().StringVar(&ifMatchETag, "if-match", "", "fail unless the destination's current ETag matches")
	c.Flags().StringArrayVar(&metaPairs, "meta", nil, "key=value user metadata, repeatable")
	c.Flags().StringArrayVar(&tagPairs, "tag", nil, "key=value object tag, repeatable")
	return c
}

func newBlobDownloadCommand(app *App) *cobra.Command {
	var rangeStart, rangeEnd int64
	var hasRange bool
	var ifMatchETag, ifModifiedSince, versionID, output_ string
	c := &cobra.Command{
		Use:   "download <s3-uri> [local-path]",
		Short: "Download a single object, streaming to local-path or stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			dest := output_
			if len(args) == 2 {
				dest = args[1]
			}
			w := cmd.OutOrStdout()
			var f *os.File
			if dest != "" {
				f, err = os.Create(dest)
				if err != nil {
					return errs.InvalidArgument("cannot create " + dest).WithCause(err)
				}
				defer f.Close()
				w = f
			}
			opts := blob.DownloadOptions{IfMatchETag: ifMatchETag, IfModifiedSince: ifModifiedSince, VersionID: versionID}
			if hasRange {
				opts.RangeStart = &rangeStart
				if rangeEnd > 0 {
					opts.RangeEnd = &rangeEnd
				}
			}
			return app.Blob.Download(cmd.Context(), loc, w, opts)
		},
	}
	c.Flags().Int64Var(&rangeStart, "range-start", 0, "byte offset to start the download at")
	c.Flags().Int64Var(&rangeEnd, "range-end", 0, "byte offset to end the download at, inclusive")
	c.Flags().BoolVar(&hasRange, "range", false, "treat --range-start/--range-end as set")
	c.Flags().StringVar(&ifMatchETag, "if-match", "", "fail unless the object's current ETag matches")
	c.Flags().StringVar(&ifModifiedSince, "if-modified-since", "", "RFC3339 timestamp; fail unless modified after this")
	c.Flags().StringVar(&versionID, "version-id", "", "download a specific object version")
	c.Flags().StringVar(&output_, "output", "", "local file path to write to (default: stdout)")
	return c
}

func newBlobUploadDirCommand(app *App) *cobra.Command {
	var include, exclude []string
	var concurrency int
	c := &cobra.Command{
		Use:   "upload-dir <local-dir> <s3-uri>",
		Short: "Upload every matching file under local-dir with a worker pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := blob.ParseLocation(args[1])
			if err != nil {
				return err
			}
			results, err := app.Blob.UploadDir(cmd.Context(), args[0], dest, include, exclude, concurrency)
			if err != nil {
				return err
			}
			return writeFileResults(app, results)
		},
	}
	c.Flags().StringArrayVar(&include, "include", nil, "glob pattern a relative path must match, repeatable")
	c.Flags().StringArrayVar(&exclude, "exclude", nil, "glob pattern a relative path must not match, repeatable")
	c.Flags().IntVar(&concurrency, "concurrency", 0, "worker pool size (default: tool-wide configured concurrency)")
	return c
}

func newBlobDownloadDirCommand(app *App) *cobra.Command {
	var concurrency int
	c := &cobra.Command{
		Use:   "download-dir <s3-uri> <local-dir>",
		Short: "Download every object under an s3 prefix with a worker pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			results, err := app.Blob.DownloadDir(cmd.Context(), src, args[1], concurrency)
			if err != nil {
				return err
			}
			return writeFileResults(app, results)
		},
	}
	c.Flags().IntVar(&concurrency, "concurrency", 0, "worker pool size (default: tool-wide configured concurrency)")
	return c
}

func newBlobSyncCommand(app *App) *cobra.Command {
	var deleteExtra, sizeOnly, dryRun bool
	var concurrency int
	c := &cobra.Command{
		Use:   "sync <local-dir> <s3-uri>",
		Short: "Copy new/changed files to dest and optionally delete dest-only keys",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := blob.ParseLocation(args[1])
			if err != nil {
				return err
			}
			plan, err := app.Blob.SyncPlan(cmd.Context(), args[0], dest, deleteExtra, sizeOnly)
			if err != nil {
				return err
			}
			if dryRun {
				out := make([]output.Record, 0, len(plan))
				for _, a := range plan {
					out = append(out, output.Record{"path": a.RelPath, "action": a.Kind})
				}
				return app.Writer.WriteMany(out, "action")
			}
			results, err := app.Blob.ApplySync(cmd.Context(), args[0], dest, plan, concurrency)
			if err != nil {
				return err
			}
			return writeFileResults(app, results)
		},
	}
	c.Flags().BoolVar(&deleteExtra, "delete", false, "remove destination keys with no matching local file")
	c.Flags().BoolVar(&sizeOnly, "size-only", false, "compare by size instead of content checksum")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned actions without applying them")
	c.Flags().IntVar(&concurrency, "concurrency", 0, "worker pool size (default: tool-wide configured concurrency)")
	return c
}

func writeFileResults(app *App, results []blob.FileResult) error {
	out := make([]output.Record, 0, len(results))
	for _, r := range results {
		rec := output.Record{"path": r.RelPath, "ok": r.Err == nil}
		if r.Err != nil {
			rec["error"] = r.Err.Error()
		}
		out = append(out, rec)
	}
	return app.Writer.WriteMany(out, "path")
}

func newBlobHeadCommand(app *App) *cobra.Command {
	var versionID string
	c := &cobra.Command{
		Use:   "head <s3-uri>",
		Short: "Read an object's metadata without its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			info, err := app.Meta.Head(cmd.Context(), loc, versionID)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"uri": loc.String(), "size": info.Size, "etag": info.ETag, "storageClass": info.StorageClass,
				"contentType": info.ContentType, "metadata": info.Metadata, "lastModified": info.LastModified,
			}, "etag")
		},
	}
	c.Flags().StringVar(&versionID, "version-id", "", "inspect a specific object version")
	return c
}

func newBlobTagCommand(app *App) *cobra.Command {
	var tagPairs []string
	c := &cobra.Command{
		Use:   "tag <s3-uri>",
		Short: "Replace an object's entire tag set with --tag key=value pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			if err := app.Meta.Tag(cmd.Context(), loc, parseKV(tagPairs)); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"uri": loc.String(), "tagged": true}, "tagged")
		},
	}
	c.Flags().StringArrayVar(&tagPairs, "tag", nil, "key=value object tag, repeatable")
	return c
}

func newBlobUntagCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "untag <s3-uri>",
		Short: "Remove an object's entire tag set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			if err := app.Meta.Untag(cmd.Context(), loc); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"uri": loc.String(), "untagged": true}, "untagged")
		},
	}
}

func newBlobListVersionsCommand(app *App) *cobra.Command {
	var limit int32
	c := &cobra.Command{
		Use:   "list-versions <s3-uri>",
		Short: "List an object's versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			versions, err := app.Meta.ListVersions(cmd.Context(), loc, limit)
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(versions))
			for _, v := range versions {
				out = append(out, output.Record{
					"versionId": v.VersionID, "isLatest": v.IsLatest, "size": v.Size, "etag": v.ETag, "lastModified": v.LastModified,
				})
			}
			return app.Writer.WriteMany(out, "versionId")
		},
	}
	c.Flags().Int32Var(&limit, "limit", 0, "maximum number of versions to return (0 means service default)")
	return c
}

func newBlobPresignCommand(app *App) *cobra.Command {
	var method string
	var expiresIn time.Duration
	c := &cobra.Command{
		Use:   "presign <s3-uri>",
		Short: "Produce a time-limited signed URL for GET or PUT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			url, err := app.Meta.Presign(cmd.Context(), loc, blob.PresignMethod(strings.ToUpper(method)), expiresIn)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"uri": loc.String(), "url": url}, "url")
		},
	}
	c.Flags().StringVar(&method, "method", "GET", "GET or PUT")
	c.Flags().DurationVar(&expiresIn, "expires-in", 15*time.Minute, "how long the signed URL remains valid")
	return c
}

func newBlobSelectCommand(app *App) *cobra.Command {
	var inputFormat, outputFormat string
	c := &cobra.Command{
		Use:   "select <s3-uri> <sql-query>",
		Short: "Run a server-side SQL query over an object and stream matching records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := blob.ParseLocation(args[0])
			if err != nil {
				return err
			}
			return app.Meta.Select(cmd.Context(), loc, args[1],
				blob.SelectFormat(inputFormat), blob.SelectFormat(outputFormat),
				func(record []byte) error {
					if outputFormat == string(blob.FormatCSV) {
						_, werr := cmd.OutOrStdout().Write(record)
						return werr
					}
					return app.Writer.WriteOne(output.Record{"record": base64.StdEncoding.EncodeToString(record), "raw": string(record)}, "raw")
				})
		},
	}
	c.Flags().StringVar(&inputFormat, "input-format", "csv", "csv, json, jsonl, or parquet")
	c.Flags().StringVar(&outputFormat, "output-format", "json", "csv or json")
	return c
}
