package blob

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DownloadDir mirrors UploadDir's worker-pool shape for the download
// direction, per spec.md section 4.10's directory-download algorithm.
func (t *Transfer) DownloadDir(ctx context.Context, src Location, localDir string, concurrency int) ([]FileResult, error) {
	entries, err := t.listAll(ctx, src)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = t.concurrency
	}

	jobs := make(chan remoteEntry)
	results := make([]FileResult, len(entries))
	done := make(chan struct{})

	for w := 0; w < concurrency; w++ {
		go func() {
			for j := range jobs {
				rel, _ := filepath.Rel(src.Key, j.key)
				destPath := filepath.Join(localDir, rel)
				err := t.downloadToFile(ctx, src.WithKey(j.key), destPath)
				results[j.index] = FileResult{RelPath: rel, Err: err}
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for i, e := range entries {
			e.index = i
			jobs <- e
		}
		close(jobs)
	}()
	for w := 0; w < concurrency; w++ {
		<-done
	}
	return results, nil
}

func (t *Transfer) downloadToFile(ctx context.Context, loc Location, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Download(ctx, loc, f, DownloadOptions{})
}

type remoteEntry struct {
	key   string
	size  int64
	etag  string
	index int
}

func (t *Transfer) listAll(ctx context.Context, loc Location) ([]remoteEntry, error) {
	var entries []remoteEntry
	paginator := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.Bucket),
		Prefix: aws.String(loc.Key),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "ListObjectsV2", loc.String())
		}
		for _, obj := range page.Contents {
			etag := ""
			if obj.ETag != nil {
				etag = *obj.ETag
			}
			entries = append(entries, remoteEntry{key: aws.ToString(obj.Key), size: aws.ToInt64(obj.Size), etag: etag})
		}
	}
	return entries, nil
}

// SyncAction describes one scheduled operation from SyncDir's plan.
type SyncAction struct {
	RelPath string
	Kind    string // "copy" or "delete"
}

// SyncPlan enumerates both sides of a local-directory-to-bucket-prefix
// sync and schedules copies/deletes per spec.md section 4.10's sync
// algorithm: new or changed keys are copied, and (with delete=true)
// destination-only keys are removed.
func (t *Transfer) SyncPlan(ctx context.Context, localDir string, dest Location, delete, sizeOnly bool) ([]SyncAction, error) {
	localFiles, err := walkMatching(localDir, nil, nil)
	if err != nil {
		return nil, err
	}
	remote, err := t.listAll(ctx, dest)
	if err != nil {
		return nil, err
	}
	remoteByRel := make(map[string]remoteEntry, len(remote))
	for _, e := range remote {
		rel, err := filepath.Rel(dest.Key, e.key)
		if err != nil {
			continue
		}
		remoteByRel[filepath.ToSlash(rel)] = e
	}

	var actions []SyncAction
	seen := make(map[string]bool, len(localFiles))
	for _, rel := range localFiles {
		seen[rel] = true
		info, err := os.Stat(filepath.Join(localDir, rel))
		if err != nil {
			continue
		}
		existing, ok := remoteByRel[rel]
		if !ok {
			actions = append(actions, SyncAction{RelPath: rel, Kind: "copy"})
			continue
		}
		if sizeOnly {
			if existing.size != info.Size() {
				actions = append(actions, SyncAction{RelPath: rel, Kind: "copy"})
			}
			continue
		}
		localETag, err := md5ETag(filepath.Join(localDir, rel))
		if err == nil && localETag != existing.etag {
			actions = append(actions, SyncAction{RelPath: rel, Kind: "copy"})
		}
	}
	if delete {
		for rel := range remoteByRel {
			if !seen[rel] {
				actions = append(actions, SyncAction{RelPath: rel, Kind: "delete"})
			}
		}
	}
	return actions, nil
}

// ApplySync executes a plan produced by SyncPlan using the same
// worker-pool shape as UploadDir/DownloadDir.
func (t *Transfer) ApplySync(ctx context.Context, localDir string, dest Location, actions []SyncAction, concurrency int) ([]FileResult, error) {
	if concurrency <= 0 {
		concurrency = t.concurrency
	}
	jobs := make(chan SyncAction)
	results := make([]FileResult, len(actions))
	done := make(chan struct{})

	for w := 0; w < concurrency; w++ {
		go func() {
			for j := range jobs {
				idx := indexOfAction(actions, j)
				var err error
				switch j.Kind {
				case "copy":
					_, err = t.Upload(ctx, filepath.Join(localDir, j.RelPath), dest.WithKey(filepath.ToSlash(filepath.Join(dest.Key, j.RelPath))), UploadOptions{})
				case "delete":
					loc := dest.WithKey(filepath.ToSlash(filepath.Join(dest.Key, j.RelPath)))
					_, derr := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)})
					if derr != nil {
						err = classify(derr, "DeleteObject", loc.String())
					}
				}
				results[idx] = FileResult{RelPath: j.RelPath, Err: err}
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for _, a := range actions {
			jobs <- a
		}
		close(jobs)
	}()
	for w := 0; w < concurrency; w++ {
		<-done
	}
	return results, nil
}

func indexOfAction(actions []SyncAction, target SyncAction) int {
	for i, a := range actions {
		if a == target {
			return i
		}
	}
	return -1
}

func md5ETag(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("\"%x\"", h.Sum(nil)), nil
}

func parseHTTPTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
