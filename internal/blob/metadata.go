package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// Metadata implements C11 (head/tag/untag/list-versions/presign/select)
// over the same client Transfer wraps, kept as its own narrow struct
// rather than folded into Transfer since its operations never move
// bytes, matching the teacher's habit of one struct per cohesive
// capability instead of one do-everything client wrapper.
type Metadata struct {
	client  *s3.Client
	presign *s3.PresignClient
	logger  *zap.Logger
}

func NewMetadata(client *s3.Client, logger *zap.Logger) *Metadata {
	return &Metadata{client: client, presign: s3.NewPresignClient(client), logger: logger}
}

// ObjectInfo is C11's head() result.
type ObjectInfo struct {
	Size         int64
	ETag         string
	StorageClass string
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

// Head performs a metadata-only HEAD, optionally against a specific
// version.
func (m *Metadata) Head(ctx context.Context, loc Location, versionID string) (*ObjectInfo, error) {
	input := &s3.HeadObjectInput{Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key)}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	out, err := m.client.HeadObject(ctx, input)
	if err != nil {
		return nil, classify(err, "HeadObject", loc.String())
	}
	info := &ObjectInfo{
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		StorageClass: string(out.StorageClass),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     out.Metadata,
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Tag performs a full-replacement tag-set operation, per spec.md
// section 4.11.
func (m *Metadata) Tag(ctx context.Context, loc Location, tags map[string]string) error {
	tagSet := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err := m.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(loc.Bucket),
		Key:     aws.String(loc.Key),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return classify(err, "PutObjectTagging", loc.String())
	}
	return nil
}

// Untag removes loc's entire tag set.
func (m *Metadata) Untag(ctx context.Context, loc Location) error {
	_, err := m.client.DeleteObjectTagging(ctx, &s3.DeleteObjectTaggingInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return classify(err, "DeleteObjectTagging", loc.String())
	}
	return nil
}

// Version describes one entry from ListVersions, newest first.
type Version struct {
	VersionID    string
	IsLatest     bool
	Size         int64
	ETag         string
	LastModified time.Time
}

// ListVersions enumerates loc's versions newest-first, per spec.md
// section 4.11, capped at limit (0 means the service default page size).
func (m *Metadata) ListVersions(ctx context.Context, loc Location, limit int32) ([]Version, error) {
	input := &s3.ListObjectVersionsInput{Bucket: aws.String(loc.Bucket), Prefix: aws.String(loc.Key)}
	if limit > 0 {
		input.MaxKeys = aws.Int32(limit)
	}
	out, err := m.client.ListObjectVersions(ctx, input)
	if err != nil {
		return nil, classify(err, "ListObjectVersions", loc.String())
	}
	versions := make([]Version, 0, len(out.Versions))
	for _, v := range out.Versions {
		if aws.ToString(v.Key) != loc.Key {
			continue
		}
		ver := Version{
			VersionID: aws.ToString(v.VersionId),
			IsLatest:  aws.ToBool(v.IsLatest),
			Size:      aws.ToInt64(v.Size),
			ETag:      aws.ToString(v.ETag),
		}
		if v.LastModified != nil {
			ver.LastModified = *v.LastModified
		}
		versions = append(versions, ver)
	}
	return versions, nil
}

// PresignMethod enumerates the HTTP methods C11's presign() supports.
type PresignMethod string

const (
	PresignGet PresignMethod = "GET"
	PresignPut PresignMethod = "PUT"
)

// Presign produces a time-limited URL signed with the client's current
// credentials. Presigning never makes a network call, per spec.md
// section 4.11's explicit requirement.
func (m *Metadata) Presign(ctx context.Context, loc Location, method PresignMethod, expiresIn time.Duration) (string, error) {
	switch method {
	case PresignGet:
		req, err := m.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key),
		}, s3.WithPresignExpires(expiresIn))
		if err != nil {
			return "", classify(err, "PresignGetObject", loc.String())
		}
		return req.URL, nil
	case PresignPut:
		req, err := m.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(loc.Bucket), Key: aws.String(loc.Key),
		}, s3.WithPresignExpires(expiresIn))
		if err != nil {
			return "", classify(err, "PresignPutObject", loc.String())
		}
		return req.URL, nil
	}
	return "", errs.InvalidArgument(fmt.Sprintf("presign method must be GET or PUT, got %q", method))
}

// SelectFormat enumerates the input/output formats C11's select()
// supports.
type SelectFormat string

const (
	FormatCSV     SelectFormat = "csv"
	FormatJSON    SelectFormat = "json"
	FormatJSONL   SelectFormat = "jsonl"
	FormatParquet SelectFormat = "parquet"
)

// SelectRecordHandler receives each record streamed back by
// SelectObjectContent, in order.
type SelectRecordHandler func(record []byte) error

// Select runs a server-side content-selection query and streams the
// result record by record to handle, per spec.md section 4.11.
func (m *Metadata) Select(ctx context.Context, loc Location, query string, inputFormat, outputFormat SelectFormat, handle SelectRecordHandler) error {
	inputSerialization := types.InputSerialization{}
	switch inputFormat {
	case FormatCSV:
		inputSerialization.CSV = &types.CSVInput{FileHeaderInfo: types.FileHeaderInfoUse}
	case FormatJSON, FormatJSONL:
		jsonType := types.JSONTypeDocument
		if inputFormat == FormatJSONL {
			jsonType = types.JSONTypeLines
		}
		inputSerialization.JSON = &types.JSONInput{Type: jsonType}
	case FormatParquet:
		inputSerialization.Parquet = &types.ParquetInput{}
	default:
		return errs.InvalidArgument(fmt.Sprintf("unsupported select input format %q", inputFormat))
	}

	outputSerialization := types.OutputSerialization{
		JSON: &types.JSONOutput{},
	}
	if outputFormat == FormatCSV {
		outputSerialization = types.OutputSerialization{CSV: &types.CSVOutput{}}
	}

	out, err := m.client.SelectObjectContent(ctx, &s3.SelectObjectContentInput{
		Bucket:              aws.String(loc.Bucket),
		Key:                 aws.String(loc.Key),
		Expression:          aws.String(query),
		ExpressionType:      types.ExpressionTypeSql,
		InputSerialization:  &inputSerialization,
		OutputSerialization: &outputSerialization,
	})
	if err != nil {
		return classify(err, "SelectObjectContent", loc.String())
	}
	stream := out.GetStream()
	defer stream.Close()

	for event := range stream.Events() {
		if rec, ok := event.(*types.SelectObjectContentEventStreamMemberRecords); ok {
			if err := handle(rec.Value.Payload); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return classify(err, "SelectObjectContent stream", loc.String())
	}
	return nil
}
