// Package blob implements the Blob Transfer Engine (C10) and Blob
// Metadata Surface (C11) from spec.md sections 4.10-4.11, built on
// aws-sdk-go-v2/service/s3 and aws-sdk-go-v2/feature/s3/manager.
package blob

import (
	"fmt"
	"strings"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// Location is a parsed "s3://bucket/key" URI.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation parses uri into a Location, rejecting anything that is
// not the s3:// scheme.
func ParseLocation(uri string) (Location, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return Location{}, errs.InvalidArgument(fmt.Sprintf("%q must be an s3:// URI", uri)).
			WithSolution("use a URI of the form s3://bucket/key")
	}
	rest := uri[len(scheme):]
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return Location{Bucket: rest, Key: ""}, nil
	}
	return Location{Bucket: rest[:idx], Key: rest[idx+1:]}, nil
}

func (l Location) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// WithKey returns a copy of l with Key replaced, used when resolving a
// directory prefix against a file's relative path during sync/upload-dir.
func (l Location) WithKey(key string) Location {
	return Location{Bucket: l.Bucket, Key: key}
}
