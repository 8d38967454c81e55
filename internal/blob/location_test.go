package blob

import "testing"

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "bucket and key", uri: "s3://my-bucket/path/to/object.txt", wantBucket: "my-bucket", wantKey: "path/to/object.txt"},
		{name: "bucket only, no trailing slash", uri: "s3://my-bucket", wantBucket: "my-bucket", wantKey: ""},
		{name: "bucket with trailing slash", uri: "s3://my-bucket/", wantBucket: "my-bucket", wantKey: ""},
		{name: "missing scheme", uri: "my-bucket/key", wantErr: true},
		{name: "wrong scheme", uri: "https://my-bucket/key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocation(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLocation(%q) = nil error, want one", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) returned %v", tt.uri, err)
			}
			if loc.Bucket != tt.wantBucket || loc.Key != tt.wantKey {
				t.Fatalf("ParseLocation(%q) = %+v, want bucket=%q key=%q", tt.uri, loc, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestLocationStringRoundTrips(t *testing.T) {
	loc := Location{Bucket: "my-bucket", Key: "a/b.txt"}
	if got := loc.String(); got != "s3://my-bucket/a/b.txt" {
		t.Fatalf("String() = %q, want %q", got, "s3://my-bucket/a/b.txt")
	}
}

func TestLocationWithKeyPreservesBucket(t *testing.T) {
	loc := Location{Bucket: "my-bucket", Key: "original.txt"}
	replaced := loc.WithKey("nested/new.txt")
	if replaced.Bucket != "my-bucket" || replaced.Key != "nested/new.txt" {
		t.Fatalf("WithKey result = %+v, want bucket=my-bucket key=nested/new.txt", replaced)
	}
	if loc.Key != "original.txt" {
		t.Fatal("WithKey mutated the receiver")
	}
}
