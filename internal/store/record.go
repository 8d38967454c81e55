package store

// Record is the typed decoding of one item-store row, matching spec.md
// section 3's data model. Value (any) and Metadata (map[string]any) stay
// untyped; the driver decodes rows with attributevalue.UnmarshalMap and
// does no further per-attribute validation.
type Record struct {
	PartitionKey string         `dynamodbav:"partitionKey"`
	SortKey      string         `dynamodbav:"sortKey"`
	Type         string         `dynamodbav:"type"`
	Value        any            `dynamodbav:"value,omitempty"`
	TTL          *int64         `dynamodbav:"ttl,omitempty"`
	Metadata     map[string]any `dynamodbav:"metadata,omitempty"`
	CreatedAt    int64          `dynamodbav:"createdAt"`
	UpdatedAt    int64          `dynamodbav:"updatedAt"`
	Version      *int64         `dynamodbav:"version,omitempty"`
}

// Expired reports whether r's TTL has elapsed as of nowUnix, in which
// case spec.md invariant I7 requires callers to treat it as absent.
func (r *Record) Expired(nowUnix int64) bool {
	return r.TTL != nil && *r.TTL <= nowUnix
}
