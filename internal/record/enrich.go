package record

// Enrich builds a Record from a raw line/aggregate, attaching the
// bucket/object/region provenance fields plus any S3 user metadata.
// Matching identical keys in userMetadata overwrite bucket/object/region
// only if the metadata itself used those reserved names; callers are
// expected not to rely on that edge case.
func Enrich(data []byte, bucket, object, region string, userMetadata map[string]string) *Record {
	rec := New(data)
	rec.Set("bucket", bucket)
	rec.Set("object", object)
	rec.Set("region", region)
	for k, v := range userMetadata {
		rec.Set(k, v)
	}
	return rec
}
