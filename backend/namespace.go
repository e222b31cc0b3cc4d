package backend

// BucketKey combines bucket and key for stores keeping all buckets in a
// single index. Returns "bucket:key".
func BucketKey(bucket, key string) string {
	return bucket + ":" + key
}
