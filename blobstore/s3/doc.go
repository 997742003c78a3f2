// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "rules/", nil)
//	if err != nil {
//	    return err
//	}
//	tables := dtable.NewStore(store)
//
// For concurrent publishers, wrap the Store in a DDBCommitStore so the
// CURRENT pointer advances with DynamoDB conditional writes:
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), "dtable-commits", "s3://my-bucket/rules/")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
