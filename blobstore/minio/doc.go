// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible servers (Ceph, SeaweedFS,
// Garage) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "rules", "prod/")
//	if err != nil {
//	    return err
//	}
//	if err := store.EnsureBucket(ctx); err != nil {
//	    return err
//	}
//	tables := dtable.NewStore(store)
package minio
