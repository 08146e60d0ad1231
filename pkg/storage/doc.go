// Package storage reads attachment files from S3-compatible object storage.
//
// Objects are addressed by key inside one configured bucket, and by
// s3://bucket/key locations when handed to content loaders.
//
// # Basic Usage
//
//	store, err := storage.New(storage.Config{
//		Bucket:    "zotero-attachments",
//		Region:    "us-east-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rc, obj, err := store.Open(ctx, "storage/12/paper.pdf")
//	if errors.Is(err, storage.ErrNotFound) {
//		// missing object
//	}
//	defer rc.Close()
//
// # MIME Types
//
// MIMEFromExt maps file extensions to content types and ExtFromMIME maps
// back. Both work on normalized, lower-case values.
package storage
