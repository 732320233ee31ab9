// Package storage persists uploaded files in S3-compatible object storage.
//
// Uploads arrive as streams of unknown length. S3 needs a seekable body with a
// known length to sign the request, so Put reads the stream into memory up to
// Config.MaxObjectSize and rejects anything larger with ErrTooLarge.
//
//	s, err := storage.NewS3(storage.Config{Bucket: "uploads", AccessKey: ak, SecretKey: sk})
//	obj, err := s.Put(ctx, upload, storage.WithPrefix("avatars"), storage.WithFilename(upload.Filename()))
//	link, err := s.URL(ctx, obj.Key, 15*time.Minute)
package storage
