package multimedia

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	log "github.com/sirupsen/logrus"
)

// Uploader persists generated artifacts and returns their storage key.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// S3Uploader stores artifacts in an S3 bucket.
type S3Uploader struct {
	uploader *s3manager.Uploader
	bucket   string
}

func NewS3Uploader(sess *session.Session, bucket string) *S3Uploader {
	return &S3Uploader{uploader: s3manager.NewUploader(sess), bucket: bucket}
}

func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := u.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		ContentType: aws.String(contentType),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		Bucket:      aws.String(u.bucket),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload of %s failed: %s", key, err)
	}
	log.WithFields(log.Fields{"bucket": u.bucket, "key": key}).Info("artifact uploaded")
	return key, nil
}
