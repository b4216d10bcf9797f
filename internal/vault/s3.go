package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"intake-go/internal/intake"
)

// S3Vault stores archive blobs in an S3 bucket under
// <prefix>/content/<checksum>. Credentials come from
// INTAKE_S3_ACCESS_KEY_ID / INTAKE_S3_SECRET_ACCESS_KEY when set,
// otherwise from the AWS default chain. INTAKE_S3_ENDPOINT points the
// client at an S3-compatible server.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by the given bucket.
func NewS3Vault(name, bucket, prefix, region string) (*S3Vault, error) {
	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKey := os.Getenv("INTAKE_S3_ACCESS_KEY_ID"); accessKey != "" {
		secretKey := os.Getenv("INTAKE_S3_SECRET_ACCESS_KEY")
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("INTAKE_S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (v *S3Vault) key(checksum string) string {
	return path.Join(v.prefix, "content", checksum)
}

// PutArchive stores an archive blob identified by its checksum.
// The operation is idempotent: an already-stored checksum is skipped.
func (v *S3Vault) PutArchive(checksum string, r io.Reader) error {
	ctx := context.Background()
	key := v.key(checksum)

	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil // already stored
	}

	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("uploading archive %s: %w", checksum, err)
	}
	return nil
}

// GetArchive retrieves an archive blob by checksum and writes it to w.
func (v *S3Vault) GetArchive(checksum string, w io.Writer) error {
	out, err := v.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(checksum)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("archive not found: %s", checksum)
		}
		return fmt.Errorf("downloading archive %s: %w", checksum, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading archive %s: %w", checksum, err)
	}
	return nil
}

// DeleteArchive removes an archive blob. S3 treats deleting a missing
// key as success, which matches the interface contract.
func (v *S3Vault) DeleteArchive(checksum string) error {
	_, err := v.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(checksum)),
	})
	if err != nil {
		return fmt.Errorf("deleting archive %s: %w", checksum, err)
	}
	return nil
}

// ValidateSetup verifies the bucket is reachable with the configured
// credentials.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(v.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// Compile-time check that S3Vault implements intake.Vault interface
var _ intake.Vault = (*S3Vault)(nil)
