// utils/storage.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var storageClient *s3.Client
var storageBucket string
var publicBaseURL string

// InitStorage configures the S3 client against the Supabase storage
// S3-compatible endpoint (https://<project>.supabase.co/storage/v1/s3).
func InitStorage() error {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	accessKeyID := os.Getenv("STORAGE_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("STORAGE_ACCESS_KEY_SECRET")
	storageBucket = os.Getenv("STORAGE_BUCKET_NAME")
	publicBaseURL = os.Getenv("STORAGE_PUBLIC_URL")
	if publicBaseURL == "" {
		// Supabase serves public objects under /object/public/<bucket>
		publicBaseURL = strings.TrimSuffix(endpoint, "/s3") + "/object/public/" + storageBucket
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to load storage config: %w", err)
	}

	storageClient = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return nil
}

// UploadFileToStorage uploads a multipart file and returns the public URL.
// key is the object key (e.g., "ads/abc123.png")
func UploadFileToStorage(fileHeader *multipart.FileHeader, key string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = storageClient.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(storageBucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(fileHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to storage: %w", err)
	}

	return fmt.Sprintf("%s/%s", publicBaseURL, key), nil
}

// DeleteFromStorage removes an object by key. Missing objects are not an error.
func DeleteFromStorage(key string) error {
	_, err := storageClient.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(storageBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from storage: %w", err)
	}
	return nil
}

// StorageKeyFromURL extracts the object key from a previously returned public
// URL so uploaded photos can be deleted when their ad goes away.
func StorageKeyFromURL(url string) string {
	return strings.TrimPrefix(strings.TrimPrefix(url, publicBaseURL), "/")
}
