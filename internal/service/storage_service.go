package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/util"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 对象存储接口，key 为存储内的相对路径
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ObjectKey 课堂资料的对象键：contents/<classroom>/<uuid><ext>
func ObjectKey(classroomID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("contents", fmt.Sprint(classroomID), uuid.NewString()+ext)
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", util.NewValidation("invalid object key")
	}
	return filepath.Join(p.Root, clean), nil
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(dst)
		return "", err
	}
	return p.URL(key), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	dst, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (p *LocalStorageProvider) URL(key string) string {
	return "/uploads/" + key
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) URL(key string) string {
	return "/" + p.Bucket + "/" + key
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	err := p.Bucket.PutObject(key, reader, oss.WithContext(ctx), oss.ContentType(contentType))
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSStorageProvider) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket.BucketName, p.Endpoint, key)
}

// NewStorageProvider 按 storage.type 选择实现
func NewStorageProvider(cfg *config.StorageConfig) (StorageProvider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return NewMinioStorageProvider(cfg)
	case util.StorageOSS:
		return NewOSSStorageProvider(cfg)
	case util.StorageLocal, "":
		return &LocalStorageProvider{Root: cfg.LocalPath}, nil
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}
