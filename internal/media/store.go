package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"elderaid/common/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store 照片存储
type Store interface {
	// Put 写入对象并返回对外访问 URL
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore S3 兼容对象存储
type MinioStore struct {
	client     *minio.Client
	bucket     string
	endpoint   string
	useSSL     bool
	publicBase string
}

// NewMinioStore 创建对象存储客户端（不做网络请求）
func NewMinioStore(cfg *config.ObjectStoreConfig) (*MinioStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{
		client:     cli,
		bucket:     cfg.Bucket,
		endpoint:   cfg.Endpoint,
		useSSL:     cfg.UseSSL,
		publicBase: cfg.PublicBase,
	}, nil
}

// EnsureBucket bucket 不存在时创建
func (m *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return PublicURL(m.publicBase, m.endpoint, m.bucket, key, m.useSSL), nil
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL 配置了 publicBase 时使用外部域名，否则直连 endpoint/bucket
func PublicURL(publicBase, endpoint, bucket, key string, useSSL bool) string {
	if publicBase != "" {
		return strings.TrimRight(publicBase, "/") + "/" + key
	}
	scheme := "http://"
	if useSSL {
		scheme = "https://"
	}
	return scheme + endpoint + "/" + bucket + "/" + key
}

// MemoryKey 照片对象 key：memories/{elderID}/{memoryID}{ext}
func MemoryKey(elderID, memoryID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "memories/" + elderID + "/" + memoryID + ext
}

// ObjectKeyFromURL 从 Put 返回的 URL 取回对象 key；非本服务上传的图片返回 false
func ObjectKeyFromURL(url string) (string, bool) {
	i := strings.Index(url, "memories/")
	if i < 0 {
		return "", false
	}
	return url[i:], true
}
