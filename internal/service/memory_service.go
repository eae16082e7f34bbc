package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/media"
	"elderaid/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryService 回忆相册服务
type MemoryService interface {
	// List 按拍摄时间倒序
	List(ctx context.Context, s domain.Session) ([]domain.Memory, error)
	Add(ctx context.Context, s domain.Session, req AddMemoryRequest) (*domain.Memory, error)
	Delete(ctx context.Context, s domain.Session, id string) error
}

// AddMemoryRequest 新增照片；Image 不为空时先上传，ImageURI 使用上传后的地址
type AddMemoryRequest struct {
	ImageURI  string
	Caption   string
	Tags      []string
	Timestamp int64 // epoch ms，0 表示当前时间
	Image     *Upload
}

// Upload 上传的图片
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type memoryService struct {
	repo      repository.MemoriesRepository
	store     media.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewMemoryService 创建相册服务；store 为 nil 时不支持上传
func NewMemoryService(repo repository.MemoriesRepository, store media.Store, publisher events.Publisher, logger *zap.Logger) MemoryService {
	return &memoryService{repo: repo, store: store, publisher: publisher, logger: logger, now: time.Now}
}

func (svc *memoryService) List(ctx context.Context, s domain.Session) ([]domain.Memory, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	memories, err := svc.repo.ListMemories(ctx, s)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Timestamp > memories[j].Timestamp
	})
	return memories, nil
}

func (svc *memoryService) Add(ctx context.Context, s domain.Session, req AddMemoryRequest) (*domain.Memory, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := svc.now()
	m := domain.Memory{
		ID:        uuid.NewString(),
		ImageURI:  strings.TrimSpace(req.ImageURI),
		Caption:   strings.TrimSpace(req.Caption),
		Timestamp: req.Timestamp,
		Tags:      req.Tags,
	}
	if m.Timestamp == 0 {
		m.Timestamp = now.UnixMilli()
	}

	if req.Image != nil {
		if svc.store == nil {
			return nil, domain.Invalid("image", "photo upload is not enabled")
		}
		key := media.MemoryKey(s.ElderID, m.ID, req.Image.Filename)
		url, err := svc.store.Put(ctx, key, req.Image.Body, req.Image.Size, req.Image.ContentType)
		if err != nil {
			return nil, err
		}
		m.ImageURI = url
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := svc.repo.AddMemory(ctx, s, m); err != nil {
		return nil, err
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventMemoryChanged, s.ElderID, now,
		map[string]string{"memory_id": m.ID, "action": "added"})
	return &m, nil
}

func (svc *memoryService) Delete(ctx context.Context, s domain.Session, id string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	var imageURI string
	if svc.store != nil {
		memories, err := svc.repo.ListMemories(ctx, s)
		if err != nil {
			return err
		}
		for _, m := range memories {
			if m.ID == id {
				imageURI = m.ImageURI
				break
			}
		}
	}

	if err := svc.repo.DeleteMemory(ctx, s, id); err != nil {
		return err
	}

	// 只删除本服务上传的对象
	if key, ok := media.ObjectKeyFromURL(imageURI); ok {
		if err := svc.store.Delete(ctx, key); err != nil {
			svc.logger.Warn("Failed to delete memory photo",
				zap.String("elder_id", s.ElderID),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	publishEvent(ctx, svc.publisher, svc.logger, domain.EventMemoryChanged, s.ElderID, svc.now(),
		map[string]string{"memory_id": id, "action": "deleted"})
	return nil
}
