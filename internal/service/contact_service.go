package service

import (
	"context"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/events"
	"elderaid/internal/repository"
	"elderaid/internal/status"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContactService 紧急联系人服务
type ContactService interface {
	List(ctx context.Context, s domain.Session) ([]domain.EmergencyContact, error)
	// Save upsert；保存的联系人为主联系人时，其余联系人取消主联系人标记
	Save(ctx context.Context, s domain.Session, c domain.EmergencyContact) (*domain.EmergencyContact, error)
	Delete(ctx context.Context, s domain.Session, id string) error
	SetPrimary(ctx context.Context, s domain.Session, id string) ([]domain.EmergencyContact, error)
	// Primary 没有主联系人时返回 nil
	Primary(ctx context.Context, s domain.Session) (*domain.EmergencyContact, error)
}

type contactService struct {
	repo      repository.ContactsRepository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewContactService 创建联系人服务
func NewContactService(repo repository.ContactsRepository, publisher events.Publisher, logger *zap.Logger) ContactService {
	return &contactService{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

func (svc *contactService) List(ctx context.Context, s domain.Session) ([]domain.EmergencyContact, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.ListContacts(ctx, s)
}

func (svc *contactService) Save(ctx context.Context, s domain.Session, c domain.EmergencyContact) (*domain.EmergencyContact, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	contacts, err := svc.repo.ListContacts(ctx, s)
	if err != nil {
		return nil, err
	}
	// 第一个联系人默认为主联系人
	if len(contacts) == 0 {
		c.IsPrimary = true
	}
	replaced := false
	for i := range contacts {
		if contacts[i].ID == c.ID {
			contacts[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		contacts = append(contacts, c)
	}
	if c.IsPrimary {
		if contacts, err = status.SetPrimaryContact(contacts, c.ID); err != nil {
			return nil, err
		}
	}

	if err := svc.repo.ReplaceContacts(ctx, s, contacts); err != nil {
		return nil, err
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventContactChanged, s.ElderID, svc.now(),
		map[string]string{"contact_id": c.ID, "action": "saved"})
	return &c, nil
}

func (svc *contactService) Delete(ctx context.Context, s domain.Session, id string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := svc.repo.DeleteContact(ctx, s, id); err != nil {
		return err
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventContactChanged, s.ElderID, svc.now(),
		map[string]string{"contact_id": id, "action": "deleted"})
	return nil
}

func (svc *contactService) SetPrimary(ctx context.Context, s domain.Session, id string) ([]domain.EmergencyContact, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	contacts, err := svc.repo.ListContacts(ctx, s)
	if err != nil {
		return nil, err
	}
	updated, err := status.SetPrimaryContact(contacts, id)
	if err != nil {
		return nil, err
	}
	if err := svc.repo.ReplaceContacts(ctx, s, updated); err != nil {
		return nil, err
	}
	publishEvent(ctx, svc.publisher, svc.logger, domain.EventContactChanged, s.ElderID, svc.now(),
		map[string]string{"contact_id": id, "action": "primary"})
	return updated, nil
}

func (svc *contactService) Primary(ctx context.Context, s domain.Session) (*domain.EmergencyContact, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	contacts, err := svc.repo.ListContacts(ctx, s)
	if err != nil {
		return nil, err
	}
	c, ok := status.PrimaryContact(contacts)
	if !ok {
		return nil, nil
	}
	return &c, nil
}
