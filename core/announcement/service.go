package announcement

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/class"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		QueryAnnouncementsByClass(ctx context.Context, classID string, ordering []core.DBOrdering) ([]Announcement, error)
	}

	Service interface {
		Post(ctx context.Context, cls class.Class, senderID string, na NewAnnouncement) (Announcement, error)
		QueryByClass(ctx context.Context, classID string, ordering []core.DBOrdering) ([]Announcement, error)
	}

	service struct {
		repo    Repository
		clsSvc  class.Service
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, clsSvc class.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		clsSvc:  clsSvc,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Post persists the announcement and fans it out to the roster by email.
func (svc *service) Post(ctx context.Context, cls class.Class, senderID string, na NewAnnouncement) (Announcement, error) {
	ann := Announcement{
		ClassID:   cls.ID,
		SenderID:  senderID,
		Message:   na.Message,
		CreatedAt: time.Now().UTC(),
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, ann)
	if err != nil {
		return Announcement{}, err
	}
	svc.notifyRoster(ctx, cls, ann)
	return ann, nil
}

func (svc *service) QueryByClass(ctx context.Context, classID string, ordering []core.DBOrdering) ([]Announcement, error) {
	return svc.repo.QueryAnnouncementsByClass(ctx, classID, ordering)
}

func (svc *service) notifyRoster(ctx context.Context, cls class.Class, ann Announcement) {
	students, err := svc.clsSvc.Students(ctx, cls.ID)
	if err != nil || len(students) == 0 {
		return
	}

	// students sign up with a registration number; only those that also have
	// an email on file get notified
	bcc := make([]mail.Address, 0, len(students))
	for _, s := range students {
		if s.Email != "" {
			bcc = append(bcc, mail.Address{Name: s.Name, Address: s.Email})
		}
	}
	if len(bcc) == 0 {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:     bcc,
		Subject: fmt.Sprintf("New announcement in %s", cls.Name),
		BodyStr: ann.Message,
	})
}
