package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/announcement"
	"github.com/geocoder89/cohorthub/internal/domain/job"
	"github.com/geocoder89/cohorthub/internal/domain/moderation"
	"github.com/geocoder89/cohorthub/internal/domain/notification"
	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/notifications"
)

type AnnouncementReader interface {
	GetByID(ctx context.Context, id string) (announcement.Announcement, error)
}

type ReportReader interface {
	GetReport(ctx context.Context, id string) (moderation.Report, error)
}

type RecipientLister interface {
	ListIDsByStatus(ctx context.Context, status user.Status) ([]string, error)
	ListIDsByRole(ctx context.Context, role user.Role) ([]string, error)
}

// NotificationWriter stores a job's notifications at most once per job id.
type NotificationWriter interface {
	DeliverOnce(ctx context.Context, jobID string, ns []notification.Notification) (stored int64, delivered bool, err error)
}

// Processor turns a claimed job into stored notifications and pushes them
// to connected clients.
type Processor struct {
	announcements AnnouncementReader
	reports       ReportReader
	users         RecipientLister
	store         NotificationWriter
	notifier      notifications.Notifier
	log           *slog.Logger
	now           func() time.Time
}

func NewProcessor(
	announcements AnnouncementReader,
	reports ReportReader,
	users RecipientLister,
	store NotificationWriter,
	notifier notifications.Notifier,
	log *slog.Logger,
) *Processor {
	return &Processor{
		announcements: announcements,
		reports:       reports,
		users:         users,
		store:         store,
		notifier:      notifier,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs j and returns how many notifications it stored.
func (p *Processor) Execute(ctx context.Context, j job.Job) (int, error) {
	payload, err := DecodePayload(j)
	if err != nil {
		return 0, err
	}

	var ns []notification.Notification

	switch pl := payload.(type) {
	case AnnouncementPublishedPayload:
		ns, err = p.announcementNotifications(ctx, pl)
	case MemberStatusChangedPayload:
		ns = statusNotifications(pl)
	case ContentReportedPayload:
		ns, err = p.reportNotifications(ctx, pl)
	default:
		return 0, ErrInvalidJobType
	}
	if err != nil {
		return 0, err
	}

	return p.deliver(ctx, j, ns)
}

func (p *Processor) announcementNotifications(ctx context.Context, pl AnnouncementPublishedPayload) ([]notification.Notification, error) {
	a, err := p.announcements.GetByID(ctx, pl.AnnouncementID)
	if err != nil {
		if errors.Is(err, announcement.ErrNotFound) {
			return nil, Permanent(err)
		}
		return nil, err
	}

	// unpublished or expired before the job ran
	if !a.IsLive(p.now()) {
		return nil, nil
	}

	recipients, err := p.users.ListIDsByStatus(ctx, user.StatusActive)
	if err != nil {
		return nil, err
	}

	t := notification.TypeInfo
	if a.Priority == announcement.PriorityHigh || a.Priority == announcement.PriorityUrgent {
		t = notification.TypeWarning
	}

	return notification.Fanout(recipients, t, a.Title, "New announcement: "+a.Title, "/announcements"), nil
}

func statusNotifications(pl MemberStatusChangedPayload) []notification.Notification {
	t := notification.TypeInfo
	msg := fmt.Sprintf("Your account status is now %s.", pl.Status)

	switch user.Status(pl.Status) {
	case user.StatusActive:
		t = notification.TypeSuccess
		msg = "Your membership is active. Welcome aboard!"
	case user.StatusSuspended:
		t = notification.TypeWarning
	}

	return []notification.Notification{
		notification.New(pl.UserID, t, "Account status updated", msg, "/profile"),
	}
}

func (p *Processor) reportNotifications(ctx context.Context, pl ContentReportedPayload) ([]notification.Notification, error) {
	rep, err := p.reports.GetReport(ctx, pl.ReportID)
	if err != nil {
		if errors.Is(err, moderation.ErrNotFound) {
			return nil, Permanent(err)
		}
		return nil, err
	}

	admins, err := p.users.ListIDsByRole(ctx, user.RoleAdmin)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("A %s was reported: %s", rep.ContentType, rep.Reason)
	return notification.Fanout(admins, notification.TypeWarning, "Content reported", msg, "/admin/moderation"), nil
}

// deliver stores ns, then pushes each one. A rerun of a delivered job
// stores and pushes nothing. A failed push is logged only; the stored row
// is what the client reads back.
func (p *Processor) deliver(ctx context.Context, j job.Job, ns []notification.Notification) (int, error) {
	if len(ns) == 0 {
		return 0, nil
	}

	n, delivered, err := p.store.DeliverOnce(ctx, j.ID, ns)
	if err != nil {
		return 0, err
	}
	if !delivered {
		if p.log != nil {
			p.log.InfoContext(ctx, "job_already_delivered", "job_id", j.ID, "job_type", j.Type)
		}
		return 0, nil
	}

	if p.notifier == nil {
		return int(n), nil
	}

	failed := 0
	for _, item := range ns {
		ev := notifications.Event{Type: notifications.EventNotification, Data: item}
		if err := p.notifier.Notify(ctx, item.UserID, ev); err != nil {
			failed++
		}
	}

	if failed > 0 && p.log != nil {
		p.log.WarnContext(ctx, "notification_push_failed",
			"job_id", j.ID,
			"job_type", j.Type,
			"failed", failed,
			"total", len(ns),
		)
	}

	return int(n), nil
}
