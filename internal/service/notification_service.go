package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/internal/policy"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/util"
	"edu_platform_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

const latestNotificationLimit = 20

// Pusher 在线推送，实现见 NotificationHub
type Pusher interface {
	Push(userIDs []uint, msgType string, data interface{})
}

type NotificationService struct {
	Repo     *repository.NotificationRepository
	UserRepo *repository.UserRepository
	Mailer   Mailer
	Pusher   Pusher
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, mailer Mailer) *NotificationService {
	return &NotificationService{Repo: repo, UserRepo: userRepo, Mailer: mailer}
}

// Notify 为每个用户写入站内通知；通知失败只记录日志，不影响业务结果
func (s *NotificationService) Notify(ctx context.Context, userIDs []uint, typ model.NotificationType, title, message string) {
	if len(userIDs) == 0 {
		return
	}
	notifications := make([]model.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		notifications = append(notifications, model.Notification{
			UserID:  id,
			Type:    typ,
			Title:   title,
			Message: message,
		})
	}
	if err := s.Repo.CreateBatch(ctx, notifications); err != nil {
		logger.Log.Error("Failed to create notifications",
			zap.String("type", string(typ)),
			zap.Int("recipients", len(userIDs)),
			zap.Error(err),
		)
		return
	}

	if s.Pusher != nil {
		for i := range notifications {
			s.Pusher.Push([]uint{notifications[i].UserID}, WSTypeNotification, &notifications[i])
		}
	}
}

// NotifyWithMail 站内通知并异步发送邮件
func (s *NotificationService) NotifyWithMail(ctx context.Context, userIDs []uint, typ model.NotificationType, title, message string) {
	s.Notify(ctx, userIDs, typ, title, message)
	if s.Mailer == nil {
		return
	}

	recipients := make([]*model.User, 0, len(userIDs))
	for _, id := range userIDs {
		user, err := s.UserRepo.FindByID(ctx, id)
		if err != nil {
			continue
		}
		recipients = append(recipients, user)
	}

	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, user := range recipients {
			if err := s.Mailer.Send(mailCtx, user.FullName(), user.Email, title, message); err != nil {
				logger.Log.Warn("Failed to send mail", zap.String("to", user.Email), zap.Error(err))
			}
		}
	}()
}

func (s *NotificationService) ListLatest(ctx context.Context, caller policy.Caller) ([]model.Notification, error) {
	return s.Repo.ListLatest(ctx, caller.ID, latestNotificationLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, caller policy.Caller, id uint) (*model.Notification, error) {
	notification, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.UserID != caller.ID {
		return nil, util.ErrPermissionDenied
	}
	if err := s.Repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	notification.IsRead = true
	return notification, nil
}

// MarkReadByUser WebSocket 回执入口
func (s *NotificationService) MarkReadByUser(ctx context.Context, userID, id uint) error {
	_, err := s.MarkRead(ctx, policy.Caller{ID: userID}, id)
	return err
}

func (s *NotificationService) CountUnread(ctx context.Context, caller policy.Caller) (int64, error) {
	return s.Repo.CountUnread(ctx, caller.ID)
}
