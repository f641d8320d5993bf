package worker

import (
	"github.com/spec-kit/case-service/internal/service"
)

// StartNotificationWorker registers audit-mirror notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
