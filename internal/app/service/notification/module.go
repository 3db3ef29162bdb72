package notification

import (
	"go.uber.org/fx"

	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
)

func asNotifier(s *Service) subscription.Notifier { return s }

// Module provides the notification sink and binds it as the subscription notifier.
var Module = fx.Options(
	fx.Provide(NewService, asNotifier),
)
