package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/coiffeur/internal/app/api/server"
	"github.com/fatflowers/coiffeur/internal/app/service/notification"
	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/statistics"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/internal/platform/db"
	"github.com/fatflowers/coiffeur/internal/platform/redis"
	"github.com/fatflowers/coiffeur/pkg/clock"
	"github.com/fatflowers/coiffeur/pkg/config"
	"github.com/fatflowers/coiffeur/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	clock.Module,
	db.Module,
	redis.Module,
	server.Module,
	subscription.Module,
	notification.Module,
	request.Module,
	statistics.Module,
)
