package handlers

import (
	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/statistics"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespOverview struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subscription.Overview    `json:"data"`
}

type RespSalon struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Salon             `json:"data"`
}

type RespSalonView struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subscription.SalonView   `json:"data"`
}

type RespSubscriptionPage struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SubscriptionPage         `json:"data"`
}

type RespRequest struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    models.SubscriptionRequest `json:"data"`
}

type RespRequests struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    []*models.SubscriptionRequest `json:"data"`
}

type RespApprove struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    request.ApproveResult    `json:"data"`
}

type RespDailyCounts struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []*statistics.DailyCount `json:"data"`
}

// RespStatistic wraps StatisticResponse in the standard envelope.
type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}

type RespSnapshot struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    statistics.SnapshotResult `json:"data"`
}

type RespInbox struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    Inbox                    `json:"data"`
}
