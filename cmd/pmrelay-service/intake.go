// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/pmrelay/pmrelay/lib/eventstore"
	"github.com/pmrelay/pmrelay/lib/netutil"
	"github.com/pmrelay/pmrelay/lib/relay"
	"github.com/pmrelay/pmrelay/messaging"
)

// maxEventBodySize bounds a POST /api/events body.
const maxEventBodySize = 64 << 10

// multipartMemory is the part of a multipart body held in memory; the
// rest spills to temporary files.
const multipartMemory = 4 << 20

// reportSubmitter is the part of relay.Dispatcher the intake uses.
type reportSubmitter interface {
	SubmitReturn(ctx context.Context, report relay.Report) (relay.Receipt, error)
	SubmitRelocation(ctx context.Context, report relay.Report) (relay.Receipt, error)
}

// eventAppender is the part of eventstore.Store the intake uses.
type eventAppender interface {
	Append(event eventstore.Event) error
}

// reportResponse acknowledges an accepted report.
type reportResponse struct {
	Message string `json:"message"`
	relay.Receipt
}

// intakeHandlers serves the report and event endpoints.
type intakeHandlers struct {
	reports        reportSubmitter
	events         eventAppender
	maxUploadBytes int64
	logger         *slog.Logger
}

func (h *intakeHandlers) handleReturn(writer http.ResponseWriter, request *http.Request) {
	h.handleReport(writer, request, h.reports.SubmitReturn)
}

func (h *intakeHandlers) handleRelocation(writer http.ResponseWriter, request *http.Request) {
	h.handleReport(writer, request, h.reports.SubmitRelocation)
}

func (h *intakeHandlers) handleReport(writer http.ResponseWriter, request *http.Request, submit func(context.Context, relay.Report) (relay.Receipt, error)) {
	request.Body = http.MaxBytesReader(writer, request.Body, h.maxUploadBytes)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			netutil.WriteMessage(writer, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		netutil.WriteMessage(writer, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}
	defer request.MultipartForm.RemoveAll()

	report := relay.Report{
		Address:   request.FormValue("email"),
		Latitude:  request.FormValue("latitude"),
		Longitude: request.FormValue("longitude"),
		Message:   request.FormValue("message"),
	}

	file, header, err := request.FormFile("photo")
	switch {
	case err == nil:
		defer file.Close()
		report.Photo = photoAttachment(file, header)
	case errors.Is(err, http.ErrMissingFile):
		// Left nil; submit reports the missing field in order.
	default:
		netutil.WriteMessage(writer, http.StatusBadRequest, "unreadable photo")
		return
	}

	receipt, err := submit(request.Context(), report)
	if err != nil {
		if relay.IsValidation(err) {
			netutil.WriteMessage(writer, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("report intake failed", "path", request.URL.Path, "error", err)
		netutil.WriteMessage(writer, http.StatusInternalServerError, "server error")
		return
	}

	netutil.WriteJSON(writer, http.StatusOK, reportResponse{
		Message: "report received",
		Receipt: receipt,
	})
}

func photoAttachment(file multipart.File, header *multipart.FileHeader) *messaging.Attachment {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := header.Filename
	if name == "" {
		name = "photo"
	}
	return &messaging.Attachment{
		Name:        name,
		ContentType: contentType,
		Content:     file,
	}
}

func (h *intakeHandlers) handleEvent(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxEventBodySize)

	var event eventstore.Event
	if err := json.NewDecoder(request.Body).Decode(&event); err != nil {
		netutil.WriteMessage(writer, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.logger.Info("event intake", "email", event.Email, "date", event.Date)

	if err := h.events.Append(event); err != nil {
		var missing *eventstore.MissingFieldError
		if errors.As(err, &missing) {
			netutil.WriteMessage(writer, http.StatusBadRequest, "missing required field: "+missing.Field)
			return
		}
		h.logger.Error("event intake failed", "error", err)
		netutil.WriteMessage(writer, http.StatusInternalServerError, "server error")
		return
	}

	netutil.WriteMessage(writer, http.StatusOK, "event saved")
}
