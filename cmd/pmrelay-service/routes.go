// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"

	"github.com/pmrelay/pmrelay/lib/netutil"
	"github.com/pmrelay/pmrelay/lib/version"
)

// newRouter mounts every route behind the CORS middleware.
func newRouter(intake *intakeHandlers, webhook http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reports/return", intake.handleReturn)
	mux.HandleFunc("POST /api/reports/relocation", intake.handleRelocation)
	mux.HandleFunc("POST /api/events", intake.handleEvent)
	mux.Handle("POST /webhooks/webex", webhook)
	mux.HandleFunc("GET /healthz", handleHealth)
	return withCORS(mux)
}

func handleHealth(writer http.ResponseWriter, _ *http.Request) {
	netutil.WriteJSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Info(),
	})
}

// withCORS allows every origin and answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		if request.Method == http.MethodOptions && request.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", "GET, HEAD, PUT, PATCH, POST, DELETE")
			if requested := request.Header.Get("Access-Control-Request-Headers"); requested != "" {
				header.Set("Access-Control-Allow-Headers", requested)
				header.Add("Vary", "Access-Control-Request-Headers")
			}
			writer.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
