package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"

	"github.com/Ethernal-Tech/fx-oracle/logger"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/model/response"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/hashicorp/go-hclog"
)

func WriteResponse(w http.ResponseWriter, r *http.Request, status int, response any, logger hclog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("write response error", "url", r.URL, "status", status, "err", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, err error, logger hclog.Logger) {
	logger.Info("error happened", "url", r.URL, "status", status, "err", err)

	WriteResponse(w, r, status, response.ErrorResponse{Err: err.Error()}, logger)
}

func WriteUnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger hclog.Logger) {
	WriteErrorResponse(w, r, http.StatusUnauthorized, errors.New("Unauthorized"), logger)
}

func FormatProcessOnPort(port uint32) string {
	process, err := ProcessOnPort(port)
	if err != nil {
		return err.Error()
	}

	return process
}

func ProcessOnPort(port uint32) (string, error) {
	cmd := exec.Command("sh", "-c", fmt.Sprintf("lsof -i tcp:%d | grep LISTEN | awk '{print $2}'", port)) //nolint:gosec

	// Run the command and capture the output
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("cmd failed: %w", err)
	}

	return out.String(), nil
}

// NewAPILogger gives the API its own log file next to the main one. An empty
// LogFilePath keeps the API logger on console output as well.
func NewAPILogger(appConfig *core.AppConfig) (hclog.Logger, error) {
	apiLoggerConfig := appConfig.Settings.Logger
	if apiLoggerConfig.LogFilePath != "" {
		logDir := filepath.Dir(apiLoggerConfig.LogFilePath)
		apiLoggerConfig.LogFilePath = filepath.Join(logDir, "api.log")
	}

	apiLogger, err := logger.NewLogger(apiLoggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create apiLogger. err: %w", err)
	}

	return apiLogger, nil
}
