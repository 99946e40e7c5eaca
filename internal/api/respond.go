package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	xerrors "Sentinel-X/internal/errors"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeFailure 按错误码选择 HTTP 状态，按严重程度选择日志级别。
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := xerrors.CodeOf(err)
	status := statusFor(code)
	s.log.Log(r.Context(), logLevel(xerrors.SeverityOf(err)), "请求处理失败",
		"path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()),
		"code", code,
		"retryable", xerrors.RetryableError(err),
		"error", err,
	)
	message := err.Error()
	if e, ok := xerrors.From(err); ok && e.Message() != "" {
		message = e.Message()
	}
	writeError(w, status, string(code), message)
}

func logLevel(severity xerrors.Severity) slog.Level {
	switch severity {
	case xerrors.SeverityCritical:
		return slog.LevelError
	case xerrors.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

func statusFor(code xerrors.Code) int {
	switch code {
	case xerrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case xerrors.CodeNotFound:
		return http.StatusNotFound
	case xerrors.CodeUpstreamUnavailable, xerrors.CodeProviderFailure, xerrors.CodeTimeout:
		return http.StatusServiceUnavailable
	case xerrors.CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON 解析请求体，allowEmpty 为 true 时空请求体不视为错误。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, fmt.Sprintf("请求体解析失败: %v", err))
	}
	return nil
}

// parseLimit 读取 limit 查询参数，缺省为 10，合法取值截断到 [1,100]。
// 非数字或负数返回 INVALID_ARGUMENT。
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "无效的 limit 参数: "+raw)
	}
	return clamp(int(n), 1, maxLimit), nil
}

func parseOffset(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("offset"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "无效的 offset 参数: "+raw)
	}
	return n, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
