package core

// error_messages.go maps technical failures to the status line shown in the
// grid.
//
// Order of preference for a failed operation:
//  1. The data API's own error text ({"error": "..."} or a plain-text body),
//     shown verbatim.
//  2. A known failure pattern below (connection refused, timeouts, ...).
//  3. The operation's own fallback ("No se pudo cargar la tabla.").
//
// # Error Codes Reference
//
//	API001 - Data API unreachable      Patterns: "connection refused", "no such host"
//	API002 - Data API timed out        Patterns: "deadline exceeded", "timeout"
//	API003 - Request cancelled         Patterns: "context canceled"
//	API004 - Too many requests         Patterns: "rate limit", status 429
//	AUTH001 - Not authenticated        status 401
//	AUTH002 - Not allowed              status 403
//	TBL001 - Table or row not found    status 404
//	FILE001 - File too large           status 413, "file too large"
//	UPL001 - Upload slots busy         Patterns: "too many concurrent uploads"
//	ERR000 - Unknown error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively with strings.Contains; the
// first match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Hay demasiadas cargas en curso.",
			Action:  "Espera un momento e inténtalo de nuevo.",
			Code:    "UPL001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "El archivo supera el tamaño máximo permitido.",
			Action:  "Reduce el tamaño del archivo.",
			Code:    "FILE001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "No se pudo conectar con el servidor de datos.",
			Action:  "Inténtalo de nuevo en unos momentos.",
			Code:    "API001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "No se pudo conectar con el servidor de datos.",
			Action:  "Revisa la configuración DATA_API_URL.",
			Code:    "API001",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "El servidor de datos tardó demasiado en responder.",
			Action:  "Inténtalo de nuevo.",
			Code:    "API002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "El servidor de datos tardó demasiado en responder.",
			Action:  "Inténtalo de nuevo.",
			Code:    "API002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "La solicitud fue cancelada.",
			Action:  "Inténtalo de nuevo.",
			Code:    "API003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Demasiadas solicitudes.",
			Action:  "Espera un momento antes de volver a intentarlo.",
			Code:    "API004",
		},
	},
}

var statusMessages = map[int]UserMessage{
	http.StatusUnauthorized: {
		Message: "La sesión no está autenticada.",
		Action:  "Vuelve a iniciar sesión.",
		Code:    "AUTH001",
	},
	http.StatusForbidden: {
		Message: "No tienes permiso para esta operación.",
		Action:  "Solicita acceso al administrador.",
		Code:    "AUTH002",
	},
	http.StatusNotFound: {
		Message: "La tabla o el registro no existe.",
		Action:  "Recarga la tabla.",
		Code:    "TBL001",
	},
	http.StatusRequestEntityTooLarge: {
		Message: "El archivo supera el tamaño máximo permitido.",
		Action:  "Reduce el tamaño del archivo.",
		Code:    "FILE001",
	},
	http.StatusTooManyRequests: {
		Message: "Demasiadas solicitudes.",
		Action:  "Espera un momento antes de volver a intentarlo.",
		Code:    "API004",
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado.",
	Action:  "Inténtalo de nuevo o contacta a soporte.",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// API status codes are consulted before text patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var apiErr *dataapi.APIError
	if errors.As(err, &apiErr) {
		if msg, ok := statusMessages[apiErr.Status]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// statusText picks the status line for a failed operation.
func statusText(err error, fallback string) string {
	if msg := dataapi.ServerMessage(err); msg != "" {
		return msg
	}
	if IsUserFacing(err) {
		return MapError(err).Message
	}
	return fallback
}
