package problem

import (
	"context"
	"errors"
	"net/http"

	"github.com/acme/user-service/internal/apperr"
	"github.com/charmbracelet/log"
)

// genericDetail replaces the detail of server-side failures so internals
// (stack traces, SQL fragments, wrapped causes) never reach the client.
const genericDetail = "An unexpected error occurred while processing the request."

// Translate maps a failure to its HTTP error body. It is a pure function: the
// same error always yields the same Response. Cases run most-specific first:
// the duplicate-email conflict is a specialization of a business rule
// violation and must match ahead of it.
func Translate(err error) Response {
	var (
		conflict     *apperr.ConflictError
		notFound     *apperr.NotFoundError
		validation   *apperr.ValidationError
		argument     *apperr.ArgumentError
		businessRule *apperr.BusinessRuleError
		unauthorized *apperr.UnauthorizedError
		timeout      *apperr.TimeoutError
		service      *apperr.ServiceError
		repository   *apperr.RepositoryError
	)
	switch {
	case errors.As(err, &conflict):
		return Response{
			Title:  "Resource Conflict",
			Status: http.StatusConflict,
			Detail: conflict.Error(),
			Extensions: extensions(conflict.Code, apperr.CodeConflict, map[string]any{
				"email": conflict.Value,
			}),
		}
	case errors.As(err, &notFound):
		return Response{
			Title:  "Resource Not Found",
			Status: http.StatusNotFound,
			Detail: notFound.Error(),
			Extensions: extensions(notFound.Code, apperr.CodeNotFound, map[string]any{
				"entityType": notFound.Entity,
				"entityId":   notFound.ID,
			}),
		}
	case errors.As(err, &validation):
		return Response{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: validation.Error(),
			Extensions: extensions(validation.Code, apperr.CodeValidationFailed, map[string]any{
				"target": validation.Target,
				"errors": validation.Errors,
			}),
		}
	case errors.As(err, &argument):
		return Response{
			Title:  "Invalid Request Parameter",
			Status: http.StatusBadRequest,
			Detail: argument.Error(),
			Extensions: extensions(argument.Code, apperr.CodeArgumentInvalid, map[string]any{
				"parameter": argument.Param,
			}),
		}
	case errors.As(err, &businessRule):
		ext := map[string]any{"ruleName": businessRule.Rule}
		for k, v := range businessRule.Context {
			ext[k] = v
		}
		return Response{
			Title:      "Business Logic Error",
			Status:     http.StatusBadRequest,
			Detail:     businessRule.Error(),
			Extensions: extensions(businessRule.Code, apperr.CodeBusinessRule, ext),
		}
	case errors.As(err, &unauthorized):
		return Response{
			Title:      "Unauthorized",
			Status:     http.StatusUnauthorized,
			Detail:     unauthorized.Error(),
			Extensions: extensions(apperr.CodeUnauthorized, apperr.CodeUnauthorized, nil),
		}
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		detail := "The request timed out."
		if timeout != nil {
			detail = timeout.Error()
		}
		return Response{
			Title:      "Request Timeout",
			Status:     http.StatusRequestTimeout,
			Detail:     detail,
			Extensions: extensions(apperr.CodeTimeout, apperr.CodeTimeout, nil),
		}
	case errors.As(err, &service):
		return Response{
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: genericDetail,
			Extensions: extensions(service.Code, apperr.CodeServiceFailed, map[string]any{
				"service":   service.Service,
				"operation": service.Op,
			}),
		}
	case errors.As(err, &repository):
		return Response{
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: genericDetail,
			Extensions: extensions(repository.Code, apperr.CodeRepositoryFailed, map[string]any{
				"operation": repository.Op,
				"table":     repository.Table,
			}),
		}
	default:
		return Response{
			Title:      "Internal Server Error",
			Status:     http.StatusInternalServerError,
			Detail:     genericDetail,
			Extensions: extensions(apperr.CodeUnknown, apperr.CodeUnknown, nil),
		}
	}
}

// Severity returns the log level for a failure kind. Not-found is routine and
// high volume, domain kinds are client-caused and expected, everything else
// is operator-actionable.
func Severity(err error) log.Level {
	var (
		notFound     *apperr.NotFoundError
		validation   *apperr.ValidationError
		conflict     *apperr.ConflictError
		businessRule *apperr.BusinessRuleError
		argument     *apperr.ArgumentError
		unauthorized *apperr.UnauthorizedError
	)
	switch {
	case errors.As(err, &notFound):
		return log.DebugLevel
	case errors.As(err, &validation),
		errors.As(err, &conflict),
		errors.As(err, &businessRule),
		errors.As(err, &argument),
		errors.As(err, &unauthorized):
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

func extensions(code, fallback string, attrs map[string]any) map[string]any {
	if code == "" {
		code = fallback
	}
	ext := map[string]any{ExtensionCode: code}
	for k, v := range attrs {
		ext[k] = v
	}
	return ext
}
