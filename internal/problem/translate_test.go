package problem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/acme/user-service/internal/apperr"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_PolicyTable(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		title  string
		code   string
	}{
		{"not found", apperr.NewNotFound("User", "123"), http.StatusNotFound, "Resource Not Found", apperr.CodeNotFound},
		{"validation", apperr.NewValidation("User").Add("Name", "required").Err(), http.StatusBadRequest, "Validation Failed", apperr.CodeValidationFailed},
		{"duplicate email", apperr.NewDuplicateEmail("a@b.com"), http.StatusConflict, "Resource Conflict", apperr.CodeDuplicateEmail},
		{"business rule", apperr.NewBusinessRule("ActiveUserRequired", "", nil), http.StatusBadRequest, "Business Logic Error", apperr.CodeBusinessRule},
		{"argument", apperr.NewArgument("id", "User ID cannot be empty."), http.StatusBadRequest, "Invalid Request Parameter", apperr.CodeArgumentInvalid},
		{"service failure", apperr.NewService("UserService", "Create", errors.New("boom")), http.StatusInternalServerError, "Internal Server Error", apperr.CodeServiceFailed},
		{"repository failure", apperr.NewRepository("create", "users", errors.New("boom")), http.StatusInternalServerError, "Internal Server Error", apperr.CodeRepositoryFailed},
		{"timeout", &apperr.TimeoutError{}, http.StatusRequestTimeout, "Request Timeout", apperr.CodeTimeout},
		{"deadline exceeded", context.DeadlineExceeded, http.StatusRequestTimeout, "Request Timeout", apperr.CodeTimeout},
		{"unauthorized", &apperr.UnauthorizedError{}, http.StatusUnauthorized, "Unauthorized", apperr.CodeUnauthorized},
		{"unknown", errors.New("nil pointer dereference"), http.StatusInternalServerError, "Internal Server Error", apperr.CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := Translate(tc.err)
			require.Equal(t, tc.status, resp.Status)
			require.Equal(t, tc.title, resp.Title)
			require.Equal(t, tc.code, resp.Extensions[ExtensionCode])
		})
	}
}

func TestTranslate_NotFoundDetail(t *testing.T) {
	resp := Translate(apperr.NewNotFound("User", "123"))
	require.Equal(t, "The User with identifier '123' was not found.", resp.Detail)
	require.Equal(t, "User", resp.Extensions["entityType"])
	require.Equal(t, "123", resp.Extensions["entityId"])
}

func TestTranslate_ValidationErrorsRoundTrip(t *testing.T) {
	fields := apperr.NewValidation("User").
		Add("Name", "required").
		Add("Email", "invalid").
		Err()
	resp := Translate(fields)

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Title      string `json:"title"`
		Status     int    `json:"status"`
		Detail     string `json:"detail"`
		Extensions struct {
			Code   string              `json:"code"`
			Target string              `json:"target"`
			Errors map[string][]string `json:"errors"`
		} `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "Validation failed for User.", decoded.Detail)
	require.Equal(t, "User", decoded.Extensions.Target)
	require.Equal(t, map[string][]string{
		"Name":  {"required"},
		"Email": {"invalid"},
	}, decoded.Extensions.Errors)
}

// The duplicate-email conflict is a specialization of a business rule
// violation; translation must produce the conflict-specific code, never the
// generic one.
func TestTranslate_ConflictPrecedesGenericDomainError(t *testing.T) {
	resp := Translate(apperr.NewDuplicateEmail("a@b.com"))
	require.Equal(t, http.StatusConflict, resp.Status)
	require.Equal(t, apperr.CodeDuplicateEmail, resp.Extensions[ExtensionCode])
	require.NotEqual(t, apperr.CodeBusinessRule, resp.Extensions[ExtensionCode])
	require.Equal(t, "a@b.com", resp.Extensions["email"])
}

func TestTranslate_NeverEchoesInternalCauses(t *testing.T) {
	cause := errors.New("pq: relation \"users\" does not exist")
	for _, err := range []error{
		apperr.NewService("UserService", "List", cause),
		apperr.NewRepository("list", "users", cause),
		fmt.Errorf("handler blew up: %w", errors.New("runtime error: invalid memory address")),
	} {
		resp := Translate(err)
		require.Equal(t, http.StatusInternalServerError, resp.Status)
		require.Equal(t, "An unexpected error occurred while processing the request.", resp.Detail)
		assert.NotContains(t, resp.Detail, "users")
		assert.NotContains(t, resp.Detail, "runtime error")
	}
}

func TestTranslate_IsPure(t *testing.T) {
	err := apperr.NewValidation("User").Add("Name", "required").Err()

	first, marshalErr := json.Marshal(Translate(err))
	require.NoError(t, marshalErr)
	second, marshalErr := json.Marshal(Translate(err))
	require.NoError(t, marshalErr)
	require.Equal(t, first, second)
}

func TestSeverity(t *testing.T) {
	require.Equal(t, log.DebugLevel, Severity(apperr.NewNotFound("User", "1")))
	require.Equal(t, log.WarnLevel, Severity(apperr.NewValidation("User").Add("Name", "required").Err()))
	require.Equal(t, log.WarnLevel, Severity(apperr.NewDuplicateEmail("a@b.com")))
	require.Equal(t, log.WarnLevel, Severity(apperr.NewArgument("id", "empty")))
	require.Equal(t, log.WarnLevel, Severity(&apperr.UnauthorizedError{}))
	require.Equal(t, log.ErrorLevel, Severity(apperr.NewRepository("get", "users", errors.New("boom"))))
	require.Equal(t, log.ErrorLevel, Severity(apperr.NewService("UserService", "Get", errors.New("boom"))))
	require.Equal(t, log.ErrorLevel, Severity(errors.New("nil pointer dereference")))
}
