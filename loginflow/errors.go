package loginflow

import apperrors "github.com/jrsteele09/course-sso/internal/errors"

var (
	ErrBusy            = apperrors.New("a request is already in progress")
	ErrFlowEnded       = apperrors.New("login flow has already redirected")
	ErrWrongStage      = apperrors.New("action not available in the current step")
	ErrMissingClientID = apperrors.New("oauth client id is not configured")
	ErrUnknownProvider = apperrors.New("unknown oauth provider")
)
