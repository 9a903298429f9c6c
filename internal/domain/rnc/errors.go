package rnc

import "rncflow/internal/errs"

var (
	ErrInvalidStatus        = errs.New(errs.KindValidation, "invalid status")
	ErrInvalidCondition     = errs.New(errs.KindValidation, "invalid condition")
	ErrInvalidCriticalLevel = errs.New(errs.KindValidation, "invalid critical level")
	ErrInvalidRole          = errs.New(errs.KindValidation, "invalid role")
	ErrFieldRequired        = errs.New(errs.KindValidation, "required field missing")
	ErrInvalidField         = errs.New(errs.KindValidation, "invalid field value")

	ErrRNCNotFound  = errs.New(errs.KindNotFound, "rnc not found")
	ErrPartNotFound = errs.New(errs.KindNotFound, "part not found")
	ErrUserNotFound = errs.New(errs.KindNotFound, "user not found")

	ErrPartHasOpenRNC = errs.New(errs.KindConflict, "part already has an open rnc")

	ErrRNCClosed            = errs.New(errs.KindForbidden, "rnc is closed")
	ErrRoleNotAllowed       = errs.New(errs.KindForbidden, "role not allowed for action")
	ErrTransitionNotAllowed = errs.New(errs.KindForbidden, "action not allowed from current condition")
	ErrAnalysisMissing      = errs.New(errs.KindForbidden, "rework requires a completed analysis")

	ErrCapacityExceeded = errs.New(errs.KindCapacity, "num_rnc capacity exceeded")
)
