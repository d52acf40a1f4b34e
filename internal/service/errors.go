package service

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("invalid input")
	ErrAllocationQueryFailed = errors.New("contract number allocation failed")
	ErrPersist               = errors.New("persist failed")
	ErrConfirmationRequired  = errors.New("status change requires confirmation")
	ErrNotEditable           = errors.New("contract is no longer editable")
)
