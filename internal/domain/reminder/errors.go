package reminder

import "errors"

var (
	ErrProfileNotFound = errors.New("employee profile not found")
	ErrPolicyNotFound  = errors.New("reminder policy not found")
	ErrValidation      = errors.New("validation failed")
)
