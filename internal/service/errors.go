package service

import "errors"

// Session lifecycle errors. Handlers map these onto response codes.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session finished, answers are read-only")
	ErrTaskNotFound    = errors.New("no such task in the question bank")
	ErrNoTasks         = errors.New("question bank has no tasks")

	// ErrConfirmRequired means a partial manual submission was attempted
	// without the explicit confirmation flag. The client re-prompts with the
	// solved/total summary and retries with confirm_partial set.
	ErrConfirmRequired = errors.New("partial submission requires confirmation")

	// ErrCompletionRequired means an incomplete manual submission was
	// rejected because the deployment only accepts finished work
	// (EXPORT_ONLY_AFTER_FINISH). No confirmation flag overrides it.
	ErrCompletionRequired = errors.New("submission requires a fully answered work")

	ErrDeliveryFailed     = errors.New("pack delivery failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
