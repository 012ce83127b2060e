package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTeacherAccessOnly  ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrNameIncomplete ErrCode = "NAME_INCOMPLETE"
	ErrClassRequired  ErrCode = "CLASS_REQUIRED"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrIdentityRequired   ErrCode = "IDENTITY_REQUIRED"
	ErrSessionFinished    ErrCode = "SESSION_FINISHED"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrConfirmRequired    ErrCode = "CONFIRM_REQUIRED"
	ErrCompletionRequired ErrCode = "COMPLETION_REQUIRED"
	ErrDeliveryFailed     ErrCode = "DELIVERY_FAILED"
	ErrNoTasks            ErrCode = "NO_TASKS"

	// ─── Collection ────────────────────────────────────────────────────
	ErrSubmitTokenInvalid ErrCode = "SUBMIT_TOKEN_INVALID"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNameIncomplete:
		return "Please enter your surname and given name."
	case ErrClassRequired:
		return "Please enter your class."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrIdentityRequired:
		return "Confirm your name and class before starting."
	case ErrSessionFinished:
		return "Time is up. Answers can no longer be changed."
	case ErrAlreadySubmitted:
		return "This work has already been submitted."
	case ErrConfirmRequired:
		return "Submission requires explicit confirmation."
	case ErrCompletionRequired:
		return "Answer every task before submitting."
	case ErrDeliveryFailed:
		return "Could not deliver the submission. Please try again."
	case ErrNoTasks:
		return "The question bank contains no tasks."

	// ─── Collection ────────────────────────────────────────────────────
	case ErrSubmitTokenInvalid:
		return "The submit token is missing or invalid."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
