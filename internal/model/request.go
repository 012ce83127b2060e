package model

// SaveAnswerRequest is the payload for the write-through answer store.
// Empty values are allowed: clearing an answer is a valid edit.
type SaveAnswerRequest struct {
	Value string `json:"value"`
}

// NavigateRequest moves the current question index by Delta (usually ±1).
type NavigateRequest struct {
	Delta int `json:"delta"`
}

// SubmitRequest triggers a manual early submission. ConfirmPartial
// acknowledges the "N of M solved" prompt for incomplete work.
type SubmitRequest struct {
	ConfirmPartial bool `json:"confirm_partial"`
}

// ResetRequest wipes the session. Confirm is mandatory — reset destroys
// identity, answers, timer and the submission record together.
type ResetRequest struct {
	Confirm bool `json:"confirm" binding:"required"`
}

// TeacherLoginRequest is the teacher password gate payload.
type TeacherLoginRequest struct {
	Password string `json:"password" binding:"required"`
}
