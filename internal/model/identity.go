package model

// Identity is the student name/class pair captured once per session.
// Both fields hold the normalized form (see session.NormalizeFullName and
// session.NormalizeClassName); the identity is immutable after confirmation
// unless the session is explicitly reset.
type Identity struct {
	FullName  string `json:"fio"`
	ClassName string `json:"cls"`
}

// Complete reports whether both identity fields are present.
func (i *Identity) Complete() bool {
	return i != nil && i.FullName != "" && i.ClassName != ""
}

// StartSessionRequest is the payload for opening a new quiz session.
type StartSessionRequest struct {
	FullName  string `json:"full_name" binding:"required,min=2,max=120"`
	ClassName string `json:"class_name" binding:"required,min=1,max=32"`
}
