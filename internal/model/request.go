package model

// Request bodies use camelCase field names, matching the directory
// API wire contract.

// LoginRequest is the body of POST ?action=login.
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Timestamp int64  `json:"timestamp"`
}

// LogoutRequest is the body of POST ?action=logout.
type LogoutRequest struct {
	UserID    int64 `json:"userId"`
	Timestamp int64 `json:"timestamp"`
}

// CreateUserRequest is the body of POST ?action=create_user.
// Email carries only the local part; the server appends the
// organizational domain suffix.
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// DeleteUserRequest is the body of POST ?action=delete_user.
type DeleteUserRequest struct {
	UserID int64 `json:"userId"`
}

// SendMessageRequest is the body of POST ?action=send_message.
type SendMessageRequest struct {
	FromUserID int64   `json:"fromUserId"`
	ToUserIDs  []int64 `json:"toUserIds"`
	Text       string  `json:"text"`
	Timestamp  int64   `json:"timestamp"`
}

// SendMessageResponse acknowledges a stored message with its
// server-assigned identifier.
type SendMessageResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
}

// UpdateProfileRequest is the body of POST ?action=update_profile.
type UpdateProfileRequest struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
}
