package auth

import "errors"

// 核心錯誤分類；呼叫端以 errors.Is 分支，HTTP 層據此對應狀態碼。
var (
	// ErrInvalidCredentials 統一涵蓋帳號不存在、密碼錯誤與帳號停用，
	// 避免洩漏帳號是否存在。
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled 僅在 refresh 流程回報：token 有效但帳號已停用。
	ErrAccountDisabled = errors.New("user account is disabled")

	// ErrSessionInvalid 表示 session 不存在、已停用或已過期。
	ErrSessionInvalid = errors.New("session is not valid")

	// ErrTokenExpired 表示 token 已過期。
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked 表示 refresh token 已被撤銷。
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrTokenNotFound 表示 refresh token 不存在或已不可用。
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrWrongTokenType 表示 token 類型不符（例如以 refresh 充當 access）。
	ErrWrongTokenType = errors.New("unexpected token type")

	// ErrUserNotFound 表示使用者不存在。
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken 表示註冊時 username 已被使用。
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken 表示註冊時 email 已被使用。
	ErrEmailTaken = errors.New("email already registered")
)
