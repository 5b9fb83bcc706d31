package models

// TokenPair — пара токенов, выдаваемая при логине.
//
// Описание:
//   - Access — короткоживущий токен, прикладывается к каждому запросу как Bearer;
//   - Refresh — долгоживущий токен, используется только для выпуска нового access.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken — ответ эндпойнта обновления.
type AccessToken struct {
	Access string `json:"access"`
}

// DetailResponse — типовой ответ {"detail": "..."}.
type DetailResponse struct {
	Detail string `json:"detail"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}
