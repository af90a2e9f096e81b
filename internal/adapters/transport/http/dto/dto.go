package dto

type RegisterDTO struct {
	Username        string `json:"username"          validate:"required,alphanum,min=3,max=50"`
	Email           string `json:"email"             validate:"required,email,max=255"`
	Password        string `json:"password"          validate:"required,strongpwd,max=128"`
	IsAcceptedTerms bool   `json:"is_accepted_terms"`
	Timezone        string `json:"timezone"          validate:"omitempty,timezone"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordDTO struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strongpwd,max=128"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password"     validate:"required,strongpwd,max=128,nefield=CurrentPassword"`
}

type CreateCollectionDTO struct {
	Name        string  `json:"name"        validate:"notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=250"`
	IsPublic    bool    `json:"is_public"`
}

type UpdateCollectionDTO struct {
	Name        *string `json:"name"        validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=250"`
	IsPublic    *bool   `json:"is_public"`
}

type SwitchAreaDTO struct {
	IsPublic *bool `json:"is_public" validate:"required"`
}
