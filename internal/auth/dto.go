package auth

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest replaces the password of the logged in user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UpdateProfileRequest changes the customer's profile. Omitted fields keep
// their stored value; an empty phone or birth date clears it and an empty
// name is ignored. A birth date is YYYY-MM-DD.
type UpdateProfileRequest struct {
	Name        *string             `json:"name" validate:"omitempty,min=2,max=120"`
	Phone       *string             `json:"phone" validate:"omitempty,max=20"`
	BirthDate   *string             `json:"birth_date"`
	Preferences *PreferencesRequest `json:"preferences"`
}

// PreferencesRequest changes genre and contact preferences.
type PreferencesRequest struct {
	Genres        *[]string `json:"genres" validate:"omitempty,max=20,dive,max=40"`
	Notifications *bool     `json:"notifications"`
	Newsletter    *bool     `json:"newsletter"`
}

// FavoriteStatus reports whether a movie is among the customer's favorites.
type FavoriteStatus struct {
	MovieID  int  `json:"movie_id"`
	Favorite bool `json:"favorite"`
}
