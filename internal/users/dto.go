package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cinepass/pkg/db/models"
)

// UserDTO is a customer as shown to the customer. It never carries the
// password hash.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Profile     ProfileDTO `json:"profile"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProfileDTO holds the optional contact data and preferences of a customer.
type ProfileDTO struct {
	Phone       string         `json:"phone"`
	BirthDate   string         `json:"birth_date"`
	Preferences PreferencesDTO `json:"preferences"`
}

type PreferencesDTO struct {
	Genres        []string `json:"genres"`
	Notifications bool     `json:"notifications"`
	Newsletter    bool     `json:"newsletter"`
}

// CreateUserDTO is what the repository needs to store a new customer.
type CreateUserDTO struct {
	Email        string
	Name         string
	PasswordHash string
}

// ProfileChanges lists the profile fields to overwrite; nil leaves a field as is.
type ProfileChanges struct {
	Name          *string
	Phone         *string
	BirthDate     *string
	Genres        *[]string
	Notifications *bool
	Newsletter    *bool
}

// row returns the changed values as a model together with the columns to write.
func (c ProfileChanges) row() (models.User, []string) {
	var (
		row  models.User
		cols []string
	)
	if c.Name != nil {
		row.Name = strings.TrimSpace(*c.Name)
		cols = append(cols, "name")
	}
	if c.Phone != nil {
		row.Phone = strings.TrimSpace(*c.Phone)
		cols = append(cols, "phone")
	}
	if c.BirthDate != nil {
		row.BirthDate = strings.TrimSpace(*c.BirthDate)
		cols = append(cols, "birth_date")
	}
	if c.Genres != nil {
		row.PreferredGenres = cleanGenres(*c.Genres)
		cols = append(cols, "preferred_genres")
	}
	if c.Notifications != nil {
		row.Notifications = *c.Notifications
		cols = append(cols, "notifications")
	}
	if c.Newsletter != nil {
		row.Newsletter = *c.Newsletter
		cols = append(cols, "newsletter")
	}
	return row, cols
}

func cleanGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := map[string]bool{}
	for _, g := range genres {
		g = strings.TrimSpace(g)
		if g == "" || seen[strings.ToLower(g)] {
			continue
		}
		seen[strings.ToLower(g)] = true
		out = append(out, g)
	}
	return out
}

// NormalizeEmail trims and lowercases an address; lookups and the unique
// index work on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	genres := append([]string{}, u.PreferredGenres...)
	return &UserDTO{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Profile: ProfileDTO{
			Phone:     u.Phone,
			BirthDate: u.BirthDate,
			Preferences: PreferencesDTO{
				Genres:        genres,
				Notifications: u.Notifications,
				Newsletter:    u.Newsletter,
			},
		},
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// ToModel builds the row for a new customer. Notifications and newsletter
// start switched on.
func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		ID:              uuid.New(),
		Email:           NormalizeEmail(c.Email),
		Name:            strings.TrimSpace(c.Name),
		PasswordHash:    c.PasswordHash,
		PreferredGenres: []string{},
		Notifications:   true,
		Newsletter:      true,
	}
}
