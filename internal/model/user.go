package model

// User is a registered account as it is persisted in the snapshot.
//
// PasswordHash is part of the persisted record, so a User must never be
// written to an API response directly. Handlers send Public() instead.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	ProfilePic   string `json:"profilePic,omitempty"`
}

// PublicUser is the API-safe projection of a User.
type PublicUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		ProfilePic: u.ProfilePic,
	}
}
