package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// AuthTypeUserPass marks credentials that carry a base64-encoded password
const AuthTypeUserPass = "AUTHENTICATION_USER_PASS"

// Credentials is the stored-credential document accepted by --load and
// written by --save
type Credentials struct {
	Username    string `json:"username"`
	Credentials string `json:"credentials"`
	Type        string `json:"type"`
}

// PasswordCredentials builds stored credentials from an email and password
func PasswordCredentials(username, password string) Credentials {
	return Credentials{
		Username:    username,
		Credentials: base64.StdEncoding.EncodeToString([]byte(password)),
		Type:        AuthTypeUserPass,
	}
}

// Validate checks that every field is present
func (c Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username cannot be empty")
	}
	if c.Credentials == "" {
		return errors.New("credentials cannot be empty")
	}
	if c.Type == "" {
		return errors.New("credential type cannot be empty")
	}
	return nil
}

// LoadCredentials reads a stored-credential file
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("failed to read credentials: %w", err)
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}
	if err := creds.Validate(); err != nil {
		return creds, fmt.Errorf("invalid credentials %s: %w", path, err)
	}
	return creds, nil
}

// SaveCredentials writes creds as 4-space indented JSON readable only by the owner
func SaveCredentials(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
