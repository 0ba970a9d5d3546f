// Package session keeps the signed-in user's credentials on the portal side
// of the browser: the bearer token, role, user id and display name, stored
// under an opaque cookie id.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RolePsychologist Role = "psychologist"
)

// Field names as they are persisted in every backend.
const (
	KeyAccessToken = "access_token"
	KeyRole        = "role"
	KeyID          = "id"
	KeyFullName    = "full_name"
)

var (
	ErrNoToken   = errors.New("session has no access token")
	ErrBadUserID = errors.New("session user id is not a number")
)

type Session struct {
	Token       string
	UserID      int64
	Role        Role
	DisplayName string
}

// IsPsychologist is true for both clinician role names the API uses.
func (s Session) IsPsychologist() bool {
	return s.Role == RoleDoctor || s.Role == RolePsychologist
}

func (s Session) IsPatient() bool {
	return s.Role == RolePatient
}

// RoleTitle is the role with its first letter upper-cased, "" when unset.
func (s Session) RoleTitle() string {
	r := string(s.Role)
	if r == "" {
		return ""
	}
	return strings.ToUpper(r[:1]) + r[1:]
}

// Fields flattens the session into its persisted key/value form.
func (s Session) Fields() map[string]string {
	id := ""
	if s.UserID != 0 {
		id = strconv.FormatInt(s.UserID, 10)
	}
	return map[string]string{
		KeyAccessToken: s.Token,
		KeyRole:        string(s.Role),
		KeyID:          id,
		KeyFullName:    s.DisplayName,
	}
}

// FromFields rebuilds a session from its persisted form. A missing id is
// allowed and reads as zero; a missing token is not.
func FromFields(fields map[string]string) (Session, error) {
	tok := fields[KeyAccessToken]
	if tok == "" {
		return Session{}, ErrNoToken
	}

	var id int64
	if raw := fields[KeyID]; raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Session{}, fmt.Errorf("%w: %q", ErrBadUserID, raw)
		}
		id = n
	}

	return Session{
		Token:       tok,
		UserID:      id,
		Role:        Role(fields[KeyRole]),
		DisplayName: fields[KeyFullName],
	}, nil
}
