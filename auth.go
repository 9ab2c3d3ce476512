package main

import (
	"errors"
	"strings"

	"taskman/models"

	"golang.org/x/crypto/bcrypt"
)

// Auth gateway: the only path the handlers use to touch credentials,
// sessions and the blacklist.

var (
	errEmailTaken         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid credentials")
	errUserNotFound       = errors.New("user not found")
	errWrongPassword      = errors.New("current password is incorrect")
)

// bcryptCost is fixed at startup (BCRYPT_COST env); not tunable per call.
var bcryptCost = bcrypt.DefaultCost

func hashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
}

// checkPassword never errors: a candidate hash that does not parse as bcrypt
// output simply fails verification.
func checkPassword(plain string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}

// RegisterUser creates an account. The email uniqueness pre-check is
// optimistic; the unique index catches the race on concurrent registers.
func RegisterUser(email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, errEmailTaken
	}
	hpw, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Email: email, Name: strings.TrimSpace(name), HashedPassword: hpw}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, errEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

// LoginUser verifies credentials and issues a session token. Unknown email
// and wrong password both return errInvalidCredentials so callers cannot
// enumerate accounts.
func LoginUser(email, password string) (string, *models.User, error) {
	var user models.User
	if err := db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		return "", nil, errInvalidCredentials
	}
	if !checkPassword(password, user.HashedPassword) {
		return "", nil, errInvalidCredentials
	}
	token, err := sessionCodec.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// LogoutUser blacklists the token unconditionally. Revoking an expired or
// otherwise invalid token is harmless, so logout never fails.
func LogoutUser(token string) {
	blacklist.Revoke(token)
	stats.tokensRevoked.Inc()
}

// ChangePassword verifies the current password before replacing the hash.
func ChangePassword(userID uint, current, next string) error {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return errUserNotFound
	}
	if !checkPassword(current, user.HashedPassword) {
		return errWrongPassword
	}
	hpw, err := hashPassword(next)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("hashed_password", hpw).Error
}

// DeleteAccount removes the identity; tasks go with it via the FK cascade.
func DeleteAccount(userID uint) error {
	res := db.Delete(&models.User{}, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errUserNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
