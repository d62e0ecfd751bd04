package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Password   string    `json:"-"`
	MFASecret  string    `json:"-"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

func (u *User) CreateUser(db *sql.DB) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
	INSERT INTO users (username, email, password, mfa_secret, mfa_enabled, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Username, u.Email, u.Password, u.MFASecret, u.MFAEnabled, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.MFASecret, &user.MFAEnabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByID(db *sql.DB, id int64) (*User, error) {
	query := `
	SELECT id, username, email, password, mfa_secret, mfa_enabled, created_at, updated_at
	FROM users
	WHERE id = ?`
	return scanUser(db.QueryRow(query, id))
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	query := `
	SELECT id, username, email, password, mfa_secret, mfa_enabled, created_at, updated_at
	FROM users
	WHERE username = ?`
	return scanUser(db.QueryRow(query, username))
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	query := `
	SELECT id, username, email, password, mfa_secret, mfa_enabled, created_at, updated_at
	FROM users
	WHERE email = ?`
	return scanUser(db.QueryRow(query, email))
}

// UpdatePassword stores a new bcrypt hash for the user.
func (u *User) UpdatePassword(db *sql.DB, hashedPassword string) error {
	query := `UPDATE users SET password = ?, updated_at = ? WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	u.Password = hashedPassword
	u.UpdatedAt = time.Now()
	_, err = stmt.Exec(u.Password, u.UpdatedAt, u.ID)
	return err
}

// UpdateMFA stores the user's TOTP secret and enabled flag. An empty secret
// with enabled false clears MFA entirely.
func (u *User) UpdateMFA(db *sql.DB, secret string, enabled bool) error {
	query := `UPDATE users SET mfa_secret = ?, mfa_enabled = ?, updated_at = ? WHERE id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	u.MFASecret = secret
	u.MFAEnabled = enabled
	u.UpdatedAt = time.Now()
	_, err = stmt.Exec(u.MFASecret, u.MFAEnabled, u.UpdatedAt, u.ID)
	return err
}

type Session struct {
	ID           int       `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func CreateSession(db *sql.DB, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

func scanSession(row *sql.Row) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`

	session, err := scanSession(db.QueryRow(query, token, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return session, nil
}

func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions
	WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`

	session, err := scanSession(db.QueryRow(query, refreshToken, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("refresh session not found, expired, or blocked")
		}
		return nil, err
	}
	return session, nil
}

func DeleteSessionByToken(db *sql.DB, token string) error {
	query := `DELETE FROM sessions WHERE token = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(token)
	return err
}

func DeleteSessionByRefreshToken(db *sql.DB, refreshToken string) error {
	query := `DELETE FROM sessions WHERE refresh_token = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(refreshToken)
	return err
}

func DeleteSessionsForUser(db *sql.DB, userID int64) error {
	query := `DELETE FROM sessions WHERE user_id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(userID)
	return err
}
