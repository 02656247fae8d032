package persistence

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound indicates a missing record
var ErrNotFound = errors.New("not found")

// Settings keys stored in settings table
const (
	SettingAPIKey              = "api_key"
	SettingMaxDurationMinutes  = "max_audio_duration_minutes"
	SettingCostPerMinute       = "cost_per_minute"
	SettingWelcomeBonusMinutes = "welcome_bonus_minutes"
)

const (
	// ChatStateWaitingFile marks chat where bot expects a media file
	ChatStateWaitingFile = "waiting_file"
	// ChatStateQueued marks chat with a transcription in progress
	ChatStateQueued = "queued"
)

type (

	//User table
	User struct {
		ID           int64
		TelegramID   int64
		Username     sql.NullString
		FirstName    sql.NullString
		LanguageCode string
		Balance      float64
		IsActive     bool
		IsAdmin      bool
		Created      time.Time
		Updated      time.Time
	}

	//Job is a transcription record
	Job struct {
		ID           string
		UserID       int64
		FileName     string
		FilePath     string
		Duration     float64
		Language     string
		Cost         int
		Status       string
		ResultText   sql.NullString
		ErrorMessage sql.NullString
		Created      time.Time
		Completed    sql.NullTime
	}

	//NewJob keeps data for a job insert
	NewJob struct {
		UserID   int64
		FileName string
		FilePath string
		Duration float64
		Language string
		Cost     int
	}

	//ChatState keeps conversation state for a chat
	ChatState struct {
		ChatID  int64
		State   string
		Updated time.Time
	}
)

// DisplayName returns the best name to greet the user
func (u *User) DisplayName() string {
	if u.FirstName.Valid && u.FirstName.String != "" {
		return u.FirstName.String
	}
	return u.Username.String
}
