package storage

import "time"

// StudyMode selects which question flow an account receives.
type StudyMode string

// Study modes
const (
	StudyModeDaily  StudyMode = "daily"
	StudyModeWeekly StudyMode = "weekly"
)

// Valid reports whether m is a known study mode.
func (m StudyMode) Valid() bool {
	return m == StudyModeDaily || m == StudyModeWeekly
}

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Chat platforms
const (
	PlatformKakao = "kakao"
	PlatformLINE  = "line"
)

// WeeklySlots is the number of quizzes in one week.
const WeeklySlots = 7

// Account is the unit that owns answers, totals and preferences.
// Temporary accounts are created for chat identities that have not been
// linked to a web login yet.
type Account struct {
	ID            int64      `json:"id"`
	ExternalID    string     `json:"external_id,omitempty"` // "kakao:<id>" for OAuth accounts, empty for temporary ones
	Nickname      string     `json:"nickname"`
	Role          string     `json:"role"`
	Subscribed    bool       `json:"subscribed"`
	StudyMode     StudyMode  `json:"study_mode"`
	AnsweredCount int        `json:"answered_count"`
	CorrectCount  int        `json:"correct_count"`
	IsTemporary   bool       `json:"is_temporary"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the account has the admin role.
func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// ChatIdentity binds a platform-scoped chat user to an account.
type ChatIdentity struct {
	ID                int64     `json:"id"`
	Platform          string    `json:"platform"`
	ChannelUserID     string    `json:"channel_user_id"`
	AccountID         int64     `json:"account_id"`
	IsTemporary       bool      `json:"is_temporary"`
	LinkCode          string    `json:"-"`
	LinkCodeExpiresAt time.Time `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// Question is a multiple-choice question in the pool.
type Question struct {
	ID           int64     `json:"id"`
	Category     string    `json:"category"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  string    `json:"explanation"`
	Difficulty   int       `json:"difficulty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// DailyQuestion is a question published for a calendar day. Rows are immutable.
type DailyQuestion struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"question_id"`
	PublishDate string    `json:"publish_date"` // YYYY-MM-DD in the service timezone
	SentAt      time.Time `json:"sent_at"`
	Question    Question  `json:"question"`
}

// Response is an account's answer to a daily question.
type Response struct {
	AccountID       int64     `json:"account_id"`
	DailyQuestionID int64     `json:"daily_question_id"`
	SelectedIndex   int       `json:"selected_index"`
	IsCorrect       bool      `json:"is_correct"`
	CreatedAt       time.Time `json:"created_at"`
}

// WeeklyQuiz is one of the seven slots of a week.
type WeeklyQuiz struct {
	ID           int64    `json:"id"`
	WeekNumber   int      `json:"week_number"`
	QuizNumber   int      `json:"quiz_number"` // 1..WeeklySlots
	Category     string   `json:"category"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// WeeklyResponse is an account's answer to a weekly quiz slot.
type WeeklyResponse struct {
	AccountID     int64     `json:"account_id"`
	WeeklyQuizID  int64     `json:"weekly_quiz_id"`
	QuizNumber    int       `json:"quiz_number"`
	SelectedIndex int       `json:"selected_index"`
	IsCorrect     bool      `json:"is_correct"`
	CreatedAt     time.Time `json:"created_at"`
}

// WeeklySummary aggregates an account's results for one week.
type WeeklySummary struct {
	WeekNumber int `json:"week_number"`
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Correct    int `json:"correct"`
}

// Accuracy returns the correct ratio in percent, 0 when nothing was answered.
func (s WeeklySummary) Accuracy() float64 {
	return accuracy(s.Correct, s.Answered)
}

// AccountStats is the stats view shown to users.
type AccountStats struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Streak   int `json:"streak"`
}

// Accuracy returns the correct ratio in percent.
func (s AccountStats) Accuracy() float64 {
	return accuracy(s.Correct, s.Answered)
}

// QuestionStats counts responses to one daily question.
type QuestionStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Subscriber is a delivery target for the daily notification.
type Subscriber struct {
	AccountID     int64
	Platform      string
	ChannelUserID string
}

// StoredToken is a persisted OAuth credential.
type StoredToken struct {
	Key          string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

func accuracy(correct, answered int) float64 {
	if answered == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(answered)
}
