package models

import (
	"time"

	"gorm.io/gorm"
)

// Round 表示比賽中的一個回合：雙方各自陳述、質詢、答覆，最後進入投票
type Round struct {
	gorm.Model
	MatchID     uint  `gorm:"not null;uniqueIndex:idx_round_match_number" json:"match_id"`
	RoundNumber int   `gorm:"not null;uniqueIndex:idx_round_match_number" json:"round_number"`
	Phase       Phase `gorm:"type:varchar(32);not null;index" json:"phase"`

	StatementA string   `gorm:"type:text" json:"statement_a,omitempty"`
	QuestionsB []string `gorm:"serializer:json;type:text" json:"questions_b,omitempty"`
	ReplyA     string   `gorm:"type:text" json:"reply_a,omitempty"`
	StatementB string   `gorm:"type:text" json:"statement_b,omitempty"`
	QuestionsA []string `gorm:"serializer:json;type:text" json:"questions_a,omitempty"`
	ReplyB     string   `gorm:"type:text" json:"reply_b,omitempty"`

	VotingDeadline *time.Time `gorm:"index" json:"voting_deadline,omitempty"`
	WinnerSide     *Outcome   `gorm:"type:varchar(8)" json:"winner_side,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// ContentColumn 回傳階段對應的內容欄位名稱
func ContentColumn(p Phase) (string, bool) {
	switch p {
	case PhaseWaitAStatement:
		return "statement_a", true
	case PhaseWaitBQuestions:
		return "questions_b", true
	case PhaseWaitAReply:
		return "reply_a", true
	case PhaseWaitBStatement:
		return "statement_b", true
	case PhaseWaitAQuestions:
		return "questions_a", true
	case PhaseWaitBReply:
		return "reply_b", true
	default:
		return "", false
	}
}

// SetContent 將內容寫入階段對應的欄位
func (r *Round) SetContent(p Phase, text string, questions []string) {
	switch p {
	case PhaseWaitAStatement:
		r.StatementA = text
	case PhaseWaitBQuestions:
		r.QuestionsB = questions
	case PhaseWaitAReply:
		r.ReplyA = text
	case PhaseWaitBStatement:
		r.StatementB = text
	case PhaseWaitAQuestions:
		r.QuestionsA = questions
	case PhaseWaitBReply:
		r.ReplyB = text
	}
}

func (r *Round) CanAcceptVotes() bool {
	return r.Phase == PhaseWaitVoting
}

func (r *Round) IsClosed() bool {
	return r.Phase.IsTerminal()
}
