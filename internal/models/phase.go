package models

import "fmt"

// Side 代表辯論中的一方
type Side string

const (
	SideA Side = "A" // 正方
	SideB Side = "B" // 反方
)

// Valid 檢查是否為合法的一方
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Opponent 回傳對手方
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Phase 回合內的階段
type Phase string

const (
	PhaseWaitAStatement Phase = "WAIT_A_STATEMENT"
	PhaseWaitBQuestions Phase = "WAIT_B_QUESTIONS"
	PhaseWaitAReply     Phase = "WAIT_A_REPLY"
	PhaseWaitBStatement Phase = "WAIT_B_STATEMENT"
	PhaseWaitAQuestions Phase = "WAIT_A_QUESTIONS"
	PhaseWaitBReply     Phase = "WAIT_B_REPLY"
	PhaseWaitVoting     Phase = "WAIT_VOTING"
	PhaseVotingClosed   Phase = "VOTING_CLOSED"
	PhaseRoundResult    Phase = "ROUND_RESULT"
)

// ContentKind 內容階段要求提交的內容種類
type ContentKind string

const (
	ContentStatement ContentKind = "statement"
	ContentQuestions ContentKind = "questions"
	ContentReply     ContentKind = "reply"
)

// ContentPhases 依序列出所有內容提交階段
var ContentPhases = []Phase{
	PhaseWaitAStatement,
	PhaseWaitBQuestions,
	PhaseWaitAReply,
	PhaseWaitBStatement,
	PhaseWaitAQuestions,
	PhaseWaitBReply,
}

// Next 回傳內容階段的下一個階段。投票與結束階段沒有由內容提交觸發的下一步。
func (p Phase) Next() (Phase, error) {
	switch p {
	case PhaseWaitAStatement:
		return PhaseWaitBQuestions, nil
	case PhaseWaitBQuestions:
		return PhaseWaitAReply, nil
	case PhaseWaitAReply:
		return PhaseWaitBStatement, nil
	case PhaseWaitBStatement:
		return PhaseWaitAQuestions, nil
	case PhaseWaitAQuestions:
		return PhaseWaitBReply, nil
	case PhaseWaitBReply:
		return PhaseWaitVoting, nil
	case PhaseWaitVoting, PhaseVotingClosed, PhaseRoundResult:
		return "", fmt.Errorf("phase %s does not advance by content", p)
	default:
		return "", fmt.Errorf("unknown phase %q", string(p))
	}
}

// Actor 回傳該階段應提交內容的一方
func (p Phase) Actor() (Side, bool) {
	switch p {
	case PhaseWaitAStatement, PhaseWaitAReply, PhaseWaitAQuestions:
		return SideA, true
	case PhaseWaitBQuestions, PhaseWaitBStatement, PhaseWaitBReply:
		return SideB, true
	default:
		return "", false
	}
}

// Content 回傳該階段要求的內容種類
func (p Phase) Content() (ContentKind, bool) {
	switch p {
	case PhaseWaitAStatement, PhaseWaitBStatement:
		return ContentStatement, true
	case PhaseWaitBQuestions, PhaseWaitAQuestions:
		return ContentQuestions, true
	case PhaseWaitAReply, PhaseWaitBReply:
		return ContentReply, true
	default:
		return "", false
	}
}

// IsContent 是否為內容提交階段
func (p Phase) IsContent() bool {
	_, ok := p.Actor()
	return ok
}

// IsTerminal 回合是否已結束
func (p Phase) IsTerminal() bool {
	return p == PhaseVotingClosed || p == PhaseRoundResult
}

// Valid 是否為已知階段
func (p Phase) Valid() bool {
	return p.IsContent() || p == PhaseWaitVoting || p.IsTerminal()
}

// Outcome 回合結果
type Outcome string

const (
	OutcomeA    Outcome = "A"
	OutcomeB    Outcome = "B"
	OutcomeDraw Outcome = "DRAW"
)

// WinningSide 回傳勝方，平手時 ok 為 false
func (o Outcome) WinningSide() (Side, bool) {
	switch o {
	case OutcomeA:
		return SideA, true
	case OutcomeB:
		return SideB, true
	default:
		return "", false
	}
}

// OutcomeFor 將勝方轉成回合結果
func OutcomeFor(s Side) Outcome {
	if s == SideA {
		return OutcomeA
	}
	return OutcomeB
}
