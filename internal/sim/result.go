package sim

import "ballfield/server/internal/field"

// Winner is RED, BLUE or TIE.
type Winner string

const (
	WinnerRed  Winner = Winner(field.TeamRed)
	WinnerBlue Winner = Winner(field.TeamBlue)
	WinnerTie  Winner = "TIE"
)

// Result is the end-of-match outcome.
type Result struct {
	Winner    Winner `json:"winner"`
	ScoreRed  int    `json:"scoreRed"`
	ScoreBlue int    `json:"scoreBlue"`
}

func decideWinner(red, blue int) Winner {
	switch {
	case red > blue:
		return WinnerRed
	case blue > red:
		return WinnerBlue
	default:
		return WinnerTie
	}
}

// Stats counts notable events over the lifetime of the current match.
type Stats struct {
	Ticks          int `json:"ticks"`
	Shots          int `json:"shots"`
	ScoresRed      int `json:"scoresRed"`
	ScoresBlue     int `json:"scoresBlue"`
	RejectedScores int `json:"rejectedScores"`
	Deposits       int `json:"deposits"`
	LostBalls      int `json:"lostBalls"`
	Collected      int `json:"collected"`
	Dropped        int `json:"dropped"`
	Replans        int `json:"replans"`
	ModeSwitches   int `json:"modeSwitches"`
}
