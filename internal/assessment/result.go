package assessment

import "fmt"

// Result is a scored questionnaire. It is never stored server side.
type Result struct {
	Kind       Kind   `json:"type"`
	Score      int    `json:"score"`
	Max        int    `json:"max"`
	Band       string `json:"band"`
	ScoreLabel string `json:"-"`
	Advice     string `json:"-"`
}

// Summary renders the plain-text summary a user may copy, email, or share.
func (r Result) Summary() string {
	return fmt.Sprintf("%s: %d / %d — %s. %s", r.ScoreLabel, r.Score, r.Max, r.Band, r.Advice)
}
