package signup

import "github.com/trustelem/zxcvbn"

// PasswordScorer rates a password from 0 (guessable) to 4 (strong).
type PasswordScorer interface {
	Score(password string, userInputs []string) int
}

// ZxcvbnScorer scores with the zxcvbn 4.x guess model, the same one browsers
// run in the signup form.
type ZxcvbnScorer struct{}

func (ZxcvbnScorer) Score(password string, userInputs []string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
