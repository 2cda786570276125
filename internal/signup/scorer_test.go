package signup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZxcvbnScorer(t *testing.T) {
	var scorer ZxcvbnScorer

	assert.Less(t, scorer.Score("password", nil), 2)
	assert.Less(t, scorer.Score("a@b.com", []string{"a@b.com"}), 2)
	assert.GreaterOrEqual(t, scorer.Score("q7#Vz!9pLm@2Xw", nil), 3)
}

func TestZxcvbnScorerAcceptsSignupExample(t *testing.T) {
	var scorer ZxcvbnScorer

	assert.GreaterOrEqual(t, scorer.Score("Str0ng!Pass", []string{"a@b.com"}), defaultMinPasswordScore)
	assert.GreaterOrEqual(t, scorer.Score("Str0ng!Pass", nil), defaultMinPasswordScore)
}
