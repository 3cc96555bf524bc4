package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickPhrase_NeverImmediatelyRepeats(t *testing.T) {
	prev := -1
	var phrase string
	for i := 0; i < 200; i++ {
		last := prev
		phrase, prev = PickPhrase("en", prev)
		assert.NotEmpty(t, phrase)
		if last >= 0 {
			assert.NotEqual(t, last, prev)
		}
	}
}

func TestPickPhrase_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	phrase, idx := PickPhrase("de", -1)
	assert.Contains(t, phrases["en"], phrase)
	assert.GreaterOrEqual(t, idx, 0)
}

func TestGreetingTitle(t *testing.T) {
	assert.Equal(t, "Hola Marta, recordatorio de entrenamiento", GreetingTitle("es", "Marta"))
	assert.Equal(t, "Hey athlete, workout reminder", GreetingTitle("en", ""))
}

func TestChallengeSuffix_FallsBack(t *testing.T) {
	assert.Equal(t, ChallengeSuffix("en"), ChallengeSuffix("fr"))
}
