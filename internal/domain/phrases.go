package domain

import (
	"fmt"
	"math/rand"
)

// Motivational phrase tables per language. English is the fallback.
var phrases = map[string][]string{
	"en": {
		"Your workout starts in an hour. Time to get ready!",
		"One hour to go. Lace up!",
		"Training in 60 minutes. You've got this!",
		"Almost gym time. Grab your bottle and go!",
		"An hour from now you'll be glad you showed up.",
	},
	"es": {
		"Tu entrenamiento empieza en una hora. ¡Prepárate!",
		"Queda una hora. ¡A por ello!",
		"Entrenas en 60 minutos. ¡Tú puedes!",
		"Casi es hora de entrenar. ¡Coge la botella y vamos!",
		"Dentro de una hora te alegrarás de haber ido.",
	},
	"ca": {
		"El teu entrenament comença d'aquí a una hora. Prepara't!",
		"Queda una hora. Som-hi!",
		"Entrenes d'aquí a 60 minuts. Tu pots!",
		"Gairebé és hora d'entrenar. Agafa l'ampolla i anem!",
		"D'aquí a una hora t'alegraràs d'haver-hi anat.",
	},
}

var challengeSuffix = map[string]string{
	"en": " You also have an open challenge workout waiting.",
	"es": " También tienes un reto de entrenamiento pendiente.",
	"ca": " També tens un repte d'entrenament pendent.",
}

var greetings = map[string]string{
	"en": "Hey %s, workout reminder",
	"es": "Hola %s, recordatorio de entrenamiento",
	"ca": "Hola %s, recordatori d'entrenament",
}

func normalizeLang(lang string) string {
	if _, ok := phrases[lang]; ok {
		return lang
	}
	return "en"
}

// PickPhrase returns a motivational phrase for lang plus the index it used,
// avoiding an immediate repeat of prev. Callers thread the returned index
// into the next call; pass a negative prev on the first call.
func PickPhrase(lang string, prev int) (string, int) {
	table := phrases[normalizeLang(lang)]
	idx := rand.Intn(len(table))
	if idx == prev && len(table) > 1 {
		idx = (idx + 1) % len(table)
	}
	return table[idx], idx
}

// GreetingTitle builds the notification title for a user's language.
func GreetingTitle(lang, firstName string) string {
	if firstName == "" {
		firstName = "athlete"
	}
	return fmt.Sprintf(greetings[normalizeLang(lang)], firstName)
}

// ChallengeSuffix returns the "open challenge" tail for the message body.
func ChallengeSuffix(lang string) string {
	return challengeSuffix[normalizeLang(lang)]
}
