package input

import (
	"github.com/jd3nn1s/scrdriver"
)

var keyIntents = map[byte]scrdriver.Intent{
	'w': scrdriver.IntentAccelerate,
	's': scrdriver.IntentBrake,
	'a': scrdriver.IntentSteerLeft,
	'd': scrdriver.IntentSteerRight,
}

func keyIntent(b byte) (scrdriver.Intent, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	i, ok := keyIntents[b]
	return i, ok
}

// ParseKeys returns the intent for a string of held keys such as "wa".
// Unknown characters are ignored.
func ParseKeys(s string) scrdriver.Intent {
	intent := scrdriver.IntentNone
	for i := 0; i < len(s); i++ {
		if k, ok := keyIntent(s[i]); ok {
			intent |= k
		}
	}
	return intent
}

// Fixed always reports the same intent.
type Fixed scrdriver.Intent

func (f Fixed) PollIntent() scrdriver.Intent {
	return scrdriver.Intent(f)
}
