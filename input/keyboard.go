package input

import (
	"bytes"
	"context"
	"github.com/jd3nn1s/scrdriver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
	"io"
	"sync"
	"time"
)

// DefaultHold is how long a key counts as held after its last press. Terminals
// do not report key release, so held keys are seen through auto-repeat.
const DefaultHold = 150 * time.Millisecond

// Keyboard reads key presses from a terminal.
type Keyboard struct {
	hold time.Duration
	now  func() time.Time

	mu      sync.Mutex
	pressed map[scrdriver.Intent]time.Time
}

func NewKeyboard(hold time.Duration) *Keyboard {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Keyboard{
		hold:    hold,
		now:     time.Now,
		pressed: map[scrdriver.Intent]time.Time{},
	}
}

// Run consumes key presses from r until it is exhausted or ctx is done.
func (k *Keyboard) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 16)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b == 3 {
				// ctrl-c is swallowed in raw mode
				return errors.New("interrupted")
			}
			k.press(b)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "unable to read keyboard")
		}
	}
}

func (k *Keyboard) press(b byte) {
	intent, ok := keyIntent(b)
	if !ok {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pressed[intent] = k.now()
}

func (k *Keyboard) PollIntent() scrdriver.Intent {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	intent := scrdriver.IntentNone
	for i, at := range k.pressed {
		if now.Sub(at) <= k.hold {
			intent |= i
		}
	}
	return intent
}

// RawTerminal puts the terminal into raw mode so key presses arrive without
// waiting for enter. The returned function restores the previous mode.
func RawTerminal(fd int) (func(), error) {
	if !term.IsTerminal(fd) {
		return nil, errors.New("not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "unable to enter raw mode")
	}
	return func() {
		if err := term.Restore(fd, state); err != nil {
			log.WithField("err", err).Warn("unable to restore terminal")
		}
	}, nil
}

// RawFormatter ends log lines with a carriage return so they start at the
// left margin while the terminal is in raw mode.
type RawFormatter struct {
	log.Formatter
}

func (f *RawFormatter) Format(entry *log.Entry) ([]byte, error) {
	out, err := f.Formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n")), nil
}
