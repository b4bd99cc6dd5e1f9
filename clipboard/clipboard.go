package clipboard

import (
	"errors"
	"strings"

	cb "github.com/atotto/clipboard"
)

var (
	ErrUnsupported = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")
	ErrEmpty       = errors.New("nothing to copy")
)

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

// Copy puts a transcript on the system clipboard. Blank text is refused so a
// silent memo never wipes what the user had copied.
func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmpty
	}
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}
