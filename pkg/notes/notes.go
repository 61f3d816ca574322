package notes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

type Note struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Updated int64  `json:"updated"`
}

// NewNote builds a note with a fresh id and updated = now.
func NewNote(title string, content string) *Note {
	return &Note{
		ID:      NewID(),
		Title:   title,
		Content: content,
		Updated: Now(),
	}
}

// Now is the note timestamp clock: milliseconds since epoch.
func Now() int64 {
	return time.Now().UnixMilli()
}

// NewID generates a best-effort unique id: base36 millisecond timestamp plus
// a 5-character random base36 suffix. Uniqueness only matters within a single
// local collection, so collisions are tolerated as vanishingly unlikely
// rather than impossible.
func NewID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return ts + randomSuffix(5)
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	suffix := make([]byte, n)
	for i := range suffix {
		x, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			suffix[i] = idAlphabet[time.Now().UnixNano()%int64(len(idAlphabet))]
			continue
		}
		suffix[i] = idAlphabet[x.Int64()]
	}
	return string(suffix)
}

func (n *Note) String() string {
	return fmt.Sprintf("[%s] %s (updated: %s)", n.ID, n.Title, time.UnixMilli(n.Updated).Format(time.RFC3339))
}
