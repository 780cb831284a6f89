package letter

import (
	"math"
	"strings"
	"time"
)

// Stats summarizes a draft for the editor.
type Stats struct {
	Sections int `json:"sections"`
	Words    int `json:"words"`
	DueIn    int `json:"dueIn"` // whole days until the due date, never negative
}

// ComputeStats counts sections and the words of all section bodies and the
// notes. DueIn is 0 when the due date is missing, malformed or past.
func ComputeStats(p Payload, now time.Time) Stats {
	words := countWords(p.Notes)
	for _, s := range p.Sections {
		words += countWords(s.Body)
	}
	return Stats{
		Sections: len(p.Sections),
		Words:    words,
		DueIn:    daysUntil(p.Meta.DueDate, now),
	}
}

func countWords(text string) int { return len(strings.Fields(text)) }

func daysUntil(date string, now time.Time) int {
	due, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return 0
	}
	days := math.Ceil(due.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}
