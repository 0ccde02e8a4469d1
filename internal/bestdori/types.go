package bestdori

import (
	"encoding/json"
	"strconv"
)

// Localized holds one entry per server, null where a song is not released.
type Localized []*string

// At returns the entry for a server index.
func (l Localized) At(server int) (string, bool) {
	if server < 0 || server >= len(l) || nil == l[server] {
		return "", false
	}
	return *l[server], true
}

type Song struct {
	MusicTitle  Localized                  `json:"musicTitle"`
	BandID      int                        `json:"bandId"`
	BgmID       string                     `json:"bgmId"`
	JacketImage []string                   `json:"jacketImage"`
	Difficulty  map[string]json.RawMessage `json:"difficulty"`
}

// HasDifficulty reports whether the song has a chart at difficulty index d.
func (s *Song) HasDifficulty(d int) bool {
	_, ok := s.Difficulty[strconv.Itoa(d)]
	return ok
}

type Band struct {
	BandName Localized `json:"bandName"`
}

// Bands is keyed by band id.
type Bands map[string]Band
