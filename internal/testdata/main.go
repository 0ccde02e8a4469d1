package testdata

import (
	"git.lost.host/meutraa/lanecut/internal/game"
	"git.lost.host/meutraa/lanecut/internal/parser"
)

// A short 7 lane chart touching every note type. The center notes at beat 2
// and inside the slide exercise every placement rule.
const Chart7K = `[
  {"type": "System", "data": "bgm001.wav", "beat": 0},
  {"type": "BPM", "bpm": 120, "beat": 0},
  {"type": "Single", "lane": 3, "beat": 1},
  {"type": "Single", "lane": 2, "beat": 2, "skill": true},
  {"type": "Single", "lane": 4, "beat": 2},
  {"type": "Single", "lane": 3, "beat": 2},
  {"type": "Directional", "lane": 6, "beat": 3, "direction": "Right", "width": 1},
  {"type": "Long", "connections": [{"lane": 2, "beat": 4}, {"lane": 2, "beat": 6, "flick": true}]},
  {"type": "Single", "lane": 3, "beat": 5},
  {"type": "BPM", "bpm": 180.5, "beat": 6},
  {"type": "Slide", "connections": [{"lane": 3, "beat": 7}, {"lane": 3, "beat": 7.5, "hidden": true}, {"lane": 5, "beat": 8}]},
  {"type": "Single", "lane": 0, "beat": 8.25}
]`

// Expected 6 lane form of Chart7K, one note dropped.
const Chart6K = `[
  {"type": "System", "data": "bgm001.wav", "beat": 0},
  {"type": "BPM", "bpm": 120, "beat": 0},
  {"type": "Single", "lane": 2, "beat": 1},
  {"type": "Single", "lane": 2, "beat": 2, "skill": true},
  {"type": "Single", "lane": 3, "beat": 2},
  {"type": "Directional", "lane": 5, "beat": 3, "direction": "Right", "width": 1},
  {"type": "Long", "connections": [{"lane": 2, "beat": 4}, {"lane": 2, "beat": 6, "flick": true}]},
  {"type": "Single", "lane": 3, "beat": 5},
  {"type": "BPM", "bpm": 180.5, "beat": 6},
  {"type": "Slide", "connections": [{"lane": 2, "beat": 7}, {"lane": 2, "beat": 7.5, "hidden": true}, {"lane": 4, "beat": 8}]},
  {"type": "Single", "lane": 0, "beat": 8.25}
]`

const Chart7KDropped = 1

func GetChart() (*game.Chart, error) {
	p := parser.DefaultParser{}
	return p.Parse([]byte(Chart7K))
}
