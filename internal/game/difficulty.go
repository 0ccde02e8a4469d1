package game

import "fmt"

type Difficulty uint8

const (
	Easy Difficulty = iota
	Normal
	Hard
	Expert
	Special
)

var Difficulties = [...]string{"easy", "normal", "hard", "expert", "special"}

func (d Difficulty) String() string {
	if int(d) < len(Difficulties) {
		return Difficulties[d]
	}
	return fmt.Sprintf("difficulty(%d)", uint8(d))
}

func ParseDifficulty(name string) (Difficulty, error) {
	for i, n := range Difficulties {
		if n == name {
			return Difficulty(i), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", name)
}
