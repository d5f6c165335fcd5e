package components

import (
	"github.com/Rorical/zoltar/ui/styles"
)

// frames of the fortune teller; the crystal ball brightens from 0 to 4
var oracleFrames = [...]string{
	`    .-"""-.
   /  o o  \
   \   ~   /
    '-._.-'
   (   .   )
  ___'---'___`,
	`    .-"""-.
   /  o o  \
   \   ~   /
    '-._.-'
   (  .:.  )
  ___'---'___`,
	`    .-"""-.
   /  O O  \
   \   o   /
    '-._.-'
   ( .:*:. )
  ___'---'___`,
	`    .-"""-.
   /  O O  \
   \   o   /
    '-._.-'
   (.:*#*:.)
  ___'---'___`,
	`  * .-"""-. *
   /  @ @  \
   \   O   /
    '-._.-'
   (:*###*:)
  ___'---'___`,
}

// OracleFrameCount is the number of distinct sprite frames
const OracleFrameCount = len(oracleFrames)

func RenderOracle(frame int) string {
	if frame < 0 || frame >= len(oracleFrames) {
		frame = 0
	}
	return styles.OracleSpriteStyle(frame).Render(oracleFrames[frame])
}
