package state

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/itsmrshow/foreman/internal/grid"
)

// PositionsDigest fingerprints an ordered position list so re-plans that
// pick the same tiles can be recognized.
func PositionsDigest(positions []grid.Tile) string {
	d := xxhash.New()
	buf := make([]byte, 0, 16)
	for _, p := range positions {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(p.X), 10)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(p.Y), 10)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
