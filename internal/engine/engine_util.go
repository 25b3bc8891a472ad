package engine

import (
	"image"
	"slices"

	"github.com/disintegration/imaging"
)

// TeamCount reports how many teams an asset of n layers holds, and whether n
// has the 3 + 4*T shape at all.
func TeamCount(n int) (int, bool) {
	rest := n - BaseLayerCount
	if rest < GroupSize || rest%GroupSize != 0 {
		return 0, false
	}
	return rest / GroupSize, true
}

// IDs returns the team IDs in ascending order.
func (g TeamGroups) IDs() []int {
	ids := make([]int, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (o ChunkOrder) String() string {
	switch o {
	case Ascending:
		return "ascending"
	default:
		return "descending"
	}
}

func ParseSeat(s string) (Seat, bool) {
	switch Seat(s) {
	case SeatEast, SeatSouth, SeatWest, SeatNorth:
		return Seat(s), true
	default:
		return "", false
	}
}

// NewLayer wraps any decoded image as a layer, copying it into NRGBA form
// anchored at the origin.
func NewLayer(name string, img image.Image) Layer {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return Layer{Name: name, Image: n}
	}
	return Layer{Name: name, Image: imaging.Clone(img)}
}
