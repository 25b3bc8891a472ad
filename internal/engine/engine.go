package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	// BaseLayerCount is the number of non-team layers at the front of every asset.
	BaseLayerCount = 3
	// GroupSize is the number of orientation layers per team.
	GroupSize = 4
)

var ErrEmptyStack = errors.New("empty layer stack")

type Layer struct {
	Name  string
	Image *image.NRGBA
}

func (l Layer) Size() image.Point { return l.Image.Bounds().Size() }

type BaseLayers struct {
	Backdrop       Layer
	Mat            Layer
	TechnicalLines Layer
}

// TeamGroup holds one team's layers indexed by orientation.
type TeamGroup [GroupSize]Layer

type TeamGroups map[int]TeamGroup

// ChunkOrder declares how team IDs are assigned to the 4-layer chunks that
// follow the base layers. The shipped asset is authored Descending: the first
// chunk belongs to the highest team ID.
type ChunkOrder int

const (
	Descending ChunkOrder = iota
	Ascending
)

type MalformedAssetError struct {
	Layers int
}

func (e *MalformedAssetError) Error() string {
	return fmt.Sprintf("malformed asset: %d layers is not %d + %d*T for any T >= 1",
		e.Layers, BaseLayerCount, GroupSize)
}

type UnknownTeamError struct {
	TeamID int
	Seat   Seat
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %d assigned to %s seat", e.TeamID, e.Seat)
}

type LayerSizeMismatchError struct {
	Layer string
	Want  image.Point
	Got   image.Point
}

func (e *LayerSizeMismatchError) Error() string {
	return fmt.Sprintf("layer %q is %dx%d, canvas is %dx%d",
		e.Layer, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// Index splits a flat layer list into the base layers and the per-team groups.
func Index(layers []Layer, order ChunkOrder) (BaseLayers, TeamGroups, error) {
	teams, ok := TeamCount(len(layers))
	if !ok {
		return BaseLayers{}, nil, &MalformedAssetError{Layers: len(layers)}
	}

	base := BaseLayers{
		Backdrop:       layers[0],
		Mat:            layers[1],
		TechnicalLines: layers[2],
	}

	groups := make(TeamGroups, teams)
	for chunk := range teams {
		start := BaseLayerCount + chunk*GroupSize
		var g TeamGroup
		copy(g[:], layers[start:start+GroupSize])
		groups[order.TeamID(chunk, teams)] = g
	}
	return base, groups, nil
}

// TeamID returns the team that owns the given zero-based chunk.
func (o ChunkOrder) TeamID(chunk, teams int) int {
	if o == Ascending {
		return chunk + 1
	}
	return teams - chunk
}

// BaseStack returns the bottom of the paint stack: the background (override
// or mat), the backdrop and, when requested, the technical lines.
func BaseStack(base BaseLayers, override *image.NRGBA, technicalLines bool) []Layer {
	background := base.Mat
	if override != nil {
		background = Layer{Name: "background override", Image: override}
	}

	stack := []Layer{background, base.Backdrop}
	if technicalLines {
		stack = append(stack, base.TechnicalLines)
	}
	return stack
}

// SeatLayers picks one layer per seat, in paint order, following SeatOrder.
func SeatLayers(groups TeamGroups, seats SeatAssignment) ([]Layer, error) {
	layers := make([]Layer, 0, len(SeatOrder))
	for _, p := range SeatOrder {
		id := seats.Team(p.Seat)
		g, ok := groups[id]
		if !ok {
			return nil, &UnknownTeamError{TeamID: id, Seat: p.Seat}
		}
		layers = append(layers, g[p.Orientation])
	}
	return layers, nil
}

// Flatten paints layers bottom to top onto an opaque black canvas the size of
// the first layer. Every layer is drawn at (0,0) through its own alpha.
func Flatten(layers []Layer) (*image.RGBA, error) {
	if len(layers) == 0 {
		return nil, ErrEmptyStack
	}

	size := layers[0].Size()
	bounds := image.Rectangle{Max: size}
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, l := range layers {
		if got := l.Size(); got != size {
			return nil, &LayerSizeMismatchError{Layer: l.Name, Want: size, Got: got}
		}
		draw.Draw(canvas, bounds, l.Image, l.Image.Bounds().Min, draw.Over)
	}
	return canvas, nil
}

// Compose resolves the full paint stack and flattens it.
func Compose(base BaseLayers, groups TeamGroups, seats SeatAssignment, override *image.NRGBA, technicalLines bool) (*image.RGBA, error) {
	seatLayers, err := SeatLayers(groups, seats)
	if err != nil {
		return nil, err
	}
	stack := append(BaseStack(base, override, technicalLines), seatLayers...)
	return Flatten(stack)
}
