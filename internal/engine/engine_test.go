package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 8

func solid(name string, c color.NRGBA) Layer {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return Layer{Name: name, Image: img}
}

// dot is a transparent layer with a single pixel painted.
func dot(name string, x, y int, c color.NRGBA) Layer {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	img.SetNRGBA(x, y, c)
	return Layer{Name: name, Image: img}
}

func newAsset(teams int) []Layer {
	layers := []Layer{
		dot("backdrop", 0, 0, color.NRGBA{G: 255, A: 255}),
		solid("mat", color.NRGBA{R: 255, A: 255}),
		dot("technical lines", 1, 0, color.NRGBA{B: 255, A: 255}),
	}
	for chunk := range teams {
		for o := range GroupSize {
			layers = append(layers, dot(fmt.Sprintf("chunk%d/o%d", chunk, o), 7, 7, color.NRGBA{A: 255}))
		}
	}
	return layers
}

func TestIndex_DescendingAssignsHighestTeamFirst(t *testing.T) {
	for teams := 1; teams <= 6; teams++ {
		t.Run(fmt.Sprintf("T=%d", teams), func(t *testing.T) {
			layers := newAsset(teams)

			base, groups, err := Index(layers, Descending)
			require.NoError(t, err)
			require.Len(t, groups, teams)

			assert.Equal(t, "backdrop", base.Backdrop.Name)
			assert.Equal(t, "mat", base.Mat.Name)
			assert.Equal(t, "technical lines", base.TechnicalLines.Name)

			for o := range GroupSize {
				assert.Equal(t, layers[3+o].Name, groups[teams][o].Name, "team T comes from layers [3..7)")
				assert.Equal(t, layers[len(layers)-GroupSize+o].Name, groups[1][o].Name, "team 1 comes from the last 4 layers")
			}
		})
	}
}

func TestIndex_AscendingIsTheMirror(t *testing.T) {
	layers := newAsset(3)

	_, groups, err := Index(layers, Ascending)
	require.NoError(t, err)

	assert.Equal(t, "chunk0/o0", groups[1][0].Name)
	assert.Equal(t, "chunk2/o3", groups[3][3].Name)
}

func TestChunkOrder_TeamID(t *testing.T) {
	cases := []struct {
		order ChunkOrder
		chunk int
		teams int
		want  int
	}{
		{Descending, 0, 15, 15},
		{Descending, 14, 15, 1},
		{Descending, 3, 5, 2},
		{Ascending, 0, 15, 1},
		{Ascending, 14, 15, 15},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%d-of-%d", tc.order, tc.chunk, tc.teams), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.order.TeamID(tc.chunk, tc.teams))
		})
	}
}

func TestIndex_RejectsMalformedLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 5, 6, 8, 9, 10, 12, 62} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			layers := make([]Layer, n)

			_, _, err := Index(layers, Descending)

			var malformed *MalformedAssetError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, n, malformed.Layers)
		})
	}
}

func TestSeatLayers_SameTeamEverySeat(t *testing.T) {
	_, groups, err := Index(newAsset(5), Descending)
	require.NoError(t, err)

	seats := SeatAssignment{West: 5, North: 5, South: 5, East: 5}
	layers, err := SeatLayers(groups, seats)
	require.NoError(t, err)
	require.Len(t, layers, 4)

	assert.Equal(t, groups[5][1].Name, layers[0].Name) // west, top
	assert.Equal(t, groups[5][0].Name, layers[1].Name) // north, left
	assert.Equal(t, groups[5][2].Name, layers[2].Name) // south, right
	assert.Equal(t, groups[5][3].Name, layers[3].Name) // east, bottom
}

func TestSeatLayers_UnknownTeam(t *testing.T) {
	_, groups, err := Index(newAsset(4), Descending)
	require.NoError(t, err)

	cases := []struct {
		name  string
		seats SeatAssignment
		seat  Seat
		team  int
	}{
		{"zero on east", SeatAssignment{East: 0, South: 1, West: 2, North: 3}, SeatEast, 0},
		{"above range on north", SeatAssignment{East: 1, South: 1, West: 1, North: 5}, SeatNorth, 5},
		{"negative on west", SeatAssignment{East: 1, South: 1, West: -1, North: 1}, SeatWest, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SeatLayers(groups, tc.seats)

			var unknown *UnknownTeamError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, tc.team, unknown.TeamID)
			assert.Equal(t, tc.seat, unknown.Seat)
		})
	}
}

func TestBaseStack(t *testing.T) {
	base, _, err := Index(newAsset(1), Descending)
	require.NoError(t, err)
	override := solid("custom", color.NRGBA{R: 1, G: 2, B: 3, A: 255}).Image

	t.Run("mat without lines", func(t *testing.T) {
		stack := BaseStack(base, nil, false)
		require.Len(t, stack, 2)
		assert.Equal(t, "mat", stack[0].Name)
		assert.Equal(t, "backdrop", stack[1].Name)
	})

	t.Run("override with lines", func(t *testing.T) {
		stack := BaseStack(base, override, true)
		require.Len(t, stack, 3)
		assert.Same(t, override, stack[0].Image)
		assert.Equal(t, "backdrop", stack[1].Name)
		assert.Equal(t, "technical lines", stack[2].Name)
	})
}

func TestCompose_PaintOrder(t *testing.T) {
	layers := newAsset(2)
	_, groups, err := Index(layers, Descending)
	require.NoError(t, err)

	// Every seat layer paints pixel (2,0); only the topmost (east) survives.
	// Pixel (3,0) is painted by the west layer alone.
	colors := map[Seat]color.NRGBA{
		SeatWest:  {R: 10, A: 255},
		SeatNorth: {R: 20, A: 255},
		SeatSouth: {R: 30, A: 255},
		SeatEast:  {R: 40, A: 255},
	}
	seats := SeatAssignment{East: 1, South: 2, West: 1, North: 2}
	for _, p := range SeatOrder {
		img := groups[seats.Team(p.Seat)][p.Orientation].Image
		img.SetNRGBA(2, 0, colors[p.Seat])
		if p.Seat == SeatWest {
			img.SetNRGBA(3, 0, color.NRGBA{G: 99, A: 255})
		}
	}

	base, _, err := Index(layers, Descending)
	require.NoError(t, err)
	out, err := Compose(base, groups, seats, nil, true)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(0, 0), "backdrop over mat")
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(1, 0), "technical lines")
	assert.Equal(t, color.RGBA{R: 40, A: 255}, out.RGBAAt(2, 0), "east paints last")
	assert.Equal(t, color.RGBA{G: 99, A: 255}, out.RGBAAt(3, 0), "west only")
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(4, 4), "mat shows through")

	withoutLines, err := Compose(base, groups, seats, nil, false)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, withoutLines.RGBAAt(1, 0))
}

func TestCompose_OverrideReplacesMat(t *testing.T) {
	base, groups, err := Index(newAsset(1), Descending)
	require.NoError(t, err)
	override := solid("custom", color.NRGBA{B: 200, A: 255}).Image
	seats := SeatAssignment{East: 1, South: 1, West: 1, North: 1}

	out, err := Compose(base, groups, seats, override, false)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{B: 200, A: 255}, out.RGBAAt(4, 4))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, base.Mat.Image.NRGBAAt(4, 4), "mat layer is untouched")
}

func TestCompose_IsDeterministic(t *testing.T) {
	base, groups, err := Index(newAsset(3), Descending)
	require.NoError(t, err)
	seats := SeatAssignment{East: 1, South: 2, West: 3, North: 1}

	first, err := Compose(base, groups, seats, nil, true)
	require.NoError(t, err)
	second, err := Compose(base, groups, seats, nil, true)
	require.NoError(t, err)

	assert.Equal(t, first.Pix, second.Pix)
}

func TestFlatten_BlendsThroughAlphaAndStaysOpaque(t *testing.T) {
	bg := solid("white", color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	half := solid("half black", color.NRGBA{A: 128})
	transparent := solid("clear", color.NRGBA{R: 255})

	out, err := Flatten([]Layer{bg, half, transparent})
	require.NoError(t, err)

	px := out.RGBAAt(0, 0)
	assert.InDelta(t, 127, int(px.R), 1)
	assert.InDelta(t, 127, int(px.G), 1)
	assert.InDelta(t, 127, int(px.B), 1)
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(255), out.Pix[i])
	}
}

func TestFlatten_TransparentBackgroundIsBlack(t *testing.T) {
	out, err := Flatten([]Layer{solid("empty", color.NRGBA{})})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(0, 0))
}

func TestFlatten_SizeMismatch(t *testing.T) {
	small := Layer{Name: "small", Image: image.NewNRGBA(image.Rect(0, 0, 4, 4))}

	_, err := Flatten([]Layer{solid("bg", color.NRGBA{A: 255}), small})

	var mismatch *LayerSizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "small", mismatch.Layer)
	assert.Equal(t, image.Pt(size, size), mismatch.Want)
	assert.Equal(t, image.Pt(4, 4), mismatch.Got)
}

func TestFlatten_Empty(t *testing.T) {
	_, err := Flatten(nil)
	if !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("want ErrEmptyStack, got %v", err)
	}
}

func TestParseSeat(t *testing.T) {
	cases := []struct {
		in   string
		want Seat
		ok   bool
	}{
		{"east", SeatEast, true},
		{"north", SeatNorth, true},
		{"North", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSeat(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseSeat(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewLayer_NormalizesToOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 9, 9))
	src.Set(5, 5, color.RGBA{R: 255, A: 255})

	l := NewLayer("shifted", src)

	assert.Equal(t, image.Rect(0, 0, 4, 4), l.Image.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, l.Image.NRGBAAt(0, 0))
}
