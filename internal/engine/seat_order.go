package engine

type Seat string

const (
	SeatEast  Seat = "east"
	SeatSouth Seat = "south"
	SeatWest  Seat = "west"
	SeatNorth Seat = "north"
)

type Position string

const (
	PositionTop    Position = "top"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionBottom Position = "bottom"
)

type Placement struct {
	Seat        Seat
	Orientation int
	Position    Position
}

// SeatOrder is the paint order of the seat layers and the orientation each
// seat takes from its team's group. It follows the rotation the asset was
// authored with and must not be reordered.
var SeatOrder = []Placement{
	{Seat: SeatWest, Orientation: 1, Position: PositionTop},
	{Seat: SeatNorth, Orientation: 0, Position: PositionLeft},
	{Seat: SeatSouth, Orientation: 2, Position: PositionRight},
	{Seat: SeatEast, Orientation: 3, Position: PositionBottom},
}

// SeatAssignment maps each seat to a team ID. Two seats may share a team.
type SeatAssignment struct {
	East  int
	South int
	West  int
	North int
}

func (a SeatAssignment) Team(s Seat) int {
	switch s {
	case SeatEast:
		return a.East
	case SeatSouth:
		return a.South
	case SeatWest:
		return a.West
	case SeatNorth:
		return a.North
	default:
		return 0
	}
}

func (a *SeatAssignment) Set(s Seat, team int) bool {
	switch s {
	case SeatEast:
		a.East = team
	case SeatSouth:
		a.South = team
	case SeatWest:
		a.West = team
	case SeatNorth:
		a.North = team
	default:
		return false
	}
	return true
}
