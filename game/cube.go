package game

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// 2x2x2 pocket cube. The DBL corner is held fixed, which pins the whole-cube
// rotation and leaves 7 movable corners; the 6 actions are quarter turns of
// the three faces that do not touch the fixed corner.
const (
	MoveU = iota
	MoveUPrime
	MoveR
	MoveRPrime
	MoveF
	MoveFPrime

	NumMoves = 6

	// NumCorners movable corners, each in one of 3 orientations.
	NumCorners      = 7
	NumOrientations = 3

	// FeatureDim is the one-hot encoding width: per slot, which of the 7
	// pieces sits there and in which of its 3 twists.
	FeatureDim = NumCorners * NumCorners * NumOrientations
)

// Corner slot order: URF, UFL, ULB, UBR, DFR, DLF, DRB.

// Replaced-by permutation tables for the clockwise face turns: after the
// move, slot i holds the piece that was in slot moveSrc[face][i].
var moveSrc = [3][NumCorners]int{
	{3, 0, 1, 2, 4, 5, 6}, // U
	{4, 1, 2, 0, 6, 5, 3}, // R
	{1, 5, 2, 3, 0, 4, 6}, // F
}

// Twist added to the piece arriving in slot i, mod 3.
var moveTwist = [3][NumCorners]uint8{
	{0, 0, 0, 0, 0, 0, 0}, // U
	{2, 0, 0, 1, 1, 0, 2}, // R
	{1, 2, 0, 0, 2, 1, 0}, // F
}

var moveNames = [NumMoves]string{"U", "U'", "R", "R'", "F", "F'"}

// MoveName returns the face-turn notation for an action index.
func MoveName(action int) string {
	if action < 0 || action >= NumMoves {
		return fmt.Sprintf("?%d", action)
	}
	return moveNames[action]
}

// InverseMove returns the action that undoes the given action.
func InverseMove(action int) int {
	if action%2 == 0 {
		return action + 1
	}
	return action - 1
}

// CubeState holds, for each corner slot, which piece occupies it and the
// piece's twist. The zero value is the solved cube.
type CubeState struct {
	Perm  [NumCorners]uint8
	Twist [NumCorners]uint8
}

// SolvedState returns the goal configuration.
func SolvedState() CubeState {
	var s CubeState
	for i := range s.Perm {
		s.Perm[i] = uint8(i)
	}
	return s
}

// Solved reports whether every piece is home and untwisted.
func (s CubeState) Solved() bool {
	for i := 0; i < NumCorners; i++ {
		if s.Perm[i] != uint8(i) || s.Twist[i] != 0 {
			return false
		}
	}
	return true
}

// Apply returns the state after one action. The receiver is unchanged.
func (s CubeState) Apply(action int) CubeState {
	if action < 0 || action >= NumMoves {
		panic(fmt.Sprintf("cube action out of range: %d", action))
	}
	face := action / 2
	turns := 1
	if action%2 == 1 { // counter-clockwise = three clockwise turns
		turns = 3
	}
	next := s
	for t := 0; t < turns; t++ {
		next = next.turn(face)
	}
	return next
}

func (s CubeState) turn(face int) CubeState {
	var next CubeState
	src := moveSrc[face]
	co := moveTwist[face]
	for i := 0; i < NumCorners; i++ {
		next.Perm[i] = s.Perm[src[i]]
		next.Twist[i] = (s.Twist[src[i]] + co[i]) % NumOrientations
	}
	return next
}

// Key encodes the permutation and twist arrays as a 14-byte string.
func (s CubeState) Key() StateKey {
	var buf [2 * NumCorners]byte
	for i := 0; i < NumCorners; i++ {
		buf[i] = '0' + s.Perm[i]
		buf[NumCorners+i] = '0' + s.Twist[i]
	}
	return StateKey(buf[:])
}

// Features one-hot encodes the cube: slot i, piece p, twist o lights index
// i*21 + p*3 + o.
func (s CubeState) Features() []float64 {
	features := make([]float64, FeatureDim)
	for i := 0; i < NumCorners; i++ {
		features[i*NumCorners*NumOrientations+int(s.Perm[i])*NumOrientations+int(s.Twist[i])] = 1
	}
	return features
}

// Cube is the 2x2x2 environment. One Cube instance is a single piece of
// mutable state: Step advances it in place.
type Cube struct {
	state CubeState
	rng   *rand.Rand
}

// NewCube returns a solved cube. The rand source drives scrambles only.
func NewCube(rng *rand.Rand) *Cube {
	if rng == nil {
		panic("cube requires a rand source")
	}
	return &Cube{state: SolvedState(), rng: rng}
}

func (c *Cube) ActionSize() int { return NumMoves }

func (c *Cube) State() State { return c.state }

// SetState restores a snapshot previously returned by State, Step or Reset.
func (c *Cube) SetState(s State) {
	cs, ok := s.(CubeState)
	if !ok {
		panic(fmt.Sprintf("cube cannot restore state of type %T", s))
	}
	c.state = cs
}

// Step applies the action to the live configuration. Reward is 1 on reaching
// the goal and 0 otherwise.
func (c *Cube) Step(action int) (State, float64, bool) {
	c.state = c.state.Apply(action)
	if c.state.Solved() {
		return c.state, 1, true
	}
	return c.state, 0, false
}

// Reset returns the cube to the goal and scrambles it with the given number
// of random moves, never undoing the previous move.
func (c *Cube) Reset(scrambles int) State {
	c.state = SolvedState()
	last := -1
	for i := 0; i < scrambles; i++ {
		action := c.rng.Intn(NumMoves)
		for last >= 0 && action == InverseMove(last) {
			action = c.rng.Intn(NumMoves)
		}
		c.state = c.state.Apply(action)
		last = action
	}
	return c.state
}
