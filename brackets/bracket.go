package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/chess-tournament/models"
)

var ErrInconsistentBracket = errors.New("knockout bracket is inconsistent")

type Slot int

const (
	SlotWhite Slot = iota
	SlotBlack
)

func (s Slot) String() string {
	if s == SlotWhite {
		return "white"
	}
	return "black"
}

// Node is one knockout match inside the bracket tree.
type Node struct {
	Match    *models.Match
	Round    int    // 1-based
	Index    int    // 0-based position within the round
	Children [2]int // indices in the previous round, -1 when absent
	Parent   int    // index in the next round, -1 for the last round
}

// Bracket is the explicit round-indexed tree rebuilt from persisted knockout matches.
type Bracket struct {
	Rounds  [][]*Node
	byMatch map[int]*Node
}

// FromMatches rebuilds the tree from knockout matches of one tournament.
// Rounds must be contiguous from 1 and each round must halve the previous one.
// Group matches are ignored.
func FromMatches(matches []*models.Match) (*Bracket, error) {
	byRound := make(map[int][]*models.Match)
	maxRound := 0
	for _, m := range matches {
		if m == nil || !m.IsKnockout() {
			continue
		}
		byRound[m.Round] = append(byRound[m.Round], m)
		if m.Round > maxRound {
			maxRound = m.Round
		}
	}

	b := &Bracket{byMatch: make(map[int]*Node)}
	if maxRound == 0 {
		return b, nil
	}

	b.Rounds = make([][]*Node, maxRound)
	for r := 1; r <= maxRound; r++ {
		roundMatches := byRound[r]
		if len(roundMatches) == 0 {
			return nil, fmt.Errorf("%w: round %d has no matches", ErrInconsistentBracket, r)
		}
		sort.Slice(roundMatches, func(i, j int) bool {
			ni, nj := matchNum(roundMatches[i]), matchNum(roundMatches[j])
			if ni != nj {
				return ni < nj
			}
			return roundMatches[i].ID < roundMatches[j].ID
		})
		if r > 1 {
			if want := (len(b.Rounds[r-2]) + 1) / 2; len(roundMatches) != want {
				return nil, fmt.Errorf("%w: round %d has %d matches, expected %d", ErrInconsistentBracket, r, len(roundMatches), want)
			}
		}
		nodes := make([]*Node, len(roundMatches))
		for i, m := range roundMatches {
			nodes[i] = &Node{Match: m, Round: r, Index: i, Children: [2]int{-1, -1}, Parent: -1}
			b.byMatch[m.ID] = nodes[i]
		}
		b.Rounds[r-1] = nodes
	}

	for r := 0; r < maxRound-1; r++ {
		next := b.Rounds[r+1]
		for i, n := range b.Rounds[r] {
			parent := next[i/2]
			if n.Match.NextMatchID != nil && *n.Match.NextMatchID != parent.Match.ID {
				return nil, fmt.Errorf("%w: match %d points to %d, expected %d",
					ErrInconsistentBracket, n.Match.ID, *n.Match.NextMatchID, parent.Match.ID)
			}
			n.Parent = i / 2
			parent.Children[i%2] = i
		}
	}
	return b, nil
}

func matchNum(m *models.Match) int {
	if m.KnockoutMatchNum != nil {
		return *m.KnockoutMatchNum
	}
	return 0
}

func (b *Bracket) Node(matchID int) (*Node, bool) {
	n, ok := b.byMatch[matchID]
	return n, ok
}

func (b *Bracket) Parent(n *Node) *Node {
	if n.Parent < 0 || n.Round >= len(b.Rounds) {
		return nil
	}
	return b.Rounds[n.Round][n.Parent]
}

// Child returns the node feeding slot s of n, or nil in round one.
func (b *Bracket) Child(n *Node, s Slot) *Node {
	idx := n.Children[s]
	if idx < 0 || n.Round < 2 {
		return nil
	}
	return b.Rounds[n.Round-2][idx]
}

// TargetSlot: even positions feed white, odd positions feed black.
func (n *Node) TargetSlot() Slot {
	return Slot(n.Index % 2)
}

// Last returns the nodes of the highest round present.
func (b *Bracket) Last() []*Node {
	if len(b.Rounds) == 0 {
		return nil
	}
	return b.Rounds[len(b.Rounds)-1]
}

func (b *Bracket) Empty() bool {
	return len(b.Rounds) == 0
}

// Size is the number of matches in the tree.
func (b *Bracket) Size() int {
	return len(b.byMatch)
}
