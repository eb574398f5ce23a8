package player

import (
	"errors"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/talgya/taixu/internal/world"
)

// ErrNoPath is returned when a click target cannot be reached.
var ErrNoPath = errors.New("no path to target")

// FindPath runs a breadth-first search over the 8-connected walkable
// neighbours of from and returns the steps to target, excluding from.
// A diagonal step needs at least one walkable orthogonal tile beside it.
// A path to the current tile is empty.
func FindPath(g *world.Grid, from, target world.Coord) ([]world.Coord, error) {
	if from == target {
		return []world.Coord{}, nil
	}
	if !g.IsWalkable(target) {
		return nil, world.NewTileError("find path", target, ErrNoPath)
	}

	prev := map[world.Coord]world.Coord{from: from}
	queue := []world.Coord{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range cur.Neighbors() {
			if _, seen := prev[n]; seen || !g.IsWalkable(n) || squeezes(g, cur, n) {
				continue
			}
			prev[n] = cur
			if n == target {
				return walkBack(prev, from, target), nil
			}
			queue = append(queue, n)
		}
	}
	return nil, world.NewTileError("find path", target, ErrNoPath)
}

// squeezes reports whether the step from a to b is a diagonal passing
// between two blocked tiles.
func squeezes(g *world.Grid, a, b world.Coord) bool {
	if a.Col == b.Col || a.Row == b.Row {
		return false
	}
	return !g.IsWalkable(world.C(b.Col, a.Row)) && !g.IsWalkable(world.C(a.Col, b.Row))
}

func walkBack(prev map[world.Coord]world.Coord, from, target world.Coord) []world.Coord {
	var path []world.Coord
	for c := target; c != from; c = prev[c] {
		path = append(path, c)
	}
	slices.Reverse(path)
	return path
}

type routeKey struct {
	from, target world.Coord
	version      uint64
}

// Router memoises FindPath results until the grid's walkability changes.
type Router struct {
	grid  *world.Grid
	cache *lru.Cache[routeKey, []world.Coord]

	hits, misses int
}

// NewRouter creates a router caching up to size routes.
func NewRouter(g *world.Grid, size int) (*Router, error) {
	c, err := lru.New[routeKey, []world.Coord](size)
	if err != nil {
		return nil, err
	}
	return &Router{grid: g, cache: c}, nil
}

// Route returns a path from from to target. The returned slice is the
// caller's to keep.
func (r *Router) Route(from, target world.Coord) ([]world.Coord, error) {
	key := routeKey{from: from, target: target, version: r.grid.Version()}
	if p, ok := r.cache.Get(key); ok {
		r.hits++
		return slices.Clone(p), nil
	}
	r.misses++
	p, err := FindPath(r.grid, from, target)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, p)
	return slices.Clone(p), nil
}

// Stats returns cache hits and misses.
func (r *Router) Stats() (hits, misses int) {
	return r.hits, r.misses
}
