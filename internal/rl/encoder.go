// Package rl implements the learning core: the state encoding for the
// discretized monthly panel, the episodic prediction environment, tabular
// Q-learning, and the greedy policy rollout.
package rl

import (
	"maru/internal/domain"
)

// State-space dimensions. Three 3-valued categories (direction, rate level,
// population trend) collapse into 27 states; the agent predicts one of three
// directions.
const (
	NumStates  = 27
	NumActions = 3
)

// Encoder maps the categorical signals of a monthly row to a single state
// index in [0, NumStates). The mappings are fixed at construction and never
// change; encoding is total, so out-of-domain inputs coerce to the neutral
// category (flat direction, mid rate, flat trend) instead of failing and a
// value-table lookup is always well-defined. The coercion can mask upstream
// data issues.
type Encoder struct {
	directionID map[domain.Direction]int
	popTrendID  map[domain.PopTrend]int
	idDirection map[int]domain.Direction
}

// NewEncoder builds an Encoder with the canonical category mappings
// (down=0, flat=1, up=2 for direction and population trend).
func NewEncoder() *Encoder {
	directionID := map[domain.Direction]int{
		domain.DirectionDown: 0,
		domain.DirectionFlat: 1,
		domain.DirectionUp:   2,
	}
	idDirection := make(map[int]domain.Direction, len(directionID))
	for d, id := range directionID {
		idDirection[id] = d
	}
	return &Encoder{
		directionID: directionID,
		popTrendID: map[domain.PopTrend]int{
			domain.PopDown: 0,
			domain.PopFlat: 1,
			domain.PopUp:   2,
		},
		idDirection: idDirection,
	}
}

// EncodeDirection maps a direction to its index. Unknown values coerce to
// flat (index 1).
func (e *Encoder) EncodeDirection(d domain.Direction) int {
	if id, ok := e.directionID[d]; ok {
		return id
	}
	return e.directionID[domain.DirectionFlat]
}

// DecodeDirection is the inverse of EncodeDirection. Unknown indices coerce
// to flat.
func (e *Encoder) DecodeDirection(id int) domain.Direction {
	if d, ok := e.idDirection[id]; ok {
		return d
	}
	return domain.DirectionFlat
}

// EncodeRateLevel maps a rate level to its index. Rate levels are already
// 0/1/2; out-of-range values clamp into [0, 2].
func (e *Encoder) EncodeRateLevel(r domain.RateLevel) int {
	id := int(r)
	if id < 0 {
		id = 0
	}
	if id > 2 {
		id = 2
	}
	return id
}

// EncodePopTrend maps a population trend to its index. Unknown values coerce
// to flat (index 1).
func (e *Encoder) EncodePopTrend(p domain.PopTrend) int {
	if id, ok := e.popTrendID[p]; ok {
		return id
	}
	return e.popTrendID[domain.PopFlat]
}

// EncodeState collapses the (direction, rate level, population trend) tuple
// into a single state index: dir*9 + rate*3 + pop, yielding 0..26.
func (e *Encoder) EncodeState(d domain.Direction, r domain.RateLevel, p domain.PopTrend) int {
	return e.EncodeDirection(d)*9 + e.EncodeRateLevel(r)*3 + e.EncodePopTrend(p)
}

// EncodeRow encodes the categorical signals of a monthly row.
func (e *Encoder) EncodeRow(row domain.MonthlyRow) int {
	return e.EncodeState(row.Direction, row.RateLevel, row.PopTrend)
}
