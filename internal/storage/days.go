package storage

import (
	"sort"

	"github.com/account-monitor/internal/models"
)

// BalanceDay holds one account's balances for a single date: the start-of-day
// anchor captured on the first insert of the day, and the intraday readings in
// ascending TimeRetrieved order
type BalanceDay struct {
	Date       models.Date              `json:"date" yaml:"date"`
	StartOfDay models.BalanceSnapshot   `json:"startOfDay" yaml:"startOfDay"`
	Intraday   []models.BalanceSnapshot `json:"intraday" yaml:"intraday"`
}

// NewBalanceDay creates a day anchored at startOfDay
func NewBalanceDay(date models.Date, startOfDay models.BalanceSnapshot) *BalanceDay {
	return &BalanceDay{Date: date, StartOfDay: startOfDay}
}

// Contains reports whether an identical snapshot (value and time) is recorded
func (d *BalanceDay) Contains(snapshot models.BalanceSnapshot) bool {
	for _, b := range d.Intraday {
		if b.Equal(snapshot) {
			return true
		}
	}
	return false
}

// Insert appends snapshot and restores ascending order. It returns false when
// an identical snapshot is already recorded.
func (d *BalanceDay) Insert(snapshot models.BalanceSnapshot) bool {
	if d.Contains(snapshot) {
		return false
	}
	d.Intraday = append(d.Intraday, snapshot)
	d.sort()
	return true
}

func (d *BalanceDay) sort() {
	sort.SliceStable(d.Intraday, func(i, j int) bool {
		return d.Intraday[i].TimeRetrieved < d.Intraday[j].TimeRetrieved
	})
}

// MostRecent returns the last intraday reading, or the anchor if there is none
func (d *BalanceDay) MostRecent() models.BalanceSnapshot {
	if len(d.Intraday) == 0 {
		return d.StartOfDay
	}
	return d.Intraday[len(d.Intraday)-1]
}

// ClosestTo returns the reading nearest to t. The anchor is the first
// candidate; the scan stops at the first strict increase in distance.
func (d *BalanceDay) ClosestTo(t models.TimeOfDay) models.BalanceSnapshot {
	best := d.StartOfDay
	bestDist := t.Distance(best.TimeRetrieved)
	for _, b := range d.Intraday {
		dist := t.Distance(b.TimeRetrieved)
		if dist > bestDist {
			break
		}
		best, bestDist = b, dist
	}
	return best
}

// PositionDay holds one symbol's readings for a single date in ascending
// TimeRetrieved order
type PositionDay struct {
	Date      models.Date               `json:"date" yaml:"date"`
	Snapshots []models.PositionSnapshot `json:"snapshots" yaml:"snapshots"`
}

// NewPositionDay creates an empty day
func NewPositionDay(date models.Date) *PositionDay {
	return &PositionDay{Date: date}
}

// Contains reports whether an identical snapshot (value and time) is recorded
func (d *PositionDay) Contains(snapshot models.PositionSnapshot) bool {
	for _, p := range d.Snapshots {
		if p.Equal(snapshot) {
			return true
		}
	}
	return false
}

// Insert appends snapshot and restores ascending order. It returns false when
// an identical snapshot is already recorded.
func (d *PositionDay) Insert(snapshot models.PositionSnapshot) bool {
	if d.Contains(snapshot) {
		return false
	}
	d.Snapshots = append(d.Snapshots, snapshot)
	d.sort()
	return true
}

func (d *PositionDay) sort() {
	sort.SliceStable(d.Snapshots, func(i, j int) bool {
		return d.Snapshots[i].TimeRetrieved < d.Snapshots[j].TimeRetrieved
	})
}

// Empty reports whether the day holds no readings
func (d *PositionDay) Empty() bool {
	return len(d.Snapshots) == 0
}

// First returns the earliest reading. The day must not be empty.
func (d *PositionDay) First() models.PositionSnapshot {
	return d.Snapshots[0]
}

// MostRecent returns the latest reading. The day must not be empty.
func (d *PositionDay) MostRecent() models.PositionSnapshot {
	return d.Snapshots[len(d.Snapshots)-1]
}

// ClosestTo returns the reading nearest to t, scanning from the earliest and
// stopping at the first strict increase in distance. The day must not be empty.
func (d *PositionDay) ClosestTo(t models.TimeOfDay) models.PositionSnapshot {
	best := d.Snapshots[0]
	bestDist := t.Distance(best.TimeRetrieved)
	for _, p := range d.Snapshots[1:] {
		dist := t.Distance(p.TimeRetrieved)
		if dist > bestDist {
			break
		}
		best, bestDist = p, dist
	}
	return best
}
