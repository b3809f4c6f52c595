// Package universe manages the investable ticker universe. The core consumes
// an immutable Snapshot value; refreshing a snapshot is an explicit, external
// operation (the scheduler's job), never a side effect of screening.
package universe

import "time"

// Listing is one tradable ticker in the universe.
type Listing struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
}

// Snapshot is a point-in-time view of all tradable listings. Snapshots are
// value semantics: once handed to the pipeline they are never mutated.
type Snapshot struct {
	Listings  []Listing `json:"listings"`
	TakenAt   time.Time `json:"taken_at"`
	Exchanges []string  `json:"exchanges"`
}

// Size returns the number of listings in the snapshot.
func (s Snapshot) Size() int {
	return len(s.Listings)
}

// Subset returns a snapshot reduced to the given tickers, preserving the
// snapshot's ordering. Unknown tickers are dropped.
func (s Snapshot) Subset(tickers []string) Snapshot {
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[t] = true
	}
	out := Snapshot{TakenAt: s.TakenAt, Exchanges: s.Exchanges}
	for _, l := range s.Listings {
		if want[l.Ticker] {
			out.Listings = append(out.Listings, l)
		}
	}
	return out
}
