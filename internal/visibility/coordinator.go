package visibility

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/roach88/reelfeed/internal/metrics"
)

// ErrAutoplayRejected is returned by a Player that refused to start
// without a user gesture.
var ErrAutoplayRejected = errors.New("autoplay rejected")

// Player controls playback of one item.
type Player interface {
	Play() error
	Pause()
}

// PlayState is the playback state of one item.
type PlayState int

const (
	// Paused shows the poster frame.
	Paused PlayState = iota
	Playing
)

func (s PlayState) String() string {
	if s == Playing {
		return "playing"
	}
	return "paused"
}

type item struct {
	player Player
	state  PlayState
}

// Coordinator plays items that become active and pauses items that become
// inactive. A failed Play leaves the item paused; it never stops the feed.
//
// Not safe for concurrent use.
type Coordinator struct {
	tracker     *Tracker
	logger      *slog.Logger
	items       map[string]*item
	unsubscribe func()
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger. Defaults to slog.Default().
func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// NewCoordinator subscribes a coordinator to tracker.
func NewCoordinator(tracker *Tracker, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		tracker: tracker,
		logger:  slog.Default(),
		items:   make(map[string]*item),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = tracker.Subscribe(c.handle)
	return c
}

// Register attaches a player to an item. An item that is already active
// starts playing.
func (c *Coordinator) Register(itemID string, p Player) {
	it := &item{player: p}
	c.items[itemID] = it
	if c.tracker.State(itemID) == Active {
		c.play(itemID, it)
	}
}

// Unregister pauses and detaches an item's player and stops tracking it.
func (c *Coordinator) Unregister(itemID string) {
	c.tracker.Remove(itemID)
	if it, ok := c.items[itemID]; ok {
		c.pause(itemID, it)
		delete(c.items, itemID)
	}
}

// Close detaches the coordinator from its tracker and pauses everything.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	for id, it := range c.items {
		c.pause(id, it)
	}
}

// Toggle is the manual play/pause control. It works regardless of
// visibility. It returns the new state and the Play error, if any.
func (c *Coordinator) Toggle(itemID string) (PlayState, error) {
	it, ok := c.items[itemID]
	if !ok {
		return Paused, nil
	}
	if it.state == Playing {
		c.pause(itemID, it)
		return Paused, nil
	}
	if err := it.player.Play(); err != nil {
		c.logger.Warn("manual play failed", "item", itemID, "error", err)
		return Paused, err
	}
	it.state = Playing
	c.syncGauge()
	return Playing, nil
}

// State returns an item's playback state.
func (c *Coordinator) State(itemID string) PlayState {
	if it, ok := c.items[itemID]; ok {
		return it.state
	}
	return Paused
}

// PlayingItems returns the ids of playing items, sorted.
func (c *Coordinator) PlayingItems() []string {
	var ids []string
	for id, it := range c.items {
		if it.state == Playing {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (c *Coordinator) handle(tr Transition) {
	it, ok := c.items[tr.ItemID]
	if !ok {
		return
	}
	if tr.State == Active {
		c.play(tr.ItemID, it)
	} else {
		c.pause(tr.ItemID, it)
	}
}

func (c *Coordinator) play(itemID string, it *item) {
	if it.state == Playing {
		return
	}
	if err := it.player.Play(); err != nil {
		// Poster frame stays up; the user can still start it manually.
		metrics.AutoplayRejected.Inc()
		c.logger.Debug("autoplay rejected", "item", itemID, "error", err)
		return
	}
	it.state = Playing
	c.syncGauge()
}

func (c *Coordinator) pause(itemID string, it *item) {
	if it.state != Playing {
		return
	}
	it.player.Pause()
	it.state = Paused
	c.logger.Debug("paused", "item", itemID)
	c.syncGauge()
}

func (c *Coordinator) syncGauge() {
	n := 0
	for _, it := range c.items {
		if it.state == Playing {
			n++
		}
	}
	metrics.Playing.Set(float64(n))
}
