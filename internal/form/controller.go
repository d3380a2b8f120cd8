// Package form holds the quotation form state: a typed tree addressed by
// paths, the derived-field rules that keep it consistent, validation and a
// change stream.
package form

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tripquote/internal/derive"
	"tripquote/internal/domain"
	"tripquote/internal/schedule"
)

type ChangeKind int

const (
	ChangeSet ChangeKind = iota
	ChangeDerived
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "set"
	case ChangeDerived:
		return "derived"
	case ChangeReset:
		return "reset"
	}
	return "unknown"
}

// Change is delivered to subscribers after every committed write. Path is
// zero for ChangeReset.
type Change struct {
	Path Path
	Kind ChangeKind
}

type SetOptions struct {
	Dirty          bool
	Touched        bool
	SkipValidation bool
}

// Result of a full validation.
type Result struct {
	Valid  bool
	Errors map[string]string
}

type Option func(*Controller)

// WithScheduler sets the scheduler behind the deferred total-cost
// recompute. Defaults to schedule.Real.
func WithScheduler(s schedule.Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithClock sets the source of "today" for itinerary dates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

type subscriber struct {
	id int
	fn func(Change)
}

// Controller owns the single copy of the quotation being edited. It is safe
// for concurrent use; subscribers are called without the lock held.
type Controller struct {
	mu      sync.Mutex
	v       values
	dirty   map[string]bool
	touched map[string]bool
	errs    map[string]string
	subs    []subscriber
	nextSub int

	sched schedule.Scheduler
	total *schedule.Slot
	now   func() time.Time
}

func New(initial domain.QuotationFormValues, opts ...Option) *Controller {
	c := &Controller{
		dirty:   map[string]bool{},
		touched: map[string]bool{},
		errs:    map[string]string{},
		sched:   schedule.Real{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.total = schedule.NewSlot(c.sched)
	c.v = Normalize(initial, c.now())
	c.v.Costs.TotalCost = derive.TotalCost(c.v.Costs)
	return c
}

// Values returns a copy of the current tree.
func (c *Controller) Values() domain.QuotationFormValues {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v.Clone()
}

// Get reads the field at path. Lists and structs come back as copies.
func (c *Controller) Get(path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	l, err := lookup(p)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	v := c.v.Clone()
	c.mu.Unlock()
	out, err := l.get(&v, p.indices())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", p, err)
	}
	return out, nil
}

func (c *Controller) Set(path string, val any, opts SetOptions) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return c.SetPath(p, val, opts)
}

// SetPath writes val at p, coercing it to the field's type, then runs the
// derived-field rules. Validation of p is advisory: it never blocks the
// write. A rejected write leaves the tree untouched.
func (c *Controller) SetPath(p Path, val any, opts SetOptions) error {
	l, err := lookup(p)
	if err != nil {
		return err
	}
	today := c.now()
	return c.mutate(p, opts, func(prev, next *values) (effects, error) {
		if err := l.set(next, p.indices(), val); err != nil {
			return effects{}, err
		}
		return applyRules(prev, next, p, today)
	})
}

// errNoChange aborts a mutation without committing or notifying.
var errNoChange = errors.New("no change")

// mutate applies fn to a copy of the tree and commits it when fn succeeds.
func (c *Controller) mutate(p Path, opts SetOptions, fn func(prev, next *values) (effects, error)) error {
	c.mu.Lock()
	next := c.v.Clone()
	fx, err := fn(&c.v, &next)
	if errors.Is(err, errNoChange) {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("set %s: %w", p, err)
	}
	c.v = next

	if fx.removed != nil {
		c.dirty = shiftIndexed(c.dirty, fx.removed.list, fx.removed.index)
		c.touched = shiftIndexed(c.touched, fx.removed.list, fx.removed.index)
		c.errs = shiftIndexed(c.errs, fx.removed.list, fx.removed.index)
	}
	key := p.String()
	if opts.Dirty {
		c.dirty[key] = true
	}
	if opts.Touched {
		c.touched[key] = true
	}
	all := validateTree(&c.v)
	if !opts.SkipValidation {
		c.revalidateLocked(p, all)
	}
	changes := []Change{{Path: p, Kind: ChangeSet}}
	for _, d := range fx.derived {
		c.dirty[d.String()] = true
		c.clearResolvedLocked(d, all)
		changes = append(changes, Change{Path: d, Kind: ChangeDerived})
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if fx.costs {
		c.scheduleTotal()
	}
	notify(subs, changes)
	return nil
}

// revalidateLocked replaces the errors under p with the fresh ones.
func (c *Controller) revalidateLocked(p Path, all map[string]string) {
	for k := range c.errs {
		if p.Contains(k) {
			delete(c.errs, k)
		}
	}
	for k, msg := range all {
		if p.Contains(k) {
			c.errs[k] = msg
		}
	}
}

// clearResolvedLocked drops shown errors under p that no longer apply.
// Derived writes never surface new errors.
func (c *Controller) clearResolvedLocked(p Path, all map[string]string) {
	for k := range c.errs {
		if !p.Contains(k) {
			continue
		}
		if msg, ok := all[k]; ok {
			c.errs[k] = msg
		} else {
			delete(c.errs, k)
		}
	}
}

// Reset replaces the whole tree, clearing dirty, touched and error state.
func (c *Controller) Reset(v domain.QuotationFormValues) {
	next := Normalize(v, c.now())
	c.mu.Lock()
	c.v = next
	c.dirty = map[string]bool{}
	c.touched = map[string]bool{}
	c.errs = map[string]string{}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.scheduleTotal()
	notify(subs, []Change{{Kind: ChangeReset}})
}

func (c *Controller) scheduleTotal() {
	c.total.Replace(0, c.recomputeTotal)
}

// recomputeTotal writes Costs.TotalCost only when the formula disagrees with
// the stored value.
func (c *Controller) recomputeTotal() {
	c.mu.Lock()
	want := derive.TotalCost(c.v.Costs)
	if want == c.v.Costs.TotalCost {
		c.mu.Unlock()
		return
	}
	log.Debug().Str("context", "form").Float64("total_cost", want).Msg("total cost recomputed")
	c.v.Costs.TotalCost = want
	c.dirty[pathTotalCost.String()] = true
	subs := c.subscribersLocked()
	c.mu.Unlock()
	notify(subs, []Change{{Path: pathTotalCost, Kind: ChangeDerived}})
}

// Settle runs a pending total-cost recompute now instead of on the next
// tick. Call it before taking a snapshot that must be consistent.
func (c *Controller) Settle() {
	if c.total.Pending() {
		c.total.Cancel()
		c.recomputeTotal()
	}
}

// Validate checks the whole tree and replaces the shown errors with the
// result.
func (c *Controller) Validate() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := validateTree(&c.v)
	c.errs = make(map[string]string, len(all))
	out := make(map[string]string, len(all))
	for k, msg := range all {
		c.errs[k] = msg
		out[k] = msg
	}
	return Result{Valid: len(all) == 0, Errors: out}
}

// Errors returns the errors currently shown, keyed by path.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

func (c *Controller) FieldError(path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[path]
}

// IsDirty reports whether path or anything below it was written.
func (c *Controller) IsDirty(path string) bool {
	return c.marked(c.dirtyMap, path)
}

func (c *Controller) IsTouched(path string) bool {
	return c.marked(c.touchedMap, path)
}

func (c *Controller) dirtyMap() map[string]bool   { return c.dirty }
func (c *Controller) touchedMap() map[string]bool { return c.touched }

func (c *Controller) marked(set func() map[string]bool, path string) bool {
	p, err := ParsePath(path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range set() {
		if p.Contains(k) {
			return true
		}
	}
	return false
}

// DirtyFields lists written paths in sorted order.
func (c *Controller) DirtyFields() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers fn for every change. Calling the returned func
// removes it.
func (c *Controller) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) subscribersLocked() []subscriber {
	out := make([]subscriber, len(c.subs))
	copy(out, c.subs)
	return out
}

func notify(subs []subscriber, changes []Change) {
	for _, ch := range changes {
		for _, s := range subs {
			s.fn(ch)
		}
	}
}
