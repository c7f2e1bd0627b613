package grid

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// DefaultPopoverHeight is the number of rows a popover occupies below its anchor
// when the host does not report real bounds.
const DefaultPopoverHeight = 12

// FilterOption is one distinct value offered by a filter popover.
type FilterOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// OptionLoader fetches distinct values for field, narrowed by search.
type OptionLoader func(ctx context.Context, field, search string) ([]FilterOption, error)

// DistinctOptions counts the distinct rendered values of field in rows,
// ordered by label. Blank values are listed as "(empty)".
func DistinctOptions(rows []Row, field string) []FilterOption {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[stringify(r.Value(field))]++
	}
	out := make([]FilterOption, 0, len(counts))
	for v, n := range counts {
		label := v
		if strings.TrimSpace(v) == "" {
			label = "(empty)"
		}
		out = append(out, FilterOption{Value: v, Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Label), strings.ToLower(out[j].Label)
		if li != lj {
			return li < lj
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Popover is the multiselect value filter for one column. Option loads may
// complete on other goroutines; only the result of the latest generation is
// applied.
type Popover struct {
	mu sync.Mutex

	field  string
	anchor Rect
	bounds Rect

	search   string
	all      []FilterOption
	options  []FilterOption
	selected map[string]bool
	loading  bool
	err      error
	gen      uint64
	open     bool

	ctx      context.Context
	loader   OptionLoader
	local    func() []FilterOption
	debounce *Debouncer
	manual   bool

	releaseOutside func()
	onApply        func(ValueFilter)
	onClose        func(*Popover)
}

type popoverConfig struct {
	field    string
	anchor   Rect
	selected []string
	ctx      context.Context
	loader   OptionLoader
	local    func() []FilterOption
	debounce func() *Debouncer
	manual   bool
	hub      *PointerHub
	scope    *scope
	onApply  func(ValueFilter)
	onClose  func(*Popover)
}

func openPopover(cfg popoverConfig) *Popover {
	p := &Popover{
		field:    cfg.field,
		anchor:   cfg.anchor,
		bounds:   defaultBounds(cfg.anchor),
		selected: make(map[string]bool, len(cfg.selected)),
		open:     true,
		ctx:      cfg.ctx,
		loader:   cfg.loader,
		local:    cfg.local,
		manual:   cfg.manual,
		onApply:  cfg.onApply,
		onClose:  cfg.onClose,
	}
	for _, v := range cfg.selected {
		p.selected[v] = true
	}
	if cfg.debounce != nil && !cfg.manual {
		p.debounce = cfg.debounce()
	}
	if cfg.hub != nil {
		release := cfg.hub.Subscribe(p.handlePointer)
		if cfg.scope != nil {
			release = cfg.scope.hold(release)
		}
		p.releaseOutside = release
	}
	if p.loader == nil {
		if p.local != nil {
			p.all = p.local()
		}
		p.options = p.all
	} else if p.manual {
		p.loading = true
	} else {
		gen, search := p.BeginLoad()
		go p.runLoad(gen, search)
	}
	return p
}

func defaultBounds(anchor Rect) Rect {
	w := anchor.Width
	if w < 30 {
		w = 30
	}
	return Rect{X: anchor.X, Y: anchor.Y + anchor.Height, Width: w, Height: DefaultPopoverHeight}
}

func (p *Popover) handlePointer(ev PointerEvent) {
	if ev.Kind != PointerDown {
		return
	}
	p.mu.Lock()
	inside := p.anchor.Contains(ev.X, ev.Y) || p.bounds.Contains(ev.X, ev.Y)
	p.mu.Unlock()
	if !inside {
		p.Close()
	}
}

// Field is the column the popover filters.
func (p *Popover) Field() string { return p.field }

// Anchor is the rectangle the popover is attached to.
func (p *Popover) Anchor() Rect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anchor
}

// SetBounds records where the host actually drew the popover, for click-outside tests.
func (p *Popover) SetBounds(r Rect) {
	p.mu.Lock()
	p.bounds = r
	p.mu.Unlock()
}

// IsOpen reports whether the popover is still open.
func (p *Popover) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// SearchText is the current search text.
func (p *Popover) SearchText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// Options returns the options currently listed.
func (p *Popover) Options() []FilterOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FilterOption(nil), p.options...)
}

// Loading reports whether an option load for the latest search is pending.
func (p *Popover) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Err is the error of the last applied load, if it failed.
func (p *Popover) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Generation is the sequence number of the latest issued load.
func (p *Popover) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// SetSearch narrows the options. Local options are filtered immediately;
// remote loads are debounced and issued with a new generation. In manual
// mode the host schedules the load with BeginLoad and Load.
func (p *Popover) SetSearch(text string) {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	p.search = text
	if p.loader == nil {
		p.options = filterOptions(p.all, text)
		p.mu.Unlock()
		return
	}
	p.loading = true
	manual := p.manual
	p.mu.Unlock()
	if manual {
		return
	}

	run := func() {
		gen, search := p.BeginLoad()
		if gen == 0 {
			return
		}
		go p.runLoad(gen, search)
	}
	if p.debounce != nil {
		p.debounce.Trigger(run)
		return
	}
	run()
}

// BeginLoad issues a new generation for the current search text. Hosts that
// schedule loads themselves pair it with Resolve. It returns 0 once closed.
func (p *Popover) BeginLoad() (gen uint64, search string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return 0, ""
	}
	p.gen++
	p.loading = true
	return p.gen, p.search
}

// Remote reports whether options come from an OptionLoader.
func (p *Popover) Remote() bool {
	return p.loader != nil
}

// Load runs the loader synchronously for the given generation and applies the result.
func (p *Popover) Load(gen uint64, search string) bool {
	if p.loader == nil || gen == 0 {
		return false
	}
	opts, err := p.loader(p.ctx, p.field, search)
	return p.Resolve(gen, opts, err)
}

func (p *Popover) runLoad(gen uint64, search string) {
	p.Load(gen, search)
}

// Resolve applies a load result if gen is still the latest generation and
// the popover is open. A failed load leaves an empty option list.
func (p *Popover) Resolve(gen uint64, opts []FilterOption, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open || gen != p.gen {
		return false
	}
	p.loading = false
	p.err = err
	if err != nil {
		p.all, p.options = nil, nil
		return true
	}
	p.all = append([]FilterOption(nil), opts...)
	p.options = p.all
	return true
}

func filterOptions(opts []FilterOption, search string) []FilterOption {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return opts
	}
	out := make([]FilterOption, 0, len(opts))
	for _, o := range opts {
		if strings.Contains(strings.ToLower(o.Label), search) || strings.Contains(strings.ToLower(o.Value), search) {
			out = append(out, o)
		}
	}
	return out
}

// IsSelected reports whether value is checked.
func (p *Popover) IsSelected(value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected[value]
}

// Selected returns the checked values in sorted order.
func (p *Popover) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.selected))
	for v := range p.selected {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Toggle flips one value.
func (p *Popover) Toggle(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected[value] {
		delete(p.selected, value)
	} else {
		p.selected[value] = true
	}
}

// AllSelected reports whether every listed option is checked.
func (p *Popover) AllSelected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allSelectedLocked()
}

func (p *Popover) allSelectedLocked() bool {
	if len(p.options) == 0 {
		return false
	}
	for _, o := range p.options {
		if !p.selected[o.Value] {
			return false
		}
	}
	return true
}

// ToggleAll selects every listed option, or deselects them when all are already selected.
func (p *Popover) ToggleAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allSelectedLocked() {
		for _, o := range p.options {
			delete(p.selected, o.Value)
		}
		return
	}
	for _, o := range p.options {
		p.selected[o.Value] = true
	}
}

// Apply commits the selection as a single IN filter and closes the popover.
func (p *Popover) Apply() ValueFilter {
	f := ValueFilter{Field: p.field, Values: p.Selected()}
	p.mu.Lock()
	open := p.open
	p.mu.Unlock()
	if open && p.onApply != nil {
		p.onApply(f)
	}
	p.Close()
	return f
}

// Close releases the click-outside subscription and drops pending loads.
func (p *Popover) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	p.open = false
	p.loading = false
	release := p.releaseOutside
	p.releaseOutside = nil
	p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	if release != nil {
		release()
	}
	if p.onClose != nil {
		p.onClose(p)
	}
}
