// Package paginate 根据单元高度做贪心分页：单遍、不回溯、单元不可拆分。
package paginate

import (
	"errors"
	"fmt"

	"resumeBuilder/internal/pdf/layout"
)

// epsilon 浮点误差容忍，恰好填满时仍留在当前页。
const epsilon = 1e-6

// ErrInvalidOptions 页面参数不合法。
var ErrInvalidOptions = errors.New("invalid pagination options")

// Options 分页参数，单位毫米。
type Options struct {
	PageHeight float64
	Margin     float64
	AfterTitle float64
	AfterUnit  float64
	// KeepHeadings 为 true 时，分区标题若会与首个条目分离则整体移到下一页。
	KeepHeadings bool
}

// Validate 检查参数。
func (o Options) Validate() error {
	switch {
	case o.PageHeight <= 0:
		return fmt.Errorf("%w: page height %.2f", ErrInvalidOptions, o.PageHeight)
	case o.Margin < 0 || 2*o.Margin >= o.PageHeight:
		return fmt.Errorf("%w: margin %.2f", ErrInvalidOptions, o.Margin)
	case o.AfterTitle < 0 || o.AfterUnit < 0:
		return fmt.Errorf("%w: negative spacing", ErrInvalidOptions)
	}
	return nil
}

// Usable 每页可用高度。
func (o Options) Usable() float64 { return o.PageHeight - 2*o.Margin }

// Item 待放置的单元。
type Item struct {
	Kind   layout.Kind
	Height float64
	// Joined 下一个单元属于同一分区，间距已并入本单元高度，其后不再留白。
	Joined bool
}

// Placement 单元的落点。Page 从 0 开始。
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Height float64
	// Overflow 单元本身高于可用高度，只能独占一页并超出下边距。
	Overflow bool
}

// Plan 分页结果，Placements 与输入顺序一一对应。
type Plan struct {
	Pages      int
	Placements []Placement
}

// Cursor 当前页与纵向游标，只在一次分页过程中存在。
type Cursor struct {
	Page int
	Y    float64
}

// Planner 逐个放置单元。零值不可用，使用 NewPlanner。
type Planner struct {
	opts     Options
	cur      Cursor
	hasUnits bool
	plan     Plan
}

// NewPlanner 创建分页器，游标位于第一页上边距处。
func NewPlanner(opts Options) (*Planner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Planner{
		opts: opts,
		cur:  Cursor{Y: opts.Margin},
		plan: Plan{Pages: 1},
	}, nil
}

// Cursor 返回当前游标。
func (p *Planner) Cursor() Cursor { return p.cur }

func (p *Planner) limit() float64 { return p.opts.PageHeight - p.opts.Margin }

func (p *Planner) fits(h float64) bool {
	return p.cur.Y+h <= p.limit()+epsilon
}

func (p *Planner) newPage() {
	p.cur = Cursor{Page: p.cur.Page + 1, Y: p.opts.Margin}
	p.hasUnits = false
	p.plan.Pages++
}

// Place 放置一个单元。next 为紧随其后的单元，仅在 KeepHeadings 时参与判断。
func (p *Planner) Place(item Item, next *Item) Placement {
	if p.hasUnits {
		switch {
		case !p.fits(item.Height):
			p.newPage()
		case p.keepWithNext(item, next):
			p.newPage()
		}
	}

	pl := Placement{
		Page:     p.cur.Page,
		X:        p.opts.Margin,
		Y:        p.cur.Y,
		Height:   item.Height,
		Overflow: item.Height > p.opts.Usable()+epsilon,
	}
	p.plan.Placements = append(p.plan.Placements, pl)
	p.cur.Y += item.Height + p.spacingAfter(item)
	p.hasUnits = true
	return pl
}

// keepWithNext 分区标题放得下但首个条目接不上时换页。
// 条目本身高于一页时它总要独占一页，标题留在原处。
func (p *Planner) keepWithNext(item Item, next *Item) bool {
	if !p.opts.KeepHeadings || item.Kind != layout.KindHeading || next == nil {
		return false
	}
	if next.Height > p.opts.Usable()+epsilon {
		return false
	}
	return !p.fits(item.Height + p.spacingAfter(item) + next.Height)
}

func (p *Planner) spacingAfter(item Item) float64 {
	switch {
	case item.Kind == layout.KindTitle:
		return p.opts.AfterTitle
	case item.Joined:
		return 0
	default:
		return p.opts.AfterUnit
	}
}

// Result 返回目前为止的分页结果。
func (p *Planner) Result() Plan {
	out := Plan{Pages: p.plan.Pages, Placements: make([]Placement, len(p.plan.Placements))}
	copy(out.Placements, p.plan.Placements)
	return out
}

// Paginate 对整个序列分页。
func Paginate(items []Item, opts Options) (Plan, error) {
	p, err := NewPlanner(opts)
	if err != nil {
		return Plan{}, err
	}
	for i, it := range items {
		if it.Height < 0 {
			return Plan{}, fmt.Errorf("item %d: negative height %.2f", i, it.Height)
		}
		var next *Item
		if i+1 < len(items) {
			next = &items[i+1]
		}
		p.Place(it, next)
	}
	return p.Result(), nil
}
