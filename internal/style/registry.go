package style

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinTemplates []byte

// DefaultID 兜底模板。
const DefaultID = "default"

// ErrMissingDefault 模板表中缺少 default 模板。
var ErrMissingDefault = errors.New("template registry must define \"default\"")

type rawText struct {
	FontFamily   string   `yaml:"font_family"`
	Color        string   `yaml:"color"`
	FontSize     string   `yaml:"font_size"`
	FontWeight   int      `yaml:"font_weight"`
	LineHeight   *float64 `yaml:"line_height"`
	MarginBottom string   `yaml:"margin_bottom"`
}

type rawBox struct {
	Background   string `yaml:"background"`
	Padding      string `yaml:"padding"`
	Border       string `yaml:"border"`
	BorderTop    string `yaml:"border_top"`
	BorderRight  string `yaml:"border_right"`
	BorderBottom string `yaml:"border_bottom"`
	BorderLeft   string `yaml:"border_left"`
	Radius       string `yaml:"radius"`
	MarginBottom string `yaml:"margin_bottom"`
}

type rawStyleSet struct {
	Card    rawBox  `yaml:"card"`
	Title   rawText `yaml:"title"`
	Section rawBox  `yaml:"section"`
	Heading rawText `yaml:"heading"`
	Text    rawText `yaml:"text"`
}

// Load 从 YAML 读取模板表。
func Load(r io.Reader) (map[string]StyleSet, error) {
	var raw map[string]rawStyleSet
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	sets := make(map[string]StyleSet, len(raw))
	for id, rs := range raw {
		set, err := rs.convert()
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", id, err)
		}
		sets[id] = set
	}
	if _, ok := sets[DefaultID]; !ok {
		return nil, ErrMissingDefault
	}
	return sets, nil
}

// LoadFile 从磁盘读取模板表。
func LoadFile(path string) (map[string]StyleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Builtin 返回内置模板表。
func Builtin() map[string]StyleSet {
	sets, err := Load(bytes.NewReader(builtinTemplates))
	if err != nil {
		panic(fmt.Errorf("builtin templates: %w", err))
	}
	return sets
}

func (rs rawStyleSet) convert() (StyleSet, error) {
	var (
		set StyleSet
		err error
	)
	if set.Card, err = rs.Card.convert(); err != nil {
		return StyleSet{}, fmt.Errorf("card: %w", err)
	}
	if set.Section, err = rs.Section.convert(); err != nil {
		return StyleSet{}, fmt.Errorf("section: %w", err)
	}
	if set.Title, err = rs.Title.convert(); err != nil {
		return StyleSet{}, fmt.Errorf("title: %w", err)
	}
	if set.Heading, err = rs.Heading.convert(); err != nil {
		return StyleSet{}, fmt.Errorf("heading: %w", err)
	}
	if set.Text, err = rs.Text.convert(); err != nil {
		return StyleSet{}, fmt.Errorf("text: %w", err)
	}
	return set, nil
}

func (rt rawText) convert() (Text, error) {
	t := Text{
		FontFamily: rt.FontFamily,
		FontWeight: rt.FontWeight,
		LineHeight: DefaultLineHeight,
	}
	if t.FontWeight == 0 {
		t.FontWeight = 400
	}
	if rt.LineHeight != nil {
		t.LineHeight = *rt.LineHeight
	}

	var err error
	if t.Color, err = ParseColor(rt.Color); err != nil {
		return Text{}, err
	}
	if rt.Color == "" {
		t.Color.A = 0xff
	}
	if t.FontSize, err = parseLength(rt.FontSize); err != nil {
		return Text{}, err
	}
	if t.FontSize == 0 {
		t.FontSize = RootFontSize
	}
	if t.MarginBottom, err = parseLength(rt.MarginBottom); err != nil {
		return Text{}, err
	}
	return t, nil
}

func (rb rawBox) convert() (Box, error) {
	var (
		b   Box
		err error
	)
	if b.Background, err = ParseColor(rb.Background); err != nil {
		return Box{}, err
	}
	if b.Padding, err = parseEdges(rb.Padding); err != nil {
		return Box{}, err
	}
	if b.Radius, err = parseLength(rb.Radius); err != nil {
		return Box{}, err
	}
	if b.MarginBottom, err = parseLength(rb.MarginBottom); err != nil {
		return Box{}, err
	}

	all, err := parseBorder(rb.Border)
	if err != nil {
		return Box{}, err
	}
	b.Border = Borders{Top: all, Right: all, Bottom: all, Left: all}
	sides := []struct {
		raw string
		dst *Border
	}{
		{rb.BorderTop, &b.Border.Top},
		{rb.BorderRight, &b.Border.Right},
		{rb.BorderBottom, &b.Border.Bottom},
		{rb.BorderLeft, &b.Border.Left},
	}
	for _, side := range sides {
		if side.raw == "" {
			continue
		}
		if *side.dst, err = parseBorder(side.raw); err != nil {
			return Box{}, err
		}
	}
	return b, nil
}

// Resolver 将模板 ID 映射为样式，未知 ID 回落到 default。
// 构造后只读，可并发使用。
type Resolver struct {
	sets map[string]StyleSet
	ids  []string
}

// NewResolver 复制传入的模板表。
func NewResolver(sets map[string]StyleSet) (*Resolver, error) {
	if _, ok := sets[DefaultID]; !ok {
		return nil, ErrMissingDefault
	}
	r := &Resolver{sets: make(map[string]StyleSet, len(sets))}
	for id, set := range sets {
		r.sets[id] = set
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r, nil
}

// DefaultResolver 使用内置模板表。
func DefaultResolver() *Resolver {
	r, err := NewResolver(Builtin())
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve 总是返回一个样式。
func (r *Resolver) Resolve(templateID string) StyleSet {
	if set, ok := r.sets[templateID]; ok {
		return set
	}
	return r.sets[DefaultID]
}

// Has 判断模板是否存在。
func (r *Resolver) Has(templateID string) bool {
	_, ok := r.sets[templateID]
	return ok
}

// IDs 返回排序后的模板 ID。
func (r *Resolver) IDs() []string {
	return append([]string(nil), r.ids...)
}
