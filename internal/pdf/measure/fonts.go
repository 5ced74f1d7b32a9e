package measure

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmmonolt10bold"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"github.com/tdewolff/canvas"
)

// 模板中的字体名按类别映射到内置字体，保证不同机器上的测量结果一致。
// 三个类别都使用 Latin Modern，覆盖越南语的组合字母。
type fontClass int

const (
	classSans fontClass = iota
	classSerif
	classMono
)

var serifFamilies = map[string]bool{
	"georgia":          true,
	"lora":             true,
	"playfair display": true,
	"times new roman":  true,
	"times":            true,
	"garamond":         true,
	"merriweather":     true,
	"serif":            true,
}

var monoFamilies = map[string]bool{
	"courier":     true,
	"courier new": true,
	"menlo":       true,
	"monospace":   true,
}

func classify(family string) fontClass {
	name := strings.ToLower(strings.Trim(strings.TrimSpace(family), `"'`))
	switch {
	case serifFamilies[name]:
		return classSerif
	case monoFamilies[name]:
		return classMono
	default:
		return classSans
	}
}

// faces 返回类别对应的字体族名与常规、粗体字形数据。
func (c fontClass) faces() (name string, regular, bold []byte) {
	switch c {
	case classSerif:
		return "resume-serif", lmroman10regular.TTF, lmroman10bold.TTF
	case classMono:
		return "resume-mono", lmmono10regular.TTF, lmmonolt10bold.TTF
	default:
		return "resume-sans", lmsans10regular.TTF, lmsans10bold.TTF
	}
}

// fontBook 缓存已加载的字体族。
type fontBook struct {
	mu       sync.Mutex
	families map[fontClass]*canvas.FontFamily
}

func newFontBook() *fontBook {
	return &fontBook{families: make(map[fontClass]*canvas.FontFamily)}
}

func (b *fontBook) family(name string) (*canvas.FontFamily, error) {
	class := classify(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if f, ok := b.families[class]; ok {
		return f, nil
	}

	familyName, regular, bold := class.faces()
	f := canvas.NewFontFamily(familyName)
	if err := f.LoadFont(regular, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("load %s regular: %w", familyName, err)
	}
	if err := f.LoadFont(bold, 0, canvas.FontBold); err != nil {
		return nil, fmt.Errorf("load %s bold: %w", familyName, err)
	}
	b.families[class] = f
	return f, nil
}
