package missingfonts

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ScriptNamer turns ISO 15924 codes ("Grek") into display names ("Greek").
// The CLDR tables are only touched on first use.
type ScriptNamer struct {
	lang  string
	once  sync.Once
	namer display.Namer
}

// NewScriptNamer returns a namer for the given BCP 47 language, falling back
// to English when the language is unknown.
func NewScriptNamer(lang string) *ScriptNamer {
	return &ScriptNamer{lang: lang}
}

func (n *ScriptNamer) init() {
	if tag, err := language.Parse(n.lang); err == nil {
		n.namer = display.Scripts(tag)
	}
	if n.namer == nil {
		n.namer = display.English.Scripts()
	}
}

// Name returns the display name of code, or code itself when it has none.
func (n *ScriptNamer) Name(code string) string {
	n.once.Do(n.init)
	script, err := language.ParseScript(code)
	if err != nil {
		return code
	}
	if name := n.namer.Name(script); name != "" {
		return name
	}
	return code
}

// Names maps Name over codes.
func (n *ScriptNamer) Names(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, n.Name(c))
	}
	return out
}
