package publisher

import (
	"fmt"
	"slices"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

// Block is one Portable Text block of a rich text body
type Block struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key"`
	Style    string    `json:"style"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children"`
	MarkDefs []MarkDef `json:"markDefs"`
}

// Span is a run of text sharing the same marks
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// MarkDef defines an annotation referenced from span marks, such as a link
type MarkDef struct {
	Type string `json:"_type"`
	Key  string `json:"_key"`
	Href string `json:"href"`
}

// Text returns the plain text of the block
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

var parser = markdown.New(
	markdown.HTML(false),
	markdown.Linkify(false),
	markdown.Typographer(false),
	markdown.Tables(false),
)

// MarkdownToBlocks converts a markdown article to Portable Text blocks.
// Headings map to h1-h6 styles, list items carry listItem and level, and
// code fences become a single span marked code.
func MarkdownToBlocks(md string) []Block {
	c := &converter{}
	for _, tok := range parser.Parse([]byte(md)) {
		c.block(tok)
	}
	return c.blocks
}

type converter struct {
	blocks     []Block
	lists      []string
	quoteDepth int
	heading    int
	seq        int
}

func (c *converter) key(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s%d", prefix, c.seq)
}

func (c *converter) block(tok markdown.Token) {
	switch t := tok.(type) {
	case *markdown.HeadingOpen:
		c.heading = t.HLevel
	case *markdown.HeadingClose:
		c.heading = 0
	case *markdown.BlockquoteOpen:
		c.quoteDepth++
	case *markdown.BlockquoteClose:
		c.quoteDepth--
	case *markdown.BulletListOpen:
		c.lists = append(c.lists, "bullet")
	case *markdown.OrderedListOpen:
		c.lists = append(c.lists, "number")
	case *markdown.BulletListClose, *markdown.OrderedListClose:
		if len(c.lists) > 0 {
			c.lists = c.lists[:len(c.lists)-1]
		}
	case *markdown.Inline:
		c.inline(t.Children)
	case *markdown.Fence:
		c.code(t.Content)
	case *markdown.CodeBlock:
		c.code(t.Content)
	}
}

func (c *converter) newBlock() Block {
	b := Block{
		Type:     "block",
		Key:      c.key("b"),
		Style:    "normal",
		Children: []Span{},
		MarkDefs: []MarkDef{},
	}
	switch {
	case c.heading > 0:
		b.Style = fmt.Sprintf("h%d", c.heading)
	case c.quoteDepth > 0:
		b.Style = "blockquote"
	}
	if len(c.lists) > 0 && c.heading == 0 {
		b.ListItem = c.lists[len(c.lists)-1]
		b.Level = len(c.lists)
	}
	return b
}

func (c *converter) code(content string) {
	b := c.newBlock()
	b.ListItem, b.Level = "", 0
	c.appendSpan(&b, strings.TrimRight(content, "\n"), []string{"code"})
	c.blocks = append(c.blocks, b)
}

func (c *converter) inline(children []markdown.Token) {
	b := c.newBlock()
	var marks []string

	pop := func(mark string) {
		if i := slices.Index(marks, mark); i >= 0 {
			marks = slices.Delete(marks, i, i+1)
		}
	}
	var links []string

	for _, tok := range children {
		switch t := tok.(type) {
		case *markdown.Text:
			c.appendSpan(&b, t.Content, marks)
		case *markdown.CodeInline:
			c.appendSpan(&b, t.Content, append(slices.Clone(marks), "code"))
		case *markdown.Softbreak:
			c.appendSpan(&b, " ", marks)
		case *markdown.Hardbreak:
			c.appendSpan(&b, "\n", marks)
		case *markdown.StrongOpen:
			marks = append(marks, "strong")
		case *markdown.StrongClose:
			pop("strong")
		case *markdown.EmphasisOpen:
			marks = append(marks, "em")
		case *markdown.EmphasisClose:
			pop("em")
		case *markdown.StrikethroughOpen:
			marks = append(marks, "strike-through")
		case *markdown.StrikethroughClose:
			pop("strike-through")
		case *markdown.LinkOpen:
			key := c.key("l")
			b.MarkDefs = append(b.MarkDefs, MarkDef{Type: "link", Key: key, Href: t.Href})
			marks = append(marks, key)
			links = append(links, key)
		case *markdown.LinkClose:
			if len(links) > 0 {
				pop(links[len(links)-1])
				links = links[:len(links)-1]
			}
		case *markdown.Image:
			alt := inlineText(t.Tokens)
			if alt != "" {
				c.appendSpan(&b, alt, marks)
			}
		}
	}

	if len(b.Children) == 0 {
		return
	}
	c.blocks = append(c.blocks, b)
}

// appendSpan merges text into the previous span when the marks are the same.
func (c *converter) appendSpan(b *Block, text string, marks []string) {
	if text == "" {
		return
	}
	if n := len(b.Children); n > 0 && slices.Equal(b.Children[n-1].Marks, marks) {
		b.Children[n-1].Text += text
		return
	}
	m := slices.Clone(marks)
	if m == nil {
		m = []string{}
	}
	b.Children = append(b.Children, Span{Type: "span", Key: c.key("s"), Text: text, Marks: m})
}

func inlineText(tokens []markdown.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		switch t := tok.(type) {
		case *markdown.Text:
			sb.WriteString(t.Content)
		case *markdown.CodeInline:
			sb.WriteString(t.Content)
		}
	}
	return sb.String()
}
