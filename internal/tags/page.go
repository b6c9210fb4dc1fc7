// Package tags injects third-party tracking snippets into the page shell.
package tags

import (
	"html/template"
	"sync"
)

// Position is where an element is placed in the document.
type Position string

const (
	PositionHead      Position = "head"
	PositionBodyStart Position = "body-start"
	PositionBodyEnd   Position = "body-end"
)

// Element is a snippet owned by one injector and identified by ID.
type Element struct {
	ID       string
	Position Position
	HTML     template.HTML
}

// Page collects the elements rendered into the shell.
type Page struct {
	mu       sync.RWMutex
	elements []Element
}

func NewPage() *Page {
	return &Page{}
}

// Add appends e, or prepends it for PositionBodyStart so the most recent
// body-start element comes first. An element with the same ID is replaced.
func (p *Page) Add(e Element) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(e.ID)
	if e.Position == PositionBodyStart {
		p.elements = append([]Element{e}, p.elements...)
		return
	}
	p.elements = append(p.elements, e)
}

// Remove deletes the element with the given ID and reports whether it existed.
func (p *Page) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(id)
}

func (p *Page) removeLocked(id string) bool {
	for i, e := range p.elements {
		if e.ID == id {
			p.elements = append(p.elements[:i], p.elements[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Page) Has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.elements {
		if e.ID == id {
			return true
		}
	}
	return false
}

// At returns the elements at pos in document order.
func (p *Page) At(pos Position) []Element {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Element
	for _, e := range p.elements {
		if e.Position == pos {
			out = append(out, e)
		}
	}
	return out
}

func (p *Page) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.elements)
}
