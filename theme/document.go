package theme

import (
	"strings"
	"sync"
)

var _ Surface = (*Document)(nil)

// Document is an in-memory surface holding the active custom properties.
// Render produces the :root block consumers can serve or write to disk.
type Document struct {
	lock  sync.Mutex
	props map[string]string
	order []string
}

func NewDocument() *Document {
	return &Document{props: make(map[string]string)}
}

func (d *Document) SetProperty(name, value string) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.props[name]; !ok {
		d.order = append(d.order, name)
	}
	d.props[name] = value
}

// Property returns the current value of a custom property.
func (d *Document) Property(name string) (string, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	value, ok := d.props[name]
	return value, ok
}

// Render returns the properties as a :root CSS block, in insertion order.
func (d *Document) Render() string {
	d.lock.Lock()
	defer d.lock.Unlock()

	var sb strings.Builder
	sb.WriteString(":root {\n")
	for _, name := range d.order {
		sb.WriteString("  ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(d.props[name])
		sb.WriteString(";\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
