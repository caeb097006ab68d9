package numinput

import "sync"

// Field is an in-memory Input, used where the value lives server-side or in
// tests.
type Field struct {
	mu      sync.Mutex
	value   string
	focused bool
}

// NewField returns an unfocused Field holding value.
func NewField(value string) *Field {
	return &Field{value: value}
}

func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Field) SetValue(v string) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func (f *Field) Focused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

// Focus marks the field as focused.
func (f *Field) Focus() {
	f.mu.Lock()
	f.focused = true
	f.mu.Unlock()
}

// Blur marks the field as unfocused.
func (f *Field) Blur() {
	f.mu.Lock()
	f.focused = false
	f.mu.Unlock()
}
