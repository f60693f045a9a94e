package annotation

// Key addresses the drawing of one surface of one question.
type Key struct {
	LabelID string
	Surface Surface
}

// Book stores drawings for every annotated question of a session.
type Book struct {
	drawings map[Key]DrawingData
}

// NewBook creates an empty book.
func NewBook() Book {
	return Book{drawings: make(map[Key]DrawingData)}
}

// RestoreBook rebuilds a book from storage, dropping empty entries.
func RestoreBook(drawings map[Key]DrawingData) Book {
	b := NewBook()
	for k, d := range drawings {
		if !d.IsEmpty() {
			b.drawings[k] = d
		}
	}
	return b
}

// Drawing returns what is drawn on a surface. The result is a copy.
func (b Book) Drawing(labelID string, s Surface) DrawingData {
	d := b.drawings[Key{LabelID: labelID, Surface: s}]
	return DrawingData{
		Paths:  append([]Path(nil), d.Paths...),
		Labels: append([]Label(nil), d.Labels...),
	}
}

// Entries returns every non-empty drawing keyed by question and surface.
func (b Book) Entries() map[Key]DrawingData {
	out := make(map[Key]DrawingData, len(b.drawings))
	for k, d := range b.drawings {
		out[k] = d
	}
	return out
}

// AddPath commits a stroke. Strokes with fewer than two points are ignored.
func (b *Book) AddPath(labelID string, s Surface, p Path) bool {
	if len(p.Points) < 2 {
		return false
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	b.update(labelID, s, func(d *DrawingData) {
		d.Paths = append(d.Paths, p)
	})
	return true
}

// AddLabel commits a text label.
func (b *Book) AddLabel(labelID string, s Surface, l Label) {
	if l.Color == "" {
		l.Color = DefaultColor
	}
	b.update(labelID, s, func(d *DrawingData) {
		d.Labels = append(d.Labels, l)
	})
}

// Erase removes the single item under p. Labels are tested before strokes;
// the first hit in drawing order wins. Returns false when nothing was hit.
func (b *Book) Erase(labelID string, s Surface, p Point) bool {
	key := Key{LabelID: labelID, Surface: s}
	d, ok := b.drawings[key]
	if !ok {
		return false
	}
	for i, l := range d.Labels {
		if l.near(p) {
			d.Labels = removeAt(d.Labels, i)
			b.store(key, d)
			return true
		}
	}
	for i, path := range d.Paths {
		if path.near(p) {
			d.Paths = removeAt(d.Paths, i)
			b.store(key, d)
			return true
		}
	}
	return false
}

// Undo removes the most recent item of a question. The question surface is
// checked before the mark scheme; on a surface, labels go before strokes.
func (b *Book) Undo(labelID string) bool {
	for _, s := range Surfaces {
		key := Key{LabelID: labelID, Surface: s}
		d, ok := b.drawings[key]
		if !ok || d.IsEmpty() {
			continue
		}
		if n := len(d.Labels); n > 0 {
			d.Labels = d.Labels[:n-1 : n-1]
		} else {
			n := len(d.Paths)
			d.Paths = d.Paths[:n-1 : n-1]
		}
		b.store(key, d)
		return true
	}
	return false
}

// Clear removes both surfaces of a question.
func (b *Book) Clear(labelID string) {
	for _, s := range Surfaces {
		delete(b.drawings, Key{LabelID: labelID, Surface: s})
	}
}

func (b *Book) update(labelID string, s Surface, fn func(d *DrawingData)) {
	if b.drawings == nil {
		b.drawings = make(map[Key]DrawingData)
	}
	key := Key{LabelID: labelID, Surface: s}
	d := b.drawings[key]
	fn(&d)
	b.drawings[key] = d
}

func (b *Book) store(key Key, d DrawingData) {
	if d.IsEmpty() {
		delete(b.drawings, key)
		return
	}
	b.drawings[key] = d
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
