package cache

// lineData holds the bytes of one line. written marks the bytes stored by
// writes, which fills must not overwrite. present marks the bytes that hold
// real data.
type lineData struct {
	bytes   []byte
	written []bool
	present []bool
}

// dataArray keeps the content of every line. Lines are allocated when they
// are first touched.
type dataArray struct {
	lineSize uint64
	lines    []*lineData
}

func newDataArray(numLines int, lineSize uint64) *dataArray {
	return &dataArray{
		lineSize: lineSize,
		lines:    make([]*lineData, numLines),
	}
}

func (d *dataArray) line(idx int) *lineData {
	l := d.lines[idx]
	if l == nil {
		l = &lineData{
			bytes:   make([]byte, d.lineSize),
			written: make([]bool, d.lineSize),
			present: make([]bool, d.lineSize),
		}
		d.lines[idx] = l
	}

	return l
}

// take returns the bytes of a line and empties the line.
func (d *dataArray) take(idx int) (data []byte, present []bool) {
	l := d.lines[idx]
	if l == nil {
		return make([]byte, d.lineSize), make([]bool, d.lineSize)
	}

	d.lines[idx] = nil

	return l.bytes, l.present
}

func (d *dataArray) reset(idx int) {
	d.lines[idx] = nil
}

func (d *dataArray) resetAll() {
	for i := range d.lines {
		d.lines[i] = nil
	}
}

// drop forgets size bytes of a line starting at offset.
func (d *dataArray) drop(idx int, offset, size uint64) {
	l := d.lines[idx]
	if l == nil {
		return
	}

	for i := offset; i < offset+size && i < d.lineSize; i++ {
		l.written[i] = false
		l.present[i] = false
	}
}

// write stores data at offset. The byte at offset+i is only stored if
// keep(i) is true.
func (d *dataArray) write(
	idx int,
	offset uint64,
	data []byte,
	keep func(i int) bool,
) {
	l := d.line(idx)

	for i, b := range data {
		o := offset + uint64(i)
		if o >= d.lineSize {
			break
		}

		if keep != nil && !keep(i) {
			continue
		}

		l.bytes[o] = b
		l.written[o] = true
		l.present[o] = true
	}
}

// fill stores the bytes fetched from the memory below, leaving the bytes
// that were written alone.
func (d *dataArray) fill(idx int, offset uint64, data []byte, valid []bool) {
	l := d.line(idx)

	for i, b := range data {
		o := offset + uint64(i)
		if o >= d.lineSize {
			break
		}

		if !valid[i] || l.written[o] {
			continue
		}

		l.bytes[o] = b
		l.present[o] = true
	}
}

func (d *dataArray) read(idx int, offset, size uint64) []byte {
	out := make([]byte, size)

	l := d.lines[idx]
	if l == nil || offset >= d.lineSize {
		return out
	}

	copy(out, l.bytes[offset:])

	return out
}
