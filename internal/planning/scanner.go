package planning

// span is a half-open byte range [start, end) into the scanned text.
type span struct {
	start, end int
}

// object is a balanced {...} span together with the balanced objects
// directly nested inside it.
type object struct {
	span
	inner []object
}

// rescanBudget bounds the bytes scanned by restarts, as a multiple of the
// input length.
const rescanBudget = 4

// scanObjects returns the balanced top-level {...} objects in s, in order of
// appearance. Brace depth and string state are tracked byte by byte so
// braces inside quoted values and nested objects stay inside their
// enclosing candidate.
//
// Quotes only open a string inside an object; prose quotes outside braces
// are ignored. An object left open at end of input does not swallow the
// rest: the objects closed inside it are promoted to the top level. When
// the input also ends inside a string, the open brace was most likely prose
// and its quotes were misread, so scanning restarts one byte after it while
// the rescan budget lasts.
//
// Iterating bytes is safe for the ASCII delimiters because UTF-8 never
// encodes them inside a multi-byte sequence.
func scanObjects(s string) []object {
	var out []object
	budget := rescanBudget*len(s) + 1
	pos := 0
	for {
		res := scanFrom(s, pos)
		out = append(out, res.closed...)
		budget -= len(s) - pos
		if res.restart < 0 || budget <= 0 {
			return append(out, res.orphans...)
		}
		pos = res.restart
	}
}

type scanResult struct {
	// closed holds objects that closed at depth zero.
	closed []object
	// orphans holds objects closed inside a brace still open at end of input.
	orphans []object
	// restart is the offset after the outermost unclosed brace when the
	// input ended inside a string, otherwise -1.
	restart int
}

type frame struct {
	start int
	inner []object
}

// scanFrom makes one linear pass over s[pos:].
func scanFrom(s string, pos int) scanResult {
	var (
		res      = scanResult{restart: -1}
		stack    []frame
		inString bool
		escape   bool
	)

	for i := pos; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if len(stack) > 0 {
				inString = true
			}
		case '{':
			stack = append(stack, frame{start: i})
		case '}':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			obj := object{span: span{start: top.start, end: i + 1}, inner: top.inner}
			if len(stack) == 0 {
				res.closed = append(res.closed, obj)
			} else {
				parent := &stack[len(stack)-1]
				parent.inner = append(parent.inner, obj)
			}
		}
	}

	if len(stack) == 0 {
		return res
	}
	if inString {
		res.restart = stack[0].start + 1
	}
	// Children of lower frames all precede the next frame's opening brace,
	// so bottom-to-top order is order of appearance.
	for _, f := range stack {
		res.orphans = append(res.orphans, f.inner...)
	}
	return res
}

// candidates returns the substrings of the given top-level objects.
func candidates(s string, objs []object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = s[o.start:o.end]
	}
	return out
}
