package form

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a field name with an optional list index.
type Segment struct {
	Name     string
	Index    int
	HasIndex bool
}

// Path addresses a field of the quotation tree, e.g. Hotels[0].Nights.
type Path struct {
	segs []Segment
}

// ParsePath accepts bracket (Hotels[0].Nights) and dotted (Hotels.0.Nights)
// index notation.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, fmt.Errorf("%w: empty path", ErrUnknownPath)
	}
	var segs []Segment
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return Path{}, fmt.Errorf("%w: %q", ErrUnknownPath, s)
		}
		if n, err := strconv.Atoi(part); err == nil {
			if len(segs) == 0 || segs[len(segs)-1].HasIndex || n < 0 {
				return Path{}, fmt.Errorf("%w: %q", ErrUnknownPath, s)
			}
			segs[len(segs)-1].Index = n
			segs[len(segs)-1].HasIndex = true
			continue
		}
		seg := Segment{Name: part}
		if i := strings.IndexByte(part, '['); i >= 0 {
			if !strings.HasSuffix(part, "]") || i == 0 {
				return Path{}, fmt.Errorf("%w: %q", ErrUnknownPath, s)
			}
			n, err := strconv.Atoi(part[i+1 : len(part)-1])
			if err != nil || n < 0 {
				return Path{}, fmt.Errorf("%w: bad index in %q", ErrUnknownPath, s)
			}
			seg = Segment{Name: part[:i], Index: n, HasIndex: true}
		}
		segs = append(segs, seg)
	}
	return Path{segs: segs}, nil
}

func MustParse(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// At builds an indexed path such as Hotels[2].CheckInDate.
func At(list string, index int, field ...string) Path {
	segs := []Segment{{Name: list, Index: index, HasIndex: true}}
	for _, f := range field {
		segs = append(segs, Segment{Name: f})
	}
	return Path{segs: segs}
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Name)
		if s.HasIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// Pattern is the path with indices erased: Hotels[].Nights.
func (p Path) Pattern() string {
	var b strings.Builder
	for i, s := range p.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Name)
		if s.HasIndex {
			b.WriteString("[]")
		}
	}
	return b.String()
}

func (p Path) indices() []int {
	var out []int
	for _, s := range p.segs {
		if s.HasIndex {
			out = append(out, s.Index)
		}
	}
	return out
}

func (p Path) IsZero() bool { return len(p.segs) == 0 }

// Contains reports whether key (a rendered path) is p itself or lies below it.
func (p Path) Contains(key string) bool {
	s := p.String()
	return key == s || strings.HasPrefix(key, s+".") || strings.HasPrefix(key, s+"[")
}
